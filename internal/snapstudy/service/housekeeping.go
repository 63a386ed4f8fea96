package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
)

// StaleGenerationCutoff is how long a set may sit in "generating" before
// housekeeping declares the generation interrupted.
const StaleGenerationCutoff = 15 * time.Minute

// HousekeepingService periodically clears expired OTP codes and fails
// flashcard sets stranded in "generating" by a crash mid-request.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 10 minutes.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup to catch anything stranded by the
	// previous process.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs the cleanup passes. Each pass is independent - a failure
// in one never stops the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now()

	if n, err := s.Store.Accounts().ClearExpiredOTPs(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired otp codes", "error", err)
	} else if n > 0 {
		s.Logger.Info("cleared expired otp codes", "count", n)
	}

	if n, err := s.Store.FlashcardSets().FailStaleGenerating(ctx, now.Add(-StaleGenerationCutoff)); err != nil {
		s.Logger.Error("failed to fail stale generating sets", "error", err)
	} else if n > 0 {
		s.Logger.Info("failed stale generating sets", "count", n)
	}
}
