package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store/drivers/sqlite"
	"github.com/yakshxo/snapstudy/pkg/cryptox"
	"github.com/yakshxo/snapstudy/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "snapstudy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// fakeNotifier records deliveries so tests can read issued codes without a
// mail server.
type fakeNotifier struct {
	mu sync.Mutex

	lastOTP      string
	lastOTPEmail string
	lastOTPLogin bool
	welcomes     []string
	failSend     bool
}

func (n *fakeNotifier) SendOTP(ctx context.Context, email, displayName, code string, login bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failSend {
		return context.DeadlineExceeded
	}
	n.lastOTP = code
	n.lastOTPEmail = email
	n.lastOTPLogin = login
	return nil
}

func (n *fakeNotifier) SendWelcome(ctx context.Context, email, displayName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *fakeNotifier) code() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastOTP
}

func (n *fakeNotifier) welcomeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.welcomes)
}

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func newAccountService(t *testing.T, st store.Store, notifier *fakeNotifier) *AccountService {
	t.Helper()

	signer, err := jwtx.NewHS256([]byte(testSessionSecret), "snapstudy-test")
	require.NoError(t, err)

	return &AccountService{
		Store:    st,
		OTP:      &OTPIssuer{Store: st},
		Tokens:   &TokenService{Signer: signer, Issuer: "snapstudy-test", SessionTTL: time.Hour},
		Notifier: notifier,
		UnlimitedEmails: map[string]struct{}{
			"dev@snapstudy.app": {},
		},
	}
}

// registerVerified runs the full signup flow and returns the verified
// account.
func registerVerified(t *testing.T, svc *AccountService, notifier *fakeNotifier, name, email, password string) domain.Account {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Register(ctx, name, email, password)
	require.NoError(t, err)

	session, err := svc.CompleteChallenge(ctx, email, notifier.code(), false)
	require.NoError(t, err)
	require.True(t, session.Account.Verified())
	return session.Account
}

// fakeGenerator returns canned cards or a canned error.
type fakeGenerator struct {
	cards []domain.Card
	err   error

	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, content string, settings domain.GenerationSettings) ([]domain.Card, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.cards, nil
}

// fakeProvider serves canned transactions keyed by id and decodes webhook
// payloads as "<signature-ok>" checks only.
type fakeProvider struct {
	transactions map[string]domain.Transaction
	event        domain.WebhookEvent
	validSig     string
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (domain.CheckoutSession, error) {
	return domain.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (p *fakeProvider) CreatePaymentIntent(ctx context.Context, in IntentParams) (domain.PaymentIntent, error) {
	return domain.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: in.AmountCents}, nil
}

func (p *fakeProvider) GetPaymentIntent(ctx context.Context, id string) (domain.Transaction, error) {
	txn, ok := p.transactions[id]
	if !ok {
		return domain.Transaction{}, store.ErrNotFound
	}
	return txn, nil
}

func (p *fakeProvider) GetCheckoutSession(ctx context.Context, id string) (domain.Transaction, error) {
	return p.GetPaymentIntent(ctx, id)
}

func (p *fakeProvider) VerifyWebhook(payload []byte, signature string) (domain.WebhookEvent, error) {
	if signature != p.validSig {
		return domain.WebhookEvent{}, ErrInvalidSignature
	}
	return p.event, nil
}
