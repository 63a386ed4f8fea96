package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, display_name, password_hash, verified_at,
	otp_code, otp_expires_at, credit_balance, has_unlimited_credits,
	total_generated_count, subscription_tier, school_name, phone_number,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a            domain.Account
		verifiedAt   sql.NullTime
		otpCode      sql.NullString
		otpExpiresAt sql.NullTime
		tier         string
		school       sql.NullString
		phone        sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &verifiedAt,
		&otpCode, &otpExpiresAt, &a.CreditBalance, &a.HasUnlimitedCredits,
		&a.TotalGeneratedCount, &tier, &school, &phone,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.VerifiedAt = mapNullTimePtr(verifiedAt)
	a.OTPCode = mapNullStringPtr(otpCode)
	a.OTPExpiresAt = mapNullTimePtr(otpExpiresAt)
	a.SubscriptionTier = domain.SubscriptionTier(tier)
	a.SchoolName = mapNullStringPtr(school)
	a.PhoneNumber = mapNullStringPtr(phone)
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, display_name, password_hash, credit_balance,
			has_unlimited_credits, subscription_tier, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.DisplayName, a.PasswordHash, a.CreditBalance,
		a.HasUnlimitedCredits, string(domain.TierFree), now, now,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateRegistration(ctx context.Context, id, displayName, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = ?, password_hash = ?, updated_at = ?
		WHERE id = ? AND verified_at IS NULL`,
		displayName, passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET otp_code = ?, otp_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		code, expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) ClearOTP(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET otp_code = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) MarkVerified(ctx context.Context, id string) error {
	// Only ever stamps a NULL column: verified_at is written exactly once
	// and a second call is a no-op, never a revert.
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET verified_at = ?, updated_at = ?
		WHERE id = ? AND verified_at IS NULL`,
		now, now, id,
	)
	return err
}

func (r *accountsRepo) DebitCredits(ctx context.Context, id string, amount int64) (int64, error) {
	// Sufficiency check and decrement in one statement; sqlite serializes
	// writers, so concurrent debits cannot both pass against a stale
	// balance.
	var balance int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET credit_balance = credit_balance - ?1, updated_at = ?2
		WHERE id = ?3 AND credit_balance >= ?1
		RETURNING credit_balance`,
		amount, time.Now().UTC(), id,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	// Distinguish a missing account from an insufficient balance.
	if _, err := r.GetAccountByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, store.ErrInsufficientCredits
}

func (r *accountsRepo) AddCredits(ctx context.Context, id string, amount int64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET credit_balance = credit_balance + ?, updated_at = ?
		WHERE id = ?
		RETURNING credit_balance`,
		amount, time.Now().UTC(), id,
	).Scan(&balance)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return balance, nil
}

func (r *accountsRepo) AddGeneratedCount(ctx context.Context, id string, n int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET total_generated_count = total_generated_count + ?, updated_at = ?
		WHERE id = ?`,
		n, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) UpdateProfile(ctx context.Context, id string, schoolName, phoneNumber *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET school_name = COALESCE(?, school_name),
		    phone_number = COALESCE(?, phone_number),
		    updated_at = ?
		WHERE id = ?`,
		mapOptionalString(schoolName), mapOptionalString(phoneNumber),
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) UpdateEmail(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *accountsRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET otp_code = NULL, otp_expires_at = NULL, updated_at = ?1
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at <= ?1`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// requireRow maps a zero-row UPDATE to store.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
