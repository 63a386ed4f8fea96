package sqlite

import (
	"context"
	"time"
)

type processedPaymentsRepo struct {
	db dbtx
}

// MarkProcessed inserts the transaction id; the primary key turns a
// redelivery into store.ErrAlreadyExists, which is the whole idempotency
// mechanism for credit grants.
func (r *processedPaymentsRepo) MarkProcessed(ctx context.Context, transactionID, accountID string, credits int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_payments (transaction_id, account_id, credits, processed_at)
		VALUES (?, ?, ?, ?)`,
		transactionID, accountID, credits, time.Now().UTC(),
	)
	return mapConstraint(err)
}
