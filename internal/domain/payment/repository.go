package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// RecordConfirmation appends an audit row for a received gateway callback.
// Late-rejected rows are the manual reconciliation queue.
func (r *Repository) RecordConfirmation(ctx context.Context, conf Confirmation, disposition Disposition) error {
	receivedAt := conf.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_confirmations (id, gateway_order_ref, gateway_payment_ref, disposition, received_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), conf.GatewayOrderRef, conf.GatewayPaymentRef, disposition, receivedAt)
	return err
}

// ListForReconciliation returns confirmations that need manual attention.
func (r *Repository) ListForReconciliation(ctx context.Context, limit int) ([]ConfirmationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	records := []ConfirmationRecord{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM payment_confirmations
		WHERE disposition = $1
		ORDER BY received_at DESC
		LIMIT $2
	`, DispositionLateRejected, limit)
	return records, err
}
