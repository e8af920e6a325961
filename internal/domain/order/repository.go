package order

import (
	"context"
	"database/sql"
	"errors"
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

func (r *Repository) Create(ctx context.Context, o *TopUpOrder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO topup_orders (id, user_id, package_id, checkout_amount, credit_amount, gateway_order_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.UserID, o.PackageID, o.CheckoutAmount, o.CreditAmount, o.GatewayOrderRef, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*TopUpOrder, error) {
	var o TopUpOrder
	err := r.db.GetContext(ctx, &o, `SELECT * FROM topup_orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetByGatewayRef(ctx context.Context, gatewayOrderRef string) (*TopUpOrder, error) {
	var o TopUpOrder
	err := r.db.GetContext(ctx, &o, `SELECT * FROM topup_orders WHERE gateway_order_ref = $1`, gatewayOrderRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// TransitionStatus conditionally moves an order from one status to another.
// Returns false when the order was not in the expected status, which is how
// concurrent transitions lose the race without corrupting state.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE topup_orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkVerified records the gateway payment reference together with the
// pending -> verified transition in one conditional update.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE topup_orders SET status = $1, gateway_payment_ref = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, StatusVerified, gatewayPaymentRef, id, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SweepExpired expires every pending order created before the cutoff and
// returns the swept orders for event fan-out.
func (r *Repository) SweepExpired(ctx context.Context, cutoff time.Time) ([]TopUpOrder, error) {
	var swept []TopUpOrder
	err := r.db.SelectContext(ctx, &swept, `
		UPDATE topup_orders SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3
		RETURNING *
	`, StatusExpired, StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	return swept, nil
}
