package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tradesim/tradesim-api/internal/domain/order"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (r *Repository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := r.EnsureWallet(ctx, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM user_wallets WHERE user_id = $1`, userID)
	return balance, err
}

// lockWallet creates the wallet row if missing and takes the row lock that
// serializes all balance mutations for the user.
func (r *Repository) lockWallet(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, err
	}

	var balance int64
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM user_wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return balance, err
}

// creditableOrder is the slice of the order row the crediting step reads
// under lock.
type creditableOrder struct {
	UserID       uuid.UUID    `db:"user_id"`
	CreditAmount int64        `db:"credit_amount"`
	PackageID    *string      `db:"package_id"`
	Status       order.Status `db:"status"`
}

// CreditOrder applies a verified order to the owner's wallet exactly once.
//
// The verified -> credited transition, the entry append and the balance
// increment happen in one transaction. The conditional status update is the
// compare-and-swap that guarantees a single winner under concurrent credits;
// every losing invocation rolls back and observes ErrInvalidOrderState.
func (r *Repository) CreditOrder(ctx context.Context, orderID uuid.UUID) (*Entry, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var o creditableOrder
	err = tx.GetContext(ctx, &o, `
		SELECT user_id, credit_amount, package_id, status
		FROM topup_orders
		WHERE id = $1
		FOR UPDATE
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusVerified {
		return nil, ErrInvalidOrderState
	}
	if o.CreditAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := r.lockWallet(ctx, tx, o.UserID)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE topup_orders SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, order.StatusCredited, orderID, order.StatusVerified)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, ErrInvalidOrderState
	}

	source := SourceDirectTopUp
	if o.PackageID != nil {
		source = SourcePackagePurchase
	}

	entry := &Entry{
		ID:        uuid.New(),
		UserID:    o.UserID,
		OrderID:   &orderID,
		Amount:    o.CreditAmount,
		Direction: DirectionCredit,
		Source:    source,
		CreatedAt: time.Now(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, order_id, amount, direction, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.UserID, entry.OrderID, entry.Amount, entry.Direction, entry.Source, entry.CreatedAt); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_wallets SET balance = $1, updated_at = now() WHERE user_id = $2
	`, balance+o.CreditAmount, o.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// EntryFilter narrows history listings
type EntryFilter struct {
	Direction Direction
	Source    Source
	Page      int
	Limit     int
}

// ListEntries returns a page of a user's entries ordered created_at desc.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, filter EntryFilter) ([]Entry, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}

	if filter.Direction != "" {
		args = append(args, filter.Direction)
		where += ` AND direction = $2`
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		if filter.Direction != "" {
			where += ` AND source = $3`
		} else {
			where += ` AND source = $2`
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM ledger_entries `+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	entries := []Entry{}
	query := `SELECT * FROM ledger_entries ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumEntries recomputes the balance from the entry log. Used to audit the
// balance/entries invariant.
func (r *Repository) SumEntries(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE user_id = $1
	`, userID)
	return sum, err
}
