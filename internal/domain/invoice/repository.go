package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// NextNumber draws a collision-free invoice number from the DB sequence.
func (r *Repository) NextNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.db.GetContext(ctx, &seq, `SELECT nextval('invoice_number_seq')`); err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%08d", seq), nil
}

// Create inserts an invoice. The unique index on order_id makes generation
// idempotent: a concurrent duplicate insert returns the existing invoice.
func (r *Repository) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (invoice_number, order_id, user_id, payment_ref, amount, generated_at, document_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inv.InvoiceNumber, inv.OrderID, inv.UserID, inv.PaymentRef, inv.Amount, inv.GeneratedAt, inv.DocumentRef)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return r.GetByOrderID(ctx, inv.OrderID)
		}
		return nil, err
	}
	return inv, nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	var inv Invoice
	err := r.db.GetContext(ctx, &inv, `SELECT * FROM invoices WHERE invoice_number = $1`, invoiceNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByUser returns a page of a user's invoices ordered generated_at desc.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]Invoice, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM invoices WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	invoices := []Invoice{}
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices
		WHERE user_id = $1
		ORDER BY generated_at DESC, invoice_number DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}
