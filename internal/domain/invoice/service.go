package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradesim/tradesim-api/internal/domain/order"
	"github.com/tradesim/tradesim-api/internal/pkg/storage"
)

type Service struct {
	repo     *Repository
	orders   *order.Repository
	store    storage.Storage
	currency string
}

func NewService(repo *Repository, orders *order.Repository, store storage.Storage, currency string) *Service {
	return &Service{repo: repo, orders: orders, store: store, currency: currency}
}

// Generate creates the invoice for one of userID's credited orders, or
// returns the existing one. Another user's order answers ErrOrderNotFound
// before anything is written. Safe to retry: the order_id unique index makes
// duplicates impossible.
func (s *Service) Generate(ctx context.Context, userID, orderID uuid.UUID) (*Invoice, error) {
	if existing, err := s.repo.GetByOrderID(ctx, orderID); err == nil {
		if existing.UserID != userID {
			return nil, order.ErrOrderNotFound
		}
		return existing, nil
	} else if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	if o.Status != order.StatusCredited {
		return nil, ErrOrderNotCredited
	}

	number, err := s.repo.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	paymentRef := ""
	if o.GatewayPaymentRef != nil {
		paymentRef = *o.GatewayPaymentRef
	}

	inv := &Invoice{
		InvoiceNumber: number,
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentRef:    paymentRef,
		Amount:        o.CheckoutAmount,
		GeneratedAt:   time.Now(),
		DocumentRef:   fmt.Sprintf("invoices/%s.txt", number),
	}

	document := renderDocument(inv, o, s.currency)
	if err := s.store.Put(ctx, inv.DocumentRef, strings.NewReader(document), "text/plain; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("failed to store invoice document: %w", err)
	}

	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, err
	}
	if created.InvoiceNumber != inv.InvoiceNumber {
		// A concurrent generation won; drop the orphaned document.
		if delErr := s.store.Delete(ctx, inv.DocumentRef); delErr != nil {
			log.Warn().Err(delErr).Str("document_ref", inv.DocumentRef).Msg("failed to remove orphaned invoice document")
		}
		return created, nil
	}

	log.Info().
		Str("invoice_number", created.InvoiceNumber).
		Str("order_id", orderID.String()).
		Msg("invoice generated")

	return created, nil
}

// Fetch returns the document bytes for an invoice number. A purged document
// surfaces as ErrInvoiceExpired, never as a silent empty body.
func (s *Service) Fetch(ctx context.Context, invoiceNumber string) (*Invoice, []byte, error) {
	inv, err := s.repo.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.store.Get(ctx, inv.DocumentRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return inv, nil, ErrInvoiceExpired
		}
		return nil, nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}
	return inv, data, nil
}

// List returns a page of the user's invoices, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]Invoice, int, error) {
	return s.repo.ListByUser(ctx, userID, page, limit)
}

func renderDocument(inv *Invoice, o *order.TopUpOrder, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Generated: %s\n", inv.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Order: %s\n", o.ID)
	fmt.Fprintf(&b, "Payment reference: %s\n", inv.PaymentRef)
	if o.PackageID != nil {
		fmt.Fprintf(&b, "Item: package %q\n", *o.PackageID)
	} else {
		fmt.Fprintf(&b, "Item: custom top-up\n")
	}
	fmt.Fprintf(&b, "Amount charged: %d %s\n", inv.Amount, currency)
	fmt.Fprintf(&b, "Coins credited: %d\n", o.CreditAmount)
	return b.String()
}
