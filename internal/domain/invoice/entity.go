package invoice

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is the durable billing document metadata for one credited order.
// At most one invoice ever exists per order.
type Invoice struct {
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	OrderID       uuid.UUID `db:"order_id" json:"order_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	PaymentRef    string    `db:"payment_ref" json:"payment_ref"`
	Amount        int64     `db:"amount" json:"amount"` // checkout amount, settlement currency units
	GeneratedAt   time.Time `db:"generated_at" json:"generated_at"`
	DocumentRef   string    `db:"document_ref" json:"document_ref"`
}
