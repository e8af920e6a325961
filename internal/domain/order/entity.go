package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a top-up order
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusCredited Status = "credited"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCredited || s == StatusFailed || s == StatusExpired
}

// TopUpOrder is the idempotency anchor for a single wallet top-up. The order
// exclusively owns its status history; the ledger only back-references it.
type TopUpOrder struct {
	ID                uuid.UUID `db:"id" json:"id"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	PackageID         *string   `db:"package_id" json:"package_id,omitempty"` // nil means free-form amount
	CheckoutAmount    int64     `db:"checkout_amount" json:"checkout_amount"` // settlement currency units
	CreditAmount      int64     `db:"credit_amount" json:"credit_amount"`     // virtual coins
	GatewayOrderRef   string    `db:"gateway_order_ref" json:"gateway_order_ref"`
	GatewayPaymentRef *string   `db:"gateway_payment_ref" json:"gateway_payment_ref,omitempty"`
	Status            Status    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
