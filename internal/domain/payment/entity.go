package payment

import (
	"time"

	"github.com/google/uuid"
)

// Confirmation is a signed payment callback from the gateway. It is used at
// most once to transition a single order.
type Confirmation struct {
	GatewayPaymentRef string    `json:"gateway_payment_ref"`
	GatewayOrderRef   string    `json:"gateway_order_ref"`
	Signature         string    `json:"signature"`
	ReceivedAt        time.Time `json:"received_at"`
}

// Disposition records how a confirmation was handled
type Disposition string

const (
	DispositionAccepted     Disposition = "accepted"
	DispositionDuplicate    Disposition = "duplicate"
	DispositionLateRejected Disposition = "late-rejected" // arrived after expiry, needs manual reconciliation
	DispositionBadSignature Disposition = "bad-signature"
	DispositionUnmatched    Disposition = "unmatched" // no order for the gateway ref
)

// ConfirmationRecord is the audit trail row for a received confirmation.
type ConfirmationRecord struct {
	ID                uuid.UUID   `db:"id" json:"id"`
	GatewayOrderRef   string      `db:"gateway_order_ref" json:"gateway_order_ref"`
	GatewayPaymentRef string      `db:"gateway_payment_ref" json:"gateway_payment_ref"`
	Disposition       Disposition `db:"disposition" json:"disposition"`
	ReceivedAt        time.Time   `db:"received_at" json:"received_at"`
}
