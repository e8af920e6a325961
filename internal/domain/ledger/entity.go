package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a ledger entry
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Source identifies the kind of event that produced an entry
type Source string

const (
	SourceDirectTopUp     Source = "direct-topup"
	SourcePackagePurchase Source = "package-purchase"
)

// Wallet holds a user's virtual-coin balance. The balance is the
// authoritative aggregate; it always agrees with the entry sum.
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Entry is an immutable record of a single balance-affecting event.
// OrderID is a weak back-reference; the order owns its own lifecycle.
type Entry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	OrderID   *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	Amount    int64      `db:"amount" json:"amount"`
	Direction Direction  `db:"direction" json:"direction"`
	Source    Source     `db:"source" json:"source"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
