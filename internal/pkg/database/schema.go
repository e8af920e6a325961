package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Schema statements are idempotent so Migrate can run on every boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_wallets (
		user_id    UUID PRIMARY KEY,
		balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS topup_orders (
		id                  UUID PRIMARY KEY,
		user_id             UUID NOT NULL,
		package_id          TEXT,
		checkout_amount     BIGINT NOT NULL CHECK (checkout_amount > 0),
		credit_amount       BIGINT NOT NULL CHECK (credit_amount > 0),
		gateway_order_ref   TEXT NOT NULL UNIQUE,
		gateway_payment_ref TEXT,
		status              TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_topup_orders_user ON topup_orders (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_topup_orders_pending ON topup_orders (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL,
		order_id   UUID,
		amount     BIGINT NOT NULL CHECK (amount > 0),
		direction  TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
		source     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries (user_id, created_at)`,
	// Second line of defense for exactly-once crediting.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_entries_order ON ledger_entries (order_id) WHERE order_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS payment_confirmations (
		id                  UUID PRIMARY KEY,
		gateway_order_ref   TEXT NOT NULL,
		gateway_payment_ref TEXT NOT NULL,
		disposition         TEXT NOT NULL,
		received_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_confirmations_disposition ON payment_confirmations (disposition, received_at)`,
	`CREATE SEQUENCE IF NOT EXISTS invoice_number_seq`,
	`CREATE TABLE IF NOT EXISTS invoices (
		invoice_number TEXT PRIMARY KEY,
		order_id       UUID NOT NULL UNIQUE,
		user_id        UUID NOT NULL,
		payment_ref    TEXT NOT NULL DEFAULT '',
		amount         BIGINT NOT NULL,
		generated_at   TIMESTAMPTZ NOT NULL,
		document_ref   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices (user_id, generated_at)`,
}

// Migrate applies the schema. Safe to call repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	log.Info().Msg("Database schema up to date")
	return nil
}
