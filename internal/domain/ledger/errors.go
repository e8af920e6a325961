package ledger

import "errors"

var (
	ErrInvalidOrderState = errors.New("order not in creditable state")
	ErrInvalidAmount     = errors.New("invalid amount")
)
