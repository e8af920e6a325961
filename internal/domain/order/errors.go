package order

import "errors"

var (
	ErrAmountOutOfRange     = errors.New("amount out of range")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderAlreadyTerminal = errors.New("order already in terminal state")
	ErrOrderExpired         = errors.New("order expired")
)
