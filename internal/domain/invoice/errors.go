package invoice

import "errors"

var (
	ErrOrderNotCredited = errors.New("order not credited")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrInvoiceExpired   = errors.New("invoice document purged")
)
