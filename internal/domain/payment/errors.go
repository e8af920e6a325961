package payment

import "errors"

var ErrSignatureInvalid = errors.New("confirmation signature invalid")
