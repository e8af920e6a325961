package catalog

import "errors"

var ErrUnknownPackage = errors.New("unknown package")
