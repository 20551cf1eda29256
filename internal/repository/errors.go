package repository

import (
	"github.com/samber/oops"
)

// storageErr tags a driver failure with the operation that hit it. It
// returns nil for a nil err.
func storageErr(op string, err error) error {
	return oops.Code("STORAGE_FAILED").With("op", op).Wrap(err)
}
