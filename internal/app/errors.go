package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrNonPositiveQuantity = errors.New("quantity must be greater than zero")
	ErrItemNotFound        = errors.New("portfolio item not found")
	ErrUnknownCoin         = errors.New("coin not in the latest market list")
)

// StorageError reports a failed read or write of the key/value store. The
// in-memory operation that triggered it has already been applied.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
