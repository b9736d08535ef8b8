package db

import (
	"context"
	"errors"
)

// Keys used by the tracker. One key per logical record.
const (
	KeyAuthToken = "authToken"
	KeyPortfolio = "portfolio"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")

// Store is the on-device key/value storage. Removing an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
