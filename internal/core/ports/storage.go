package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a DraftSubstrate when the slot is empty.
var ErrNotFound = errors.New("not found")

// DraftSubstrate is the device-scoped key-value store backing the draft slot.
type DraftSubstrate interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
