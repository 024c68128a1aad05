// Package kv provides named string slots: the persistence primitive behind the cart
// and the admin session. Each backend stores one opaque value per key.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("slot not found")

// Slot is a key-value store of opaque values.
type Slot interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if nothing is stored.
	Get(ctx context.Context, key string) (string, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Delete erases the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
