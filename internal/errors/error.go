// Package errors provides sentinel errors shared by the storefront packages.
package errors

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidLogin     = errors.New("invalid email or password")
	ErrAdminUnavailable = errors.New("admin api unavailable")

	ErrOrderRejected    = errors.New("order rejected")
	ErrOrderUnavailable = errors.New("order service unavailable")
)
