package cart

import (
	"context"
	"errors"
)

// ErrNoProvider is the panic value raised when the cart is used outside a provider scope.
var ErrNoProvider = errors.New("cart: no provider in scope")

type providerKey struct{}

// WithProvider scopes p to ctx.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// ProviderFrom returns the provider in scope. It panics with ErrNoProvider when
// there is none: reaching the cart without a provider is a wiring defect.
func ProviderFrom(ctx context.Context) *Provider {
	p, ok := ctx.Value(providerKey{}).(*Provider)
	if !ok || p == nil {
		panic(ErrNoProvider)
	}
	return p
}
