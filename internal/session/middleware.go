package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// HeaderName lets non-browser clients carry the session without cookies.
const HeaderName = "X-Session-Id"

// ErrNoScope is the panic value raised when no session scope is in the context.
var ErrNoScope = errors.New("session: no scope in context")

type scopeKey struct{}

// FromContext returns the session scope. It panics with ErrNoScope when missing.
func FromContext(ctx context.Context) *Scope {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || s == nil {
		panic(ErrNoScope)
	}
	return s
}

// FlowFrom returns the checkout flow of the session in ctx.
func FlowFrom(ctx context.Context) *checkout.Flow {
	return FromContext(ctx).Checkout
}

// WithScope puts s, its id and its cart provider into ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	ctx = web.WithSessionID(ctx, s.ID)
	ctx = cart.WithProvider(ctx, s.Cart)
	return context.WithValue(ctx, scopeKey{}, s)
}

// Middleware resolves the browsing session from the cookie or the X-Session-Id header,
// issuing a new one when the request carries none, and scopes it to the request.
func Middleware(reg *Registry, cookieName string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestSessionID(r, cookieName)
			if id == "" {
				id = uuid.NewString()
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(HeaderName, id)

			scope := reg.Get(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}

// requestSessionID returns a well-formed session id from the request, or "".
func requestSessionID(r *http.Request, cookieName string) string {
	candidates := []string{r.Header.Get(HeaderName)}
	if c, err := r.Cookie(cookieName); err == nil {
		candidates = append([]string{c.Value}, candidates...)
	}
	for _, v := range candidates {
		if id, err := uuid.Parse(v); err == nil {
			return id.String()
		}
	}
	return ""
}
