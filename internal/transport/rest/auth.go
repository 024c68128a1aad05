package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sareesanskriti/storefront/internal/admin"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// SessionChecker reports the admin session stored for the browsing session in ctx.
type SessionChecker interface {
	Current(ctx context.Context) (admin.Session, bool)
}

// RequireAdmin rejects requests whose browsing session holds no usable admin login.
// A stored but expired token counts as logged out.
func RequireAdmin(sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := sessions.Current(r.Context())
			if !ok {
				if sess.Token != "" {
					logger.InfoContext(r.Context(), "Admin session expired", "username", sess.Username)
				}
				web.RespondError(w, logger, http.StatusUnauthorized, "Admin login required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
