package auth

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/company-manager/internal/shared"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// RequireSession gates routes behind a signed-in session and exposes the
// auth session through the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := Current(shared.SessionFromContext(r.Context()))
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), current)))
	})
}

// Expire ends the session after the backend rejected its token and sends the
// visitor back to the login page.
func (l *Lifecycle) Expire(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	if logger != nil {
		logger.Info("backend rejected session token", slog.String("path", r.URL.Path))
	}
	l.End(shared.SessionFromContext(r.Context()))
	http.Redirect(w, r, LoginPath+"?expired=1", http.StatusSeeOther)
}
