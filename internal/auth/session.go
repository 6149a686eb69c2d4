package auth

import (
	"context"
	"encoding/json"

	"github.com/odyssey-erp/company-manager/internal/shared"
)

const (
	tokenKey    = "api_token"
	identityKey = "identity"
)

// Session is the signed-in state: the bearer token for the backend and the
// identity decoded from it.
type Session struct {
	Token    string
	Identity Identity
}

// Lifecycle starts and ends auth sessions on top of cookie sessions.
type Lifecycle struct {
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

// NewLifecycle constructs a Lifecycle.
func NewLifecycle(sessions *shared.SessionManager, csrf *shared.CSRFManager) *Lifecycle {
	return &Lifecycle{sessions: sessions, csrf: csrf}
}

// Begin stores token and identity in sess under a fresh session id.
func (l *Lifecycle) Begin(sess *shared.Session, token string, identity Identity) error {
	if sess == nil {
		return shared.ErrNotAuthenticated
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	l.sessions.Renew(sess)
	l.csrf.Rotate(sess)
	sess.SetUser(identity.ID)
	sess.Set(tokenKey, token)
	sess.Set(identityKey, string(raw))
	return nil
}

// End tears the session down; the cookie is cleared on commit.
func (l *Lifecycle) End(sess *shared.Session) {
	if sess == nil {
		return
	}
	sess.Delete(tokenKey)
	sess.Delete(identityKey)
	sess.SetUser("")
	l.sessions.Destroy(sess)
}

// Current returns the auth session held by sess, if any.
func Current(sess *shared.Session) (*Session, bool) {
	if sess == nil || sess.Destroyed() {
		return nil, false
	}
	token := sess.Get(tokenKey)
	if token == "" {
		return nil, false
	}
	var identity Identity
	if raw := sess.Get(identityKey); raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity); err != nil {
			return nil, false
		}
	}
	return &Session{Token: token, Identity: identity}, true
}

type contextKey struct{}

// WithSession stores the auth session in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the auth session placed by RequireSession.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Viewer returns the navbar state for sess.
func Viewer(sess *shared.Session) (authenticated bool, name string) {
	s, ok := Current(sess)
	if !ok {
		return false, ""
	}
	return true, s.Identity.DisplayName()
}
