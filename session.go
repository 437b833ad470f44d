package whisperwall

import (
	"context"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

const claimSessionKey = "authClaim"

func init() {
	// scs serializes session data with gob
	gob.Register(Claim{})
}

// Sessions issues and resolves the opaque session attached to each request.
// Session data lives server-side (memory by default, any scs.Store for
// persistence); the browser only ever holds the unguessable token.
type Sessions struct {
	manager *scs.SessionManager
}

// NewSessions creates a session manager with the given lifetime. A zero
// lifetime keeps the scs default of 24 hours.
func NewSessions(lifetime time.Duration) *Sessions {
	m := scs.New()
	if lifetime > 0 {
		m.Lifetime = lifetime
	}
	m.Cookie.HttpOnly = true
	m.Cookie.SameSite = http.SameSiteLaxMode
	return &Sessions{manager: m}
}

// Manager exposes the underlying scs manager so hosts can swap the store or
// adjust cookie attributes before serving.
func (s *Sessions) Manager() *scs.SessionManager {
	return s.manager
}

// LoadAndSave is the middleware that loads the request's session at entry
// and commits it at exit. Every handler using Create/Resolve/Destroy must
// run inside it.
func (s *Sessions) LoadAndSave(next http.Handler) http.Handler {
	return s.manager.LoadAndSave(next)
}

// Create attaches the user's claim to the current session, replacing
// whatever identity the session held before. The token is renewed so an
// anonymous session ID never survives across the login boundary.
func (s *Sessions) Create(ctx context.Context, user *User) error {
	if err := s.manager.RenewToken(ctx); err != nil {
		return err
	}
	s.manager.Put(ctx, claimSessionKey, Claim{
		Version:  ClaimVersion,
		UserID:   user.ID,
		Username: user.Username,
	})
	return nil
}

// Resolve returns the claim attached to the current session. A missing,
// expired or stale-version claim yields ok=false, meaning anonymous - it is
// never an error.
func (s *Sessions) Resolve(ctx context.Context) (Claim, bool) {
	claim, ok := s.manager.Get(ctx, claimSessionKey).(Claim)
	if !ok || claim.UserID == "" || claim.Version != ClaimVersion {
		return Claim{}, false
	}
	return claim, true
}

// Destroy deletes the server-side session record. Destroying an already
// absent session is not an error.
func (s *Sessions) Destroy(ctx context.Context) error {
	return s.manager.Destroy(ctx)
}
