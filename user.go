package whisperwall

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the single persisted identity record. A user may arrive via local
// registration or via a federated provider, so every attribute except ID is
// optional - but a record must hold either local credentials or at least one
// provider link to be reachable at all.
type User struct {
	// ID is the stable internal identifier, assigned at creation, never
	// reassigned.
	ID string `json:"id"`

	// Username is the human-chosen login handle. Empty for federated-only
	// accounts.
	Username string `json:"username,omitempty"`

	// PasswordHash and PasswordSalt are set only when the account has local
	// credentials. The hash is argon2id over the plaintext and salt.
	PasswordHash []byte `json:"password_hash,omitempty"`
	PasswordSalt []byte `json:"password_salt,omitempty"`

	// ProviderLinks maps a provider name to the subject identifier that
	// provider issued for this user, eg {"google": "109..."}. A given
	// (provider, subject) pair belongs to at most one record.
	ProviderLinks map[string]string `json:"provider_links,omitempty"`

	// SecretText is the app payload shown on the secrets page. Unrelated to
	// authentication.
	SecretText string `json:"secret_text,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPassword reports whether the record carries local credentials.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}

// LinkedSubject returns the subject identifier this record holds for the
// given provider, if any.
func (u *User) LinkedSubject(provider string) (string, bool) {
	subject, ok := u.ProviderLinks[provider]
	return subject, ok
}

// NewUserID generates a fresh user ID.
func NewUserID() string {
	return uuid.NewString()
}

// ClaimVersion is bumped whenever the Claim shape changes, so stale claims
// from long-lived sessions resolve to anonymous instead of misparsing.
const ClaimVersion = 1

// Claim is the minimal identity reference attached to a session. Only the
// user ID and username ever go into a session - never password material.
type Claim struct {
	Version  int    `json:"v"`
	UserID   string `json:"uid"`
	Username string `json:"username,omitempty"`
}

// UserStore is the credential store contract. Implementations must enforce
// uniqueness of Username and of each (provider, subject) pair at the storage
// layer - FindOrCreateByProvider in particular must close the concurrent
// first-login race there, not with a check-then-insert.
type UserStore interface {
	// CreateUser inserts a new record. Returns ErrDuplicateUsername if the
	// username is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a record by its stable ID. Returns
	// ErrUserNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a record by username. Returns
	// ErrUserNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// FindOrCreateByProvider returns the record linked to the given
	// (provider, subject) pair, creating one atomically if none exists.
	// When two first-time logins race, exactly one record is created and
	// both calls return it; created reports whether this call created it.
	FindOrCreateByProvider(ctx context.Context, provider, subjectID string) (user *User, created bool, err error)

	// UpdateSecret replaces the user's secret text.
	UpdateSecret(ctx context.Context, userID, secret string) error
}
