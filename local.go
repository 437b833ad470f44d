package whisperwall

import (
	"context"
	"errors"
	"fmt"
)

// LocalAuthenticator verifies username/password pairs against the credential
// store using salted argon2id hashing. It never logs or returns plaintext
// passwords or stored hashes.
type LocalAuthenticator struct {
	Users UserStore

	// Policy applied during Register. Zero value gives the defaults.
	Policy SignupPolicy
}

// NewLocalAuthenticator creates a local authenticator over the given store.
func NewLocalAuthenticator(users UserStore) *LocalAuthenticator {
	return &LocalAuthenticator{Users: users, Policy: DefaultSignupPolicy()}
}

// Register creates a new user with local credentials. Fails with
// ErrDuplicateUsername if the username is already taken; the existing record
// is left untouched in that case.
func (a *LocalAuthenticator) Register(ctx context.Context, username, password string) (*User, error) {
	if authErr := a.Policy.Validate(&Credentials{Username: username, Password: password}); authErr != nil {
		return nil, authErr
	}

	hash, salt, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           NewUserID(),
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := a.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify checks the submitted pair against the stored record. Returns
// ErrUserNotFound if no record matches the username, ErrInvalidCredentials
// if the record has no local credentials or the password does not match.
// Callers at the HTTP boundary must collapse both into one response shape.
func (a *LocalAuthenticator) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := a.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Provider implements AuthStrategy.
func (a *LocalAuthenticator) Provider() string { return "local" }

// Authenticate implements AuthStrategy by verifying the username/password
// evidence.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, ev Evidence) (*User, error) {
	return a.Verify(ctx, ev.Username, ev.Password)
}
