package whisperwall

import (
	"fmt"
	"regexp"
)

// Credentials represents a submitted username/password pair.
type Credentials struct {
	Username string
	Password string
}

// SignupPolicy defines what a registration must satisfy before any hashing
// or store access happens.
type SignupPolicy struct {
	// MinPasswordLength defaults to 8
	MinPasswordLength int

	// UsernamePattern defaults to 3-20 chars of letters, numbers,
	// underscores and hyphens
	UsernamePattern *regexp.Regexp
}

var defaultUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// DefaultSignupPolicy returns the policy used when none is configured.
func DefaultSignupPolicy() SignupPolicy {
	return SignupPolicy{}
}

func (p SignupPolicy) GetMinPasswordLength() int {
	if p.MinPasswordLength > 0 {
		return p.MinPasswordLength
	}
	return 8
}

func (p SignupPolicy) GetUsernamePattern() *regexp.Regexp {
	if p.UsernamePattern != nil {
		return p.UsernamePattern
	}
	return defaultUsernamePattern
}

// Validate checks credentials against the policy. Returns nil if acceptable.
func (p SignupPolicy) Validate(creds *Credentials) *AuthError {
	if creds.Username == "" {
		return NewAuthError(ErrCodeMissingField, "Username is required", "username")
	}
	if creds.Password == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if !p.GetUsernamePattern().MatchString(creds.Username) {
		return NewAuthError(ErrCodeInvalidUsername, "Username must be 3-20 characters and contain only letters, numbers, underscores, and hyphens", "username")
	}
	if minLen := p.GetMinPasswordLength(); len(creds.Password) < minLen {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters", minLen), "password")
	}
	return nil
}
