package whisperwall

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by the auth core. Handlers translate these into
// user-visible responses; the internal distinction between ErrUserNotFound
// and ErrInvalidCredentials must never leak past the HTTP boundary.
var (
	// ErrDuplicateUsername is returned when registering a username that
	// already has local credentials.
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrUserNotFound is returned when no record matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when the password does not match or
	// the record has no local credentials at all.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderAuthFailed is returned when a federated provider exchange
	// does not yield a usable subject identifier.
	ErrProviderAuthFailed = errors.New("provider authentication failed")

	// ErrStoreUnavailable wraps store failures that are not a definitive
	// "no such record" or uniqueness conflict. Callers may retry these;
	// every other error in this package is terminal for the request.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Error codes used in HTTP error responses
const (
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidUsername = "invalid_username"
	ErrCodeWeakPassword    = "weak_password"
	ErrCodeUsernameTaken   = "username_taken"
	ErrCodeInvalidCreds    = "invalid_credentials"
	ErrCodeProviderFailed  = "provider_failed"
	ErrCodeStoreFailed     = "store_unavailable"
)

// AuthError is a user-facing authentication error with an error code and
// the form field it relates to (if any).
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and field
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler lets applications customize error rendering (eg redirect
// back to the form with a flash message). Return true if the response was
// written, false to fall back to the default JSON error.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool
