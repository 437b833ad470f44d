package whisperwall

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Auth is the request boundary: register, login, logout and the landing
// point for federated callbacks. Strategies are composed here explicitly -
// the local authenticator plus one resolver per provider.
type Auth struct {
	Local     *LocalAuthenticator
	Sessions  *Sessions
	resolvers map[string]*FederatedResolver

	// Tokens, if set, issues a signed auth token cookie on login so API
	// calls can authenticate by header.
	Tokens              *TokenIssuer
	AuthTokenCookieName string

	// Form field names
	UsernameField string
	PasswordField string

	// SuccessURL is where form logins land when no callbackURL was carried.
	// Defaults to "/".
	SuccessURL string

	// OnLoginError and OnSignupError let the host render errors its own way
	// (eg redirect back to the form). If nil, a JSON error is returned.
	OnLoginError  AuthErrorHandler
	OnSignupError AuthErrorHandler
}

// NewAuth wires the boundary over a store and session manager.
func NewAuth(users UserStore, sessions *Sessions) *Auth {
	return &Auth{
		Local:     NewLocalAuthenticator(users),
		Sessions:  sessions,
		resolvers: map[string]*FederatedResolver{},
	}
}

// AddProvider registers a federated resolver for its provider name.
func (a *Auth) AddProvider(r *FederatedResolver) *Auth {
	if a.resolvers == nil {
		a.resolvers = map[string]*FederatedResolver{}
	}
	a.resolvers[r.Provider()] = r
	return a
}

// Strategy returns the composed strategy for a credential source, "local"
// included.
func (a *Auth) Strategy(provider string) (AuthStrategy, bool) {
	if provider == "local" {
		return a.Local, a.Local != nil
	}
	r, ok := a.resolvers[provider]
	return r, ok
}

func (a *Auth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *Auth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

func (a *Auth) getSuccessURL() string {
	if a.SuccessURL != "" {
		return a.SuccessURL
	}
	return "/"
}

// HandleSignup processes user registration and logs the new user in.
func (a *Auth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	creds, parseErr := a.parseCredentials(r)
	if parseErr != nil {
		a.handleSignupError(parseErr, w, r)
		return
	}

	user, err := a.Local.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		var authErr *AuthError
		switch {
		case errors.As(err, &authErr):
		case errors.Is(err, ErrDuplicateUsername):
			authErr = NewAuthError(ErrCodeUsernameTaken, "Username is already taken", "username")
		case errors.Is(err, ErrStoreUnavailable):
			a.storeUnavailable(w)
			return
		default:
			log.Println("error creating user: ", err)
			authErr = NewAuthError("create_failed", "Failed to create user", "")
		}
		a.handleSignupError(authErr, w, r)
		return
	}

	if err := a.loginUser(user, w, r); err != nil {
		log.Println("error creating session: ", err)
		http.Error(w, `{"error": "Failed to create session"}`, http.StatusInternalServerError)
		return
	}
	a.respondLoggedIn(user, w, r)
}

// HandleLogin verifies local credentials and issues a session. Whether the
// username exists or the password was wrong is logged for diagnostics but
// the response shape is identical for both.
func (a *Auth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	creds, parseErr := a.parseCredentials(r)
	if parseErr != nil {
		a.handleLoginError(parseErr, w, r)
		return
	}

	user, err := a.Local.Verify(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			a.storeUnavailable(w)
			return
		}
		log.Println("error validating user: ", err)
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	if err := a.loginUser(user, w, r); err != nil {
		log.Println("error creating session: ", err)
		http.Error(w, `{"error": "Failed to create session"}`, http.StatusInternalServerError)
		return
	}
	a.respondLoggedIn(user, w, r)
}

// HandleLogout destroys the session. Logging out an anonymous request is a
// no-op, not an error.
func (a *Auth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Destroy(r.Context()); err != nil {
		log.Println("error destroying session: ", err)
	}
	if a.AuthTokenCookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:    a.AuthTokenCookieName,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
	toURL := r.URL.Query().Get("to")
	if toURL == "" {
		fmt.Fprint(w, "Logged Out")
		return
	}
	http.Redirect(w, r, toURL, http.StatusFound)
}

// HandleProviderSubject is the landing point for provider exchanges. The
// oauth2 package calls it after it has turned a provider artifact into a
// stable subject identifier. Find-or-create, then the same session issuance
// as local login.
func (a *Auth) HandleProviderSubject(provider, subjectID string, profile map[string]any, w http.ResponseWriter, r *http.Request) {
	resolver, ok := a.resolvers[provider]
	if !ok {
		log.Println("no resolver for provider: ", provider)
		http.Error(w, `{"error": "Unknown provider"}`, http.StatusBadRequest)
		return
	}

	user, err := resolver.FindOrCreate(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			a.storeUnavailable(w)
			return
		}
		log.Println("error resolving provider subject: ", err)
		http.Error(w, `{"error": "Authentication failed"}`, http.StatusUnauthorized)
		return
	}

	if err := a.loginUser(user, w, r); err != nil {
		log.Println("error creating session: ", err)
		http.Error(w, `{"error": "Failed to create session"}`, http.StatusInternalServerError)
		return
	}

	// go back to where the flow started, then drop the cookie so it wont
	// steer later logins
	callbackURL := a.getSuccessURL()
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		callbackURL = cookie.Value
		http.SetCookie(w, &http.Cookie{
			Name:    "oauthCallbackURL",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// loginUser attaches the claim to the session and sets the auth token
// cookie if an issuer is configured.
func (a *Auth) loginUser(user *User, w http.ResponseWriter, r *http.Request) error {
	if err := a.Sessions.Create(r.Context(), user); err != nil {
		return err
	}
	if a.Tokens != nil && a.AuthTokenCookieName != "" {
		tokenString, err := a.Tokens.Issue(user.ID)
		if err != nil {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     a.AuthTokenCookieName,
			Value:    tokenString,
			Path:     "/",
			HttpOnly: true,
			Expires:  time.Now().Add(a.Tokens.ttl()),
		})
	}
	return nil
}

func (a *Auth) respondLoggedIn(user *User, w http.ResponseWriter, r *http.Request) {
	// Form submissions go back to the page flow; API clients get JSON
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		callbackURL := r.FormValue("callbackURL")
		if callbackURL == "" {
			callbackURL = a.getSuccessURL()
		}
		http.Redirect(w, r, callbackURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// parseCredentials reads the username/password pair from a form or JSON
// body.
func (a *Auth) parseCredentials(r *http.Request) (*Credentials, *AuthError) {
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	var username, password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
		username = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, NewAuthError("parse_error", "Invalid post body", "")
		}
		if u, ok := data[usernameField].(string); ok {
			username = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	}

	if username == "" || password == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Username and password required", "username")
	}
	return &Credentials{Username: username, Password: password}, nil
}

func (a *Auth) storeUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]any{
		"error": "Service temporarily unavailable, please retry",
		"code":  ErrCodeStoreFailed,
	})
}

func (a *Auth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField || err.Code == "parse_error" {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(err)
}

func (a *Auth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(err)
}
