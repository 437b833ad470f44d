package whisperwall

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type claimContextKey struct{}

// Gate is the request-time authentication check. It resolves the request's
// session exactly once at entry, optionally falls back to a bearer token,
// and either admits the request or redirects to the login page. It is
// side-effect free - failing the gate never mutates session state.
type Gate struct {
	Sessions *Sessions

	// Tokens, if set, lets requests without a session authenticate with a
	// signed auth token from the header or cookie.
	Tokens *TokenIssuer

	// LoginURL is where anonymous browser requests are redirected. Empty
	// means respond 401 instead.
	LoginURL string

	// CallbackURLParam carries the original path on the login redirect so
	// the user lands back where they started. Defaults to "callbackURL".
	CallbackURLParam string

	// AuthTokenHeaderName defaults to "Authorization"
	AuthTokenHeaderName string
	AuthTokenCookieName string
}

func (g *Gate) EnsureReasonableDefaults() {
	if g.CallbackURLParam == "" {
		g.CallbackURLParam = "callbackURL"
	}
	if g.AuthTokenHeaderName == "" {
		g.AuthTokenHeaderName = "Authorization"
	}
}

// CurrentClaim resolves the identity attached to the request: session claim
// first, then the auth token fallback.
func (g *Gate) CurrentClaim(r *http.Request) (Claim, bool) {
	g.EnsureReasonableDefaults()
	if claim, ok := g.Sessions.Resolve(r.Context()); ok {
		return claim, true
	}
	if g.Tokens == nil {
		return Claim{}, false
	}

	authTokens := r.Header.Values(g.AuthTokenHeaderName)
	if g.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(g.AuthTokenCookieName) {
			if len(cookie.Value) > 0 {
				authTokens = append(authTokens, cookie.Value)
			}
		}
	}
	for _, authToken := range authTokens {
		authToken = strings.TrimPrefix(authToken, "Bearer ")
		userID, err := g.Tokens.Verify(authToken)
		if err != nil {
			slog.Warn("error verifying auth token", "error", err)
			continue
		}
		if userID != "" {
			return Claim{Version: ClaimVersion, UserID: userID}, true
		}
	}
	return Claim{}, false
}

// IsAuthenticated reports whether a valid identity is attached to the
// request.
func (g *Gate) IsAuthenticated(r *http.Request) bool {
	_, ok := g.CurrentClaim(r)
	return ok
}

// ExtractUser resolves the request's claim and makes it available to
// downstream handlers via ClaimFromContext. It never redirects; anonymous
// requests pass through without a claim.
func (g *Gate) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claim, ok := g.CurrentClaim(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), claimContextKey{}, claim))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureUser admits only authenticated requests. Anonymous browser requests
// are redirected to the login page with the original URL in the callback
// param; if no LoginURL is configured the response is a 401. This is a
// routing decision, not a fault.
func (g *Gate) EnsureUser(next http.Handler) http.Handler {
	g.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claim, ok := g.CurrentClaim(r)
		if !ok {
			if g.LoginURL == "" {
				http.Error(w, "Login Required", http.StatusUnauthorized)
				return
			}
			encodedURL := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
			http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", g.LoginURL, g.CallbackURLParam, encodedURL), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimContextKey{}, claim)))
	})
}

// ClaimFromContext returns the claim attached by ExtractUser or EnsureUser.
func ClaimFromContext(ctx context.Context) (Claim, bool) {
	claim, ok := ctx.Value(claimContextKey{}).(Claim)
	return claim, ok
}
