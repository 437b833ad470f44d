// Package oauth2 holds the federated provider exchanges. Each provider type
// mounts two handlers: a redirector that sends the browser into the
// provider's consent flow, and a callback that exchanges the returned code
// for the provider's stable subject identifier. Everything after that point
// (find-or-create, session issuance) belongs to the parent package.
package oauth2

import (
	"context"
	"net/http"
	"os"

	"golang.org/x/oauth2"
)

// HandleSubjectFunc receives the outcome of a successful provider exchange:
// the provider name, the provider-scoped stable subject identifier, and the
// raw profile fields the provider returned.
type HandleSubjectFunc func(provider, subjectID string, profile map[string]any, w http.ResponseWriter, r *http.Request)

type BaseOAuth2 struct {
	ClientId      string
	ClientSecret  string
	CallbackURL   string
	HandleSubject HandleSubjectFunc

	// AuthFailureURL is where the browser lands when the exchange fails.
	// Defaults to "/login".
	AuthFailureURL string

	// HTTPClient overrides the client used for the code exchange and the
	// userinfo fetch. Set in tests to point at fake provider servers.
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, handleSubject HandleSubjectFunc) *BaseOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_CALLBACK_URL")
	}
	out := &BaseOAuth2{
		ClientId:      clientId,
		ClientSecret:  clientSecret,
		CallbackURL:   callbackUrl,
		HandleSubject: handleSubject,
		mux:           http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	return out
}

// ServeHTTP lets a provider be mounted directly under its auth prefix, eg
// http.StripPrefix("/auth/google", googleAuth).
func (b *BaseOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// Config exposes the underlying oauth2 config so hosts (and tests) can
// adjust endpoints or scopes.
func (b *BaseOAuth2) Config() *oauth2.Config {
	return &b.oauthConfig
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// exchangeContext returns the context for the code exchange, carrying the
// injected HTTP client when one is set.
func (b *BaseOAuth2) exchangeContext() context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(context.Background(), oauth2.HTTPClient, b.HTTPClient)
	}
	return context.Background()
}

func (b *BaseOAuth2) failureURL() string {
	if b.AuthFailureURL != "" {
		return b.AuthFailureURL
	}
	return "/login"
}
