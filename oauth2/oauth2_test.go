package oauth2_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	wwoauth "github.com/whisperwall/whisperwall/oauth2"
)

// mockProvider fakes the provider side of the dance: a token endpoint for
// the code exchange and a userinfo endpoint serving a canned profile.
type mockProvider struct {
	server   *httptest.Server
	userInfo map[string]any
}

func newMockProvider(t *testing.T) *mockProvider {
	t.Helper()
	p := &mockProvider{
		userInfo: map[string]any{"id": "subject-123", "name": "Alice", "email": "alice@example.com"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "mock-access-token", "token_type": "Bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer mock-access-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p.userInfo)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// subjectRecorder captures what the provider handed off after the exchange.
type subjectRecorder struct {
	provider  string
	subjectID string
	profile   map[string]any
	called    bool
}

func (s *subjectRecorder) handle(provider, subjectID string, profile map[string]any, w http.ResponseWriter, r *http.Request) {
	s.called = true
	s.provider = provider
	s.subjectID = subjectID
	s.profile = profile
	fmt.Fprint(w, "logged in")
}

func newGoogleUnderTest(t *testing.T, provider *mockProvider, rec *subjectRecorder) *wwoauth.GoogleOAuth2 {
	t.Helper()
	auth := wwoauth.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/callback/", rec.handle)
	auth.Config().Endpoint.AuthURL = provider.server.URL + "/auth"
	auth.Config().Endpoint.TokenURL = provider.server.URL + "/token"
	auth.UserInfoURL = provider.server.URL + "/userinfo"
	auth.HTTPClient = provider.server.Client()
	return auth
}

func callbackRequest(state, code string) *http.Request {
	form := url.Values{"state": {state}, "code": {code}}
	req := httptest.NewRequest("POST", "/callback/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if state != "" {
		req.AddCookie(&http.Cookie{Name: "oauthstate", Value: state})
	}
	return req
}

func TestRedirectorStartsConsentFlow(t *testing.T) {
	provider := newMockProvider(t)
	auth := newGoogleUnderTest(t, provider, &subjectRecorder{})

	req := httptest.NewRequest("GET", "/?callbackURL=/secrets", nil)
	w := httptest.NewRecorder()
	auth.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected 302 to the provider, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("Invalid redirect location: %v", err)
	}
	if !strings.HasPrefix(loc.String(), provider.server.URL+"/auth") {
		t.Errorf("Expected redirect into the provider's auth URL, got %s", loc)
	}

	var state, callbackCookie string
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "oauthstate":
			state = c.Value
		case "oauthCallbackURL":
			callbackCookie = c.Value
		}
	}
	if state == "" {
		t.Error("Expected a state cookie to be set")
	}
	if loc.Query().Get("state") != state {
		t.Error("Expected the redirect state param to match the cookie")
	}
	if callbackCookie != "/secrets" {
		t.Errorf("Expected the callback URL to be noted, got %q", callbackCookie)
	}
}

func TestGoogleCallback(t *testing.T) {
	provider := newMockProvider(t)
	rec := &subjectRecorder{}
	auth := newGoogleUnderTest(t, provider, rec)

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, callbackRequest("test-state", "test-code"))

	if !rec.called {
		t.Fatalf("Expected the subject handler to be called, got status %d", w.Code)
	}
	if rec.provider != "google" {
		t.Errorf("Expected provider google, got %q", rec.provider)
	}
	if rec.subjectID != "subject-123" {
		t.Errorf("Expected the provider's id field as subject, got %q", rec.subjectID)
	}
	if rec.profile["email"] != "alice@example.com" {
		t.Errorf("Expected the raw profile to be passed through, got %v", rec.profile)
	}
}

func TestFacebookCallback(t *testing.T) {
	provider := newMockProvider(t)
	rec := &subjectRecorder{}
	auth := wwoauth.NewFacebookOAuth2("client-id", "client-secret", "http://localhost/auth/facebook/callback/", rec.handle)
	auth.Config().Endpoint.AuthURL = provider.server.URL + "/auth"
	auth.Config().Endpoint.TokenURL = provider.server.URL + "/token"
	auth.UserInfoURL = provider.server.URL + "/userinfo"
	auth.HTTPClient = provider.server.Client()

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, callbackRequest("test-state", "test-code"))

	if !rec.called {
		t.Fatalf("Expected the subject handler to be called, got status %d", w.Code)
	}
	if rec.provider != "facebook" {
		t.Errorf("Expected provider facebook, got %q", rec.provider)
	}
	if rec.subjectID != "subject-123" {
		t.Errorf("Expected the provider's id field as subject, got %q", rec.subjectID)
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	provider := newMockProvider(t)
	rec := &subjectRecorder{}
	auth := newGoogleUnderTest(t, provider, rec)

	form := url.Values{"state": {"attacker-state"}, "code": {"test-code"}}
	req := httptest.NewRequest("POST", "/callback/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "real-state"})

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a state mismatch, got %d", w.Code)
	}
	if rec.called {
		t.Error("Expected the subject handler not to be called")
	}
}

func TestCallbackMissingStateCookie(t *testing.T) {
	provider := newMockProvider(t)
	rec := &subjectRecorder{}
	auth := newGoogleUnderTest(t, provider, rec)

	form := url.Values{"state": {"test-state"}, "code": {"test-code"}}
	req := httptest.NewRequest("POST", "/callback/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a state cookie, got %d", w.Code)
	}
	if rec.called {
		t.Error("Expected the subject handler not to be called")
	}
}

func TestCallbackWithoutSubjectID(t *testing.T) {
	provider := newMockProvider(t)
	provider.userInfo = map[string]any{"name": "Alice"} // no id field
	rec := &subjectRecorder{}
	auth := newGoogleUnderTest(t, provider, rec)
	auth.AuthFailureURL = "/login?error=oauth"

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, callbackRequest("test-state", "test-code"))

	if rec.called {
		t.Fatal("Expected the subject handler not to be called without a subject id")
	}
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected a failure redirect, got %d", w.Code)
	}
	if got := w.Result().Header.Get("Location"); got != "/login?error=oauth" {
		t.Errorf("Expected redirect to the failure URL, got %q", got)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	rec := &subjectRecorder{}
	// Token endpoint that always refuses the code
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer bad.Close()

	auth := wwoauth.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/google/callback/", rec.handle)
	auth.Config().Endpoint.TokenURL = bad.URL + "/token"
	auth.HTTPClient = bad.Client()

	w := httptest.NewRecorder()
	auth.ServeHTTP(w, callbackRequest("test-state", "bad-code"))

	if rec.called {
		t.Fatal("Expected the subject handler not to be called on exchange failure")
	}
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected a failure redirect, got %d", w.Code)
	}
	if got := w.Result().Header.Get("Location"); got != "/login" {
		t.Errorf("Expected redirect to the default failure URL, got %q", got)
	}
}
