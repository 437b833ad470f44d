package whisperwall_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	ww "github.com/whisperwall/whisperwall"
)

// sessionTestApp exposes the session lifecycle over HTTP so the scs
// middleware manages tokens the same way it would in production.
func sessionTestApp(sessions *ww.Sessions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		user := &ww.User{ID: "user-1", Username: "alice"}
		if err := sessions.Create(r.Context(), user); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		claim, ok := sessions.Resolve(r.Context())
		if !ok {
			fmt.Fprint(w, "anonymous")
			return
		}
		fmt.Fprintf(w, "%s:%s", claim.UserID, claim.Username)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.Destroy(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	})
	return sessions.LoadAndSave(mux)
}

func newSessionClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func get(t *testing.T, client *http.Client, url string) string {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(body)
}

func TestSessionLifecycle(t *testing.T) {
	sessions := ww.NewSessions(time.Hour)
	srv := httptest.NewServer(sessionTestApp(sessions))
	defer srv.Close()
	client := newSessionClient(t)

	// Fresh request resolves to anonymous, not an error
	if body := get(t, client, srv.URL+"/whoami"); body != "anonymous" {
		t.Errorf("Expected anonymous before login, got %q", body)
	}

	get(t, client, srv.URL+"/login")
	if body := get(t, client, srv.URL+"/whoami"); body != "user-1:alice" {
		t.Errorf("Expected claim after login, got %q", body)
	}

	// Logout fully invalidates: resolve(destroy(create(u))) is anonymous
	get(t, client, srv.URL+"/logout")
	if body := get(t, client, srv.URL+"/whoami"); body != "anonymous" {
		t.Errorf("Expected anonymous after logout, got %q", body)
	}

	// destroying an already-absent session is not an error
	resp, err := client.Get(srv.URL + "/logout")
	if err != nil {
		t.Fatalf("GET /logout failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected idempotent logout to return 200, got %d", resp.StatusCode)
	}
}

func TestSessionTokenRenewedAtLogin(t *testing.T) {
	sessions := ww.NewSessions(time.Hour)
	srv := httptest.NewServer(sessionTestApp(sessions))
	defer srv.Close()
	client := newSessionClient(t)

	get(t, client, srv.URL+"/whoami") // establish an anonymous session cookie
	before := sessionCookie(t, client, srv.URL)

	get(t, client, srv.URL+"/login")
	after := sessionCookie(t, client, srv.URL)

	if before != "" && before == after {
		t.Error("Expected the session token to change across the login boundary")
	}
}

func TestForgedSessionToken(t *testing.T) {
	sessions := ww.NewSessions(time.Hour)
	srv := httptest.NewServer(sessionTestApp(sessions))
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "forged-token-value"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "anonymous" {
		t.Errorf("Expected unknown token to resolve to anonymous, got %q", body)
	}
}

func sessionCookie(t *testing.T, client *http.Client, rawURL string) string {
	t.Helper()
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	for _, c := range client.Jar.Cookies(req.URL) {
		if c.Name == "session" {
			return c.Value
		}
	}
	return ""
}
