package main

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	ww "github.com/whisperwall/whisperwall"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server is the HTTP front of the app: public pages, the auth endpoints and
// the gated secrets pages.
type Server struct {
	cfg      *Config
	users    ww.UserStore
	auth     *ww.Auth
	sessions *ww.Sessions
	gate     *ww.Gate
	tmpl     *template.Template
	router   *mux.Router
}

func NewServer(cfg *Config, users ww.UserStore, auth *ww.Auth, sessions *ww.Sessions, gate *ww.Gate) *Server {
	s := &Server{
		cfg:      cfg,
		users:    users,
		auth:     auth,
		sessions: sessions,
		gate:     gate,
		tmpl:     template.Must(template.ParseFS(templateFS, "templates/*.html")),
		router:   mux.NewRouter(),
	}

	// Browser form errors go back to the form with a flash message instead
	// of the default JSON error
	auth.OnLoginError = s.formErrorRedirect("/login")
	auth.OnSignupError = s.formErrorRedirect("/register")

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/", s.handleHome).Methods("GET")
	r.HandleFunc("/login", s.handlePage("login")).Methods("GET")
	r.HandleFunc("/login", s.auth.HandleLogin).Methods("POST")
	r.HandleFunc("/register", s.handlePage("register")).Methods("GET")
	r.HandleFunc("/register", s.auth.HandleSignup).Methods("POST")
	r.HandleFunc("/logout", s.handleLogout).Methods("GET")

	r.Handle("/secrets", s.gate.EnsureUser(http.HandlerFunc(s.handleSecrets))).Methods("GET")
	r.Handle("/submit", s.gate.EnsureUser(http.HandlerFunc(s.handlePage("submit")))).Methods("GET")
	r.Handle("/submit", s.gate.EnsureUser(http.HandlerFunc(s.handleSubmit))).Methods("POST")
}

// MountProvider attaches a federated provider under /auth/<provider>/.
func (s *Server) MountProvider(name string, provider http.Handler) {
	prefix := "/auth/" + name
	s.router.PathPrefix(prefix + "/").Handler(http.StripPrefix(prefix, provider))
	s.router.Handle(prefix, http.RedirectHandler(prefix+"/", http.StatusPermanentRedirect))
}

// Handler wraps the router in the session middleware; every request resolves
// its session exactly once here.
func (s *Server) Handler() http.Handler {
	return s.sessions.LoadAndSave(s.router)
}

type pageData struct {
	LoggedIn bool
	Username string
	Secret   string
	Error    string
}

func (s *Server) pageData(r *http.Request) pageData {
	data := pageData{Error: r.URL.Query().Get("error")}
	if claim, ok := s.gate.CurrentClaim(r); ok {
		data.LoggedIn = true
		data.Username = claim.Username
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name+".html", data); err != nil {
		log.Println("error rendering template: ", name, err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home", s.pageData(r))
}

func (s *Server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, name, s.pageData(r))
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("to") == "" {
		q := r.URL.Query()
		q.Set("to", "/")
		r.URL.RawQuery = q.Encode()
	}
	s.auth.HandleLogout(w, r)
}

func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	claim, _ := ww.ClaimFromContext(r.Context())
	data := s.pageData(r)
	user, err := s.users.GetUserByID(r.Context(), claim.UserID)
	if err != nil {
		log.Println("error loading user: ", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	data.Secret = user.SecretText
	s.render(w, "secrets", data)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claim, _ := ww.ClaimFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	secret := strings.TrimSpace(r.FormValue("secret"))
	if secret == "" {
		http.Redirect(w, r, "/submit?error="+url.QueryEscape("Secret cannot be empty"), http.StatusFound)
		return
	}
	if err := s.users.UpdateSecret(r.Context(), claim.UserID, secret); err != nil {
		log.Println("error saving secret: ", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) formErrorRedirect(formURL string) ww.AuthErrorHandler {
	return func(err *ww.AuthError, w http.ResponseWriter, r *http.Request) bool {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			return false
		}
		http.Redirect(w, r, formURL+"?error="+url.QueryEscape(err.Message), http.StatusFound)
		return true
	}
}
