// Package whisperwall implements the authentication and session core of a
// small secrets-sharing web application: local username/password
// registration and login, federated login through OAuth2 providers, and a
// session-backed access gate in front of protected pages.
//
// # Architecture
//
// User: the single persisted identity record. A user may arrive through a
// local password, through Google, or through Facebook; all three credential
// sources converge on one record and one session representation.
//
// AuthStrategy: a credential source. LocalAuthenticator verifies passwords
// with salted argon2id hashing; FederatedResolver maps a provider-issued
// subject identifier onto a record with atomic find-or-create semantics.
// Strategies are composed explicitly by the Auth boundary, never registered
// globally.
//
// Sessions: server-side sessions built on alexedwards/scs. A successful
// authentication attaches a minimal versioned Claim (user ID and username,
// never password material) to a fresh session token; the Gate resolves that
// claim once per request.
//
// # Basic Usage
//
// Wire a store, the session manager and the auth boundary:
//
//	db, _ := gormstore.Open(sqlite.Open("app.db"))
//	users := gormstore.NewUserStore(db)
//	sessions := whisperwall.NewSessions(24 * time.Hour)
//
//	auth := whisperwall.NewAuth(users, sessions)
//	auth.AddProvider(whisperwall.NewFederatedResolver("google", users))
//
//	gate := &whisperwall.Gate{Sessions: sessions, LoginURL: "/login"}
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("POST /register", auth.HandleSignup)
//	mux.HandleFunc("POST /login", auth.HandleLogin)
//	mux.HandleFunc("/logout", auth.HandleLogout)
//	mux.Handle("/secrets", gate.EnsureUser(secretsPage))
//	http.ListenAndServe(":3000", sessions.LoadAndSave(mux))
//
// Federated providers live in the oauth2 subpackage; their callbacks hand a
// (provider, subjectID) pair to Auth.HandleProviderSubject.
//
// # Store Implementations
//
// stores/gorm backs the credential store with a relational database and
// enforces the username and (provider, subject) uniqueness invariants with
// unique indexes, which is what makes concurrent first-time federated logins
// converge on a single record. stores/fs is a JSON-file store for
// development and tests.
//
// # Security
//
// Passwords are hashed with argon2id over a 16-byte random salt and compared
// in constant time. Plaintext passwords and stored hashes never appear in
// logs or responses, and login failures do not reveal whether a username
// exists.
package whisperwall
