package main

import (
	"log"
	"net/http"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	ww "github.com/whisperwall/whisperwall"
	wwoauth "github.com/whisperwall/whisperwall/oauth2"
	gormstore "github.com/whisperwall/whisperwall/stores/gorm"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("error loading config: ", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("error opening database: ", err)
	}
	users := gormstore.NewUserStore(db)

	sessions := ww.NewSessions(cfg.SessionLifetime())
	tokens := &ww.TokenIssuer{
		Issuer:    "whisperwall",
		SecretKey: cfg.JWTSecretKey,
	}

	auth := ww.NewAuth(users, sessions)
	auth.Tokens = tokens
	auth.AuthTokenCookieName = "whisperwallAuthToken"
	auth.SuccessURL = "/secrets"

	gate := &ww.Gate{
		Sessions:            sessions,
		Tokens:              tokens,
		LoginURL:            "/login",
		AuthTokenCookieName: auth.AuthTokenCookieName,
	}

	server := NewServer(cfg, users, auth, sessions, gate)

	if cfg.GoogleClientID != "" {
		auth.AddProvider(ww.NewFederatedResolver("google", users))
		server.MountProvider("google", wwoauth.NewGoogleOAuth2(
			cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.BaseURL+"/auth/google/callback/",
			auth.HandleProviderSubject))
	}
	if cfg.FacebookClientID != "" {
		auth.AddProvider(ww.NewFederatedResolver("facebook", users))
		server.MountProvider("facebook", wwoauth.NewFacebookOAuth2(
			cfg.FacebookClientID, cfg.FacebookClientSecret,
			cfg.BaseURL+"/auth/facebook/callback/",
			auth.HandleProviderSubject))
	}

	log.Println("Server started on ", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(cfg *Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gormstore.Open(postgres.Open(cfg.DatabaseURL))
	}
	return gormstore.Open(sqlite.Open(cfg.SQLitePath))
}
