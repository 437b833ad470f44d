package oauth2

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

type FacebookOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL is the URL to fetch user info from. Defaults to the Graph
	// API. Can be overridden for testing.
	UserInfoURL string
}

func NewFacebookOAuth2(clientId string, clientSecret string, callbackUrl string, handleSubject HandleSubjectFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL"))
	}

	out := FacebookOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleSubject),
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
	}
	out.BaseOAuth2.oauthConfig.Endpoint = facebook.Endpoint
	out.BaseOAuth2.oauthConfig.Scopes = []string{
		"email", "public_profile",
	}

	out.mux.HandleFunc("/callback/", out.handleCallback)

	return &out
}

func (f *FacebookOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !checkState(w, r) {
		return
	}

	code := r.FormValue("code")
	token, err := f.oauthConfig.Exchange(f.exchangeContext(), code)
	if err != nil {
		slog.Info("invalid code exchange", "err", err)
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := f.getUserData(token)
	if err != nil {
		slog.Info("redirecting due to error", "err", err)
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	// "id" is the app-scoped Facebook user id
	subjectID, _ := userInfo["id"].(string)
	if subjectID == "" {
		slog.Info("facebook userinfo carried no subject id")
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}
	f.HandleSubject("facebook", subjectID, userInfo, w, r)
}

func (f *FacebookOAuth2) getUserData(token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest("GET", f.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	response, err := f.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from facebook: %s", err.Error())
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %s", err.Error())
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %s", err.Error())
	}
	return userInfo, nil
}
