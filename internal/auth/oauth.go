package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/gitify-app/gitify-sub003/internal/api"
	"github.com/gitify-app/gitify-sub003/internal/log"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// OAuthScopes are requested during both OAuth flows. The classic token scopes
// that notification fetching and thread mutations need.
var OAuthScopes = []string{"read:user", "notifications", "repo"}

// deviceFlowClientID identifies the published GitHub App used for device-flow
// sign-in against github.com.
const deviceFlowClientID = "27a352516d3341cee376"

// ErrDeviceFlowExpired is returned when the user code expires before the user
// approves the device.
var ErrDeviceFlowExpired = errors.New("device code expired before authorization completed")

// ErrAccessDenied is returned when the user cancels an authorization.
var ErrAccessDenied = errors.New("authorization was denied")

// DeviceSession is an in-progress device flow. The caller displays UserCode
// and VerificationURI, then waits for the poll to complete.
type DeviceSession struct {
	Hostname        string
	ClientID        string
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresAt       time.Time
}

// StartDeviceFlow requests a device and user code pair from github.com.
func StartDeviceFlow(ctx context.Context) (*DeviceSession, error) {
	hostname := model.GitHubHostname
	endpoint := api.AuthBaseURL(hostname) + "login/device/code"

	form := url.Values{
		"client_id": {deviceFlowClientID},
		"scope":     {strings.Join(OAuthScopes, " ")},
	}

	var payload struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := postForm(ctx, endpoint, form, &payload); err != nil {
		return nil, fmt.Errorf("failed to start device flow: %w", err)
	}

	interval := time.Duration(payload.Interval) * time.Second
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}

	return &DeviceSession{
		Hostname:        hostname,
		ClientID:        deviceFlowClientID,
		DeviceCode:      payload.DeviceCode,
		UserCode:        payload.UserCode,
		VerificationURI: payload.VerificationURI,
		Interval:        interval,
		ExpiresAt:       time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

// PollDeviceFlow polls the token endpoint until the user authorizes the
// device, the code expires, or ctx is cancelled.
func PollDeviceFlow(ctx context.Context, session *DeviceSession) (string, error) {
	endpoint := api.AuthBaseURL(session.Hostname) + "login/oauth/access_token"
	interval := session.Interval

	for {
		if time.Now().After(session.ExpiresAt) {
			return "", ErrDeviceFlowExpired
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		form := url.Values{
			"client_id":   {session.ClientID},
			"device_code": {session.DeviceCode},
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		}

		var payload struct {
			AccessToken string `json:"access_token"`
			Error       string `json:"error"`
		}
		if err := postForm(ctx, endpoint, form, &payload); err != nil {
			return "", fmt.Errorf("failed to poll device flow: %w", err)
		}

		switch payload.Error {
		case "":
			if payload.AccessToken != "" {
				return payload.AccessToken, nil
			}
			return "", fmt.Errorf("token endpoint returned neither token nor error")
		case "authorization_pending":
			// Keep waiting.
		case "slow_down":
			interval += 5 * time.Second
		case "expired_token":
			return "", ErrDeviceFlowExpired
		case "access_denied":
			return "", ErrAccessDenied
		default:
			return "", fmt.Errorf("device flow failed: %s", payload.Error)
		}
	}
}

// WebFlowOptions configures an OAuth App web flow against any host.
type WebFlowOptions struct {
	Hostname     string
	ClientID     string
	ClientSecret string
	// OpenURL is invoked with the authorization URL the user must visit.
	OpenURL func(url string)
}

// WebFlow runs the OAuth authorization-code flow: it serves a loopback
// callback, hands the authorization URL to OpenURL, and exchanges the
// returned code for a token.
func WebFlow(ctx context.Context, opts WebFlowOptions) (string, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return "", fmt.Errorf("web flow requires an OAuth app client id and secret")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to open callback listener: %w", err)
	}
	defer listener.Close()

	authBase := api.AuthBaseURL(opts.Hostname)
	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Scopes:       OAuthScopes,
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Endpoint: oauth2.Endpoint{
			AuthURL:  authBase + "login/oauth/authorize",
			TokenURL: authBase + "login/oauth/access_token",
		},
	}

	state, err := randomState()
	if err != nil {
		return "", err
	}

	type callbackResult struct {
		code string
		err  error
	}
	results := make(chan callbackResult, 1)

	router := chi.NewRouter()
	router.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("state mismatch in OAuth callback")}
			return
		}
		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "authorization failed", http.StatusBadRequest)
			if errCode == "access_denied" {
				results <- callbackResult{err: ErrAccessDenied}
			} else {
				results <- callbackResult{err: fmt.Errorf("authorization failed: %s (%s)",
					errCode, q.Get("error_description"))}
			}
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		results <- callbackResult{code: q.Get("code")}
	})

	server := &http.Server{Handler: router}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Debug("callback server stopped", "error", err)
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("allow_signup", "false"))
	opts.OpenURL(authURL)

	var result callbackResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result = <-results:
	}
	if result.err != nil {
		return "", result.err
	}

	token, err := conf.Exchange(ctx, result.code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token.AccessToken, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// postForm submits a form and decodes the JSON response. The Accept header
// switches GitHub's OAuth endpoints from query-string to JSON responses.
func postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &api.RequestError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
