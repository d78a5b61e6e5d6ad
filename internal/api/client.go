// Package api is the request layer for GitHub REST and GraphQL calls. Every
// client is bound to one account; tokens are decrypted from the credential
// store immediately before each request and never cached in plaintext.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/gitify-app/gitify-sub003/internal/credential"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

const requestTimeout = 30 * time.Second

// Client performs REST and GraphQL calls for a single account.
type Client struct {
	account    model.Account
	rest       *github.Client
	httpClient *http.Client
	graphqlURL string
}

// keyringTokenSource yields the account token from the OS keyring on every
// request. Plaintext is never held between requests.
type keyringTokenSource struct {
	accountUUID string
}

func (s *keyringTokenSource) Token() (*oauth2.Token, error) {
	token, err := credential.Get(s.accountUUID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token}, nil
}

// volatilePaths are endpoints whose responses must never be served from an
// HTTP cache.
var volatilePaths = []string{
	"/notifications",
	"/login/oauth/access_token",
}

// noCacheTransport forces Cache-Control: no-cache on volatile endpoints and
// leaves default HTTP caching in place everywhere else.
type noCacheTransport struct {
	next http.RoundTripper
}

func (t *noCacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, p := range volatilePaths {
		if strings.HasSuffix(req.URL.Path, p) {
			req.Header.Set("Cache-Control", "no-cache")
			break
		}
	}
	return t.next.RoundTrip(req)
}

// NewClient creates a client whose token is resolved from the credential
// store at request time.
func NewClient(account model.Account) (*Client, error) {
	return newClient(account, &keyringTokenSource{accountUUID: account.UUID()})
}

// NewClientWithToken creates a client bound to an explicit token. Used during
// login, before the token has been stored.
func NewClientWithToken(account model.Account, token string) (*Client, error) {
	return newClient(account, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func newClient(account model.Account, source oauth2.TokenSource) (*Client, error) {
	httpClient := &http.Client{
		Transport: &noCacheTransport{next: &oauth2.Transport{Source: source}},
		Timeout:   requestTimeout,
	}

	rest := github.NewClient(httpClient)
	if account.IsEnterprise() {
		base := APIBaseURL(account.Hostname)
		var err error
		rest, err = rest.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise URLs for %s: %w", account.Hostname, err)
		}
	}

	return &Client{
		account:    account,
		rest:       rest,
		httpClient: httpClient,
		graphqlURL: GraphQLURL(account.Hostname),
	}, nil
}

// NewClientWithEndpoints creates a client against explicit REST and GraphQL
// endpoints with a caller-supplied HTTP client. Used in tests.
func NewClientWithEndpoints(account model.Account, httpClient *http.Client, restBase, graphqlURL string) (*Client, error) {
	rest := github.NewClient(httpClient)
	base, err := url.Parse(restBase)
	if err != nil {
		return nil, fmt.Errorf("invalid REST base URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	rest.BaseURL = base

	return &Client{
		account:    account,
		rest:       rest,
		httpClient: httpClient,
		graphqlURL: graphqlURL,
	}, nil
}

// Account returns the account this client is bound to.
func (c *Client) Account() model.Account {
	return c.account
}

// GetJSON fetches an absolute API URL (as returned inside notification
// payloads) and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return resp.Status
}
