package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/notes/internal/apperror"
)

// DefaultProviderTimeout bounds each outbound call to GitHub.
const DefaultProviderTimeout = 10 * time.Second

const defaultGitHubAPIURL = "https://api.github.com"

// GitHubUser is the portion of the GitHub /user API response we care about.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`    // GitHub's numeric user ID, stable for the account
	Login string `json:"login"` // GitHub username, e.g. "octocat"
	Name  string `json:"name"`  // Display name; GitHub sends null when unset
}

// GitHubConfig configures a GitHubProvider. The URL fields default to
// github.com and are only overridden in tests.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Timeout      time.Duration

	AuthURL  string
	TokenURL string
	APIURL   string
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The browser is sent to GitHub's authorization endpoint (AuthURL).
//  2. GitHub redirects back to the callback with a short-lived "code".
//  3. ExchangeCode trades the code for an access token (server-to-server).
//  4. FetchProfile uses the access token to call GET /user.
//
// Both outbound calls are bounded by the configured timeout. A timeout
// surfaces as the same provider error as any other failure of that step.
type GitHubProvider struct {
	config  *oauth2.Config
	apiURL  string
	client  *http.Client
	timeout time.Duration
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// The only scope requested is read:user; the app needs the account ID,
// login and display name, nothing else.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	apiURL := defaultGitHubAPIURL
	if cfg.APIURL != "" {
		apiURL = strings.TrimRight(cfg.APIURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     endpoint,
		},
		apiURL:  apiURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// state is echoed back by GitHub and checked by the callback handler.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades an authorization code for an access token.
//
// Any failure, including GitHub answering 200 with an error body instead
// of a token, is reported as apperror.ErrProviderExchange.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", apperror.ProviderExchange(err)
	}
	if tok.AccessToken == "" {
		return "", apperror.ProviderExchange(errors.New("provider returned no access token"))
	}

	return tok.AccessToken, nil
}

// FetchProfile calls GitHub's /user endpoint with the access token.
// Failures are reported as apperror.ErrProviderProfile.
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*GitHubUser, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, apperror.ProviderProfile(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.ProviderProfile(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProviderProfile(fmt.Errorf("GitHub /user returned status %d", resp.StatusCode))
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, apperror.ProviderProfile(fmt.Errorf("decoding /user response: %w", err))
	}
	if ghUser.ID == 0 {
		return nil, apperror.ProviderProfile(errors.New("GitHub returned an invalid user (ID = 0)"))
	}

	return &ghUser, nil
}

// bound applies the provider timeout and makes oauth2 use our HTTP client.
func (p *GitHubProvider) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, p.client), cancel
}
