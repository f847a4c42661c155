// ABOUTME: OAuth2 authorization-code flow for federated sign-in
// ABOUTME: Provider settings live in the settings store; state is a signed token bound to the session

package web

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
	"golang.org/x/oauth2/google"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/store"
)

// Settings keys for the OAuth2 provider. Empty client ID means federated
// sign-in is disabled.
const (
	SettingOAuth2Provider     = "oauth2_provider"
	SettingOAuth2ClientID     = "oauth2_client_id"
	SettingOAuth2ClientSecret = "oauth2_client_secret"
)

// ErrOAuth2Disabled is returned when no provider is configured.
var ErrOAuth2Disabled = errors.New("oauth2 sign-in is not configured")

const stateLifetime = 10 * time.Minute

// Identity is what the provider asserts about the signed-in account.
type Identity struct {
	Email string
	Name  string
}

// OAuth2Flow drives the authorization-code dance against the configured
// provider.
type OAuth2Flow struct {
	settings store.SettingStore
	signer   *auth.StateSigner
	baseURL  string
}

// NewOAuth2Flow creates the flow. baseURL is the externally reachable root
// of this console, used to build the callback URL.
func NewOAuth2Flow(settings store.SettingStore, signer *auth.StateSigner, baseURL string) *OAuth2Flow {
	return &OAuth2Flow{
		settings: settings,
		signer:   signer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Provider returns the configured provider name, or "" when federated
// sign-in is disabled.
func (f *OAuth2Flow) Provider(ctx context.Context) (string, error) {
	values, err := f.settings.GetSettings(ctx, []string{SettingOAuth2Provider, SettingOAuth2ClientID})
	if err != nil {
		return "", fmt.Errorf("reading oauth2 settings: %w", err)
	}
	if values[SettingOAuth2ClientID] == "" {
		return "", nil
	}
	return values[SettingOAuth2Provider], nil
}

// AuthURL returns the provider's consent URL with a state token bound to
// the given session.
func (f *OAuth2Flow) AuthURL(ctx context.Context, sessionID string) (string, error) {
	conf, _, err := f.config(ctx)
	if err != nil {
		return "", err
	}
	state, err := f.signer.Generate(sessionID, stateLifetime)
	if err != nil {
		return "", fmt.Errorf("signing oauth2 state: %w", err)
	}
	return conf.AuthCodeURL(state), nil
}

// Callback validates the state against the session, exchanges the code,
// and fetches the provider's identity for the account.
func (f *OAuth2Flow) Callback(ctx context.Context, sessionID, state, code string) (*Identity, error) {
	boundSession, err := f.signer.Verify(state)
	if err != nil {
		return nil, fmt.Errorf("verifying oauth2 state: %w", err)
	}
	if boundSession != sessionID {
		return nil, errors.New("oauth2 state does not match this session")
	}

	conf, provider, err := f.config(ctx)
	if err != nil {
		return nil, err
	}
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging oauth2 code: %w", err)
	}
	return fetchIdentity(ctx, provider, conf.Client(ctx, token))
}

func (f *OAuth2Flow) config(ctx context.Context) (*oauth2.Config, string, error) {
	values, err := f.settings.GetSettings(ctx, []string{
		SettingOAuth2Provider, SettingOAuth2ClientID, SettingOAuth2ClientSecret,
	})
	if err != nil {
		return nil, "", fmt.Errorf("reading oauth2 settings: %w", err)
	}
	if values[SettingOAuth2ClientID] == "" {
		return nil, "", ErrOAuth2Disabled
	}

	provider := values[SettingOAuth2Provider]
	conf := &oauth2.Config{
		ClientID:     values[SettingOAuth2ClientID],
		ClientSecret: values[SettingOAuth2ClientSecret],
		RedirectURL:  f.baseURL + "/login/oauth2/callback",
	}
	switch provider {
	case "google":
		conf.Endpoint = google.Endpoint
		conf.Scopes = []string{"openid", "email", "profile"}
	case "github":
		conf.Endpoint = github.Endpoint
		conf.Scopes = []string{"read:user", "user:email"}
	default:
		return nil, "", fmt.Errorf("unsupported oauth2 provider %q", provider)
	}
	return conf, provider, nil
}

// fetchIdentity asks the provider's userinfo endpoint who the token
// belongs to.
func fetchIdentity(ctx context.Context, provider string, client *http.Client) (*Identity, error) {
	var endpoint string
	switch provider {
	case "google":
		endpoint = "https://openidconnect.googleapis.com/v1/userinfo"
	case "github":
		endpoint = "https://api.github.com/user"
	default:
		return nil, fmt.Errorf("unsupported oauth2 provider %q", provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if payload.Email == "" {
		return nil, errors.New("provider did not return an email address")
	}
	return &Identity{Email: strings.ToLower(payload.Email), Name: payload.Name}, nil
}
