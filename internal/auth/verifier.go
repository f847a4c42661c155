// ABOUTME: Credential verification for local passwords and federated identities
// ABOUTME: Both origins produce the same *store.User through one Verify entry point

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// Backend identifies how a session's credentials were established.
// The web layer stores it alongside the principal binding so downstream
// logic can branch on provenance.
const (
	BackendLocal  = "local"
	BackendOAuth2 = "oauth2"
)

// OAuth2 provisioning settings read by federated verification.
const (
	SettingOAuth2Domain       = "oauth2_domain"
	SettingOAuth2DefaultGroup = "oauth2_default_group"
)

// dummyHash keeps bcrypt comparison time constant when the account does
// not exist, so response timing cannot enumerate valid emails.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Credentials is the tagged-union input to Verify. Exactly two variants
// exist: LocalCredentials and FederatedAssertion.
type Credentials interface {
	backend() string
}

// LocalCredentials is a username/password pair submitted to the login form.
type LocalCredentials struct {
	Email    string
	Password string
}

func (LocalCredentials) backend() string { return BackendLocal }

// FederatedAssertion is an identity already validated by an external
// OAuth2 provider. The handshake itself happens outside this package.
type FederatedAssertion struct {
	Email string
	Name  string
}

func (FederatedAssertion) backend() string { return BackendOAuth2 }

// Verifier validates credentials against the user store.
type Verifier struct {
	users    store.UserStore
	settings store.SettingStore
	logger   *slog.Logger
}

// NewVerifier creates a credential verifier.
func NewVerifier(users store.UserStore, settings store.SettingStore) *Verifier {
	return &Verifier{
		users:    users,
		settings: settings,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Verify checks the given credentials and returns the matching user plus
// the provenance backend. Both failure modes return ErrInvalidCredentials;
// any other error means the user store itself failed.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) (*store.User, string, error) {
	switch c := creds.(type) {
	case LocalCredentials:
		user, err := v.verifyLocal(ctx, c)
		return user, BackendLocal, err
	case FederatedAssertion:
		user, err := v.verifyFederated(ctx, c)
		return user, BackendOAuth2, err
	default:
		return nil, "", fmt.Errorf("unsupported credential type %T", creds)
	}
}

func (v *Verifier) verifyLocal(ctx context.Context, creds LocalCredentials) (*store.User, error) {
	user, err := v.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Dummy comparison to keep timing constant
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(creds.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(creds.Password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (v *Verifier) verifyFederated(ctx context.Context, assertion FederatedAssertion) (*store.User, error) {
	if assertion.Email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := v.users.GetUserByEmail(ctx, assertion.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	return v.provisionFederated(ctx, assertion)
}

// provisionFederated creates an account for an asserted identity when the
// OAuth2 settings allow it: the email domain must match oauth2_domain and
// a default group must be configured. Otherwise the identity is rejected.
func (v *Verifier) provisionFederated(ctx context.Context, assertion FederatedAssertion) (*store.User, error) {
	domain, err := v.settings.GetSetting(ctx, SettingOAuth2Domain, "")
	if err != nil {
		return nil, fmt.Errorf("reading oauth2 domain: %w", err)
	}
	groupID, err := v.settings.GetSetting(ctx, SettingOAuth2DefaultGroup, "")
	if err != nil {
		return nil, fmt.Errorf("reading oauth2 default group: %w", err)
	}
	if domain == "" || groupID == "" {
		return nil, ErrInvalidCredentials
	}
	if !strings.HasSuffix(assertion.Email, "@"+domain) {
		return nil, ErrInvalidCredentials
	}

	user := &store.User{
		Email:   assertion.Email,
		Name:    assertion.Name,
		GroupID: groupID,
	}
	if user.Name == "" {
		user.Name = assertion.Email
	}

	if err := v.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			// Raced with another callback for the same identity
			return v.users.GetUserByEmail(ctx, assertion.Email)
		}
		return nil, fmt.Errorf("provisioning user: %w", err)
	}

	v.logger.Info("provisioned federated user", "email", user.Email, "group_id", groupID)
	return user, nil
}

// HashPassword returns the bcrypt hash for a new password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
