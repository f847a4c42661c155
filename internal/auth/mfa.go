// ABOUTME: Two-factor verification state machine over per-user TOTP secrets
// ABOUTME: States are absent, pending (secret issued), and confirmed (mfa_enabled)

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// MfaState describes where a user is in two-factor enrollment.
type MfaState string

const (
	// MfaAbsent means no secret has been issued.
	MfaAbsent MfaState = "absent"
	// MfaPending means a secret exists but no code has ever been verified.
	MfaPending MfaState = "pending"
	// MfaConfirmed means the user has verified a code at least once.
	MfaConfirmed MfaState = "confirmed"
)

// MfaVerifier manages secret issuance and code verification.
type MfaVerifier struct {
	users    store.UserStore
	recorder *Recorder
	issuer   string
	logger   *slog.Logger
}

// NewMfaVerifier creates an MFA verifier. The issuer names this console in
// authenticator apps.
func NewMfaVerifier(users store.UserStore, recorder *Recorder, issuer string) *MfaVerifier {
	if issuer == "" {
		issuer = "Burrow VPN"
	}
	return &MfaVerifier{
		users:    users,
		recorder: recorder,
		issuer:   issuer,
		logger:   slog.Default().With("component", "mfa"),
	}
}

// State reports the user's enrollment state.
func (v *MfaVerifier) State(user *store.User) MfaState {
	switch {
	case user.MfaSecret == "":
		return MfaAbsent
	case !user.MfaEnabled:
		return MfaPending
	default:
		return MfaConfirmed
	}
}

// IssueSecret moves a user from absent to pending by generating a TOTP
// secret, and returns the otpauth:// provisioning URI. A pending secret is
// reused so reloading the setup page doesn't invalidate a scanned QR code.
// Issuing for a confirmed user is an error; confirmed users never re-enroll
// without an administrative Reset first.
func (v *MfaVerifier) IssueSecret(ctx context.Context, user *store.User) (string, error) {
	if v.State(user) == MfaConfirmed {
		return "", fmt.Errorf("mfa already confirmed for user %s", user.ID)
	}

	if user.MfaSecret == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      v.issuer,
			AccountName: user.Email,
		})
		if err != nil {
			return "", fmt.Errorf("generating totp secret: %w", err)
		}

		if err := v.users.UpdateUserMFA(ctx, user.ID, key.Secret(), false); err != nil {
			return "", fmt.Errorf("persisting totp secret: %w", err)
		}
		user.MfaSecret = key.Secret()
		v.logger.Debug("issued mfa secret", "user_id", user.ID)
	}

	return provisioningURI(v.issuer, user.Email, user.MfaSecret), nil
}

// provisioningURI builds the otpauth:// URL an authenticator app enrolls
// from. Parameters match the verification options in VerifyCode.
func provisioningURI(issuer, account, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", "30")
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + url.PathEscape(issuer+":"+account) + "?" + v.Encode()
}

// VerifyCode checks a submitted code against the user's secret.
//
// On success the user is moved to confirmed if this was their first
// verification, and a web.login event is recorded with the caller's
// resolved network address. On mismatch, or when no secret has been
// issued, a web.error event is recorded and ErrInvalidMfaCode is
// returned; the caller is expected to terminate the whole session so a
// guessed code cannot retry inside an authenticated session.
func (v *MfaVerifier) VerifyCode(ctx context.Context, user *store.User, code, clientAddr string) error {
	ok := false
	if user.MfaSecret != "" {
		var err error
		ok, err = totp.ValidateCustom(code, user.MfaSecret, time.Now().UTC(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			ok = false
		}
	}
	if !ok {
		v.recorder.Record(ctx, store.EventWebError, user.ID, "Incorrect two-factor authentication code")
		return ErrInvalidMfaCode
	}

	if !user.MfaEnabled {
		if err := v.users.UpdateUserMFA(ctx, user.ID, user.MfaSecret, true); err != nil {
			return fmt.Errorf("enabling mfa: %w", err)
		}
		user.MfaEnabled = true
	}

	v.recorder.Record(ctx, store.EventWebLogin, user.ID,
		fmt.Sprintf("Logged in to web application from %s.", clientAddr))
	return nil
}

// Reset clears the user's secret and enabled flag, returning them to
// absent and forcing re-enrollment on next login. Administrative only.
func (v *MfaVerifier) Reset(ctx context.Context, userID string) error {
	if err := v.users.UpdateUserMFA(ctx, userID, "", false); err != nil {
		return fmt.Errorf("resetting mfa: %w", err)
	}
	v.logger.Info("mfa reset", "user_id", userID)
	return nil
}
