// Package auth implements the credential and two-factor verification core
// of the console.
//
// Verifier resolves local passwords and federated OAuth2 assertions to the
// same *store.User through a single tagged-union Verify call, so session
// binding happens in exactly one place regardless of credential origin.
// MfaVerifier runs the per-user TOTP state machine (absent, pending,
// confirmed); Recorder appends best-effort audit events; StateSigner signs
// the OAuth2 state parameter; ClientAddr resolves the client's network
// address behind a reverse proxy.
//
// All failures a user can cause are collapsed into ErrInvalidCredentials
// or ErrInvalidMfaCode. Anything else is a store failure and is fatal for
// the request.
package auth
