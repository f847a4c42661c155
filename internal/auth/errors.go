// ABOUTME: Error taxonomy for the authentication core
// ABOUTME: Flow handlers branch on these sentinels, users only ever see generic messages

package auth

import "errors"

// ErrInvalidCredentials is returned for a bad username/password pair or an
// unresolvable federated identity. Callers must surface it as a single
// generic message and never distinguish unknown user from wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidMfaCode is returned when a submitted one-time code does not
// match the user's secret. The flow boundary terminates the whole session
// on this error, not just the MFA stage.
var ErrInvalidMfaCode = errors.New("invalid mfa code")
