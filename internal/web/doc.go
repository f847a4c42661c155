// Package web serves the management console's authentication pages and
// enforces the gate chain in front of them.
//
// Every protected route declares the stages a request must satisfy, in a
// fixed evaluation order:
//
//  1. install: first-run setup has completed
//  2. credentials: the session is bound to an existing account
//  3. mfa: a two-factor code was verified during this session
//
// A failing stage redirects to the page that can satisfy it (/install,
// /login, /mfa, or /mfa/setup) without mutating any state. Requiring a
// later stage implies all earlier ones.
//
// Sessions are server-side rows keyed by an opaque cookie. The session
// keys "error" and "form" are one-shot: reading them removes them, so a
// failure message or rejected form renders exactly once.
//
// A wrong two-factor code is terminal for the whole session, not just the
// MFA stage. The session is destroyed and the browser starts over at
// sign-in, which keeps a stolen password from buying unlimited code
// guesses inside a half-authenticated session.
package web
