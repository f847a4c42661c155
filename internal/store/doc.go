// Package store provides persistent storage for the console using SQLite.
//
// The package is interface-driven: each concern has a narrow interface
// (UserStore, GroupStore, EventStore, FirewallStore, DeviceStore,
// SettingStore, SessionStore) and SQLiteStore implements all of them in a
// single struct so the wiring in cmd stays simple while callers depend
// only on what they use.
//
// Entities:
//
//   - User: console account with credential, MFA, and forced-password fields
//   - Group: role container; carries the admin flag and device allowance
//   - Event: append-only audit record (never updated or deleted)
//   - FirewallRule: per-group traffic policy applied by the VPN layer
//   - Device / Client: issued VPN credentials and live connections
//   - Setting: key-value application settings, including the install flag
//   - WebSession: server-side session row behind the web layer's cookie
//
// SQLite runs in WAL mode with foreign keys enabled; the schema is created
// on open. Timestamps are stored as RFC 3339 strings.
//
// Use NewMockStore() in tests that don't need a real database.
package store
