// Package webapi exposes the admin JSON API under /api/admin/.
//
// # Authentication
//
// Every route is wrapped by the console's admin middleware: the request
// must carry a session that has passed install, credentials, and MFA, and
// the bound account's group must be an admin group. Failures return 401
// (unauthenticated or partially authenticated) or 403 (authenticated but
// not an admin) as JSON; the API never redirects.
//
// # Resources
//
//   - /api/admin/users: accounts, invites, MFA reset, per-user devices
//   - /api/admin/groups: groups and their device limits
//   - /api/admin/firewall: per-group traffic rules
//   - /api/admin/clients: connected VPN sessions
//   - /api/admin/events: the append-only audit log (read-only)
//   - /api/admin/vpn: service status and start/stop/restart
//   - /api/admin/settings: editable runtime settings and the mail test
//
// # Conventions
//
// Request bodies are strict JSON (unknown fields rejected). Store
// sentinel errors map to status codes: not-found to 404, conflicts
// (duplicate email, group in use) to 409, everything else to 500 with a
// generic message.
package webapi
