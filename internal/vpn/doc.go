// Package vpn controls the OpenVPN service the console fronts.
//
// Controller abstracts status queries and start/stop/restart so handlers
// and tests don't depend on systemd. SystemdController shells out to
// systemctl; MockController records actions for tests.
package vpn
