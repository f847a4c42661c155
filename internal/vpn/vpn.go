// ABOUTME: Controls the OpenVPN systemd unit from the admin API
// ABOUTME: Status is derived from systemctl is-active output

package vpn

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Controller manages the VPN service underneath the console.
type Controller interface {
	// Status reports whether the service unit is currently active.
	Status(ctx context.Context) (bool, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
}

// SystemdController drives a systemd unit through systemctl.
type SystemdController struct {
	unit   string
	logger *slog.Logger
}

// NewSystemdController creates a controller for the named unit, e.g.
// "openvpn-server@server".
func NewSystemdController(unit string) *SystemdController {
	return &SystemdController{
		unit:   unit,
		logger: slog.Default().With("component", "vpn", "unit", unit),
	}
}

// Status runs systemctl is-active. The command exits non-zero for every
// state except active, so the exit code alone is not an error.
func (c *SystemdController) Status(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, "systemctl", "is-active", c.unit).Output()
	state := strings.TrimSpace(string(out))
	if state == "active" {
		return true, nil
	}
	if state != "" {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying unit %s: %w", c.unit, err)
	}
	return false, nil
}

func (c *SystemdController) Start(ctx context.Context) error {
	return c.run(ctx, "start")
}

func (c *SystemdController) Stop(ctx context.Context) error {
	return c.run(ctx, "stop")
}

func (c *SystemdController) Restart(ctx context.Context) error {
	return c.run(ctx, "restart")
}

func (c *SystemdController) run(ctx context.Context, verb string) error {
	c.logger.Info("controlling vpn service", "action", verb)
	out, err := exec.CommandContext(ctx, "systemctl", verb, c.unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w: %s", verb, c.unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}
