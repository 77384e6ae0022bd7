// FILE: src/internal/status/systemd.go
package status

import (
	"context"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/lixenwraith/log"

	"guardpost/src/internal/config"
)

// Service states surfaced to the dashboard.
const (
	StateRunning = "running"
	StateStopped = "stopped"
	StateUnknown = "unknown"
)

// Checker reports the up/down state of the configured systemd units.
type Checker struct {
	units   []string
	timeout time.Duration
	logger  *log.Logger

	// connect is swappable in tests.
	connect func(ctx context.Context) (systemdConn, error)
}

// systemdConn is the slice of the D-Bus API the checker needs.
type systemdConn interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	Close()
}

// NewChecker creates a checker for the given units.
func NewChecker(cfg config.StatusConfig, logger *log.Logger) *Checker {
	return &Checker{
		units:   cfg.Units,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:  logger,
		connect: func(ctx context.Context) (systemdConn, error) {
			return dbus.NewWithContext(ctx)
		},
	}
}

// Check returns a state per unit, keyed by display name (a "-server" suffix
// is stripped, so redis-server reports as redis). A D-Bus failure degrades
// every unit to unknown; it is never an error at the HTTP boundary.
func (c *Checker) Check(ctx context.Context) map[string]string {
	services := make(map[string]string, len(c.units))
	for _, unit := range c.units {
		services[displayName(unit)] = StateUnknown
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.connect(ctx)
	if err != nil {
		c.logger.Warn("msg", "D-Bus connection failed, reporting units as unknown",
			"component", "status",
			"error", err)
		return services
	}
	defer conn.Close()

	names := make([]string, len(c.units))
	for i, unit := range c.units {
		names[i] = unitName(unit)
	}

	statuses, err := conn.ListUnitsByNamesContext(ctx, names)
	if err != nil {
		c.logger.Warn("msg", "Unit state query failed",
			"component", "status",
			"error", err)
		return services
	}

	for _, u := range statuses {
		name := displayName(strings.TrimSuffix(u.Name, ".service"))
		services[name] = mapState(u.ActiveState)
	}
	return services
}

// unitName appends the .service suffix when the configured name lacks an
// explicit unit type.
func unitName(unit string) string {
	if strings.Contains(unit, ".") {
		return unit
	}
	return unit + ".service"
}

func displayName(unit string) string {
	return strings.TrimSuffix(unit, "-server")
}

func mapState(activeState string) string {
	switch activeState {
	case "active", "reloading", "activating":
		return StateRunning
	case "inactive", "deactivating", "failed":
		return StateStopped
	default:
		return StateUnknown
	}
}
