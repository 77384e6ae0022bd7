// FILE: src/internal/status/status_test.go
package status

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"

	"guardpost/src/internal/config"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

type fakeConn struct {
	statuses []dbus.UnitStatus
	err      error
}

func (f *fakeConn) ListUnitsByNamesContext(_ context.Context, _ []string) ([]dbus.UnitStatus, error) {
	return f.statuses, f.err
}

func (f *fakeConn) Close() {}

func newTestChecker(conn systemdConn, connErr error) *Checker {
	c := NewChecker(config.StatusConfig{
		Units:     []string{"fortify", "tor", "redis-server"},
		TimeoutMS: 100,
	}, newTestLogger())
	c.connect = func(ctx context.Context) (systemdConn, error) {
		if connErr != nil {
			return nil, connErr
		}
		return conn, nil
	}
	return c
}

func TestCheck_MapsUnitStates(t *testing.T) {
	checker := newTestChecker(&fakeConn{statuses: []dbus.UnitStatus{
		{Name: "fortify.service", ActiveState: "active"},
		{Name: "tor.service", ActiveState: "failed"},
		{Name: "redis-server.service", ActiveState: "inactive"},
	}}, nil)

	services := checker.Check(context.Background())
	assert.Equal(t, map[string]string{
		"fortify": StateRunning,
		"tor":     StateStopped,
		"redis":   StateStopped,
	}, services)
}

func TestCheck_DBusFailureDegradesToUnknown(t *testing.T) {
	checker := newTestChecker(nil, errors.New("no system bus"))

	services := checker.Check(context.Background())
	assert.Equal(t, map[string]string{
		"fortify": StateUnknown,
		"tor":     StateUnknown,
		"redis":   StateUnknown,
	}, services)
}

func TestCheck_QueryFailureDegradesToUnknown(t *testing.T) {
	checker := newTestChecker(&fakeConn{err: errors.New("query refused")}, nil)

	services := checker.Check(context.Background())
	for _, state := range services {
		assert.Equal(t, StateUnknown, state)
	}
}

func TestMapState(t *testing.T) {
	assert.Equal(t, StateRunning, mapState("active"))
	assert.Equal(t, StateRunning, mapState("activating"))
	assert.Equal(t, StateStopped, mapState("inactive"))
	assert.Equal(t, StateStopped, mapState("failed"))
	assert.Equal(t, StateUnknown, mapState("weird"))
}

func TestOnionAddress(t *testing.T) {
	t.Run("ReadsTrimmedHostname", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hostname")
		assert.NoError(t, os.WriteFile(path, []byte("abcdef.onion\n"), 0o600))
		assert.Equal(t, "abcdef.onion", OnionAddress(path))
	})

	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		assert.Empty(t, OnionAddress(filepath.Join(t.TempDir(), "nope")))
	})
}
