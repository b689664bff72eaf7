// Shared test server setup utilities, which simplify all API and engine tests.

package testutil

import (
	"testing"

	"github.com/wildtrace/wildtrace-go/internal/api"
	"github.com/wildtrace/wildtrace-go/internal/config"
	"github.com/wildtrace/wildtrace-go/internal/core"
	"github.com/wildtrace/wildtrace-go/internal/websocket"
)

// SetupTestApp builds a core.App whose sync engine points at the given fake
// coordinator. Reconnect timings are shrunk so connection tests stay fast.
func SetupTestApp(t *testing.T, coord *FakeCoordinator) *core.App {
	t.Helper()

	cfg := &config.Config{}
	cfg.Port = 0
	cfg.PollInterval = 1
	cfg.Coordinator.URL = coord.URL()
	cfg.Coordinator.WSURL = coord.WSURL()
	cfg.Coordinator.Token = TestToken
	cfg.Reconnect.BaseMs = 10
	cfg.Reconnect.CapMs = 100
	cfg.Reconnect.MaxAttempts = 5

	hub := websocket.NewHub()
	go hub.Run()

	app, err := core.NewWithConfig(cfg, hub, "test")
	if err != nil {
		t.Fatalf("Failed to build test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing against a fake coordinator.
func SetupTestServer(t *testing.T, coord *FakeCoordinator) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t, coord)
	return api.NewServer(app), app
}
