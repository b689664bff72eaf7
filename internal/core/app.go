package core

import (
	"fmt"
	"log"
	"time"

	"github.com/wildtrace/wildtrace-go/internal/config"
	"github.com/wildtrace/wildtrace-go/internal/coordinator"
	"github.com/wildtrace/wildtrace-go/internal/models"
	"github.com/wildtrace/wildtrace-go/internal/progress"
	"github.com/wildtrace/wildtrace-go/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server and tests.
type App struct {
	Config  *config.Config
	WsHub   *websocket.Hub
	Sync    *progress.Manager
	Version string
}

// New sets up and returns a new App instance. It handles loading the
// configuration and wiring the sync engine to the websocket hub so every
// derived-state change reaches connected dashboards.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	app, err := NewWithConfig(cfg, hub, version)
	if err != nil {
		return nil, err
	}

	log.Println("Core application setup complete.")
	return app, nil
}

// NewWithConfig builds an App from explicit dependencies. Tests use this to
// point the engine at a fake coordinator.
func NewWithConfig(cfg *config.Config, hub *websocket.Hub, version string) (*App, error) {
	token := func() string { return cfg.Coordinator.Token }

	wsURL := cfg.Coordinator.WSURL
	if wsURL == "" {
		wsURL = coordinator.WebSocketURL(cfg.Coordinator.URL)
	}

	manager := progress.NewManager(progress.Config{
		Conn: progress.ConnConfig{
			URL:         wsURL,
			BackoffBase: time.Duration(cfg.Reconnect.BaseMs) * time.Millisecond,
			BackoffCap:  time.Duration(cfg.Reconnect.CapMs) * time.Millisecond,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
		PollInterval:   time.Duration(cfg.PollInterval) * time.Second,
		EnsembleModels: cfg.Ensemble.Models,
	}, progress.StaticCredential(cfg.Coordinator.Token), coordinator.New(cfg.Coordinator.URL, token))

	// Every applied event or reconciled poll ends up on the dashboard.
	manager.Tracker().Subscribe(func(update models.ProgressUpdate) {
		hub.BroadcastJSON(update)
	})

	return &App{
		Config:  cfg,
		WsHub:   hub,
		Sync:    manager,
		Version: version,
	}, nil
}

// Close gracefully shuts down the application's resources.
func (a *App) Close() {
	if a.Sync != nil {
		a.Sync.Stop()
	}
}
