package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wildtrace/wildtrace-go/internal/api"
	"github.com/wildtrace/wildtrace-go/internal/config"
	"github.com/wildtrace/wildtrace-go/internal/core"
	"github.com/wildtrace/wildtrace-go/internal/models"
	"github.com/wildtrace/wildtrace-go/internal/testutil"
	"github.com/wildtrace/wildtrace-go/internal/websocket"
)

func TestHandleHealth(t *testing.T) {
	coord := testutil.NewFakeCoordinator(t)
	server, _ := testutil.SetupTestServer(t, coord)
	router := server.Router()

	req, _ := http.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", body["status"])
	}
	if body["connection"] != string(models.ConnClosed) {
		t.Errorf("Expected connection 'closed' before tracking, got '%s'", body["connection"])
	}
}

func TestHandleGetVersion(t *testing.T) {
	coord := testutil.NewFakeCoordinator(t)
	server, _ := testutil.SetupTestServer(t, coord)
	router := server.Router()

	req, _ := http.NewRequest("GET", "/api/version", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("Expected version 'test', got '%s'", body["version"])
	}
}

func TestHandleTrackAndProgress(t *testing.T) {
	coord := testutil.NewFakeCoordinator(t)
	server, _ := testutil.SetupTestServer(t, coord)
	router := server.Router()

	t.Run("Track", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/investigations/inv-1/track", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v, body: %s", status, http.StatusOK, rr.Body.String())
		}

		var view models.ProgressUpdate
		if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if view.InvestigationID != "inv-1" {
			t.Errorf("Expected investigation 'inv-1', got '%s'", view.InvestigationID)
		}
		if len(view.Phases) != len(models.PhaseOrder) {
			t.Errorf("Expected %d phases, got %d", len(models.PhaseOrder), len(view.Phases))
		}
	})

	t.Run("Progress of tracked investigation", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/investigations/inv-1/progress", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})

	t.Run("Progress of other investigation", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/investigations/other/progress", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
		}
	})

	t.Run("Unknown subagent", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/investigations/inv-1/subagents/ghost", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
		}
	})

	t.Run("Ensemble before scoring phase", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/investigations/inv-1/ensemble", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
		var members []models.ModelProgress
		if err := json.Unmarshal(rr.Body.Bytes(), &members); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(members) != 0 {
			t.Errorf("Expected empty ensemble before the scoring phase, got %d members", len(members))
		}
	})

	t.Run("Untrack", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/investigations/untrack", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}

		req, _ = http.NewRequest("GET", "/api/investigations/inv-1/progress", nil)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusNotFound {
			t.Errorf("Expected 404 after untrack, got %v", status)
		}
	})
}

func TestHandleTrackWithoutCredential(t *testing.T) {
	coord := testutil.NewFakeCoordinator(t)

	// A config with no coordinator token configured.
	cfg := &config.Config{}
	cfg.Coordinator.URL = coord.URL()
	cfg.Coordinator.WSURL = coord.WSURL()
	cfg.Reconnect.BaseMs = 10
	cfg.Reconnect.CapMs = 100
	cfg.Reconnect.MaxAttempts = 2

	hub := websocket.NewHub()
	go hub.Run()
	app, err := core.NewWithConfig(cfg, hub, "test")
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}
	t.Cleanup(app.Close)
	router := api.NewServer(app).Router()

	req, _ := http.NewRequest("POST", "/api/investigations/inv-1/track", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusServiceUnavailable {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusServiceUnavailable)
	}
}

func TestAuthMiddleware(t *testing.T) {
	coord := testutil.NewFakeCoordinator(t)
	server, app := testutil.SetupTestServer(t, coord)
	app.Config.Auth.APIToken = "dashboard-secret"
	router := server.Router()

	t.Run("No token", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/investigations/untrack", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	t.Run("Wrong token", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/investigations/untrack", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	t.Run("Valid token", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/investigations/untrack", nil)
		req.Header.Set("Authorization", "Bearer dashboard-secret")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})

	t.Run("Health stays public", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}
	})
}
