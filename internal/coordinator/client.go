// Package coordinator is the HTTP client for the investigation
// coordinator's REST API, used by the poll loop to fetch authoritative
// snapshots independently of the push channel.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wildtrace/wildtrace-go/internal/models"
)

// Client talks to the coordinator's REST API.
type Client struct {
	baseURL    string
	token      func() string
	httpClient *http.Client
}

// New creates a client for the given base URL. token supplies the bearer
// credential per request so a rotated token is picked up without rebuilding
// the client.
func New(baseURL string, token func() string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetInvestigation fetches the polled snapshot for one investigation.
func (c *Client) GetInvestigation(ctx context.Context, investigationID string) (*models.InvestigationSnapshot, error) {
	url := fmt.Sprintf("%s/api/investigations/%s", c.baseURL, investigationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coordinator error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var snap models.InvestigationSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// WebSocketURL derives the push-channel endpoint from an HTTP base URL, the
// same way browsers do it.
func WebSocketURL(baseURL string) string {
	ws := strings.TrimRight(baseURL, "/")
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return ws + "/ws/investigations"
}
