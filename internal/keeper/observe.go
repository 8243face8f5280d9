// Package keeper implements the autonomous steward of the singularity.
// It observes the simulation via the API, triages the danger of
// assimilation, and acts via the admin action endpoint.
package keeper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Observation holds all data collected during an observation cycle.
type Observation struct {
	Status  Status        `json:"status"`
	History []StatsSample `json:"history"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name         string  `json:"name"`
	RunID        string  `json:"run_id"`
	Tick         uint64  `json:"tick"`
	Elapsed      string  `json:"elapsed"`
	Speed        float64 `json:"speed"`
	Running      bool    `json:"running"`
	State        string  `json:"state"`
	Health       float64 `json:"health"`
	Band         string  `json:"band"`
	Population   int     `json:"population"`
	Orbiting     int     `json:"orbiting"`
	NovaReady    bool    `json:"nova_ready"`
	NovaCooldown float64 `json:"nova_cooldown"`
}

// StatsSample mirrors items from GET /api/v1/stats/history.
type StatsSample struct {
	Tick          uint64 `json:"tick"`
	State         string `json:"state"`
	Population    int    `json:"population"`
	Orbiting      int    `json:"orbiting"`
	Novas         int    `json:"novas"`
	Assimilations int    `json:"assimilations"`
}

// Observer fetches simulation state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Observe fetches status and recent history.
func (o *Observer) Observe(ctx context.Context) (*Observation, error) {
	obs := &Observation{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &obs.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	// History needs the database; a server without one still gets triaged.
	if err := o.fetchJSON(ctx, "/api/v1/stats/history?limit=10", &obs.History); err != nil {
		obs.History = nil
	}

	return obs, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build GET %s: %w", path, err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
