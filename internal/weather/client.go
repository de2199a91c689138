package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps the external weather API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping checks if the remote weather service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}
	return nil
}

type currentResponse struct {
	Condition   string  `json:"condition"`
	TempC       float64 `json:"temp_c"`
	HumidityPct float64 `json:"humidity_pct"`
	RainMm      float64 `json:"rain_mm"`
	ObservedAt  string  `json:"observed_at"`
}

// Current fetches the latest reading for the processing site.
func (c *Client) Current(ctx context.Context) (Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/current", c.baseURL), nil)
	if err != nil {
		return Observation{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Observation{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return Observation{}, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Observation{}, err
	}
	obs := Observation{
		Condition:   payload.Condition,
		TempC:       payload.TempC,
		HumidityPct: payload.HumidityPct,
		RainMm:      payload.RainMm,
		ObservedAt:  time.Now().UTC(),
	}
	if payload.ObservedAt != "" {
		if at, err := time.Parse(time.RFC3339, payload.ObservedAt); err == nil {
			obs.ObservedAt = at
		}
	}
	return obs, nil
}
