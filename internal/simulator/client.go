package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// Client reads readings from a running simulator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the simulator at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Ping checks the simulator health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var body map[string]string
	if err := c.get(ctx, "/", nil, &body); err != nil {
		return domain.SourceError("ping", err)
	}
	if body["status"] != "healthy" {
		return domain.SourceError("ping", fmt.Errorf("simulator reports status %q", body["status"]))
	}
	return nil
}

// Reading fetches one reading for machineID.
func (c *Client) Reading(ctx context.Context, machineID string) (domain.Reading, error) {
	var p Payload
	if err := c.get(ctx, "/data", url.Values{"machine_id": {machineID}}, &p); err != nil {
		return domain.Reading{}, domain.SourceError("data", err)
	}
	rd, err := validPayload(p)
	if err != nil {
		return domain.Reading{}, domain.SourceError("data", err)
	}
	return rd, nil
}

// Batch fetches size readings from randomly chosen machines.
func (c *Client) Batch(ctx context.Context, size int) ([]domain.Reading, error) {
	var payloads []Payload
	if err := c.get(ctx, "/batch", url.Values{"size": {strconv.Itoa(size)}}, &payloads); err != nil {
		return nil, domain.SourceError("batch", err)
	}
	readings := make([]domain.Reading, 0, len(payloads))
	for _, p := range payloads {
		rd, err := validPayload(p)
		if err != nil {
			return nil, domain.SourceError("batch", err)
		}
		readings = append(readings, rd)
	}
	return readings, nil
}

func validPayload(p Payload) (domain.Reading, error) {
	rd, err := p.Reading()
	if err != nil {
		return domain.Reading{}, err
	}
	if !rd.Finite() {
		return domain.Reading{}, fmt.Errorf("machine %s: %w", rd.MachineID, domain.ErrMalformedReading)
	}
	return rd, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
