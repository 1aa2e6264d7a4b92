// Package escalation implements the typed RPC to an external reasoning
// service, invoked when the deterministic dispatch optimizer's confidence
// falls below threshold.
package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// NodeReading is one node's current telemetry, sent as context to the
// reasoning service.
type NodeReading struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	DemandAmps  float64 `json:"demand_amps"`
	Fulfillment float64 `json:"fulfillment"`
}

// SourceInfo describes one energy source, sent as context.
type SourceInfo struct {
	ID            string  `json:"id"`
	MaxSupplyAmps float64 `json:"max_supply_amps"`
	CostPerAmp    float64 `json:"cost_per_amp"`
	RampLimitAmps float64 `json:"ramp_limit_amps"`
}

// Request is the payload sent to the LLM escalation endpoint.
type Request struct {
	Readings          []NodeReading `json:"readings"`
	Sources           []SourceInfo  `json:"sources"`
	OptTimeMS         float64       `json:"opt_time_ms"`
	DeterministicConf float64       `json:"deterministic_confidence"`
}

// Decision is one dispatch decision returned by the reasoning service.
type Decision struct {
	ID         string  `json:"id" validate:"required"`
	SupplyAmps float64 `json:"supply_amps" validate:"gte=0"`
	SourceID   string  `json:"source_id" validate:"required"`
}

// Response is the validated shape of a successful escalation reply.
type Response struct {
	Decisions  []Decision `json:"decisions" validate:"dive"`
	Reasoning  string     `json:"reasoning"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Client performs the escalation RPC over HTTP. No LLM-provider SDK exists
// among the reference examples, so a plain net/http + encoding/json
// transport is used, matching how the original backend called an
// OpenAI-compatible chat endpoint directly.
type Client struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

// NewClient constructs a Client with a sane default timeout; callers still
// pass a per-call deadline via ctx, matching the "one round-trip per cycle"
// rule in the scheduling loop.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{Endpoint: endpoint, APIKey: apiKey, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// Escalate sends the current grid state to the reasoning service and
// returns its validated decision. A validation failure or transport error
// is returned as an error; callers are expected to fall back to the
// deterministic result and record the failure, never to retry within the
// same cycle.
func (c *Client) Escalate(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("escalation: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("escalation: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("escalation: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("escalation: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("escalation: status %d: %s", resp.StatusCode, string(raw))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("escalation: decode response: %w", err)
	}
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("escalation: schema validation: %w", err)
	}
	return &out, nil
}
