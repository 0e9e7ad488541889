package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pollguard/pkg/platform/sentinel"
)

// HTTPClient talks to a remote voter registry service. Timeouts are owned by
// the caller's context plus the client's own transport timeout; failures map
// to sentinel.ErrUnavailable so the orchestrator can classify them as
// infrastructure errors.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a registry client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type eligibilityResponse struct {
	VoterID           string `json:"voter_id"`
	DisplayName       string `json:"display_name"`
	AssignedStationID string `json:"assigned_station_id"`
	Status            string `json:"status"`
}

// GetEligibility fetches the voter's eligibility snapshot.
func (c *HTTPClient) GetEligibility(ctx context.Context, voterID string) (*VoterEligibility, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voters/"+voterID, nil)
	if err != nil {
		return nil, fmt.Errorf("build eligibility request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry eligibility call: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	default:
		return nil, fmt.Errorf("registry returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var body eligibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode eligibility response: %w", err)
	}
	return &VoterEligibility{
		VoterID:           body.VoterID,
		DisplayName:       body.DisplayName,
		AssignedStationID: body.AssignedStationID,
		Status:            Status(body.Status),
	}, nil
}

// MarkVoted posts the voted status update. Best-effort: a non-2xx response
// is an error for the caller to log, never to retry into a rejection.
func (c *HTTPClient) MarkVoted(ctx context.Context, voterID string) error {
	payload, err := json.Marshal(map[string]string{"status": string(StatusVoted)})
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voters/"+voterID+"/status", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry status call: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("registry status update returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}
