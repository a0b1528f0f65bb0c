package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "paisa/internal/errors"
)

// HTTPPeer talks to the remote sync service over HTTP.
type HTTPPeer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPPeer creates a Peer for the given base URL.
func NewHTTPPeer(baseURL, apiKey string, httpClient *http.Client) *HTTPPeer {
	return &HTTPPeer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Check probes the peer's health endpoint.
func (p *HTTPPeer) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v1/sync/health", nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("health check: unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Push transmits a batch of outbound operations and returns the peer's
// per-entry results.
func (p *HTTPPeer) Push(ctx context.Context, entries []PushEntry) ([]PushResult, error) {
	body := struct {
		Entries []PushEntry `json:"entries"`
	}{Entries: entries}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/sync/push", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("push: unexpected status %d", resp.StatusCode))
	}

	var result struct {
		Results []PushResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("decoding push response: %w", err))
	}
	return result.Results, nil
}

// Pull fetches remote-origin changes recorded after the given cursor.
func (p *HTTPPeer) Pull(ctx context.Context, cursor string) (*PullResponse, error) {
	url := p.baseURL + "/api/v1/sync/pull"
	if cursor != "" {
		url += "?cursor=" + cursor
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("pull: unexpected status %d", resp.StatusCode))
	}

	var result PullResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("decoding pull response: %w", err))
	}
	return &result, nil
}

// Fetch re-requests specific transactions by ID.
func (p *HTTPPeer) Fetch(ctx context.Context, ids []string) ([]Record, error) {
	body := struct {
		TransactionIDs []string `json:"transaction_ids"`
	}{TransactionIDs: ids}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling fetch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/sync/fetch", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode))
	}

	var result struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransportFailure, fmt.Errorf("decoding fetch response: %w", err))
	}
	return result.Records, nil
}
