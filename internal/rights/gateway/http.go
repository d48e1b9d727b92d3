package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"consentd/pkg/platform/circuit"
	"consentd/pkg/platform/sentinel"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSubsystemConfig configures a remote subsystem.
type HTTPSubsystemConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Breaker    *circuit.Breaker
}

// HTTPSubsystem talks to a subsystem that exposes
//
//	GET    {base}/subjects/{id}/export
//	DELETE {base}/subjects/{id}
//
// Calls are guarded by a circuit breaker so a dead subsystem fails requests
// fast instead of holding the subject lock for the full timeout.
type HTTPSubsystem struct {
	name    string
	baseURL string
	apiKey  string
	client  HTTPDoer
	breaker *circuit.Breaker
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func NewHTTPSubsystem(cfg HTTPSubsystemConfig) *HTTPSubsystem {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuit.New(cfg.Name)
	}
	return &HTTPSubsystem{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		breaker: breaker,
	}
}

func (h *HTTPSubsystem) Name() string {
	return h.name
}

func (h *HTTPSubsystem) Export(ctx context.Context, subjectID string) (any, error) {
	status, body, err := h.call(ctx, http.MethodGet, "/subjects/"+url.PathEscape(subjectID)+"/export")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusNoContent {
		return nil, nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%s: decode export: %w", h.name, err)
	}
	return data, nil
}

func (h *HTTPSubsystem) Delete(ctx context.Context, subjectID string) (int, error) {
	status, body, err := h.call(ctx, http.MethodDelete, "/subjects/"+url.PathEscape(subjectID))
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound || status == http.StatusNoContent || len(body) == 0 {
		return 0, nil
	}
	var resp deleteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%s: decode delete: %w", h.name, err)
	}
	return resp.Deleted, nil
}

// call performs the request and classifies the outcome. 404 is a valid
// answer (no data) and does not count against the breaker.
func (h *HTTPSubsystem) call(ctx context.Context, method, path string) (int, []byte, error) {
	if err := h.breaker.Allow(); err != nil {
		return 0, nil, fmt.Errorf("%s: %w: %w", h.name, sentinel.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", h.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("X-API-Key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.breaker.Record(err)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return 0, nil, fmt.Errorf("%s: request timeout: %w", h.name, context.DeadlineExceeded)
		}
		return 0, nil, fmt.Errorf("%s: %w: %w", h.name, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.breaker.Record(err)
		return 0, nil, fmt.Errorf("%s: read response: %w", h.name, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound:
		h.breaker.Record(nil)
		return resp.StatusCode, body, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		h.breaker.Record(nil)
		return 0, nil, fmt.Errorf("%s: authentication failed: %d", h.name, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		statusErr := fmt.Errorf("%s: %w: status %d", h.name, sentinel.ErrUnavailable, resp.StatusCode)
		h.breaker.Record(statusErr)
		return 0, nil, statusErr
	default:
		h.breaker.Record(nil)
		return 0, nil, fmt.Errorf("%s: unexpected status %d", h.name, resp.StatusCode)
	}
}
