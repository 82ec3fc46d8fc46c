package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrTransport indicates a network-level failure while talking to the API.
var ErrTransport = errors.New("transport failure")

// ErrPreflight indicates the health probe was unreachable or unhealthy.
var ErrPreflight = errors.New("preflight check failed")

// apiKeyHeader carries the service credential on every request.
const apiKeyHeader = "X-API-Key"

// StageResponse captures the outcome of one HTTP stage call. It is read-only
// once returned; the runner never retries.
type StageResponse struct {
	Status  int
	Body    []byte
	Elapsed time.Duration
}

// Success reports whether the stage returned a 2xx status.
func (r *StageResponse) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client issues the authenticated stage calls of the storyboard pipeline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a stage runner for the given API. The timeout is explicit:
// a stage blocks the whole pipeline, so there is no ambient default here.
func New(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for storyboard service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("StoryboardClient"),
	}, nil
}

// Health performs the preflight liveness probe. Unlike the stages, any
// failure here is fatal to the run.
func (c *Client) Health(ctx context.Context) (*StageResponse, error) {
	healthURL := c.baseURL + "/health"
	log := c.logger.With(zap.String("url", healthURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: internal error creating request: %v", ErrPreflight, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Health probe failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPreflight, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read health response: %v", ErrPreflight, readErr)
	}

	sr := &StageResponse{Status: resp.StatusCode, Body: body, Elapsed: elapsed}
	if !sr.Success() {
		log.Error("Health probe returned non-success status", zap.Int("status", sr.Status))
		return nil, fmt.Errorf("%w: service returned status %d", ErrPreflight, sr.Status)
	}
	log.Debug("Health probe OK", zap.Duration("elapsed", elapsed))
	return sr, nil
}

// RunStage sends one authenticated POST with a JSON payload and times it.
// With strict=false a non-2xx response is not an error: the raw body is
// surfaced so downstream extraction can decide whether anything usable came
// back. strict=true makes any non-2xx status fatal.
func (c *Client) RunStage(ctx context.Context, name, path string, payload any, strict bool) (*StageResponse, error) {
	stageURL := c.baseURL + path
	log := c.logger.With(zap.String("stage", name), zap.String("url", stageURL))

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("internal error marshaling %s payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, stageURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("internal error creating %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	log.Debug("Sending stage request", zap.Int("payload_bytes", len(bodyBytes)))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Stage request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: stage %s: %v", ErrTransport, name, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if readErr != nil {
		return nil, fmt.Errorf("%w: stage %s: failed to read response body: %v", ErrTransport, name, readErr)
	}

	sr := &StageResponse{Status: resp.StatusCode, Body: respBody, Elapsed: elapsed}
	if !sr.Success() {
		log.Warn("Stage returned non-success status",
			zap.Int("status", sr.Status),
			zap.Duration("elapsed", elapsed),
		)
		if strict {
			return sr, fmt.Errorf("stage %s returned status %d: %s", name, sr.Status, respBody)
		}
		return sr, nil
	}

	log.Info("Stage completed", zap.Int("status", sr.Status), zap.Duration("elapsed", elapsed))
	return sr, nil
}

// FetchDocument downloads a referenced artifact. Relative references are
// resolved against the API base URL; the credential header is attached in
// either case.
func (c *Client) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	docURL := rawURL
	if len(docURL) > 0 && docURL[0] == '/' {
		docURL = c.baseURL + docURL
	}
	log := c.logger.With(zap.String("url", docURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("internal error creating download request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Artifact download failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read artifact body: %v", ErrTransport, readErr)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn("Artifact download returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("artifact download returned status %d: %s", resp.StatusCode, body)
	}

	log.Debug("Artifact downloaded", zap.Int("size_bytes", len(body)))
	return body, nil
}
