package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callcenter-platform/internal/analysis"
)

// Config controls the enrichment service client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the scoring, engagement, insight and pivot-alert endpoints
// of the enrichment service. It satisfies every analysis service interface.
// Requests are not retried; the pipeline records the failure instead.
//
//	POST /v1/scores                          {"result_id","operator_id"} -> {"score","summary"}
//	POST /v1/engagement                      {"target_id","event_type"}
//	POST /v1/rejection-insights              {"project_id","target_id","result_id","category","detail","recorded_by"}
//	POST /v1/projects/{id}/pivot-alerts/check
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ analysis.Scorer            = (*Client)(nil)
	_ analysis.EngagementUpdater = (*Client)(nil)
	_ analysis.InsightRecorder   = (*Client)(nil)
	_ analysis.PivotAlerter      = (*Client)(nil)
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("enrichment: %s returned %d: %s", e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("enrichment: %s returned %d", e.Path, e.Status)
}

func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("enrichment: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With("component", "enrichment"),
	}, nil
}

func (c *Client) ScoreCall(ctx context.Context, resultID, operatorID string) (analysis.QualityScore, error) {
	var out analysis.QualityScore
	err := c.post(ctx, "/v1/scores", map[string]string{
		"result_id":   resultID,
		"operator_id": operatorID,
	}, &out)
	return out, err
}

func (c *Client) UpdateEngagement(ctx context.Context, targetID string, event analysis.EngagementEvent) error {
	return c.post(ctx, "/v1/engagement", map[string]string{
		"target_id":  targetID,
		"event_type": string(event),
	}, nil)
}

func (c *Client) RecordRejectionInsight(ctx context.Context, in analysis.Insight) error {
	return c.post(ctx, "/v1/rejection-insights", in, nil)
}

func (c *Client) CheckPivotAlerts(ctx context.Context, projectID string) error {
	if projectID == "" {
		return errors.New("enrichment: project id required")
	}
	return c.post(ctx, "/v1/projects/"+url.PathEscape(projectID)+"/pivot-alerts/check", struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("enrichment: marshal %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enrichment: %s: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("enrichment: read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("enrichment: decode %s response: %w", path, err)
	}
	return nil
}
