package telephony

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

	"callcenter-platform/internal/calls"

	"github.com/cenkalti/backoff/v4"
)

// ProviderConfig controls the provider-backed dialing client.
type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	DefaultUserID string
	Timeout       time.Duration

	// MaxRetries applies to idempotent requests only (status, hangup).
	// Call placement is never retried: a retry could dial the target twice.
	MaxRetries int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ProviderBackend places and monitors calls through a telephony provider's
// REST API:
//
//	POST   /calls        {"to","user_id"} -> {"call_id","status"}
//	GET    /calls/{id}   -> {"call_id","status"}
//	DELETE /calls/{id}
type ProviderBackend struct {
	baseURL       string
	apiKey        string
	defaultUserID string
	maxRetries    int
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewProviderBackend(cfg ProviderConfig) (*ProviderBackend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("telephony: provider base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("telephony: provider api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderBackend{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		defaultUserID: strings.TrimSpace(cfg.DefaultUserID),
		maxRetries:    maxRetries,
		httpClient:    httpClient,
		logger:        logger.With("component", "telephony.provider"),
	}, nil
}

func (p *ProviderBackend) Kind() calls.BackendKind { return calls.BackendProviderBacked }

type providerCall struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p *ProviderBackend) Originate(ctx context.Context, req OriginateRequest) (string, error) {
	to := strings.TrimSpace(req.TargetNumber)
	if to == "" {
		return "", newOriginateError(ErrInvalidNumber)
	}
	userID := strings.TrimSpace(req.ProviderUserID)
	if userID == "" {
		userID = p.defaultUserID
	}
	if userID == "" {
		return "", newOriginateError(ErrNoProviderUser)
	}

	body, err := json.Marshal(struct {
		To     string `json:"to"`
		UserID string `json:"user_id"`
	}{To: to, UserID: userID})
	if err != nil {
		return "", newOriginateError(fmt.Errorf("telephony: marshal originate body: %w", err))
	}

	status, data, err := p.do(ctx, http.MethodPost, "/calls", body)
	if err != nil {
		return "", newOriginateError(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	if status >= 300 {
		return "", newOriginateError(classifyOriginateFailure(status, data))
	}

	var out providerCall
	if err := json.Unmarshal(data, &out); err != nil {
		return "", newOriginateError(fmt.Errorf("telephony: decode originate response: %w", err))
	}
	if out.CallID == "" {
		return "", newOriginateError(errors.New("telephony: provider returned no call id"))
	}
	p.logger.Info("call placed", "provider_call_ref", out.CallID, "status", out.Status)
	return out.CallID, nil
}

func (p *ProviderBackend) PollStatus(ctx context.Context, providerCallRef string) (calls.ProviderStatus, error) {
	if providerCallRef == "" {
		return calls.ProviderStatusUnknown, ErrCallNotFound
	}
	var out providerCall
	err := p.retry(ctx, func() error {
		status, data, err := p.do(ctx, http.MethodGet, "/calls/"+url.PathEscape(providerCallRef), nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return backoff.Permanent(ErrCallNotFound)
		}
		if status >= 500 {
			return fmt.Errorf("telephony: status request failed with %d", status)
		}
		if status >= 300 {
			return backoff.Permanent(fmt.Errorf("telephony: status request rejected with %d", status))
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("telephony: decode status response: %w", err))
		}
		return nil
	})
	if err != nil {
		return calls.ProviderStatusUnknown, err
	}
	return calls.NormalizeProviderStatus(out.Status), nil
}

func (p *ProviderBackend) Terminate(ctx context.Context, providerCallRef string) error {
	if providerCallRef == "" {
		return nil
	}
	return p.retry(ctx, func() error {
		status, _, err := p.do(ctx, http.MethodDelete, "/calls/"+url.PathEscape(providerCallRef), nil)
		if err != nil {
			return err
		}
		// Already gone at the provider counts as terminated.
		if status == http.StatusNotFound || status == http.StatusGone {
			return nil
		}
		if status >= 500 {
			return fmt.Errorf("telephony: hangup failed with %d", status)
		}
		if status >= 300 {
			return backoff.Permanent(fmt.Errorf("telephony: hangup rejected with %d", status))
		}
		return nil
	})
}

func (p *ProviderBackend) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 1500 * time.Millisecond
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.maxRetries)), ctx))
}

func (p *ProviderBackend) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func classifyOriginateFailure(status int, data []byte) error {
	var pe providerError
	_ = json.Unmarshal(data, &pe)
	switch {
	case pe.Code == "invalid_number" || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w (status %d)", ErrInvalidNumber, status)
	case pe.Code == "user_not_found" || status == http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrNoProviderUser, status)
	case status >= 500:
		return fmt.Errorf("%w (status %d)", ErrProviderUnavailable, status)
	default:
		if pe.Message != "" {
			return fmt.Errorf("telephony: originate rejected with %d: %s", status, pe.Message)
		}
		return fmt.Errorf("telephony: originate rejected with %d", status)
	}
}
