package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	maxRetries      = 3
	baseRetryDelay  = 100 * time.Millisecond
	maxRetryDelay   = 5 * time.Second
	retryableStatus = 429 // Too Many Requests

	maxErrorBody = 1 << 20
)

// Client performs raw HTTP calls against the Port API. It knows nothing
// about token rotation: callers hand it the bearer value to use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new Port API client for the given origin
// (for example https://api.port.io).
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "https://api.port.io"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logging.Component("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TokenResponse represents the Port API token response.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
}

// RequestAccessToken exchanges client credentials for an access token.
// A non-200 response yields *AuthExchangeError.
func (c *Client) RequestAccessToken(ctx context.Context, clientID, clientSecret string) (*TokenResponse, error) {
	payload := map[string]string{
		"clientId":     clientID,
		"clientSecret": clientSecret,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/access_token", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues("access_token").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("access_token", "error").Inc()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("access_token", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &AuthExchangeError{StatusCode: resp.StatusCode, Body: body}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response did not contain an access token")
	}

	c.log.Info().Int("expires_in", tokenResp.ExpiresIn).Msg("Generated new access token")
	return &tokenResp, nil
}

// Probe issues a lightweight authenticated GET and returns the status code.
func (c *Client) Probe(ctx context.Context, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/blueprints", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe request: %w", err)
	}
	setAuth(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("probe", "error").Inc()
		return 0, fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	metrics.UpstreamRequests.WithLabelValues("probe", strconv.Itoa(resp.StatusCode)).Inc()

	return resp.StatusCode, nil
}

func setAuth(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

// do sends an authenticated request, retrying 429s and transport errors with
// exponential backoff. Any other status >= 400 is returned as
// *UpstreamRequestError with the body preserved.
func (c *Client) do(ctx context.Context, operation, method, path, token string, data interface{}) (*http.Response, error) {
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var (
		resp    *http.Response
		lastErr error
	)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setAuth(req, token)

		start := time.Now()
		resp, err = c.httpClient.Do(req)
		metrics.UpstreamDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues(operation, "error").Inc()
			lastErr = err
			if ctx.Err() != nil {
				return nil, fmt.Errorf("failed to execute request: %w", err)
			}
			c.log.Debug().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("Request failed, retrying")
			continue
		}
		metrics.UpstreamRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == retryableStatus && attempt < maxRetries {
			resp.Body.Close()
			c.log.Debug().Int("attempt", attempt+1).Str("path", path).Msg("Rate limited, retrying")
			continue
		}

		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			c.log.Warn().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("Port API error")
			return nil, &UpstreamRequestError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Body:       respBody,
			}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("failed to execute request after %d attempts: %w", maxRetries+1, lastErr)
}
