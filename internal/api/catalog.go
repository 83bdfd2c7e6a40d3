package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/metrics"
)

// DefaultWaitTimeout bounds how long a call waits for token initialization.
const DefaultWaitTimeout = 10 * time.Second

// Catalog is the authenticated view of the Port catalog. Every call fetches
// its bearer from the TokenProvider right before dispatch.
type Catalog struct {
	client      *Client
	tokens      TokenProvider
	waitTimeout time.Duration
}

// NewCatalog pairs a transport client with a token provider.
func NewCatalog(client *Client, tokens TokenProvider, waitTimeout time.Duration) *Catalog {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Catalog{
		client:      client,
		tokens:      tokens,
		waitTimeout: waitTimeout,
	}
}

// GetEntities retrieves all entities of a blueprint.
func (c *Catalog) GetEntities(ctx context.Context, blueprint string) ([]Entity, error) {
	var result struct {
		Entities []Entity `json:"entities"`
	}
	path := fmt.Sprintf("/v1/blueprints/%s/entities", url.PathEscape(blueprint))
	if err := c.getJSON(ctx, "entities", path, &result); err != nil {
		return nil, err
	}
	if result.Entities == nil {
		return []Entity{}, nil
	}
	return result.Entities, nil
}

// GetBlueprints retrieves all blueprints.
func (c *Catalog) GetBlueprints(ctx context.Context) ([]Blueprint, error) {
	var result struct {
		Blueprints []Blueprint `json:"blueprints"`
	}
	if err := c.getJSON(ctx, "blueprints", "/v1/blueprints", &result); err != nil {
		return nil, err
	}
	if result.Blueprints == nil {
		return []Blueprint{}, nil
	}
	return result.Blueprints, nil
}

// getJSON performs an authenticated GET and decodes the body into out.
// A 401/403 triggers one rotation; the call is retried once, and only when
// rotation produced a different token.
func (c *Catalog) getJSON(ctx context.Context, operation, path string, out interface{}) error {
	token := c.tokens.AwaitToken(ctx, c.waitTimeout)
	if token == "" {
		return ErrNoTokenAvailable
	}

	resp, err := c.client.do(ctx, operation, http.MethodGet, path, token, nil)
	if isAuthFailure(err) {
		c.client.log.Info().Str("path", path).Msg("Authentication error, attempting token refresh")
		if refreshed := c.tokens.Refresh(ctx); refreshed != "" && refreshed != token {
			metrics.UpstreamAuthRetries.Inc()
			c.client.log.Info().Str("path", path).Msg("Retrying request with refreshed token")
			resp, err = c.client.do(ctx, operation, http.MethodGet, path, refreshed, nil)
		}
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", operation, err)
	}
	return nil
}
