// Package plex reads catalog metadata directly from a Plex Media Server.
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mmcdole/reelcache/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Reelcache/1.0"
	clientID       = "reelcache-client"
)

// Client implements domain.MetadataSource and domain.HealthChecker for Plex
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

// NewClient creates a new Plex API client
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an authenticated HTTP request
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Client-Identifier", clientID)
	req.Header.Set("X-Plex-Product", "Reelcache")
	req.Header.Set("X-Plex-Version", "1.0")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("plex request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("plex request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	default:
		c.logger.Debug("plex request error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUnexpectedStatus, resp.StatusCode)
	}
}

// parseResponse parses a JSON response into a MediaContainer
func (c *Client) parseResponse(body []byte) (*MediaContainer, error) {
	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp.MediaContainer, nil
}

// Ping fetches /identity to confirm the server is up
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.doRequest(ctx, "/identity", nil)
	if err != nil {
		return err
	}
	container, err := c.parseResponse(body)
	if err != nil {
		return err
	}
	c.logger.Debug("plex server", "machine_id", container.MachineIdentifier, "version", container.Version)
	return nil
}

// ListCollections returns all library sections
func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	body, err := c.doRequest(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}

	container, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}

	return MapCollections(container.Directory), nil
}

// ListItemsInCollection returns the first pageSize items of a section
func (c *Client) ListItemsInCollection(ctx context.Context, collectionID string, pageSize int) ([]domain.ItemRef, error) {
	query := url.Values{}
	query.Set("X-Plex-Container-Start", "0")
	if pageSize > 0 {
		query.Set("X-Plex-Container-Size", strconv.Itoa(pageSize))
	}

	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(collectionID))
	body, err := c.doRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}

	container, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}

	if container.TotalSize > len(container.Metadata) {
		c.logger.Warn("library listing truncated",
			"section_id", collectionID, "listed", len(container.Metadata), "total", container.TotalSize)
	}

	return MapItemRefs(container.Metadata), nil
}

// FetchItemDetail returns detailed metadata for a specific item
func (c *Client) FetchItemDetail(ctx context.Context, itemID string) (*domain.ItemDetail, error) {
	path := fmt.Sprintf("/library/metadata/%s", url.PathEscape(itemID))
	body, err := c.doRequest(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	container, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}

	if len(container.Metadata) == 0 {
		return nil, domain.ErrItemNotFound
	}

	return MapDetail(container.Metadata[0]), nil
}
