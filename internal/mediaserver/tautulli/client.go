// Package tautulli reads catalog metadata through the Tautulli v2 API.
package tautulli

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
	apiPath        = "/api/v2"
)

// Client implements domain.MetadataSource and domain.HealthChecker for Tautulli.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter // nil means unlimited
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
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

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Tautulli client. baseURL may omit the scheme.
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
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

// call runs one API command and returns its data payload.
func (c *Client) call(ctx context.Context, cmd string, params url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("cmd", cmd)

	c.logger.Debug("tautulli request", "cmd", cmd, "params", params.Encode())
	query.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, apiPath, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("tautulli request failed", "cmd", cmd, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrUnexpectedStatus, cmd, resp.StatusCode)
	}

	return c.parseResponse(cmd, body)
}

// parseResponse unwraps the {"response": {...}} envelope.
func (c *Client) parseResponse(cmd string, body []byte) (json.RawMessage, error) {
	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("JSON parse error", "cmd", cmd, "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse %s response: %w", cmd, err)
	}
	if resp.Response.Result != "success" {
		msg := ""
		if resp.Response.Message != nil {
			msg = *resp.Response.Message
		}
		if strings.Contains(strings.ToLower(msg), "api key") {
			return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, msg)
		}
		return nil, fmt.Errorf("%w: %s: result %q %s", domain.ErrUnexpectedStatus, cmd, resp.Response.Result, msg)
	}
	return resp.Response.Data, nil
}

// Ping verifies the server is reachable and the API key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	data, err := c.call(ctx, "get_server_info", nil)
	if err != nil {
		return err
	}
	var info ServerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("failed to parse server info: %w", err)
	}
	c.logger.Debug("tautulli server", "name", info.Name, "version", info.Version)
	return nil
}

// ListCollections returns every library section.
func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	data, err := c.call(ctx, "get_libraries", nil)
	if err != nil {
		return nil, err
	}
	var libs []Library
	if err := json.Unmarshal(data, &libs); err != nil {
		return nil, fmt.Errorf("failed to parse libraries: %w", err)
	}
	return MapCollections(libs), nil
}

// ListItemsInCollection returns the first pageSize items of a section.
func (c *Client) ListItemsInCollection(ctx context.Context, collectionID string, pageSize int) ([]domain.ItemRef, error) {
	params := url.Values{}
	params.Set("section_id", collectionID)
	params.Set("length", strconv.Itoa(pageSize))
	params.Set("include_metadata", "0")

	data, err := c.call(ctx, "get_library_media_info", params)
	if err != nil {
		return nil, err
	}
	var page MediaInfoPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse media info: %w", err)
	}
	if page.RecordsFiltered > len(page.Data) {
		c.logger.Warn("library listing truncated",
			"section_id", collectionID, "listed", len(page.Data), "total", page.RecordsFiltered)
	}
	return MapItemRefs(page.Data), nil
}

// FetchItemDetail returns the metadata of one item.
func (c *Client) FetchItemDetail(ctx context.Context, itemID string) (*domain.ItemDetail, error) {
	params := url.Values{}
	params.Set("rating_key", itemID)

	data, err := c.call(ctx, "get_metadata", params)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", itemID, err)
	}
	if m.RatingKey == "" && m.Title == "" && m.MediaType == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return MapDetail(m), nil
}
