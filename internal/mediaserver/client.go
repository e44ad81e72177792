// Package mediaserver builds the remote metadata source from configuration.
package mediaserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/reelcache/internal/config"
	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/mediaserver/plex"
	"github.com/mmcdole/reelcache/internal/mediaserver/tautulli"
)

// Source is what the refresh pipeline needs from a backend.
type Source interface {
	domain.MetadataSource
	domain.HealthChecker
}

// NewSource creates a Source based on the configured type. An empty type is
// resolved by probing the server on first use, so building a source never
// needs the server to be reachable.
func NewSource(cfg config.SourceConfig, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	if cfg.Type == "" {
		if cfg.APIKey == "" && cfg.Token == "" {
			return nil, fmt.Errorf("an API key or token is required")
		}
		return &detectingSource{cfg: cfg, logger: logger}, nil
	}
	return newTypedSource(cfg, logger)
}

func newTypedSource(cfg config.SourceConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Type {
	case config.SourceTypeTautulli:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tautulli API key is required")
		}
		return tautulli.NewClient(cfg.URL, cfg.APIKey, logger,
			tautulli.WithTimeout(cfg.Timeout),
			tautulli.WithRateLimit(cfg.RequestsPerSecond),
		), nil

	case config.SourceTypePlex:
		if cfg.Token == "" {
			return nil, fmt.Errorf("plex token is required")
		}
		return plex.NewClient(cfg.URL, cfg.Token, logger,
			plex.WithTimeout(cfg.Timeout),
			plex.WithRateLimit(cfg.RequestsPerSecond),
		), nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}

// detectingSource resolves the backend type the first time it is called.
// A failed detection is retried on the next call.
type detectingSource struct {
	cfg    config.SourceConfig
	logger *slog.Logger

	mu  sync.Mutex
	src Source
}

func (d *detectingSource) resolve(ctx context.Context) (Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.src != nil {
		return d.src, nil
	}

	detected, err := DetectSourceType(ctx, d.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrServerOffline, err)
	}
	d.logger.Info("detected metadata source", "type", detected)

	cfg := d.cfg
	cfg.Type = detected
	src, err := newTypedSource(cfg, d.logger)
	if err != nil {
		return nil, err
	}
	d.src = src
	return src, nil
}

func (d *detectingSource) Ping(ctx context.Context) error {
	src, err := d.resolve(ctx)
	if err != nil {
		return err
	}
	return src.Ping(ctx)
}

func (d *detectingSource) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	src, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return src.ListCollections(ctx)
}

func (d *detectingSource) ListItemsInCollection(ctx context.Context, collectionID string, pageSize int) ([]domain.ItemRef, error) {
	src, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return src.ListItemsInCollection(ctx, collectionID, pageSize)
}

func (d *detectingSource) FetchItemDetail(ctx context.Context, itemID string) (*domain.ItemDetail, error) {
	src, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return src.FetchItemDetail(ctx, itemID)
}
