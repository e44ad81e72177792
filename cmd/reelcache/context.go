package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mmcdole/reelcache/internal/catalog"
	"github.com/mmcdole/reelcache/internal/config"
	"github.com/mmcdole/reelcache/internal/library"
	"github.com/mmcdole/reelcache/internal/log"
	"github.com/mmcdole/reelcache/internal/mediaserver"
	"github.com/mmcdole/reelcache/internal/persist"
)

// commandContext lazily builds the catalog shared by every subcommand.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	catalog   *catalog.Catalog
	// initFetched is set when Init had to populate the cache from the source.
	initFetched bool
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.LoadConfig(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl := strings.TrimSpace(*c.logLevelFlag); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c.config = cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	logger, closer, err := log.SetupLogger(c.config.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closer = log.NullLogger(), nil
	}
	slog.SetDefault(logger)
	c.logger, c.logCloser = logger, closer
	return logger
}

// ensureCatalog wires source, pipeline, persister and catalog, then runs Init.
func (c *commandContext) ensureCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	logger.Info("starting reelcache", "version", Version)

	source, err := mediaserver.NewSource(cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata source: %w", err)
	}

	fetcher := library.NewService(source, library.Options{
		MaxConcurrency: cfg.Cache.MaxConcurrency,
		BatchSize:      cfg.Cache.BatchSize,
		BatchDelay:     cfg.Cache.BatchDelay,
		PageSize:       cfg.Cache.PageSize,
	}, logger)

	persister, err := persist.Open(persist.Backend(cfg.Cache.Backend), cfg.Cache.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	cat := catalog.New(fetcher, persister, catalog.Options{TTL: cfg.Cache.TTL}, logger)
	c.initFetched = cat.Init(ctx)
	c.catalog = cat
	return cat, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.catalog != nil {
		errs = append(errs, c.catalog.Close())
		c.catalog = nil
	}
	if c.logCloser != nil {
		errs = append(errs, c.logCloser.Close())
		c.logCloser = nil
	}
	return errors.Join(errs...)
}
