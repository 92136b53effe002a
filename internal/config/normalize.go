package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeHarvest()
	c.normalizeReconcile()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ResultsDir, err = expandPath(strings.TrimSpace(c.Paths.ResultsDir)); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("CENSUS_API_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if c.API.Concurrency <= 0 {
		c.API.Concurrency = defaultAPIConcurrency
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeout
	}
	c.API.UserAgent = strings.TrimSpace(c.API.UserAgent)
	if c.API.UserAgent == "" {
		c.API.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeHarvest() {
	kinds := make([]string, 0, len(c.Harvest.HashKinds))
	seen := make(map[string]struct{}, len(c.Harvest.HashKinds))
	for _, kind := range c.Harvest.HashKinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" {
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	c.Harvest.HashKinds = kinds

	c.Harvest.Compression = strings.ToLower(strings.TrimSpace(c.Harvest.Compression))
	if c.Harvest.Compression == "" {
		c.Harvest.Compression = defaultCompression
	}
}

func (c *Config) normalizeReconcile() {
	if c.Reconcile.TickEvery <= 0 {
		c.Reconcile.TickEvery = defaultTickEvery
	}
	if c.Reconcile.MarkEvery <= 0 {
		c.Reconcile.MarkEvery = defaultMarkEvery
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
