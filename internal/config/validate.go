package config

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	knownHashKinds    = map[string]struct{}{"md5": {}, "sha1": {}}
	knownCompressions = map[string]struct{}{"none": {}, "gzip": {}, "zstd": {}}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateHarvest(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ResultsDir == "" {
		return errors.New("paths.results_dir must be set")
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Concurrency > 1000 {
		return fmt.Errorf("api.concurrency must be at most 1000, got %d", c.API.Concurrency)
	}
	return nil
}

func (c *Config) validateHarvest() error {
	if len(c.Harvest.HashKinds) == 0 {
		return errors.New("harvest.hash_kinds must list at least one of md5, sha1")
	}
	for _, kind := range c.Harvest.HashKinds {
		if _, ok := knownHashKinds[kind]; !ok {
			return fmt.Errorf("harvest.hash_kinds: unsupported hash kind %q (use md5 or sha1)", kind)
		}
	}
	if _, ok := knownCompressions[c.Harvest.Compression]; !ok {
		return fmt.Errorf("harvest.compression: unsupported value %q (use none, gzip, or zstd)", c.Harvest.Compression)
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if c.Reconcile.MarkEvery < c.Reconcile.TickEvery {
		return fmt.Errorf("reconcile.mark_every (%d) must not be smaller than reconcile.tick_every (%d)",
			c.Reconcile.MarkEvery, c.Reconcile.TickEvery)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	return nil
}
