package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"census/internal/census"
	"census/internal/config"
	"census/internal/logging"
	"census/internal/streamio"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// hashKinds resolves the configured hash kinds.
func (c *commandContext) hashKinds() ([]census.HashKind, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return census.ParseHashKinds(cfg.Harvest.HashKinds)
}

// layout names the streams of a piece under dir, using the configured
// compression suffix.
func (c *commandContext) layout(dir, group, piece string) (census.Layout, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return census.Layout{}, err
	}
	comp, err := streamio.ParseCompression(cfg.Harvest.Compression)
	if err != nil {
		return census.Layout{}, err
	}
	if strings.TrimSpace(dir) == "" {
		dir = cfg.Paths.ResultsDir
	} else if dir, err = config.ExpandPath(dir); err != nil {
		return census.Layout{}, err
	}
	group, piece = strings.TrimSpace(group), strings.TrimSpace(piece)
	if group == "" || piece == "" {
		return census.Layout{}, fmt.Errorf("group and piece must not be empty")
	}
	return census.Layout{Dir: dir, Group: group, Piece: piece, Ext: comp.Ext()}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
