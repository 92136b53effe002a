package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"census/internal/census"
	"census/internal/config"
	"census/internal/streamio"
)

// configSummary is what a census run would use from one config file.
type configSummary struct {
	Path        string   `json:"path"`
	Exists      bool     `json:"exists"`
	ResultsDir  string   `json:"results_dir"`
	LogDir      string   `json:"log_dir"`
	BaseURL     string   `json:"base_url"`
	Concurrency int      `json:"concurrency"`
	HashKinds   []string `json:"hash_kinds"`
	Compression string   `json:"compression"`
	StrictEnd   bool     `json:"strict_end"`
	TickEvery   int64    `json:"tick_every"`
	MarkEvery   int64    `json:"mark_every"`
	// Streams lists the per-tier file names of a piece, with placeholders
	// for group and piece.
	Streams []string `json:"streams"`
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample census configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			cfg, resolved, exists, err := config.Load(target)
			if err != nil {
				return fmt.Errorf("sample configuration does not load: %w", err)
			}
			summary, err := summarizeConfig(cfg, resolved, exists)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, renderConfigSummary(summary))
			fmt.Fprintln(out, "Point api.base_url at the metadata service and pick results_dir before the first harvest.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func initTarget(flag string) (string, error) {
	if target := strings.TrimSpace(flag); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration and show the settings a run would use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			summary, err := summarizeConfig(cfg, resolved, exists)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderConfigSummary(summary))
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the settings as JSON")
	return cmd
}

func summarizeConfig(cfg *config.Config, path string, exists bool) (configSummary, error) {
	kinds, err := census.ParseHashKinds(cfg.Harvest.HashKinds)
	if err != nil {
		return configSummary{}, err
	}
	comp, err := streamio.ParseCompression(cfg.Harvest.Compression)
	if err != nil {
		return configSummary{}, err
	}

	summary := configSummary{
		Path:        path,
		Exists:      exists,
		ResultsDir:  cfg.Paths.ResultsDir,
		LogDir:      cfg.Paths.LogDir,
		BaseURL:     cfg.API.BaseURL,
		Concurrency: cfg.API.Concurrency,
		Compression: comp.String(),
		StrictEnd:   cfg.Reconcile.StrictEnd,
		TickEvery:   cfg.Reconcile.TickEvery,
		MarkEvery:   cfg.Reconcile.MarkEvery,
	}
	layout := census.Layout{Group: "<group>", Piece: "<piece>", Ext: comp.Ext()}
	summary.Streams = append(summary.Streams, filepath.Base(layout.RecordPath(census.TierPublic)))
	for _, kind := range kinds {
		summary.HashKinds = append(summary.HashKinds, string(kind))
		summary.Streams = append(summary.Streams, filepath.Base(layout.HashPath(census.TierPublic, kind)))
	}
	return summary, nil
}

func renderConfigSummary(s configSummary) string {
	rows := [][]string{
		{"config", s.Path},
		{"results_dir", s.ResultsDir},
		{"log_dir", s.LogDir},
		{"api.base_url", s.BaseURL},
		{"api.concurrency", strconv.Itoa(s.Concurrency)},
		{"harvest.hash_kinds", strings.Join(s.HashKinds, ", ")},
		{"harvest.compression", s.Compression},
		{"reconcile.strict_end", strconv.FormatBool(s.StrictEnd)},
		{"reconcile.progress", fmt.Sprintf("dot every %s pairs, log every %s", formatCount(s.TickEvery), formatCount(s.MarkEvery))},
		{"streams per tier", strings.Join(s.Streams, "\n")},
	}
	return renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}
