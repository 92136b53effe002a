package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"census/internal/census"
	"census/internal/harvest"
	"census/internal/logging"
	"census/internal/metaapi"
	"census/internal/preflight"
	"census/internal/sink"
)

type harvestSummary struct {
	RunID             string           `json:"run_id"`
	Group             string           `json:"group"`
	Piece             string           `json:"piece"`
	Requested         int64            `json:"requested"`
	Written           int64            `json:"written"`
	Skipped           int64            `json:"skipped"`
	Failed            int64            `json:"failed"`
	MissingHashes     int64            `json:"missing_hashes"`
	ConflictingHashes int64            `json:"conflicting_hashes"`
	ElapsedSeconds    float64          `json:"elapsed_seconds"`
	Tiers             []harvestTierRow `json:"tiers"`
}

type harvestTierRow struct {
	Tier      string           `json:"tier"`
	Records   int64            `json:"records"`
	Files     int64            `json:"files"`
	Bytes     int64            `json:"bytes"`
	HashLines map[string]int64 `json:"hash_lines"`
}

func newHarvestCommand(ctx *commandContext) *cobra.Command {
	var idsPath string
	var skipPreflight bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "harvest <group> <piece>",
		Short: "Fetch item metadata and write tiered record and hash streams",
		Long: "Reads item ids, one per line, from --ids or stdin, fetches each from the\n" +
			"metadata API, and writes census_data_<tier>_<group>_<piece> streams to the\n" +
			"results directory. Existing streams for the piece are truncated.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			kinds, err := ctx.hashKinds()
			if err != nil {
				return err
			}
			layout, err := ctx.layout("", args[0], args[1])
			if err != nil {
				return err
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					details := make([]string, 0, len(failed))
					for _, r := range failed {
						details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
					}
					return fmt.Errorf("preflight failed (use --skip-preflight to override): %s", strings.Join(details, "; "))
				}
			}

			var ids io.Reader = cmd.InOrStdin()
			if path := strings.TrimSpace(idsPath); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open id list: %w", err)
				}
				defer f.Close()
				ids = f
			}

			client, err := metaapi.New(cfg.API.BaseURL, cfg.API.UserAgent,
				metaapi.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second))
			if err != nil {
				return err
			}

			out, err := sink.Open(layout, kinds, logger)
			if err != nil {
				return err
			}
			defer out.Close()
			stats, runErr := harvest.Run(cmd.Context(), ids, client, out, harvest.Options{
				Concurrency: cfg.API.Concurrency,
				Kinds:       kinds,
				Logger:      logger,
				Dots:        logging.TerminalWriter(cmd.ErrOrStderr()),
			})
			closeErr := out.Close()
			if err := errors.Join(runErr, closeErr); err != nil {
				return err
			}

			summary := buildHarvestSummary(layout, kinds, stats, out.Stats())
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHarvestSummary(summary, kinds))
			return nil
		},
	}

	cmd.Flags().StringVar(&idsPath, "ids", "", "File with one item id per line (default stdin)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not check directories and the metadata API first")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}

func buildHarvestSummary(layout census.Layout, kinds []census.HashKind, stats harvest.Stats, written sink.Stats) harvestSummary {
	summary := harvestSummary{
		RunID:             stats.RunID,
		Group:             layout.Group,
		Piece:             layout.Piece,
		Requested:         stats.Requested,
		Written:           stats.Written,
		Skipped:           stats.Skipped,
		Failed:            stats.Failed,
		MissingHashes:     stats.MissingHashes,
		ConflictingHashes: stats.ConflictingHashes,
		ElapsedSeconds:    stats.Elapsed.Seconds(),
	}
	for _, tier := range census.Tiers {
		st := written[tier]
		row := harvestTierRow{
			Tier:      tier.String(),
			Records:   st.Records,
			Files:     st.Files,
			Bytes:     st.Bytes,
			HashLines: make(map[string]int64, len(kinds)),
		}
		for _, kind := range kinds {
			row.HashLines[string(kind)] = st.HashLines[kind]
		}
		summary.Tiers = append(summary.Tiers, row)
	}
	return summary
}

func renderHarvestSummary(summary harvestSummary, kinds []census.HashKind) string {
	headers := []string{"Tier", "Records", "Files", "Size"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight}
	for _, kind := range kinds {
		headers = append(headers, string(kind)+" lines")
		aligns = append(aligns, alignRight)
	}
	rows := make([][]string, 0, len(summary.Tiers))
	for _, t := range summary.Tiers {
		row := []string{t.Tier, formatCount(t.Records), formatCount(t.Files), formatBytes(t.Bytes)}
		for _, kind := range kinds {
			row = append(row, formatCount(t.HashLines[string(kind)]))
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s requested, %s written, %s skipped, %s failed in %s\n",
		summary.RunID,
		formatCount(summary.Requested),
		formatCount(summary.Written),
		formatCount(summary.Skipped),
		formatCount(summary.Failed),
		time.Duration(summary.ElapsedSeconds*float64(time.Second)).Round(time.Millisecond))
	if summary.MissingHashes > 0 {
		fmt.Fprintf(&b, "%s hash values missing (%s conflicting)\n",
			formatCount(summary.MissingHashes), formatCount(summary.ConflictingHashes))
	}
	b.WriteString(renderTable(headers, rows, aligns))
	b.WriteString("\n")
	return b.String()
}
