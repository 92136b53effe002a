package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"census/internal/census"
	"census/internal/fileutil"
	"census/internal/logging"
	"census/internal/reconcile"
)

type reconcileRow struct {
	Tier       string           `json:"tier"`
	Records    int64            `json:"records"`
	Pairs      int64            `json:"pairs"`
	Updated    int64            `json:"updated"`
	Repaired   int64            `json:"repaired"`
	Unconsumed map[string]int64 `json:"unconsumed,omitempty"`
	Outputs    []string         `json:"outputs"`
	Promoted   bool             `json:"promoted"`
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var tierFlag string
	var promote bool
	var backup bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reconcile copy|repair <results_dir> <group> <piece>",
		Short: "Merge hash streams into records, or repair hash stream names",
		Long: "copy writes each tier's hash values into a rewritten record stream.\n" +
			"repair rewrites hash streams whose names differ from the records only in\n" +
			"the encoding of line breaks. Output goes to .new siblings; --promote\n" +
			"renames them over the originals once every selected tier succeeded.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			mode, err := reconcile.ParseMode(args[0])
			if err != nil {
				return err
			}
			kinds, err := ctx.hashKinds()
			if err != nil {
				return err
			}
			layout, err := ctx.layout(args[1], args[2], args[3])
			if err != nil {
				return err
			}
			tiers, err := parseTierFlag(tierFlag)
			if err != nil {
				return err
			}
			if backup && !promote {
				return fmt.Errorf("--backup requires --promote")
			}

			opts := reconcile.Options{
				Mode:      mode,
				Kinds:     kinds,
				StrictEnd: cfg.Reconcile.StrictEnd,
				TickEvery: cfg.Reconcile.TickEvery,
				MarkEvery: cfg.Reconcile.MarkEvery,
				Logger:    logger,
			}
			if len(tiers) == 1 {
				// Interleaved dots from concurrent tiers are unreadable.
				opts.Dots = logging.TerminalWriter(cmd.ErrOrStderr())
			}

			results, err := reconcile.Tiers(cmd.Context(), layout, tiers, opts)
			if err != nil {
				// Tiers that finished keep their staged output; none is promoted.
				if len(results) > 0 && !jsonOutput {
					fmt.Fprint(cmd.OutOrStdout(), renderReconcileRows(mode, reconcileRows(results, false), kinds))
				}
				return err
			}

			promoted := false
			if promote {
				staged := make(map[string]string)
				for _, res := range results {
					maps.Copy(staged, res.Staged)
				}
				if err := fileutil.Promote(staged, backup); err != nil {
					return err
				}
				promoted = true
			}

			rows := reconcileRows(results, promoted)
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReconcileRows(mode, rows, kinds))
			return nil
		},
	}

	cmd.Flags().StringVar(&tierFlag, "tier", "all", "Tier to reconcile: unavailable, public, private, or all")
	cmd.Flags().BoolVar(&promote, "promote", false, "Rename .new outputs over the originals after a successful pass")
	cmd.Flags().BoolVar(&backup, "backup", false, "Keep replaced originals as .bak when promoting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}

func parseTierFlag(value string) ([]census.Tier, error) {
	if strings.EqualFold(strings.TrimSpace(value), "all") {
		return census.Tiers, nil
	}
	tier, err := census.ParseTier(value)
	if err != nil {
		return nil, err
	}
	return []census.Tier{tier}, nil
}

func reconcileRows(results []reconcile.TierResult, promoted bool) []reconcileRow {
	rows := make([]reconcileRow, 0, len(results))
	for _, res := range results {
		row := reconcileRow{
			Tier:     res.Tier.String(),
			Records:  res.Stats.Records,
			Pairs:    res.Stats.Pairs,
			Updated:  res.Stats.Updated,
			Repaired: res.Stats.Repaired,
			Outputs:  slices.Sorted(maps.Values(res.Staged)),
			Promoted: promoted,
		}
		if promoted {
			row.Outputs = slices.Sorted(maps.Keys(res.Staged))
		}
		for kind, n := range res.Stats.Unconsumed {
			if n == 0 {
				continue
			}
			if row.Unconsumed == nil {
				row.Unconsumed = make(map[string]int64)
			}
			row.Unconsumed[string(kind)] = n
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b reconcileRow) int { return strings.Compare(a.Tier, b.Tier) })
	return rows
}

func renderReconcileRows(mode reconcile.Mode, rows []reconcileRow, kinds []census.HashKind) string {
	headers := []string{"Tier", "Records", "Pairs"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight}
	if mode == reconcile.ModeCopy {
		headers = append(headers, "Updated")
	} else {
		headers = append(headers, "Repaired")
	}
	aligns = append(aligns, alignRight)
	for _, kind := range kinds {
		headers = append(headers, "Leftover "+string(kind))
		aligns = append(aligns, alignRight)
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		changed := r.Updated
		if mode == reconcile.ModeRepair {
			changed = r.Repaired
		}
		row := []string{r.Tier, formatCount(r.Records), formatCount(r.Pairs), formatCount(changed)}
		for _, kind := range kinds {
			row = append(row, formatCount(r.Unconsumed[string(kind)]))
		}
		table = append(table, row)
	}

	var b strings.Builder
	b.WriteString(renderTable(headers, table, aligns))
	b.WriteString("\n")
	for _, r := range rows {
		verb := "staged"
		if r.Promoted {
			verb = "promoted"
		}
		for _, path := range r.Outputs {
			fmt.Fprintf(&b, "%s %s\n", verb, path)
		}
	}
	return b.String()
}
