package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/report"
)

var (
	healOutDir    string
	healSheet     string
	healHeaderRow int
	healRoles     []string
	healJSON      bool
)

var healCmd = &cobra.Command{
	Use:   "heal <file>",
	Short: "Heal a tabular file into clean/quarantine/changelog outputs",
	Long: `Heal repairs what it safely can and quarantines what it cannot. It writes
three CSV partitions next to the input (or into --out-dir): the cleaned
data with was_modified/needs_review flags, the quarantined rows with
their reasons, and a change log of every modification, plus a JSON
summary tying the row counts together.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roleOverrides, err := parseRoleFlags(healRoles)
		if err != nil {
			return err
		}
		tbl, err := loader.LoadWithOptions(args[0], loaderOptions(healSheet))
		if err != nil {
			return err
		}
		opts := heal.Options{
			HeaderRow:     healHeaderRow,
			RoleOverrides: roleOverrides,
			Rules:         rulesFromConfig(),
		}
		result, err := heal.Heal(tbl, opts)
		if err != nil {
			return err
		}

		outDir := healOutDir
		if outDir == "" && cfg != nil {
			outDir = cfg.OutDir
		}
		summary, err := report.WriteHealOutputs(args[0], outDir, result, opts, healSheet)
		if err != nil {
			return err
		}

		if healJSON {
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal summary: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Healed %s in %s mode\n", args[0], result.Mode)
		fmt.Printf("  Clean rows:        %d\n", summary.Rows.CleanRows)
		fmt.Printf("  Quarantined rows:  %d\n", summary.Rows.QuarantineRows)
		fmt.Printf("  Needs review:      %d\n", summary.Rows.NeedsReviewRows)
		fmt.Printf("  Duplicates removed: %d\n", summary.Rows.DuplicatesRemoved)
		fmt.Printf("  Empty rows dropped: %d\n", summary.Rows.DiscardedEmptyRows)
		fmt.Printf("  Changes logged:    %d\n", summary.Changes.Logged)
		fmt.Printf("Outputs:\n")
		fmt.Printf("  %s\n", summary.OutputFiles.Cleaned)
		fmt.Printf("  %s\n", summary.OutputFiles.Quarantine)
		fmt.Printf("  %s\n", summary.OutputFiles.ChangeLog)
		fmt.Printf("  %s\n", summary.OutputFiles.Summary)
		return nil
	},
}

func init() {
	healCmd.Flags().StringVar(&healOutDir, "out-dir", "", "directory for output files (default: input's directory)")
	healCmd.Flags().StringVar(&healSheet, "sheet", "", "worksheet name for workbook formats (default: first sheet)")
	healCmd.Flags().IntVar(&healHeaderRow, "header-row", 0, "1-based header row override (default: auto-detect)")
	healCmd.Flags().StringArrayVar(&healRoles, "role", nil, "column role override as COLUMN=ROLE (repeatable, e.g. --role 3=date --role 5=ignore)")
	healCmd.Flags().BoolVar(&healJSON, "json", false, "emit the JSON heal summary instead of the text recap")
	rootCmd.AddCommand(healCmd)
}
