package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
)

var (
	inspectSheet     string
	inspectHeaderRow int
	inspectRoles     []string
	inspectJSON      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Preview what a healing run would do, without writing anything",
	Long: `Inspect dry-runs header detection and semantic role inference on a file
and reports the candidate healing mode and the role each column would
get. Use --role overrides to see how they would change the plan before
committing to a heal run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roleOverrides, err := parseRoleFlags(inspectRoles)
		if err != nil {
			return err
		}
		tbl, err := loader.LoadWithOptions(args[0], loaderOptions(inspectSheet))
		if err != nil {
			return err
		}
		insp, err := heal.InspectPlan(tbl, heal.Options{
			HeaderRow:     inspectHeaderRow,
			RoleOverrides: roleOverrides,
			Rules:         rulesFromConfig(),
		})
		if err != nil {
			return err
		}

		if inspectJSON {
			out, err := json.MarshalIndent(insp, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal inspection: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Inspection: %s\n", args[0])
		fmt.Printf("  Rows: %d, delimiter: %q\n", insp.OriginalRowsTotal, insp.Delimiter)
		fmt.Printf("  Detected header row: %d", insp.DetectedHeaderRowNumber)
		if insp.HeaderBandMerged {
			fmt.Printf(" (merged from rows %v)", insp.DetectedHeaderBandRows)
		}
		fmt.Println()
		if insp.MetadataRowsRemoved > 0 {
			fmt.Printf("  Metadata rows before header: %d\n", insp.MetadataRowsRemoved)
		}
		fmt.Printf("  Healing mode candidate: %s\n", insp.HealingModeCandidate)

		if len(insp.Comparison) > 0 {
			fmt.Println("  Columns:")
			for _, row := range insp.Comparison {
				line := fmt.Sprintf("    %2d. %-24s detected=%s (%.2f)",
					row.ColumnIndex, row.Header, orDash(row.DetectedRole), row.DetectedConfidence)
				if row.OverrideRole != "" {
					line += fmt.Sprintf("  override=%s", row.OverrideRole)
				}
				line += fmt.Sprintf("  final=%s", orDash(row.FinalRole))
				fmt.Println(line)
			}
		} else {
			for _, col := range insp.Columns {
				fmt.Printf("    %2d. %-24s %s (%.2f)\n", col.ColumnIndex, col.Header, col.Role, col.Confidence)
			}
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSheet, "sheet", "", "worksheet name for workbook formats (default: first sheet)")
	inspectCmd.Flags().IntVar(&inspectHeaderRow, "header-row", 0, "1-based header row override (default: auto-detect)")
	inspectCmd.Flags().StringArrayVar(&inspectRoles, "role", nil, "column role override as COLUMN=ROLE (repeatable)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "emit the full JSON inspection")
	rootCmd.AddCommand(inspectCmd)
}
