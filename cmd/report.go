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
	reportSheet  string
	reportOutDir string
	reportWrite  bool
	reportJSON   bool
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Produce a full health report with scores and recommended actions",
	Long: `Report combines diagnosis, column profiling, and a healing dry-run into
one document: a raw health score, a recoverability score, the post-heal
projection, a per-column breakdown, and recommended next steps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := loader.LoadWithOptions(args[0], loaderOptions(reportSheet))
		if err != nil {
			return err
		}
		rep, _, err := report.BuildWithCap(tbl, heal.Options{Rules: rulesFromConfig()}, sampleCap())
		if err != nil {
			return err
		}

		if reportWrite {
			outDir := reportOutDir
			if outDir == "" && cfg != nil {
				outDir = cfg.OutDir
			}
			txtPath, jsonPath, err := report.WriteReportOutputs(args[0], outDir, rep)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s and %s\n", txtPath, jsonPath)
			return nil
		}
		if reportJSON {
			out, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(rep.TextReport)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportSheet, "sheet", "", "worksheet name for workbook formats (default: first sheet)")
	reportCmd.Flags().StringVar(&reportOutDir, "out-dir", "", "directory for report files when using --write")
	reportCmd.Flags().BoolVar(&reportWrite, "write", false, "write <stem>_report.txt and <stem>_report.json instead of printing")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the full JSON report")
	rootCmd.AddCommand(reportCmd)
}
