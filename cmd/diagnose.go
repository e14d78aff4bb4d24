package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/report"
)

var (
	diagnoseSheet string
	diagnoseJSON  bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Diagnose a tabular file without modifying it",
	Long: `Diagnose inspects a CSV/TSV, Excel, or JSON file and reports encoding
problems, misaligned rows, repeated headers, mixed date formats, and
per-column semantic findings. The file is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := loader.LoadWithOptions(args[0], loaderOptions(diagnoseSheet))
		if err != nil {
			return err
		}
		rep := diagnose.AnalyzeWithCap(tbl, sampleCap())

		if diagnoseJSON {
			out, err := json.MarshalIndent(map[string]any{
				"contract": report.BuildContract("sheetdoctor.diagnose"),
				"report":   rep,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(report.RenderDiagnoseText(rep))
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseSheet, "sheet", "", "worksheet name for workbook formats (default: first sheet)")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "emit the full JSON report")
	rootCmd.AddCommand(diagnoseCmd)
}
