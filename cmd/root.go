package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sheetdoctor-cli/internal/config"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "sheetdoctor",
	Short: "SheetDoctor CLI: diagnose and heal messy tabular files",
	Long: `SheetDoctor inspects CSV/TSV, Excel, and JSON files for structural and
semantic problems, then repairs what it safely can: quarantining rows it
cannot fix and logging every change it makes.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sheetdoctor/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running with built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// rulesFromConfig maps config overrides onto the built-in rule tables.
func rulesFromConfig() *heal.Rules {
	rules := heal.DefaultRules()
	if cfg == nil {
		return rules
	}
	if cfg.NearDuplicateDays > 0 {
		rules.NearDuplicateDayWindow = cfg.NearDuplicateDays
	}
	if cfg.FillDownMaxGap > 0 {
		rules.FillDownMaxGap = cfg.FillDownMaxGap
	}
	if cfg.LargeFileSkipExtras > 0 {
		rules.LargeFileSkipExtras = cfg.LargeFileSkipExtras
	}
	if cfg.SparseThresholdSchema > 0 {
		rules.SparseThresholdSchema = float64(cfg.SparseThresholdSchema) / 100
	}
	if cfg.SparseThresholdGeneric > 0 {
		rules.SparseThresholdGeneric = float64(cfg.SparseThresholdGeneric) / 100
	}
	return rules
}

// loaderOptions builds loader options from config, with the sheet selection.
func loaderOptions(sheet string) loader.Options {
	opts := loader.Options{Sheet: sheet}
	if cfg != nil {
		opts.MaxRows = cfg.MaxRows
		opts.MaxCols = cfg.MaxCols
	}
	return opts
}

func sampleCap() int {
	if cfg != nil {
		return cfg.SampleCap
	}
	return 0
}

// parseRoleFlags turns repeated "N=role" flags into the 0-based override map.
func parseRoleFlags(flags []string) (map[int]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(flags))
	for _, raw := range flags {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --role %q (expected COLUMN=ROLE, e.g. 3=date)", raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid --role column %q (must be a 1-based column number)", parts[0])
		}
		out[n-1] = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return out, nil
}
