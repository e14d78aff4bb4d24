package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sheetdoctor-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set SheetDoctor configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		if cfg.OutDir != "" {
			fmt.Printf("out_dir: %s\n", cfg.OutDir)
		}
		fmt.Printf("sample_cap: %d\n", cfg.SampleCap)
		fmt.Printf("near_duplicate_days: %d\n", cfg.NearDuplicateDays)
		fmt.Printf("fill_down_max_gap: %d\n", cfg.FillDownMaxGap)
		fmt.Printf("large_file_skip_extras: %d\n", cfg.LargeFileSkipExtras)
		fmt.Printf("sparse_threshold_schema: %d\n", cfg.SparseThresholdSchema)
		fmt.Printf("sparse_threshold_generic: %d\n", cfg.SparseThresholdGeneric)
		fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		fmt.Printf("max_cols: %d\n", cfg.MaxCols)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "out_dir":
			cfg.OutDir = val
		case "sample_cap":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("sample_cap must be a positive integer")
			}
			cfg.SampleCap = n
		case "near_duplicate_days":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("near_duplicate_days must be a non-negative integer")
			}
			cfg.NearDuplicateDays = n
		case "fill_down_max_gap":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("fill_down_max_gap must be a non-negative integer")
			}
			cfg.FillDownMaxGap = n
		case "large_file_skip_extras":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("large_file_skip_extras must be a non-negative integer")
			}
			cfg.LargeFileSkipExtras = n
		case "sparse_threshold_schema":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 100 {
				return fmt.Errorf("sparse_threshold_schema must be a percentage between 1 and 100")
			}
			cfg.SparseThresholdSchema = n
		case "sparse_threshold_generic":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 || n > 100 {
				return fmt.Errorf("sparse_threshold_generic must be a percentage between 1 and 100")
			}
			cfg.SparseThresholdGeneric = n
		case "max_rows":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("max_rows must be a positive integer")
			}
			cfg.MaxRows = n
		case "max_cols":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return fmt.Errorf("max_cols must be a positive integer")
			}
			cfg.MaxCols = n
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
