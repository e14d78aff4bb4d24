package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	OutDir              string `mapstructure:"out_dir" yaml:"out_dir"`
	SampleCap           int    `mapstructure:"sample_cap" yaml:"sample_cap"`
	NearDuplicateDays   int    `mapstructure:"near_duplicate_days" yaml:"near_duplicate_days"`
	FillDownMaxGap      int    `mapstructure:"fill_down_max_gap" yaml:"fill_down_max_gap"`
	LargeFileSkipExtras int    `mapstructure:"large_file_skip_extras" yaml:"large_file_skip_extras"`

	// Sparse-row quarantine thresholds, expressed in percent of the
	// expected column count.
	SparseThresholdSchema  int `mapstructure:"sparse_threshold_schema" yaml:"sparse_threshold_schema"`
	SparseThresholdGeneric int `mapstructure:"sparse_threshold_generic" yaml:"sparse_threshold_generic"`

	// Input guards
	MaxRows int `mapstructure:"max_rows" yaml:"max_rows"`
	MaxCols int `mapstructure:"max_cols" yaml:"max_cols"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sheetdoctor/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".sheetdoctor")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETDOCTOR")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("out_dir", "")
	v.SetDefault("sample_cap", 2000)
	v.SetDefault("near_duplicate_days", 2)
	v.SetDefault("fill_down_max_gap", 5)
	v.SetDefault("large_file_skip_extras", 10000)
	v.SetDefault("sparse_threshold_schema", 50)
	v.SetDefault("sparse_threshold_generic", 25)
	v.SetDefault("max_rows", 500000)
	v.SetDefault("max_cols", 512)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".sheetdoctor")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
