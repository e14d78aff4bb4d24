package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SampleCap != 2000 {
		t.Errorf("sample_cap = %d, want 2000", c.SampleCap)
	}
	if c.NearDuplicateDays != 2 {
		t.Errorf("near_duplicate_days = %d, want 2", c.NearDuplicateDays)
	}
	if c.SparseThresholdSchema != 50 || c.SparseThresholdGeneric != 25 {
		t.Errorf("sparse thresholds = %d/%d, want 50/25", c.SparseThresholdSchema, c.SparseThresholdGeneric)
	}
	if c.MaxRows != 500000 || c.MaxCols != 512 {
		t.Errorf("input guards = %d/%d, want 500000/512", c.MaxRows, c.MaxCols)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		OutDir:                 "/tmp/out",
		SampleCap:              500,
		NearDuplicateDays:      3,
		FillDownMaxGap:         2,
		LargeFileSkipExtras:    100,
		SparseThresholdSchema:  60,
		SparseThresholdGeneric: 30,
		MaxRows:                1000,
		MaxCols:                64,
	}
	if err := Save(in, cfgFile); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHEETDOCTOR_SAMPLE_CAP", "750")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SampleCap != 750 {
		t.Fatalf("sample_cap = %d, want env override 750", c.SampleCap)
	}
}
