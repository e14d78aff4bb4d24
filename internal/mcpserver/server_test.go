package mcpserver

import (
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/config"
)

func TestParseRoleOverrides(t *testing.T) {
	out, err := ParseRoleOverrides(`{"3":"date","5":"IGNORE"}`)
	if err != nil {
		t.Fatalf("ParseRoleOverrides: %v", err)
	}
	if out[2] != "date" {
		t.Fatalf("overrides = %v, want 0-based date at 2", out)
	}
	if out[4] != "ignore" {
		t.Fatalf("overrides = %v, want lowercased ignore at 4", out)
	}
}

func TestParseRoleOverridesRejectsBadKeys(t *testing.T) {
	if _, err := ParseRoleOverrides(`{"0":"date"}`); err == nil {
		t.Fatal("column 0 should be rejected (keys are 1-based)")
	}
	if _, err := ParseRoleOverrides(`{"x":"date"}`); err == nil {
		t.Fatal("non-numeric key should be rejected")
	}
	if _, err := ParseRoleOverrides(`["date"]`); err == nil {
		t.Fatal("non-object JSON should be rejected")
	}
}

func TestRulesFromConfig(t *testing.T) {
	s := &Server{cfg: &config.Global{
		NearDuplicateDays:      4,
		FillDownMaxGap:         7,
		SparseThresholdSchema:  60,
		SparseThresholdGeneric: 30,
	}}
	rules := s.rules()
	if rules.NearDuplicateDayWindow != 4 {
		t.Errorf("near-duplicate window = %d, want 4", rules.NearDuplicateDayWindow)
	}
	if rules.FillDownMaxGap != 7 {
		t.Errorf("fill-down gap = %d, want 7", rules.FillDownMaxGap)
	}
	if rules.SparseThresholdSchema != 0.60 {
		t.Errorf("schema sparse threshold = %v, want 0.60", rules.SparseThresholdSchema)
	}
	if rules.SparseThresholdGeneric != 0.30 {
		t.Errorf("generic sparse threshold = %v, want 0.30", rules.SparseThresholdGeneric)
	}
	// zero-valued keys keep the built-in defaults
	if rules.LargeFileSkipExtras != 10000 {
		t.Errorf("large file skip = %d, want default 10000", rules.LargeFileSkipExtras)
	}
}
