package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

func sampleResult() *heal.Result {
	return &heal.Result{
		Mode:    heal.ModeGeneric,
		Headers: []string{"id", "amount"},
		Clean: []heal.CleanRow{
			{Row: []string{"1", "10.00"}, RowNum: 2, WasModified: true, NeedsReview: false},
			{Row: []string{"2", "12.00"}, RowNum: 3},
		},
		Quarantine: []heal.QuarantineRow{
			{Row: []string{"", ""}, RowNum: 4, Reason: heal.ReasonWhitespace},
		},
		Changes: []heal.Change{
			{RowNumber: 2, Column: "amount", OriginalValue: "$10", NewValue: "10.00", Action: heal.ActionFixed, Reason: "normalised"},
		},
		TotalIn:                4,
		ActionCounts:           map[string]int{heal.ActionFixed: 1},
		QuarantineReasonCounts: map[string]int{heal.ReasonWhitespace: 1},
		Assumptions:            []string{"test fixture"},
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteHealOutputs(t *testing.T) {
	outDir := t.TempDir()
	result := sampleResult()
	opts := heal.Options{RoleOverrides: map[int]string{1: "amount"}}

	summary, err := WriteHealOutputs("/data/input.csv", outDir, result, opts, "")
	if err != nil {
		t.Fatalf("WriteHealOutputs: %v", err)
	}

	cleaned := readCSVFile(t, filepath.Join(outDir, "input_cleaned.csv"))
	if len(cleaned) != 3 {
		t.Fatalf("cleaned rows = %d, want header + 2", len(cleaned))
	}
	wantHeader := []string{"id", "amount", "was_modified", "needs_review"}
	for i, h := range wantHeader {
		if cleaned[0][i] != h {
			t.Fatalf("cleaned header = %v, want %v", cleaned[0], wantHeader)
		}
	}
	if cleaned[1][2] != "TRUE" || cleaned[1][3] != "FALSE" {
		t.Fatalf("flag cells = %v", cleaned[1])
	}

	quarantine := readCSVFile(t, filepath.Join(outDir, "input_quarantine.csv"))
	if quarantine[0][2] != "quarantine_reason" {
		t.Fatalf("quarantine header = %v", quarantine[0])
	}
	if quarantine[1][2] != heal.ReasonWhitespace {
		t.Fatalf("quarantine reason = %q", quarantine[1][2])
	}

	changelog := readCSVFile(t, filepath.Join(outDir, "input_changelog.csv"))
	wantLogHeader := []string{"original_row_number", "column_affected", "original_value", "new_value", "action_taken", "reason"}
	for i, h := range wantLogHeader {
		if changelog[0][i] != h {
			t.Fatalf("changelog header = %v, want %v", changelog[0], wantLogHeader)
		}
	}
	if changelog[1][0] != "2" || changelog[1][4] != heal.ActionFixed {
		t.Fatalf("changelog row = %v", changelog[1])
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "input_heal_summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded HealSummary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if decoded.Contract.Name != "sheetdoctor.heal_summary" || decoded.Contract.Version != "1.0.0" {
		t.Fatalf("contract = %+v", decoded.Contract)
	}
	if decoded.Rows.CleanRows != 2 || decoded.Rows.QuarantineRows != 1 || decoded.Rows.ModifiedRows != 1 {
		t.Fatalf("row accounting = %+v", decoded.Rows)
	}
	if decoded.Plan.RoleOverrides["2"] != "amount" {
		t.Fatalf("role overrides = %v, want 1-based keys", decoded.Plan.RoleOverrides)
	}
	if summary.RunSummary.RunID == "" || summary.RunSummary.Status != "ok" {
		t.Fatalf("run summary = %+v", summary.RunSummary)
	}
}

func TestBuildReportEndToEnd(t *testing.T) {
	tbl := &table.Table{
		Path:   "/data/expenses.csv",
		Format: "csv",
		Rows: [][]string{
			{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"},
			{"John Smith", "Engineering", "2023-11-03", "1200.50", "USD", "Travel", "Approved", ""},
			{"Jane Doe", "Marketing", "03/11/2023", "500.00", "EUR", "Meals", "approve", ""},
			{"", "", "", "", "", "", "", ""},
			{"Bob Lee", "Sales", "2023-11-04", "300.00", "USD", "Meals", "Approved", ""},
		},
		Meta: table.Meta{Encoding: "utf-8", EncodingConfidence: 1.0, Delimiter: ','},
	}
	rep, healed, err := Build(tbl, heal.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rep.Contract.Name != "sheetdoctor.report" {
		t.Fatalf("contract = %+v", rep.Contract)
	}
	if healed.Mode != heal.ModeSchemaSpecific {
		t.Fatalf("mode = %s", healed.Mode)
	}
	if rep.PostHealScore.Score < rep.RawHealthScore.Score {
		t.Fatalf("post-heal score %d should not be below raw score %d",
			rep.PostHealScore.Score, rep.RawHealthScore.Score)
	}
	if rep.Recoverability.Score < 0 || rep.Recoverability.Score > 100 {
		t.Fatalf("recoverability out of range: %d", rep.Recoverability.Score)
	}
	if len(rep.ColumnBreakdown) != 8 {
		t.Fatalf("column breakdown = %d entries, want 8", len(rep.ColumnBreakdown))
	}
	if rep.TextReport == "" {
		t.Fatal("text report should not be empty")
	}
	if _, ok := rep.Issues["critical"]; !ok {
		t.Fatal("issues map should carry all severity buckets")
	}

	txtPath, jsonPath, err := WriteReportOutputs("/data/expenses.csv", t.TempDir(), rep)
	if err != nil {
		t.Fatalf("WriteReportOutputs: %v", err)
	}
	for _, p := range []string{txtPath, jsonPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing output %s: %v", p, err)
		}
	}
}
