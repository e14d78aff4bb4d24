package diagnose

import (
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

func messyFixture() *table.Table {
	return &table.Table{
		Path:   "messy.csv",
		Format: "csv",
		Rows: [][]string{
			{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"},
			{"John Smith", "Engineering", "2023-11-03", "1200.50", "USD", "Travel", "Approved", ""},
			{"Jane Doe", "Marketing", "03/11/2023", "500.00", "EUR", "Meals", "Approved", ""},
			{"", "", "", "", "", "", "", ""},
			{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"},
			{"Bob Lee", "Sales", "2023-11-04", "300.00", "USD"},
		},
		Meta: table.Meta{Encoding: "utf-8", EncodingConfidence: 0.99},
	}
}

func TestAnalyzeFindsStructuralIssues(t *testing.T) {
	rep := Analyze(messyFixture())

	if rep.TotalRows != 6 {
		t.Fatalf("total rows = %d, want 6", rep.TotalRows)
	}
	if !rep.Encoding.IsUTF8 {
		t.Error("utf-8 meta should be recognised as UTF-8")
	}
	if rep.ColumnCount.Expected != 8 {
		t.Errorf("expected columns = %d, want 8", rep.ColumnCount.Expected)
	}
	if len(rep.ColumnCount.MisalignedRows) != 1 || rep.ColumnCount.MisalignedRows[0].Row != 6 {
		t.Errorf("misaligned rows = %v, want just row 6", rep.ColumnCount.MisalignedRows)
	}
	if rep.EmptyRows.Count != 1 || rep.EmptyRows.Rows[0] != 4 {
		t.Errorf("empty rows = %v, want just row 4", rep.EmptyRows)
	}
	if len(rep.DuplicateHeaders.RepeatedHeaderRows) != 1 || rep.DuplicateHeaders.RepeatedHeaderRows[0] != 5 {
		t.Errorf("repeated header rows = %v, want just row 5", rep.DuplicateHeaders.RepeatedHeaderRows)
	}

	finding, ok := rep.DateFormats["Date"]
	if !ok {
		t.Fatalf("date formats = %v, want finding for Date", rep.DateFormats)
	}
	if len(finding.FormatsFound) != 2 {
		t.Errorf("formats found = %v, want 2", finding.FormatsFound)
	}

	if rep.HealingMode != "schema-specific" {
		t.Errorf("healing mode = %q, want schema-specific", rep.HealingMode)
	}
	if rep.Summary.Verdict == "HEALTHY" {
		t.Errorf("verdict = %q for a messy file", rep.Summary.Verdict)
	}
}

func TestAnalyzeHealthyTable(t *testing.T) {
	tbl := &table.Table{
		Path:   "clean.csv",
		Format: "csv",
		Rows: [][]string{
			{"id", "region", "amount"},
			{"a1", "west", "10.00"},
			{"b2", "east", "12.00"},
			{"c3", "west", "9.50"},
		},
		Meta: table.Meta{Encoding: "utf-8", EncodingConfidence: 1.0},
	}
	rep := Analyze(tbl)
	if rep.Summary.IssueCount != 0 || rep.Summary.Verdict != "HEALTHY" {
		t.Fatalf("summary = %+v, want healthy with zero issues", rep.Summary)
	}
	if len(rep.ColumnCount.MisalignedRows) != 0 {
		t.Fatalf("misaligned = %v, want none", rep.ColumnCount.MisalignedRows)
	}
}

func TestDuplicateAndWhitespaceHeaders(t *testing.T) {
	rows := [][]string{
		{"id", "id", " amount "},
		{"1", "2", "10"},
	}
	dup := checkDuplicateHeaders(rows)
	if len(dup.DuplicateColumns) != 1 || dup.DuplicateColumns[0] != "id" {
		t.Fatalf("duplicate columns = %v, want [id]", dup.DuplicateColumns)
	}
	ws := checkWhitespaceHeaders(rows)
	if len(ws) != 1 || ws[0] != " amount " {
		t.Fatalf("whitespace headers = %v, want [\" amount \"]", ws)
	}
}

func TestInferHealingMode(t *testing.T) {
	canonical := []string{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"}
	if got := InferHealingMode(canonical, nil); got != "schema-specific" {
		t.Fatalf("canonical headers = %q, want schema-specific", got)
	}
	if got := InferHealingMode([]string{"a", "b"}, nil); got != "generic" {
		t.Fatalf("unknown headers without analysis = %q, want generic", got)
	}
}

func TestIsAutoFixable(t *testing.T) {
	if !IsAutoFixable(IssueMisalignedRows, nil, "generic") {
		t.Error("misaligned rows should always be auto-fixable")
	}
	if IsAutoFixable(IssueOutliers, nil, "schema-specific") {
		t.Error("outliers are never auto-fixable")
	}
	if !IsAutoFixable(IssueDateMixedFormats, []string{"Date"}, "schema-specific") {
		t.Error("single mixed-date column should be auto-fixable in schema mode")
	}
	if IsAutoFixable(IssueDateMixedFormats, []string{"Date"}, "generic") {
		t.Error("mixed dates are not auto-fixable in generic mode")
	}
	if !IsAutoFixable(IssueNearDuplicates, []string{"Employee Name", "Amount"}, "schema-specific") {
		t.Error("near-duplicates on schema key columns should be auto-fixable")
	}
	if IsAutoFixable(IssueNearDuplicates, []string{"Notes"}, "schema-specific") {
		t.Error("near-duplicates on Notes should not be auto-fixable")
	}
}
