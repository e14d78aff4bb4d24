package report

import (
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
)

func TestScoreLabelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, "Excellent - minor cleanup only"},
		{90, "Excellent - minor cleanup only"},
		{89, "Good - a few issues to address"},
		{70, "Good - a few issues to address"},
		{69, "Fair - significant cleaning needed"},
		{50, "Fair - significant cleaning needed"},
		{49, "Poor - major surgery required"},
		{30, "Poor - major surgery required"},
		{29, "Critical - severe data quality issues"},
		{0, "Critical - severe data quality issues"},
	}
	for _, tc := range cases {
		if got := ScoreLabel(tc.score); got != tc.want {
			t.Errorf("ScoreLabel(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestCalcHealthScoreCleanFile(t *testing.T) {
	diag := &diagnose.Report{
		Encoding: diagnose.EncodingInfo{Detected: "utf-8", IsUTF8: true, Confidence: 1.0},
	}
	score := CalcHealthScore(diag, nil)
	if score.Score != 100 {
		t.Fatalf("score = %d (%v), want 100", score.Score, score.Deductions)
	}
	if score.Label != "Excellent - minor cleanup only" {
		t.Fatalf("label = %q", score.Label)
	}
}

func TestCalcHealthScoreDeductions(t *testing.T) {
	diag := &diagnose.Report{
		Encoding: diagnose.EncodingInfo{Detected: "latin-1", IsUTF8: false},
		ColumnCount: diagnose.Alignment{
			Expected:       8,
			MisalignedRows: []diagnose.MisalignedRow{{Row: 4, Count: 5}},
		},
		EmptyRows: diagnose.EmptyRows{Count: 2, Rows: []int{3, 9}},
		DuplicateHeaders: diagnose.DuplicateHeaders{
			RepeatedHeaderRows: []int{6},
		},
		DateFormats: map[string]diagnose.DateFormatFinding{
			"Date": {FormatsFound: []string{"YYYY-MM-DD", "DD/MM/YYYY or MM/DD/YYYY"}},
		},
	}
	score := CalcHealthScore(diag, nil)

	if score.Deductions["encoding"] != 5 {
		t.Errorf("encoding deduction = %d, want 5", score.Deductions["encoding"])
	}
	// misaligned + empty rows + repeated header = 3 structural issues
	if score.Deductions["structural"] != 30 {
		t.Errorf("structural deduction = %d, want 30", score.Deductions["structural"])
	}
	if score.Deductions["date_chaos"] != 5 {
		t.Errorf("date deduction = %d, want 5", score.Deductions["date_chaos"])
	}
	if score.Deductions["duplicates"] != 5 {
		t.Errorf("duplicates deduction = %d, want 5", score.Deductions["duplicates"])
	}
	want := 100 - 5 - 30 - 5 - 5
	if score.Score != want {
		t.Errorf("score = %d, want %d", score.Score, want)
	}
}

func TestCalcRecoverabilityScore(t *testing.T) {
	healed := &heal.Result{
		Clean: []heal.CleanRow{
			{Row: []string{"a"}, RowNum: 2, WasModified: true, NeedsReview: true},
			{Row: []string{"b"}, RowNum: 3},
			{Row: []string{"c"}, RowNum: 4},
		},
		Quarantine: []heal.QuarantineRow{
			{Row: []string{"d"}, RowNum: 5, Reason: heal.ReasonWhitespace},
		},
	}
	rec := CalcRecoverabilityScore(healed, Score{Score: 80})
	if rec.Score != 60 {
		t.Fatalf("score = %d, want 60 (80 * 3/4)", rec.Score)
	}
	if rec.Metrics.SalvageRatio != 0.75 {
		t.Fatalf("salvage ratio = %v, want 0.75", rec.Metrics.SalvageRatio)
	}
	if rec.Metrics.NeedsReviewRows != 1 || rec.Metrics.ModifiedRows != 1 {
		t.Fatalf("metrics = %+v", rec.Metrics)
	}

	empty := CalcRecoverabilityScore(&heal.Result{}, Score{Score: 100})
	if empty.Metrics.SalvageRatio != 1.0 {
		t.Fatalf("empty salvage ratio = %v, want 1.0", empty.Metrics.SalvageRatio)
	}
}
