package profile

import (
	"strings"
	"testing"
)

func TestDetectAtomicType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2023-11-03", TypeDate},
		{"03/11/2023", TypeDate},
		{"November 3 2023", TypeDate},
		{"jane@example.com", TypeEmail},
		{"https://example.com/x", TypeURL},
		{"+1 (415) 555-0134", TypePhone},
		{"42.5%", TypePercentage},
		{"USD", TypeCurrencyCode},
		{"Germany", TypeCountry},
		{"yes", TypeBoolean},
		{"$1,200.50", TypeCurrencyAmount},
		{"1200.50", TypePlainNumber},
		{"INV-2023-001", TypeIDCode},
		{"John Smith", TypeName},
		{"assorted words about nothing in particular", TypeFreeText},
		{"N/A", TypeUnknown},
		{"", TypeUnknown},
	}
	for _, tc := range cases {
		if got := detectAtomicType(tc.in); got != tc.want {
			t.Errorf("detectAtomicType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsEffectiveNull(t *testing.T) {
	for _, v := range []string{"", "  ", "N/A", "null", "NaN", "-", "TBD", "none"} {
		if !IsEffectiveNull(v) {
			t.Errorf("IsEffectiveNull(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"0", "x", "0.00"} {
		if IsEffectiveNull(v) {
			t.Errorf("IsEffectiveNull(%q) = true, want false", v)
		}
	}
}

func TestAnalyzeColumnMixedDateFormats(t *testing.T) {
	col := AnalyzeColumn("Date", 2, []string{"2023-11-03", "03/11/2023", "November 3 2023"})
	if col.DetectedType != TypeDate {
		t.Fatalf("detected type = %q, want %q", col.DetectedType, TypeDate)
	}
	if len(col.DateFormats) != 3 {
		t.Fatalf("date formats = %v, want 3 distinct", col.DateFormats)
	}
	if !hasIssue(col.SuspectedIssues, "Mixed date formats detected") {
		t.Fatalf("issues = %v, want mixed date formats", col.SuspectedIssues)
	}
}

func TestAnalyzeColumnNullsAndRange(t *testing.T) {
	col := AnalyzeColumn("Amount", 3, []string{"100", "N/A", "", "300"})
	if col.NullCount != 2 || col.NullPercentage != 50.0 {
		t.Fatalf("nulls = %d (%.2f%%), want 2 (50%%)", col.NullCount, col.NullPercentage)
	}
	if col.MinValue != "100" || col.MaxValue != "300" {
		t.Fatalf("range = [%s, %s], want [100, 300]", col.MinValue, col.MaxValue)
	}
}

func TestAnalyzeColumnTextIssues(t *testing.T) {
	col := AnalyzeColumn("Department", 1, []string{" Engineering", "ENGINEERING ", "Marketing"})
	if !hasIssue(col.SuspectedIssues, "Inconsistent capitalisation") {
		t.Errorf("issues = %v, want inconsistent capitalisation", col.SuspectedIssues)
	}
	if !hasIssue(col.SuspectedIssues, "Possible duplicates with slight differences") {
		t.Errorf("issues = %v, want near-duplicate values", col.SuspectedIssues)
	}
	var whitespace bool
	for _, issue := range col.SuspectedIssues {
		if strings.Contains(issue, "whitespace") {
			whitespace = true
		}
	}
	if !whitespace {
		t.Errorf("issues = %v, want whitespace issue", col.SuspectedIssues)
	}
}

func TestAnalyzeColumnOutliers(t *testing.T) {
	values := make([]string, 0, 21)
	for i := 0; i < 20; i++ {
		values = append(values, "10")
	}
	values = append(values, "1000")
	col := AnalyzeColumn("Amount", 0, values)
	if !hasIssue(col.SuspectedIssues, "Outliers detected (values outside 3 standard deviations)") {
		t.Fatalf("issues = %v, want outlier issue", col.SuspectedIssues)
	}
}

func TestAnalyzeWithCapSamples(t *testing.T) {
	rows := [][]string{
		{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"},
	}
	analysis := AnalyzeWithCap([]string{"n", "tag"}, rows, 3)
	if !analysis.Sampled {
		t.Fatal("analysis should be marked sampled")
	}
	if analysis.TotalRows != 5 {
		t.Fatalf("total rows = %d, want 5", analysis.TotalRows)
	}
	if analysis.Columns[0].NullCount != 0 {
		t.Fatalf("unexpected nulls: %+v", analysis.Columns[0])
	}
}

func hasIssue(issues []string, want string) bool {
	for _, issue := range issues {
		if issue == want {
			return true
		}
	}
	return false
}
