package heal

import (
	"strings"
	"testing"
)

func canonicalSig(rules *Rules) []string {
	return headerSignature(rules.CanonicalHeaders)
}

func TestClassifyRawRowBuckets(t *testing.T) {
	rules := DefaultRules()
	sig := canonicalSig(rules)

	prose := "Note: all entries above were approved by the department manager last week"
	cases := []struct {
		name string
		row  []string
		want string
	}{
		{"empty", []string{"", "", "", "", "", "", "", ""}, classEmpty},
		{"whitespace", []string{"   ", "\t", "", "", "", "", "", ""}, classWhitespace},
		{"header repeat", []string{"employee name", "department", "date", "amount", "currency", "category", "status", "notes"}, classHeader},
		{"notes prose", []string{prose, "", "", "", "", "", "", ""}, classNotes},
		{"formula", []string{"", "", "", "=SUM(D2:D7)", "", "", "", ""}, classFormula},
		{"sparse", []string{"Metadata export", "", "", "", "", "", "", ""}, classSparse},
		{"total with amount passes", []string{"TOTAL", "", "", "1700.00", "", "", "", ""}, classNormal},
		{"normal", []string{"John Smith", "Engineering", "2023-11-03", "1200.00", "USD", "Travel", "Approved", ""}, classNormal},
	}
	for _, tc := range cases {
		if got := classifyRawRow(tc.row, sig, rules); got != tc.want {
			t.Errorf("%s: classifyRawRow = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyRawRowGeneric(t *testing.T) {
	rules := DefaultRules()
	headers := []string{"id", "region", "amount"}
	sig := headerSignature(headers)

	if got := classifyRawRowGeneric([]string{"TOTAL", "", "20"}, sig, 3, rules); got != classTotal {
		t.Fatalf("sparse TOTAL row = %s, want %s", got, classTotal)
	}
	if got := classifyRawRowGeneric([]string{"1", "west", "10"}, sig, 3, rules); got != classNormal {
		t.Fatalf("normal row = %s, want %s", got, classNormal)
	}
	if got := classifyRawRowGeneric([]string{"id", "region", "amount"}, sig, 3, rules); got != classHeader {
		t.Fatalf("header repeat = %s, want %s", got, classHeader)
	}
}

func TestFixAlignmentGhostColumn(t *testing.T) {
	row := []string{"", "John Smith", "Engineering", "2023-11-03", "1200", "USD", "Travel", "Approved", "notes"}
	fixed, chg := fixAlignment(row, 5)
	if len(fixed) != nSchemaCols {
		t.Fatalf("width = %d, want %d", len(fixed), nSchemaCols)
	}
	if fixed[0] != "John Smith" {
		t.Fatalf("first cell = %q, want John Smith", fixed[0])
	}
	if chg == nil || !strings.Contains(chg.Reason, "Shifted-right") {
		t.Fatalf("unexpected change: %+v", chg)
	}
}

func TestFixAlignmentPhantomComma(t *testing.T) {
	row := []string{"John Smith", "Engineering", "2023-11-03", "1200", "USD", "Travel", "Approved", "", "client dinner"}
	fixed, chg := fixAlignment(row, 6)
	if len(fixed) != nSchemaCols {
		t.Fatalf("width = %d, want %d", len(fixed), nSchemaCols)
	}
	if fixed[nSchemaCols-1] != "client dinner" {
		t.Fatalf("notes = %q, want client dinner", fixed[nSchemaCols-1])
	}
	if chg == nil || !strings.Contains(chg.Reason, "Phantom comma") {
		t.Fatalf("unexpected change: %+v", chg)
	}
}

func TestFixAlignmentOverflowMergesNotes(t *testing.T) {
	row := []string{"John Smith", "Engineering", "2023-11-03", "1200", "USD", "Travel", "Approved", "dinner", "client", "airport"}
	fixed, chg := fixAlignment(row, 7)
	if len(fixed) != nSchemaCols {
		t.Fatalf("width = %d, want %d", len(fixed), nSchemaCols)
	}
	if fixed[nSchemaCols-1] != "dinner, client, airport" {
		t.Fatalf("notes = %q", fixed[nSchemaCols-1])
	}
	if chg == nil || !strings.Contains(chg.Reason, "Unquoted commas") {
		t.Fatalf("unexpected change: %+v", chg)
	}
}

func TestFixAlignmentPadsShortRow(t *testing.T) {
	row := []string{"Bob Lee", "Sales", "2023-11-04", "300", "USD"}
	fixed, chg := fixAlignment(row, 8)
	if len(fixed) != nSchemaCols {
		t.Fatalf("width = %d, want %d", len(fixed), nSchemaCols)
	}
	for i := 5; i < nSchemaCols; i++ {
		if fixed[i] != "" {
			t.Fatalf("padding cell %d = %q, want empty", i, fixed[i])
		}
	}
	if chg == nil || !strings.Contains(chg.Reason, "padded") {
		t.Fatalf("unexpected change: %+v", chg)
	}
}

func TestFixAlignmentGeneric(t *testing.T) {
	fixed, chg, changed := fixAlignmentGeneric([]string{"1", "west", "10", "stray"}, 3, 3, ",")
	if !changed || chg == nil {
		t.Fatalf("expected structural change")
	}
	if fixed[2] != "10, stray" {
		t.Fatalf("merged cell = %q", fixed[2])
	}

	fixed, chg, changed = fixAlignmentGeneric([]string{"1"}, 4, 3, ",")
	if !changed || chg == nil || len(fixed) != 3 {
		t.Fatalf("expected padded row, got %v (%+v)", fixed, chg)
	}

	_, chg, changed = fixAlignmentGeneric([]string{"1", "west", "10"}, 5, 3, ",")
	if changed || chg != nil {
		t.Fatalf("aligned row should be untouched")
	}
}

func TestRowAmountTotalish(t *testing.T) {
	rules := DefaultRules()
	if !rowAmountTotalish("Total", "1700.00", 1700, rules) {
		t.Fatal("exact running total should match")
	}
	if !rowAmountTotalish("Grand Total", "1715.00", 1700, rules) {
		t.Fatal("within 2% tolerance should match")
	}
	if rowAmountTotalish("Total", "900.00", 1700, rules) {
		t.Fatal("far from running total should not match")
	}
	if rowAmountTotalish("John Smith", "1700.00", 1700, rules) {
		t.Fatal("non-total label should not match")
	}
}

func TestLooksLikeNotesRow(t *testing.T) {
	prose := "All expenses in this report were reviewed and approved by the regional manager"
	if !looksLikeNotesRow([]string{"", prose, "", ""}) {
		t.Fatal("long one-cell prose should be a notes row")
	}
	if looksLikeNotesRow([]string{"short", "", "", ""}) {
		t.Fatal("short cell should not be a notes row")
	}
	if looksLikeNotesRow([]string{prose, "second cell", "", ""}) {
		t.Fatal("two populated cells should not be a notes row")
	}
}
