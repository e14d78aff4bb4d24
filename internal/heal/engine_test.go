package heal

import (
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

func schemaFixture() *table.Table {
	return &table.Table{
		Path:   "expenses.csv",
		Format: "csv",
		Rows: [][]string{
			{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"},
			{"John Smith", "Engineering", "2023-11-03", "$1,200.50", "USD", "Travel", "Approved", "client visit"},
			{"Jane Doe", "Marketing", "03/11/2023", "500.00", "EUR", "Meals", "approve", "team lunch"},
			{"", "", "", "", "", "", "", ""},
			{"   ", "\t", "", "", "", "", "", ""},
			{"employee name", "department", "date", "amount", "currency", "category", "status", "notes"},
			{"TOTAL", "", "", "1700.50", "", "", "", ""},
			{"John Smith", "Engineering", "2023-11-03", "$1,200.50", "USD", "Travel", "Approved", "client visit"},
			{"", "", "", "=SUM(D2:D7)", "", "", "", ""},
			{"Bob Lee", "Sales", "2023-11-04", "300.00", "USD"},
			{"John Smith", "Engineering", "2023-11-05", "1200.50", "USD", "Travel", "Approved", "client visit follow-up"},
			{"Q3 export", "", "", "", "", "", "", ""},
		},
		Meta: table.Meta{Delimiter: ','},
	}
}

func TestHealSchemaSpecific(t *testing.T) {
	res, err := Heal(schemaFixture(), Options{})
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if res.Mode != ModeSchemaSpecific {
		t.Fatalf("mode = %s, want %s", res.Mode, ModeSchemaSpecific)
	}

	if len(res.Clean) != 4 {
		t.Fatalf("clean rows = %d, want 4", len(res.Clean))
	}
	if len(res.Quarantine) != 5 {
		t.Fatalf("quarantine rows = %d, want 5", len(res.Quarantine))
	}
	if res.DiscardedEmpty != 1 {
		t.Fatalf("discarded empty = %d, want 1", res.DiscardedEmpty)
	}
	if res.DuplicatesRemoved != 1 {
		t.Fatalf("duplicates removed = %d, want 1", res.DuplicatesRemoved)
	}
	accounted := len(res.Clean) + len(res.Quarantine) + res.DiscardedEmpty + res.DuplicatesRemoved
	if accounted != res.TotalIn-1 {
		t.Fatalf("row accounting: %d accounted, %d data rows in", accounted, res.TotalIn-1)
	}

	wantReasons := map[string]int{
		ReasonWhitespace:         1,
		ReasonStructural:         1,
		ReasonCalculatedSubtotal: 1,
		ReasonFormula:            1,
		ReasonSparseSchema:       1,
	}
	for reason, n := range wantReasons {
		if res.QuarantineReasonCounts[reason] != n {
			t.Errorf("quarantine reason %q count = %d, want %d", reason, res.QuarantineReasonCounts[reason], n)
		}
	}

	john := res.Clean[0]
	if john.Row[colAmount] != "1200.50" {
		t.Errorf("john amount = %q, want 1200.50", john.Row[colAmount])
	}
	if !john.WasModified || !john.NeedsReview {
		t.Errorf("john flags = (modified=%v, review=%v), want both true", john.WasModified, john.NeedsReview)
	}

	jane := res.Clean[1]
	if jane.Row[colDate] != "2023-11-03" {
		t.Errorf("jane date = %q, want 2023-11-03", jane.Row[colDate])
	}
	if jane.Row[colStatus] != "Approved" {
		t.Errorf("jane status = %q, want Approved", jane.Row[colStatus])
	}
	if jane.NeedsReview {
		t.Error("jane should not need review")
	}

	bob := res.Clean[2]
	if !bob.WasModified || !bob.NeedsReview {
		t.Errorf("padded short row flags = (modified=%v, review=%v), want both true", bob.WasModified, bob.NeedsReview)
	}
	if bob.Row[colCategory] != "Meals" {
		t.Errorf("bob category = %q, want forward-filled Meals", bob.Row[colCategory])
	}

	nearDup := res.Clean[3]
	if !nearDup.NeedsReview {
		t.Error("near-duplicate row should need review")
	}
	if res.ActionCounts[ActionFlagged] != 2 {
		t.Errorf("flagged changes = %d, want 2 (one per near-duplicate)", res.ActionCounts[ActionFlagged])
	}

	var sawDupRemoval, sawFormulaLog bool
	for _, c := range res.Changes {
		if c.Action == ActionRemoved && c.Reason == "Exact duplicate of row 2" {
			sawDupRemoval = true
		}
		if c.Reason == "formula_residue: Excel formula found, not data" && c.Column == "Amount" {
			sawFormulaLog = true
		}
	}
	if !sawDupRemoval {
		t.Error("missing duplicate removal change for row 8")
	}
	if !sawFormulaLog {
		t.Error("missing formula residue change log entry")
	}
}

func TestHealGenericDuplicateHeadersAndTotals(t *testing.T) {
	tbl := &table.Table{
		Path:   "export.csv",
		Format: "csv",
		Rows: [][]string{
			{"id", "id", "amount"},
			{"1", "a", "10"},
			{"1", "a", "10"},
			{"TOTAL", "", "20"},
		},
		Meta: table.Meta{Delimiter: ','},
	}
	res, err := Heal(tbl, Options{})
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if res.Mode != ModeGeneric {
		t.Fatalf("mode = %s, want %s", res.Mode, ModeGeneric)
	}
	if res.Headers[1] != "id_2" {
		t.Fatalf("headers = %v, want duplicate renamed to id_2", res.Headers)
	}
	if len(res.Clean) != 1 || res.DuplicatesRemoved != 1 {
		t.Fatalf("clean=%d dups=%d, want 1 and 1", len(res.Clean), res.DuplicatesRemoved)
	}
	if len(res.Quarantine) != 1 || res.Quarantine[0].Reason != ReasonStructural {
		t.Fatalf("quarantine = %+v, want one structural row", res.Quarantine)
	}
}

func TestHealRejectsHeaderOnlyTable(t *testing.T) {
	tbl := &table.Table{Rows: [][]string{{"a", "b"}}}
	if _, err := Heal(tbl, Options{}); err == nil {
		t.Fatal("expected error for header-only table")
	}
}

func TestInspectPlanDetectsMetadataPrelude(t *testing.T) {
	tbl := &table.Table{
		Path:   "expenses.csv",
		Format: "csv",
		Rows: [][]string{
			{"Expense Report Q3", "", "", "", "", "", "", ""},
			{"Generated 2023-11-30", "", "", "", "", "", "", ""},
			{"Employee Name", "Department", "Date", "Amount", "Currency", "Category", "Status", "Notes"},
			{"John Smith", "Engineering", "2023-11-03", "1200.50", "USD", "Travel", "Approved", ""},
		},
		Meta: table.Meta{Delimiter: ','},
	}
	insp, err := InspectPlan(tbl, Options{})
	if err != nil {
		t.Fatalf("InspectPlan: %v", err)
	}
	if insp.DetectedHeaderRowNumber != 3 {
		t.Fatalf("header row = %d, want 3", insp.DetectedHeaderRowNumber)
	}
	if insp.MetadataRowsRemoved != 2 {
		t.Fatalf("metadata rows removed = %d, want 2", insp.MetadataRowsRemoved)
	}
	if insp.HealingModeCandidate != ModeSchemaSpecific {
		t.Fatalf("mode candidate = %s, want %s", insp.HealingModeCandidate, ModeSchemaSpecific)
	}
	if len(insp.Comparison) != nSchemaCols {
		t.Fatalf("comparison rows = %d, want %d", len(insp.Comparison), nSchemaCols)
	}
}
