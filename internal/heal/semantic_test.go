package heal

import (
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

var semanticHeaders = []string{"Staff Name", "Txn Date", "Cost", "Curr", "Dept"}

var semanticRows = [][]string{
	{"John Smith", "2023-11-03", "1200.50", "USD", "Engineering"},
	{"Jane Doe", "2023-11-04", "500.00", "EUR", "Marketing"},
	{"Bob Lee", "2023-11-05", "300.00", "USD", "Sales"},
	{"Amy Chen", "2023-11-06", "220.00", "USD", "Engineering"},
	{"Raj Patel", "2023-11-07", "410.75", "EUR", "Marketing"},
	{"Mia Wong", "2023-11-08", "95.00", "USD", "Sales"},
}

func TestBuildPlanInfersRoles(t *testing.T) {
	rules := DefaultRules()
	plan := BuildPlan(semanticHeaders, semanticRows, ",", nil, rules)
	if !plan.Enabled {
		t.Fatalf("plan disabled, roles = %v", plan.RolesByIndex)
	}

	wantRoles := map[int]string{
		0: RoleName,
		1: RoleDate,
		2: RoleAmount,
		3: RoleCurrency,
		4: RoleDepartment,
	}
	for idx, role := range wantRoles {
		if plan.RolesByIndex[idx] != role {
			t.Errorf("column %d role = %q, want %q", idx, plan.RolesByIndex[idx], role)
		}
	}
	if plan.LabelIdx != 0 || plan.DateIdx != 1 || plan.AmountIdx != 2 || plan.CurrencyIdx != 3 {
		t.Errorf("plan indices = label=%d date=%d amount=%d currency=%d",
			plan.LabelIdx, plan.DateIdx, plan.AmountIdx, plan.CurrencyIdx)
	}

	fill := map[int]bool{}
	for _, idx := range plan.FillDownIndices {
		fill[idx] = true
	}
	if !fill[3] || !fill[4] {
		t.Errorf("fill-down indices = %v, want currency and department columns", plan.FillDownIndices)
	}
}

func TestBuildPlanIgnoreOverride(t *testing.T) {
	rules := DefaultRules()
	plan := BuildPlan(semanticHeaders, semanticRows, ",", map[int]string{0: "ignore"}, rules)
	if !plan.Enabled {
		t.Fatal("plan should stay enabled without the name column")
	}
	if _, mapped := plan.RolesByIndex[0]; mapped {
		t.Fatalf("ignored column still mapped: %v", plan.RolesByIndex)
	}
	if plan.LabelIdx == 0 {
		t.Fatal("label column should move off the ignored column")
	}
}

func TestBuildPlanOverridePinsRole(t *testing.T) {
	rules := DefaultRules()
	plan := BuildPlan(semanticHeaders, semanticRows, ",", map[int]string{2: RoleMeasurement}, rules)
	if plan.RolesByIndex[2] != RoleMeasurement {
		t.Fatalf("override lost: %v", plan.RolesByIndex)
	}
	if plan.ConfidenceByIndex[2] != 1.0 {
		t.Fatalf("override confidence = %v, want 1.0", plan.ConfidenceByIndex[2])
	}
	if plan.AmountIdx != -1 {
		t.Fatalf("amount index = %d, want -1 after override", plan.AmountIdx)
	}
}

func TestHealSemanticNormalizesDates(t *testing.T) {
	rows := [][]string{append([]string(nil), semanticHeaders...)}
	rows = append(rows, semanticRows...)
	rows = append(rows, []string{"Zoe Hall", "03/11/2023", "$88.25", "usd", "Sales"})

	tbl := &table.Table{Path: "ledger.csv", Format: "csv", Rows: rows, Meta: table.Meta{Delimiter: ','}}
	res, err := Heal(tbl, Options{})
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if res.Mode != ModeSemantic {
		t.Fatalf("mode = %s, want %s", res.Mode, ModeSemantic)
	}
	if len(res.Clean) != 7 {
		t.Fatalf("clean rows = %d, want 7", len(res.Clean))
	}
	zoe := res.Clean[6]
	if zoe.Row[1] != "2023-11-03" {
		t.Errorf("date = %q, want 2023-11-03", zoe.Row[1])
	}
	if zoe.Row[2] != "88.25" {
		t.Errorf("amount = %q, want 88.25", zoe.Row[2])
	}
	if zoe.Row[3] != "USD" {
		t.Errorf("currency = %q, want USD", zoe.Row[3])
	}
	if !zoe.WasModified {
		t.Error("normalized row should be marked modified")
	}
}
