package heal

import (
	"strings"
	"testing"
)

func TestNormalizeDateVariants(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		in          string
		want        string
		wantChanged bool
	}{
		{"2023-11-03", "2023-11-03", false},
		{"", "", false},
		{"2023-11-03T10:15:00", "2023-11-03", true},
		{"03/11/2023", "2023-11-03", true},
		{"12/25/2023", "2023-12-25", true},
		{"2023/11/03", "2023-11-03", true},
		{"03-11-2023", "2023-11-03", true},
		{"11-03-23", "2023-11-03", true},
		{"November 3 2023", "2023-11-03", true},
		{"1699000000", "2023-11-03", true},
		{"45233", "2023-11-03", true},
		{"not a date", "not a date", false},
	}
	for _, tc := range cases {
		got, changed, _ := NormalizeDate(tc.in, rules)
		if got != tc.want || changed != tc.wantChanged {
			t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tc.in, got, changed, tc.want, tc.wantChanged)
		}
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	rules := DefaultRules()
	for _, in := range []string{"03/11/2023", "11-03-23", "November 3 2023", "45233"} {
		once, _, _ := NormalizeDate(in, rules)
		twice, changed, _ := NormalizeDate(once, rules)
		if twice != once || changed {
			t.Errorf("NormalizeDate not idempotent for %q: %q -> %q (changed=%v)", in, once, twice, changed)
		}
	}
}

func TestNormalizeAmount(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		in          string
		want        string
		wantChanged bool
	}{
		{"1200.50", "1200.50", false},
		{"$1,200.50", "1200.50", true},
		{"1.200,00", "1200.00", true},
		{"1 234,56", "1234.56", true},
		{"(500)", "-500.00", true},
		{"€45", "45.00", true},
		{"N/A", "", true},
		{"TBD", "", true},
		{"-", "", true},
		{"twelve", "twelve", false},
	}
	for _, tc := range cases {
		got, changed, _ := NormalizeAmount(tc.in, rules)
		if got != tc.want || changed != tc.wantChanged {
			t.Errorf("NormalizeAmount(%q) = (%q, %v), want (%q, %v)", tc.in, got, changed, tc.want, tc.wantChanged)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		in   string
		want string
	}{
		{"USD", "USD"},
		{"usd", "USD"},
		{"Euro", "EUR"},
		{"€", "EUR"},
		{"INR ₹", "INR"},
		{"pound", "GBP"},
		{"", ""},
	}
	for _, tc := range cases {
		got, _, _ := NormalizeCurrency(tc.in, rules)
		if got != tc.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"John Smith", "John Smith"},
		{"  smith,   john ", "John Smith"},
		{"JANE DOE", "Jane Doe"},
		{"o'brien, mary", "Mary O'Brien"},
	}
	for _, tc := range cases {
		got, _, _ := NormalizeName(tc.in)
		if got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		in   string
		want string
	}{
		{"approve", "Approved"},
		{"REJECTED", "Rejected"},
		{"pending review", "Pending"},
		{"done", "Done"},
		{"Approved", "Approved"},
	}
	for _, tc := range cases {
		got, _, _ := NormalizeStatus(tc.in, rules)
		if got != tc.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractCurrencyFromText(t *testing.T) {
	rules := DefaultRules()
	amount, currency := ExtractCurrencyFromText("$1,200 USD", rules)
	if currency != "USD" {
		t.Fatalf("currency = %q, want USD", currency)
	}
	if amount != "1,200" {
		t.Fatalf("amount = %q, want 1,200", amount)
	}

	amount, currency = ExtractCurrencyFromText("plain text", rules)
	if amount != "" || currency != "" {
		t.Fatalf("expected nothing extracted, got (%q, %q)", amount, currency)
	}
}

func TestSplitAmountCurrency(t *testing.T) {
	rules := DefaultRules()
	row := []string{"John Smith", "Engineering", "2023-11-03", "$1,200 USD", "", "Travel", "Approved", ""}
	out, changes := splitAmountCurrency(row, 2, rules.CanonicalHeaders, colAmount, colCurrency, rules)
	if out[colCurrency] != "USD" {
		t.Fatalf("currency = %q, want USD", out[colCurrency])
	}
	if out[colAmount] != "1,200" {
		t.Fatalf("amount = %q, want 1,200", out[colAmount])
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
}

func TestSplitAmountCurrencyHonorsInjectedRules(t *testing.T) {
	rules := DefaultRules()
	rules.CurrencySymbols["¤"] = "XTS"
	row := []string{"John Smith", "Engineering", "2023-11-03", "¤150", "", "Travel", "Approved", ""}
	out, changes := splitAmountCurrency(row, 2, rules.CanonicalHeaders, colAmount, colCurrency, rules)
	if out[colCurrency] != "XTS" {
		t.Fatalf("currency = %q, want custom symbol mapping XTS", out[colCurrency])
	}
	if out[colAmount] != "150" {
		t.Fatalf("amount = %q, want 150", out[colAmount])
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
}

func TestCleanCellText(t *testing.T) {
	got, reasons := cleanCellText("\uFEFFhello\nworld")
	if got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
	if len(reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %v", reasons)
	}

	got, reasons = cleanCellText("“quoted”")
	if got != `"quoted"` {
		t.Fatalf("got %q", got)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "quotes") {
		t.Fatalf("unexpected reasons: %v", reasons)
	}
}

func TestNormalizeHeadersRenamesDuplicates(t *testing.T) {
	headers, changes := normalizeHeaders([]string{"id", "id", "", "Amount"})
	want := []string{"id", "id_2", "column_3", "Amount"}
	for i, h := range want {
		if headers[i] != h {
			t.Fatalf("headers = %v, want %v", headers, want)
		}
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 header changes, got %d", len(changes))
	}
}
