package heal

import "regexp"

// Semantic roles a column can be mapped to before row-level repair.
const (
	RoleIdentifier  = "identifier"
	RoleName        = "name"
	RoleDate        = "date"
	RoleAmount      = "amount"
	RoleMeasurement = "measurement"
	RoleCurrency    = "currency"
	RoleStatus      = "status"
	RoleDepartment  = "department"
	RoleCategory    = "category"
	RoleNotes       = "notes"
)

// Healing modes.
const (
	ModeSchemaSpecific = "schema-specific"
	ModeSemantic       = "semantic"
	ModeGeneric        = "generic"
)

// Change log actions.
const (
	ActionFixed       = "Fixed"
	ActionQuarantined = "Quarantined"
	ActionRemoved     = "Removed"
	ActionFlagged     = "Flagged"
)

// Quarantine reasons form a closed set: every quarantined row carries one of
// these strings and nothing else.
const (
	ReasonEmpty              = "Completely empty row"
	ReasonWhitespace         = "Row is all whitespace"
	ReasonStructural         = "Structural row (TOTAL/subtotal/header repeat)"
	ReasonCalculatedSubtotal = "Calculated subtotal row"
	ReasonNotesRow           = "Appears to be a notes row"
	ReasonFormula            = "Excel formula found, not data"
	ReasonSparseSchema       = "Less than 50% columns filled"
	ReasonSparseGeneric      = "Less than 25% columns filled"
)

// row classification outcomes, mapped to quarantine reasons per mode
const (
	classNormal     = "NORMAL"
	classEmpty      = "EMPTY"
	classWhitespace = "WHITESPACE"
	classHeader     = "STRUCTURAL_HEADER"
	classTotal      = "STRUCTURAL_TOTAL"
	classNotes      = "NOTES_ROW"
	classFormula    = "FORMULA"
	classSparse     = "SPARSE"
)

var schemaQuarantineReasons = map[string]string{
	classWhitespace: ReasonWhitespace,
	classHeader:     ReasonStructural,
	classTotal:      ReasonStructural,
	classNotes:      ReasonNotesRow,
	classFormula:    ReasonFormula,
	classSparse:     ReasonSparseSchema,
}

var genericQuarantineReasons = map[string]string{
	classWhitespace: ReasonWhitespace,
	classHeader:     ReasonStructural,
	classTotal:      ReasonStructural,
	classNotes:      ReasonNotesRow,
	classFormula:    ReasonFormula,
	classSparse:     ReasonSparseGeneric,
}

var (
	formulaRE    = regexp.MustCompile(`^\s*=`)
	totalLabelRE = regexp.MustCompile(`(?i)\b(grand\s+total|subtotal|sub-total|total|sum)\b`)
	totalLeadRE  = regexp.MustCompile(`(?i)^(grand\s+total|subtotal|total)\b`)
	notesRowRE   = regexp.MustCompile(`(?i)\b(approved|manager|note|comment|memo|generated|report|expense|expenses)\b`)
	proseRE      = regexp.MustCompile(`[A-Za-z]{4,}`)
	isoDateRE    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Rules is the static, versioned rule configuration injected into the
// engine. Tests override individual fields; production callers start from
// DefaultRules and apply config overrides.
type Rules struct {
	Version string

	// Canonical schema that triggers schema-specific healing on exact
	// (case- and whitespace-insensitive) header match.
	CanonicalHeaders []string

	SparseThresholdSchema  float64
	SparseThresholdGeneric float64
	NearDuplicateDayWindow int
	LargeFileSkipExtras    int
	FillDownMaxGap         int

	StatusMap        map[string]string
	CurrencySymbols  map[string]string
	CurrencyMap      map[string]string
	MonthNames       map[string]int
	RoleHeaderHints  map[string][]string
	RoleThresholds   map[string]float64
	ReviewTokens     map[string]bool
	AmountNullTokens map[string]bool
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() *Rules {
	return &Rules{
		Version: "1.0.0",
		CanonicalHeaders: []string{
			"Employee Name", "Department", "Date", "Amount",
			"Currency", "Category", "Status", "Notes",
		},
		SparseThresholdSchema:  0.50,
		SparseThresholdGeneric: 0.25,
		NearDuplicateDayWindow: 2,
		LargeFileSkipExtras:    10000,
		FillDownMaxGap:         5,
		StatusMap: map[string]string{
			"approved":       "Approved",
			"approve":        "Approved",
			"rejected":       "Rejected",
			"reject":         "Rejected",
			"pending":        "Pending",
			"pending review": "Pending",
		},
		CurrencySymbols: map[string]string{
			"$": "USD", "€": "EUR", "£": "GBP", "₹": "INR", "¥": "JPY",
		},
		CurrencyMap: map[string]string{
			"usd": "USD", "us dollar": "USD", "u.s. dollar": "USD", "dollar": "USD", "$": "USD",
			"eur": "EUR", "euro": "EUR", "€": "EUR",
			"gbp": "GBP", "pound": "GBP", "sterling": "GBP", "£": "GBP",
			"inr": "INR", "rupee": "INR", "indian rupee": "INR", "₹": "INR",
			"cad": "CAD", "canadian dollar": "CAD",
			"aud": "AUD", "australian dollar": "AUD",
		},
		MonthNames: map[string]int{
			"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
			"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
			"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
			"sep": 9, "oct": 10, "nov": 11, "dec": 12,
		},
		RoleHeaderHints: map[string][]string{
			RoleIdentifier:  {"id", "code", "study id", "study_id", "pat_id", "patient id", "subject id", "record id"},
			RoleName:        {"name", "person", "contact"},
			RoleDate:        {"date", "dated", "txn date", "transaction", "invoice date", "posted", "dob", "dofb"},
			RoleAmount:      {"amount", "cost", "price", "value", "expense", "spend", "salary", "pay", "total"},
			RoleMeasurement: {"bp", "hr", "gfr", "glucose", "weight", "height", "score", "rate", "result", "reading", "pre", "post"},
			RoleCurrency:    {"currency", "curr", "fx", "ccy"},
			RoleStatus:      {"status", "state", "approval", "approved", "decision"},
			RoleDepartment:  {"department", "dept", "division", "team", "unit", "function", "ward", "location", "clinic"},
			RoleCategory:    {"category", "type", "class", "group", "bucket", "expense type", "race", "sex", "ethnicity", "hispanic", "diagnosis", "sediment"},
			RoleNotes:       {"notes", "note", "comment", "comments", "description", "details", "memo", "remarks"},
		},
		RoleThresholds: map[string]float64{
			RoleIdentifier:  0.60,
			RoleName:        0.60,
			RoleDate:        0.60,
			RoleAmount:      0.60,
			RoleMeasurement: 0.60,
			RoleCurrency:    0.60,
			RoleStatus:      0.72,
			RoleDepartment:  0.72,
			RoleCategory:    0.72,
			RoleNotes:       0.72,
		},
		ReviewTokens: map[string]bool{
			"nan": true, "null": true, "n/a": true, "na": true,
			"not applicable": true, "none": true, "inf": true,
		},
		AmountNullTokens: map[string]bool{
			"n/a": true, "tbd": true, "-": true, "na": true,
			"nil": true, "none": true, "": true,
		},
	}
}

// smart/curly quote replacements applied by universal cell cleanup
var smartQuotes = map[string]string{
	"“": `"`,
	"”": `"`,
	"‘": "'",
	"’": "'",
}

var rolePriority = []string{
	RoleIdentifier, RoleName, RoleDate, RoleAmount, RoleMeasurement,
	RoleCurrency, RoleStatus, RoleDepartment, RoleCategory, RoleNotes,
}

// IsCanonicalHeader reports whether the raw header row matches the canonical
// schema exactly, ignoring case and internal whitespace runs.
func (r *Rules) IsCanonicalHeader(header []string) bool {
	if len(header) != len(r.CanonicalHeaders) {
		return false
	}
	for i, cell := range header {
		if normalizeHeaderForMatch(cell) != normalizeHeaderForMatch(r.CanonicalHeaders[i]) {
			return false
		}
	}
	return true
}
