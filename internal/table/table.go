package table

// Meta carries loader-level findings that downstream stages pass through
// into their own reports.
type Meta struct {
	Encoding           string
	EncodingConfidence float64
	DegradedMode       bool
	Delimiter          rune
	SheetName          string
	SheetNames         []string
	Warnings           []string
}

// Table is the raw tabular input produced by a loader. Rows are kept exactly
// as parsed: the first row is the header candidate and rows may be ragged.
// Alignment repair and header normalization happen in the heal engine, and
// the diagnoser reports on the raw shape.
type Table struct {
	Path   string
	Format string
	Rows   [][]string
	Meta   Meta
}

// Header returns the header candidate row, or nil for an empty table.
func (t *Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// DataRows returns every row after the header candidate.
func (t *Table) DataRows() [][]string {
	if len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Width returns the widest row in the table.
func (t *Table) Width() int {
	w := 0
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}
