package heal

import (
	"fmt"
	"math"
	"strings"
)

func headerSignature(headers []string) []string {
	sig := make([]string, len(headers))
	for i, h := range headers {
		sig[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return sig
}

func matchesSignature(stripped, sig []string) bool {
	if len(stripped) != len(sig) {
		return false
	}
	for i, cell := range stripped {
		if strings.ToLower(cell) != sig[i] {
			return false
		}
	}
	return true
}

func isFormulaResidue(value string) bool {
	return formulaRE.MatchString(strings.TrimSpace(stripNulls(value)))
}

// detectFormulaColumn returns the label of the first cell holding formula
// residue, if any.
func detectFormulaColumn(row []string, headers []string) (bool, string) {
	for i, cell := range row {
		if isFormulaResidue(cell) {
			return true, columnLabel(headers, i)
		}
	}
	return false, ""
}

// looksLikeNotesRow matches the single-cell prose rows people type between
// data blocks: exactly one populated cell, over 50 chars, at least 8 words.
func looksLikeNotesRow(row []string) bool {
	nonEmpty := nonEmptyCells(row)
	if len(nonEmpty) != 1 {
		return false
	}
	text := nonEmpty[0]
	if len(text) <= 50 {
		return false
	}
	if len(strings.Fields(text)) < 8 {
		return false
	}
	return notesRowRE.MatchString(text) || proseRE.MatchString(text)
}

// rowAmountTotalish reports whether a TOTAL-labelled row carries an amount
// matching the running total within 2% (minimum 1.0) tolerance.
func rowAmountTotalish(labelCell, amountCell string, runningTotal float64, rules *Rules) bool {
	if !totalLabelRE.MatchString(labelCell) {
		return false
	}
	amount, ok := ParseAmountLike(amountCell, rules)
	if !ok {
		return false
	}
	tolerance := math.Abs(runningTotal) * 0.02
	if tolerance < 1.0 {
		tolerance = 1.0
	}
	return math.Abs(amount-runningTotal) <= tolerance
}

// sparseTotalLabelRow catches subtotal rows too sparse to match the running
// total: a TOTAL label plus a parseable amount and at most 2 filled cells.
func sparseTotalLabelRow(row []string, labelIdx, amountIdx int, rules *Rules) bool {
	label, amount := "", ""
	if labelIdx >= 0 && labelIdx < len(row) {
		label = row[labelIdx]
	}
	if amountIdx >= 0 && amountIdx < len(row) {
		amount = row[amountIdx]
	}
	if !totalLabelRE.MatchString(label) {
		return false
	}
	if _, ok := ParseAmountLike(amount, rules); !ok {
		return false
	}
	nonEmpty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	return nonEmpty <= 2
}

// classifyRawRow buckets a row against the canonical schema. TOTAL-labelled
// rows with a parseable amount pass as NORMAL here; the calculated-subtotal
// check catches them after normalization, when the running total is known.
func classifyRawRow(row []string, headerSig []string, rules *Rules) string {
	stripped := make([]string, len(row))
	allEmpty := true
	anyRaw := false
	for i, cell := range row {
		stripped[i] = strings.TrimSpace(cell)
		if stripped[i] != "" {
			allEmpty = false
		}
		if cell != "" {
			anyRaw = true
		}
	}
	if allEmpty {
		if anyRaw {
			return classWhitespace
		}
		return classEmpty
	}

	if matchesSignature(stripped, headerSig) {
		return classHeader
	}
	if looksLikeNotesRow(row) {
		return classNotes
	}
	for _, cell := range stripped {
		if isFormulaResidue(cell) {
			return classFormula
		}
	}

	if totalLabelRE.MatchString(stripped[0]) && len(stripped) > colAmount {
		if _, ok := ParseAmountLike(stripped[colAmount], rules); ok {
			return classNormal
		}
	}

	nonEmpty := 0
	for _, cell := range stripped {
		if cell != "" {
			nonEmpty++
		}
	}
	if float64(nonEmpty) < float64(nSchemaCols)*rules.SparseThresholdSchema {
		return classSparse
	}
	return classNormal
}

// classifyRawRowGeneric buckets a row without schema knowledge: the sparse
// threshold drops to 25% and TOTAL rows are structural when mostly empty.
func classifyRawRowGeneric(row []string, headerSig []string, nCols int, rules *Rules) string {
	stripped := make([]string, len(row))
	allEmpty := true
	anyRaw := false
	for i, cell := range row {
		stripped[i] = strings.TrimSpace(cell)
		if stripped[i] != "" {
			allEmpty = false
		}
		if cell != "" {
			anyRaw = true
		}
	}
	if allEmpty {
		if anyRaw {
			return classWhitespace
		}
		return classEmpty
	}

	if matchesSignature(stripped, headerSig) {
		return classHeader
	}
	if looksLikeNotesRow(row) {
		return classNotes
	}
	for _, cell := range stripped {
		if isFormulaResidue(cell) {
			return classFormula
		}
	}

	firstNonEmpty := ""
	nonEmpty := 0
	for _, cell := range stripped {
		if cell != "" {
			if firstNonEmpty == "" {
				firstNonEmpty = cell
			}
			nonEmpty++
		}
	}

	if totalLeadRE.MatchString(firstNonEmpty) {
		limit := nCols / 3
		if limit < 2 {
			limit = 2
		}
		if nonEmpty <= limit {
			return classTotal
		}
	}

	minFilled := int(float64(nCols) * rules.SparseThresholdGeneric)
	if minFilled < 1 {
		minFilled = 1
	}
	if nonEmpty < minFilled {
		return classSparse
	}
	return classNormal
}

// fixAlignment repairs the three structural column problems the canonical
// schema sees in the wild: a leading ghost column, a phantom comma before
// Notes, and unquoted commas splitting the Notes field.
func fixAlignment(row []string, rowNum int) ([]string, *Change) {
	n := len(row)
	if n == nSchemaCols {
		return row, nil
	}

	if n > nSchemaCols {
		if strings.TrimSpace(row[0]) == "" && strings.TrimSpace(row[1]) != "" {
			fixed := append([]string(nil), row[1:nSchemaCols+1]...)
			return fixed, &Change{
				RowNumber: rowNum, Column: "[row structure]",
				OriginalValue: fmt.Sprintf("%d columns (empty leading ghost col)", n),
				NewValue:      fmt.Sprintf("%d columns", nSchemaCols),
				Action:        ActionFixed,
				Reason:        "Shifted-right row: empty leading column stripped",
			}
		}
		if n == nSchemaCols+1 && strings.TrimSpace(row[nSchemaCols-1]) == "" && strings.TrimSpace(row[nSchemaCols]) != "" {
			fixed := append([]string(nil), row[:nSchemaCols-1]...)
			fixed = append(fixed, row[nSchemaCols])
			return fixed, &Change{
				RowNumber: rowNum, Column: "Notes",
				OriginalValue: fmt.Sprintf("[ghost field] + '%s'", row[nSchemaCols]),
				NewValue:      row[nSchemaCols],
				Action:        ActionFixed,
				Reason:        "Phantom comma: empty ghost field before Notes removed",
			}
		}
		merged := strings.TrimSpace(strings.Join(row[nSchemaCols-1:], ", "))
		fixed := append([]string(nil), row[:nSchemaCols-1]...)
		fixed = append(fixed, merged)
		return fixed, &Change{
			RowNumber: rowNum, Column: "Notes",
			OriginalValue: fmt.Sprintf("%d fragments: %q...", n-nSchemaCols+1, row[nSchemaCols-1]),
			NewValue:      merged,
			Action:        ActionFixed,
			Reason:        "Unquoted commas in Notes field: fragments merged into one",
		}
	}

	fixed := append([]string(nil), row...)
	for len(fixed) < nSchemaCols {
		fixed = append(fixed, "")
	}
	return fixed, &Change{
		RowNumber: rowNum, Column: "[row structure]",
		OriginalValue: fmt.Sprintf("%d columns", n),
		NewValue:      fmt.Sprintf("%d columns (%d empty field(s) appended)", nSchemaCols, nSchemaCols-n),
		Action:        ActionFixed,
		Reason:        fmt.Sprintf("Short row padded with %d empty field(s)", nSchemaCols-n),
	}
}

// fixAlignmentGeneric conforms a row to the header width: overflow cells
// merge into the last column using the source delimiter, short rows pad with
// empties. The bool reports whether structure actually changed.
func fixAlignmentGeneric(row []string, rowNum, nCols int, delimiter string) ([]string, *Change, bool) {
	n := len(row)
	if n == nCols {
		return row, nil, false
	}

	if n > nCols {
		var parts []string
		for _, cell := range row[nCols-1:] {
			if cell != "" {
				parts = append(parts, cell)
			}
		}
		merged := strings.Join(parts, delimiter+" ")
		fixed := append([]string(nil), row[:nCols-1]...)
		fixed = append(fixed, merged)
		return fixed, &Change{
			RowNumber: rowNum, Column: "[row structure]",
			OriginalValue: fmt.Sprintf("%d columns", n),
			NewValue:      fmt.Sprintf("%d columns", nCols),
			Action:        ActionFixed,
			Reason:        fmt.Sprintf("Overflow columns merged into last column using delimiter '%s'", delimiter),
		}, true
	}

	fixed := append([]string(nil), row...)
	for len(fixed) < nCols {
		fixed = append(fixed, "")
	}
	return fixed, &Change{
		RowNumber: rowNum, Column: "[row structure]",
		OriginalValue: fmt.Sprintf("%d columns", n),
		NewValue:      fmt.Sprintf("%d columns (%d empty field(s) appended)", nCols, nCols-n),
		Action:        ActionFixed,
		Reason:        fmt.Sprintf("Short row padded with %d empty field(s)", nCols-n),
	}, true
}
