package heal

import (
	"fmt"
	"strings"
)

func stripNulls(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

func normalizeHeaderForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// cleanCellText strips BOM, null bytes and embedded line breaks, replaces
// smart quotes with straight quotes, and trims the result. The returned
// reasons describe each repair that actually happened.
func cleanCellText(value string) (string, []string) {
	v := stripNulls(value)
	var reasons []string

	if strings.Contains(v, "\uFEFF") {
		v = strings.ReplaceAll(v, "\uFEFF", "")
		reasons = append(reasons, "BOM byte-order mark stripped")
	}
	if strings.Contains(value, "\x00") {
		reasons = append(reasons, "Null byte removed")
	}
	if strings.ContainsAny(v, "\n\r") {
		v = strings.ReplaceAll(v, "\r\n", " ")
		v = strings.ReplaceAll(v, "\n", " ")
		v = strings.ReplaceAll(v, "\r", " ")
		reasons = append(reasons, "Embedded line break replaced with space")
	}
	hadSmart := false
	for smart, straight := range smartQuotes {
		if strings.Contains(v, smart) {
			hadSmart = true
		}
		v = strings.ReplaceAll(v, smart, straight)
	}
	if hadSmart {
		reasons = append(reasons, "Smart/curly quotes normalised to straight quotes")
	}
	return strings.TrimSpace(v), reasons
}

// cleanRow applies cleanCellText to every cell, logging one change per cell
// that needed repair.
func cleanRow(row []string, rowNum int, headers []string) ([]string, []Change) {
	cleaned := make([]string, 0, len(row))
	var changes []Change
	for i, cell := range row {
		val, reasons := cleanCellText(cell)
		if len(reasons) > 0 {
			display := strings.ReplaceAll(cell, "\uFEFF", "[BOM]")
			display = strings.ReplaceAll(display, "\x00", "[NULL]")
			changes = append(changes, Change{
				RowNumber:     rowNum,
				Column:        columnLabel(headers, i),
				OriginalValue: strings.TrimSpace(display),
				NewValue:      val,
				Action:        ActionFixed,
				Reason:        strings.Join(reasons, "; "),
			})
		}
		cleaned = append(cleaned, val)
	}
	return cleaned, changes
}

func columnLabel(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return fmt.Sprintf("[col %d]", i+1)
}

// normalizeHeaders cleans header cells, names blank headers column_N, and
// renames exact duplicates with a numeric suffix (id, id_2, id_3, ...).
func normalizeHeaders(raw []string) ([]string, []Change) {
	headers := make([]string, 0, len(raw))
	var changes []Change
	seen := map[string]int{}

	for i, cell := range raw {
		cleaned, cleanReasons := cleanCellText(cell)
		base := strings.Join(strings.Fields(cleaned), " ")
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		key := strings.ToLower(base)
		seen[key]++
		final := base
		reasons := cleanReasons
		if seen[key] > 1 {
			final = fmt.Sprintf("%s_%d", base, seen[key])
			reasons = append(reasons, "Duplicate header renamed with suffix")
		}
		if final != cell {
			reason := "Header normalised"
			if len(reasons) > 0 {
				reason = strings.Join(reasons, "; ")
			}
			changes = append(changes, Change{
				RowNumber:     1,
				Column:        fmt.Sprintf("[header col %d]", i+1),
				OriginalValue: cell,
				NewValue:      final,
				Action:        ActionFixed,
				Reason:        reason,
			})
		}
		headers = append(headers, final)
	}
	return headers, changes
}
