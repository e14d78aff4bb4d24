package heal

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	alphaRE        = regexp.MustCompile(`[A-Za-z]`)
	numericHeavyRE = regexp.MustCompile(`^[\d,./:-]+$`)
	dateSignalRE   = regexp.MustCompile(`(?i)(\b\d{1,4}[/-]\d{1,2}[/-]\d{1,4}\b|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b)`)
)

func nonEmptyCells(row []string) []string {
	var cells []string
	for _, cell := range row {
		if v := strings.TrimSpace(stripNulls(cell)); v != "" {
			cells = append(cells, v)
		}
	}
	return cells
}

func joinedRowText(row []string) string {
	return strings.Join(nonEmptyCells(row), " | ")
}

func truncateText(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// looksLikeHeaderRow decides whether a row reads as column labels rather
// than data: mostly short alphabetic cells with at most one numeric-heavy
// cell and fewer than two data-like values (amounts, dates, statuses).
func looksLikeHeaderRow(row []string, rules *Rules) bool {
	if rules.IsCanonicalHeader(row) {
		return true
	}
	nonEmpty := nonEmptyCells(row)
	if len(nonEmpty) < 2 {
		return false
	}
	longCells := 0
	for _, cell := range nonEmpty {
		if formulaRE.MatchString(cell) {
			return false
		}
		if len(cell) > 50 {
			longCells++
		}
	}
	if longCells >= 2 {
		return false
	}
	dataLike := 0
	for _, cell := range nonEmpty {
		if _, ok := ParseAmountLike(cell, rules); ok {
			dataLike++
			continue
		}
		if amt, _ := ExtractCurrencyFromText(cell, rules); amt != "" {
			dataLike++
			continue
		}
		normalized, changed, _ := NormalizeDate(cell, rules)
		if changed || isoDateRE.MatchString(normalized) {
			dataLike++
			continue
		}
		if _, ok := rules.StatusMap[strings.ToLower(cell)]; ok {
			dataLike++
		}
	}
	if dataLike >= 2 {
		return false
	}
	alphaCells := 0
	numericHeavy := 0
	for _, cell := range nonEmpty {
		if alphaRE.MatchString(cell) {
			alphaCells++
		}
		if numericHeavyRE.MatchString(cell) {
			numericHeavy++
		}
	}
	min := len(nonEmpty) - 1
	if min < 2 {
		min = 2
	}
	return alphaCells >= min && numericHeavy <= 1
}

// rowDataSignalCount counts cells carrying data signals (amounts, currency
// text, status values, date-shaped text). Used to confirm a header candidate
// sits directly above real data.
func rowDataSignalCount(row []string, rules *Rules) int {
	signals := 0
	for _, cell := range nonEmptyCells(row) {
		if _, ok := ParseAmountLike(cell, rules); ok {
			signals++
			continue
		}
		if amt, _ := ExtractCurrencyFromText(cell, rules); amt != "" {
			signals++
			continue
		}
		if _, ok := rules.StatusMap[strings.ToLower(cell)]; ok {
			signals++
			continue
		}
		if dateSignalRE.MatchString(cell) {
			signals++
		}
	}
	return signals
}

// detectHeaderRowIndex scans the first 20 rows for the real header: an exact
// canonical match wins, otherwise the last header-looking candidate that sits
// above a row with data signals.
func detectHeaderRowIndex(rows [][]string, explicitHeaderRow int, rules *Rules) int {
	if explicitHeaderRow > 0 {
		idx := explicitHeaderRow - 1
		if idx > len(rows)-1 {
			idx = len(rows) - 1
		}
		if idx < 0 {
			idx = 0
		}
		return idx
	}

	limit := len(rows)
	if limit > 20 {
		limit = 20
	}
	for i := 0; i < limit; i++ {
		if i < len(rows)-1 && rules.IsCanonicalHeader(rows[i]) {
			return i
		}
	}

	var candidates []int
	for i := 0; i < limit; i++ {
		if i < len(rows)-1 && looksLikeHeaderRow(rows[i], rules) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0
	}
	best := -1
	for _, idx := range candidates {
		below := rowDataSignalCount(rows[idx+1], rules)
		if below > 0 && below > rowDataSignalCount(rows[idx], rules) {
			best = idx
		}
	}
	if best >= 0 {
		return best
	}
	return candidates[len(candidates)-1]
}

// detectHeaderBandStart walks upward from the header row collecting adjacent
// header-looking rows into a band of at most 4 rows.
func detectHeaderBandStart(rows [][]string, headerIdx int, rules *Rules) int {
	const maxBandRows = 4
	start := headerIdx
	for start > 0 && headerIdx-start+1 < maxBandRows {
		previous := rows[start-1]
		if len(nonEmptyCells(previous)) < 2 {
			break
		}
		if !looksLikeHeaderRow(previous, rules) {
			break
		}
		start--
	}
	return start
}

func expandHeaderBandRow(row []string, width int) []string {
	padded := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(row) {
			padded[i] = strings.TrimSpace(stripNulls(row[i]))
		}
	}
	expanded := make([]string, width)
	current := ""
	for i, cell := range padded {
		if cell != "" {
			current = cell
		}
		expanded[i] = current
	}
	return expanded
}

// mergeHeaderBand collapses a multi-row header band into one row by joining
// the distinct tokens in each column, carrying merged-cell values rightward.
func mergeHeaderBand(rows [][]string) []string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}
	expanded := make([][]string, len(rows))
	for i, row := range rows {
		expanded[i] = expandHeaderBandRow(row, width)
	}
	merged := make([]string, width)
	for col := 0; col < width; col++ {
		var tokens []string
		seen := map[string]bool{}
		for _, row := range expanded {
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}
			key := strings.ToLower(value)
			if seen[key] {
				continue
			}
			seen[key] = true
			tokens = append(tokens, value)
		}
		merged[col] = strings.Join(tokens, " ")
	}
	return merged
}

// trimSparseEdgeColumns drops leading and trailing columns that have no
// header and whose data cells fall at or below 15% fill, a common artifact
// of workbook exports with decorative margins.
func trimSparseEdgeColumns(rows [][]string) ([][]string, []Change) {
	if len(rows) == 0 {
		return rows, nil
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return rows, nil
	}

	padded := make([][]string, len(rows))
	for i, row := range rows {
		p := make([]string, width)
		copy(p, row)
		padded[i] = p
	}

	dataRows := len(padded) - 1
	threshold := 1
	if dataRows > 0 {
		threshold = dataRows * 15 / 100
		if threshold < 1 {
			threshold = 1
		}
	}
	nonEmptyCount := func(col int) int {
		n := 0
		for _, row := range padded {
			if strings.TrimSpace(row[col]) != "" {
				n++
			}
		}
		return n
	}

	left := 0
	for left < width {
		if strings.TrimSpace(padded[0][left]) != "" || nonEmptyCount(left) > threshold {
			break
		}
		left++
	}
	right := width
	for right > left {
		if strings.TrimSpace(padded[0][right-1]) != "" || nonEmptyCount(right-1) > threshold {
			break
		}
		right--
	}
	if left == 0 && right == width {
		return rows, nil
	}

	trimmed := make([][]string, len(padded))
	for i, row := range padded {
		trimmed[i] = row[left:right]
	}
	var changes []Change
	if left > 0 {
		changes = append(changes, Change{
			RowNumber: 1, Column: "[column trimming]",
			OriginalValue: fmt.Sprintf("Removed %d leading sparse column(s)", left),
			Action:        ActionFixed,
			Reason:        "Sparse leading workbook columns removed before semantic/header detection",
		})
	}
	if right < width {
		changes = append(changes, Change{
			RowNumber: 1, Column: "[column trimming]",
			OriginalValue: fmt.Sprintf("Removed %d trailing sparse column(s)", width-right),
			Action:        ActionFixed,
			Reason:        "Sparse trailing workbook columns removed before semantic/header detection",
		})
	}
	return trimmed, changes
}

// preprocessRows locates the real header, strips any metadata prelude above
// it, merges multi-row header bands, and trims sparse edge columns. The
// returned rows always start with the header row.
func preprocessRows(rows [][]string, explicitHeaderRow int, rules *Rules) ([][]string, []Change) {
	headerIdx := detectHeaderRowIndex(rows, explicitHeaderRow, rules)
	if headerIdx <= 0 {
		return trimSparseEdgeColumns(rows)
	}

	bandStart := detectHeaderBandStart(rows, headerIdx, rules)
	var changes []Change
	for i, row := range rows[:bandStart] {
		text := joinedRowText(row)
		if text == "" {
			text = "[empty metadata row]"
		}
		changes = append(changes, Change{
			RowNumber: i + 1, Column: "[file metadata]",
			OriginalValue: truncateText(text, 200),
			Action:        ActionRemoved,
			Reason:        "File Metadata: row before detected header moved out of the dataset",
		})
	}

	bandRows := rows[bandStart : headerIdx+1]
	if len(bandRows) > 1 {
		mergedHeader := mergeHeaderBand(bandRows)
		var origParts, newParts []string
		for _, row := range bandRows {
			if text := joinedRowText(row); text != "" {
				origParts = append(origParts, text)
			}
		}
		for _, cell := range mergedHeader {
			if cell != "" {
				newParts = append(newParts, cell)
			}
		}
		changes = append(changes, Change{
			RowNumber: bandStart + 1, Column: "[header band]",
			OriginalValue: truncateText(strings.Join(origParts, " | "), 200),
			NewValue:      truncateText(strings.Join(newParts, " | "), 200),
			Action:        ActionFixed,
			Reason:        "Multi-row workbook header band merged into a single semantic header row",
		})
		out := append([][]string{mergedHeader}, rows[headerIdx+1:]...)
		trimmed, trimChanges := trimSparseEdgeColumns(out)
		return trimmed, append(changes, trimChanges...)
	}

	trimmed, trimChanges := trimSparseEdgeColumns(rows[headerIdx:])
	return trimmed, append(changes, trimChanges...)
}
