// Package diagnose inspects raw tabular rows for structural and encoding
// problems and renders a verdict without modifying anything.
package diagnose

import (
	"regexp"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/profile"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

// misalignedReportCap bounds how many misaligned rows a report lists.
const misalignedReportCap = 50

// EncodingInfo summarizes what the loader found out about the file bytes.
type EncodingInfo struct {
	Detected        string   `json:"detected"`
	Confidence      float64  `json:"confidence"`
	IsUTF8          bool     `json:"is_utf8"`
	SuspiciousChars []string `json:"suspicious_chars"`
}

// MisalignedRow is one row whose cell count differs from the header's.
type MisalignedRow struct {
	Row   int `json:"row"`
	Count int `json:"count"`
}

// Alignment reports the expected column count and the rows that break it.
type Alignment struct {
	Expected       int             `json:"expected"`
	MisalignedRows []MisalignedRow `json:"misaligned_rows"`
}

// EmptyRows lists fully blank rows by 1-based position.
type EmptyRows struct {
	Count int   `json:"count"`
	Rows  []int `json:"rows"`
}

// DuplicateHeaders covers both repeated column names and header rows that
// reappear inside the data.
type DuplicateHeaders struct {
	DuplicateColumns   []string `json:"duplicate_columns"`
	RepeatedHeaderRows []int    `json:"repeated_header_rows"`
}

// DateFormatFinding records a column that mixes more than one date format.
type DateFormatFinding struct {
	FormatsFound []string          `json:"formats_found"`
	Examples     map[string]string `json:"examples"`
}

// ColumnQuality flags columns with no data or a single repeated value.
type ColumnQuality struct {
	EmptyColumns       []string          `json:"empty_columns"`
	SingleValueColumns map[string]string `json:"single_value_columns"`
}

// Summary is the overall verdict with the count of distinct findings.
type Summary struct {
	Verdict    string `json:"verdict"`
	IssueCount int    `json:"issue_count"`
}

// Report is a full diagnostic rundown of one table.
type Report struct {
	File              string                       `json:"file"`
	TotalRows         int                          `json:"total_rows"`
	Encoding          EncodingInfo                 `json:"encoding"`
	ColumnCount       Alignment                    `json:"column_count"`
	DateFormats       map[string]DateFormatFinding `json:"date_formats"`
	EmptyRows         EmptyRows                    `json:"empty_rows"`
	DuplicateHeaders  DuplicateHeaders             `json:"duplicate_headers"`
	WhitespaceHeaders []string                     `json:"whitespace_headers"`
	ColumnQuality     ColumnQuality                `json:"column_quality"`
	HealingMode       string                       `json:"suggested_healing_mode"`
	Issues            []Issue                      `json:"issues"`
	Summary           Summary                      `json:"summary"`
}

// Human-readable labels for date patterns. Ambiguous patterns share a
// combined label so a column using one shape consistently is not flagged.
var datePatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "YYYY-MM-DD"},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), "DD/MM/YYYY or MM/DD/YYYY"},
	{regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), "DD-MM-YYYY or MM-DD-YYYY"},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{2}$`), "DD/MM/YY or MM/DD/YY"},
	{regexp.MustCompile(`^\d{2}-\d{2}-\d{2}$`), "DD-MM-YY or MM-DD-YY"},
	{regexp.MustCompile(`^\d{1,2}\s+\w+\s+\d{4}$`), "D Month YYYY"},
	{regexp.MustCompile(`^\w+\s+\d{1,2},?\s+\d{4}$`), "Month D, YYYY"},
	{regexp.MustCompile(`^\d{8}$`), "YYYYMMDD"},
	{regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), "YYYY/MM/DD"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "M/D/YYYY or D/M/YYYY"},
}

var dateLikeRE = regexp.MustCompile(`\d{2,4}[-/]\d{1,2}[-/]\d{1,4}|\d{1,2}\s+\w{3,9}\s+\d{2,4}`)

func checkAlignment(rows [][]string) Alignment {
	if len(rows) == 0 {
		return Alignment{}
	}
	expected := len(rows[0])
	var misaligned []MisalignedRow
	for i, row := range rows[1:] {
		if len(row) != expected && len(misaligned) < misalignedReportCap {
			misaligned = append(misaligned, MisalignedRow{Row: i + 2, Count: len(row)})
		}
	}
	return Alignment{Expected: expected, MisalignedRows: misaligned}
}

func checkEmptyRows(rows [][]string) EmptyRows {
	var empty []int
	for i, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if blank {
			empty = append(empty, i+1)
		}
	}
	return EmptyRows{Count: len(empty), Rows: empty}
}

func checkDuplicateHeaders(rows [][]string) DuplicateHeaders {
	if len(rows) == 0 {
		return DuplicateHeaders{}
	}
	counts := map[string]int{}
	var order []string
	for _, h := range rows[0] {
		trimmed := strings.TrimSpace(h)
		if counts[trimmed] == 0 {
			order = append(order, trimmed)
		}
		counts[trimmed]++
	}
	var duplicates []string
	for _, h := range order {
		if h != "" && counts[h] > 1 {
			duplicates = append(duplicates, h)
		}
	}

	sig := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		sig[i] = strings.ToLower(strings.TrimSpace(h))
	}
	var repeated []int
	for i, row := range rows[1:] {
		if len(row) != len(sig) {
			continue
		}
		match := true
		for j, cell := range row {
			if strings.ToLower(strings.TrimSpace(cell)) != sig[j] {
				match = false
				break
			}
		}
		if match {
			repeated = append(repeated, i+2)
		}
	}
	return DuplicateHeaders{DuplicateColumns: duplicates, RepeatedHeaderRows: repeated}
}

func checkWhitespaceHeaders(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	var found []string
	for _, h := range rows[0] {
		if h != strings.TrimSpace(h) {
			found = append(found, h)
		}
	}
	return found
}

func columnValues(rows [][]string, col int) []string {
	var values []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if v := strings.TrimSpace(row[col]); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func checkDateFormats(rows [][]string) map[string]DateFormatFinding {
	results := map[string]DateFormatFinding{}
	if len(rows) < 2 {
		return results
	}
	for col, header := range rows[0] {
		values := columnValues(rows, col)
		if len(values) == 0 {
			continue
		}

		sample := values
		if len(sample) > 20 {
			sample = sample[:20]
		}
		dateLike := 0
		for _, v := range sample {
			if dateLikeRE.MatchString(v) {
				dateLike++
			}
		}
		if dateLike < 1 {
			continue
		}

		hits := map[string]string{}
		var labels []string
		for _, v := range values {
			for _, p := range datePatterns {
				if p.re.MatchString(v) {
					if _, seen := hits[p.label]; !seen {
						hits[p.label] = v
						labels = append(labels, p.label)
					}
					break
				}
			}
		}
		if len(hits) > 1 {
			results[strings.TrimSpace(header)] = DateFormatFinding{FormatsFound: labels, Examples: hits}
		}
	}
	return results
}

func checkColumnQuality(rows [][]string) ColumnQuality {
	quality := ColumnQuality{SingleValueColumns: map[string]string{}}
	if len(rows) < 1 {
		return quality
	}
	for col, header := range rows[0] {
		name := strings.TrimSpace(header)
		values := columnValues(rows, col)
		if len(values) == 0 {
			quality.EmptyColumns = append(quality.EmptyColumns, name)
			continue
		}
		unique := map[string]bool{}
		for _, v := range values {
			unique[v] = true
		}
		if len(unique) == 1 {
			quality.SingleValueColumns[name] = values[0]
		}
	}
	return quality
}

func buildSummary(r *Report) Summary {
	issues := 0
	if !r.Encoding.IsUTF8 && r.Encoding.Detected != "unknown" && r.Encoding.Detected != "" {
		issues++
	}
	if len(r.Encoding.SuspiciousChars) > 0 {
		issues++
	}
	if len(r.ColumnCount.MisalignedRows) > 0 {
		issues++
	}
	issues += len(r.DateFormats)
	if r.EmptyRows.Count > 0 {
		issues++
	}
	if len(r.DuplicateHeaders.DuplicateColumns) > 0 || len(r.DuplicateHeaders.RepeatedHeaderRows) > 0 {
		issues++
	}
	if len(r.WhitespaceHeaders) > 0 {
		issues++
	}
	if len(r.ColumnQuality.EmptyColumns) > 0 {
		issues++
	}
	if len(r.ColumnQuality.SingleValueColumns) > 0 {
		issues++
	}

	verdict := "HEALTHY"
	switch {
	case issues == 0:
	case issues <= 3:
		verdict = "NEEDS ATTENTION"
	default:
		verdict = "CRITICAL"
	}
	return Summary{Verdict: verdict, IssueCount: issues}
}

// AnalyzeRows diagnoses an in-memory row set. The encoding info is passed
// through from whoever loaded the bytes; re-running on a healed partition
// uses a clean UTF-8 stamp.
func AnalyzeRows(file string, rows [][]string, enc EncodingInfo, analysis *profile.Analysis) *Report {
	r := &Report{
		File:              file,
		TotalRows:         len(rows),
		Encoding:          enc,
		ColumnCount:       checkAlignment(rows),
		DateFormats:       checkDateFormats(rows),
		EmptyRows:         checkEmptyRows(rows),
		DuplicateHeaders:  checkDuplicateHeaders(rows),
		WhitespaceHeaders: checkWhitespaceHeaders(rows),
		ColumnQuality:     checkColumnQuality(rows),
	}
	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}
	r.HealingMode = InferHealingMode(headers, analysis)
	r.Issues = buildIssues(r, analysis)
	r.Summary = buildSummary(r)
	return r
}

// Analyze diagnoses a loaded table, profiling its columns first so semantic
// findings and the suggested healing mode ride along.
func Analyze(tbl *table.Table) *Report {
	return AnalyzeWithCap(tbl, 0)
}

// AnalyzeWithCap is Analyze with an explicit profiler sample cap; zero means
// the profiler default.
func AnalyzeWithCap(tbl *table.Table, sampleCap int) *Report {
	enc := EncodingInfo{
		Detected:        tbl.Meta.Encoding,
		Confidence:      tbl.Meta.EncodingConfidence,
		IsUTF8:          strings.EqualFold(strings.ReplaceAll(tbl.Meta.Encoding, "-", ""), "utf8"),
		SuspiciousChars: suspiciousFromWarnings(tbl.Meta.Warnings),
	}
	var analysis *profile.Analysis
	if len(tbl.Rows) > 1 {
		analysis = profile.AnalyzeWithCap(tbl.Header(), tbl.DataRows(), sampleCap)
	}
	return AnalyzeRows(tbl.Path, tbl.Rows, enc, analysis)
}

func suspiciousFromWarnings(warnings []string) []string {
	var out []string
	for _, w := range warnings {
		if strings.Contains(w, "byte") || strings.Contains(w, "decode") {
			out = append(out, w)
			if len(out) == 10 {
				break
			}
		}
	}
	return out
}
