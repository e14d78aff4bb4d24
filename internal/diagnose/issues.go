package diagnose

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/profile"
)

// Issue severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Issue is one diagnosed problem expressed in the shared taxonomy.
type Issue struct {
	ID           string   `json:"id"`
	Severity     string   `json:"severity"`
	PlainEnglish string   `json:"plain_english"`
	Columns      []string `json:"columns"`
	RowsAffected int      `json:"rows_affected"`
	AutoFixable  bool     `json:"auto_fixable"`
}

// Stable issue identifiers shared between diagnosis and reporting.
const (
	IssueEncodingNonUTF8        = "encoding_non_utf8"
	IssueEncodingSuspicious     = "encoding_suspicious_chars"
	IssueMisalignedRows         = "structural_misaligned_rows"
	IssueRepeatedHeaderRows     = "structural_repeated_header_rows"
	IssueEmptyRows              = "structural_empty_rows"
	IssueHeaderWhitespace       = "header_whitespace"
	IssueEmptyColumns           = "quality_empty_columns"
	IssueSingleValueColumns     = "quality_single_value_columns"
	IssueDateMixedFormats       = "date_mixed_formats"
	IssueInconsistentCaps       = "semantic_inconsistent_capitalisation"
	IssueTrimWhitespace         = "semantic_trim_whitespace"
	IssueNearDuplicates         = "semantic_near_duplicates"
	IssueConstantValues         = "semantic_constant_values"
	IssueOutliers               = "semantic_outliers"
	IssuePII                    = "semantic_pii"
)

var issueSeverities = map[string]string{
	IssueEncodingNonUTF8:    SeverityWarning,
	IssueEncodingSuspicious: SeverityWarning,
	IssueMisalignedRows:     SeverityCritical,
	IssueRepeatedHeaderRows: SeverityCritical,
	IssueEmptyRows:          SeverityWarning,
	IssueHeaderWhitespace:   SeverityInfo,
	IssueEmptyColumns:       SeverityWarning,
	IssueSingleValueColumns: SeverityInfo,
	IssueDateMixedFormats:   SeverityWarning,
	IssueInconsistentCaps:   SeverityWarning,
	IssueTrimWhitespace:     SeverityInfo,
	IssueNearDuplicates:     SeverityWarning,
	IssueConstantValues:     SeverityInfo,
	IssueOutliers:           SeverityWarning,
	IssuePII:                SeverityInfo,
}

var canonicalHeaderSet = []string{
	"employee name", "department", "date", "amount",
	"currency", "category", "status", "notes",
}

// InferHealingMode predicts which healing mode a file would get: the exact
// canonical header means schema-specific, strong semantic signals from the
// profiler mean semantic, anything else generic.
func InferHealingMode(headers []string, analysis *profile.Analysis) string {
	if len(headers) == len(canonicalHeaderSet) {
		match := true
		for i, h := range headers {
			normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(h))), " ")
			if normalized != canonicalHeaderSet[i] {
				match = false
				break
			}
		}
		if match {
			return "schema-specific"
		}
	}

	if analysis != nil {
		types := analysis.DetectedTypes
		signals := 0
		if types[profile.TypeDate] >= 1 {
			signals++
		}
		if types[profile.TypeCurrencyAmount]+types[profile.TypePlainNumber] >= 1 {
			signals++
		}
		if types[profile.TypeName] >= 1 || types[profile.TypeCurrencyCode] >= 1 || types[profile.TypeCategorical] >= 2 {
			signals++
		}
		if signals >= 3 {
			return "semantic"
		}
	}
	return "generic"
}

// IsAutoFixable reports whether the heal engine can repair the issue without
// human input, given the file's healing mode and the affected columns.
func IsAutoFixable(issueID string, columns []string, healingMode string) bool {
	switch issueID {
	case IssueEncodingNonUTF8, IssueEncodingSuspicious, IssueMisalignedRows,
		IssueRepeatedHeaderRows, IssueEmptyRows, IssueHeaderWhitespace,
		IssueTrimWhitespace:
		return true
	case IssueEmptyColumns, IssueSingleValueColumns, IssueConstantValues,
		IssueOutliers, IssuePII:
		return false
	case IssueDateMixedFormats:
		return (healingMode == "schema-specific" || healingMode == "semantic") && len(columns) == 1
	case IssueInconsistentCaps:
		return healingMode == "schema-specific" || healingMode == "semantic"
	case IssueNearDuplicates:
		if healingMode != "schema-specific" {
			return false
		}
		allowed := map[string]bool{"Employee Name": true, "Amount": true, "Currency": true, "Status": true}
		for _, col := range columns {
			if !allowed[col] {
				return false
			}
		}
		return true
	}
	return false
}

func newIssue(issueID, plainEnglish string, columns []string, rowsAffected int, healingMode string) Issue {
	return Issue{
		ID:           issueID,
		Severity:     issueSeverities[issueID],
		PlainEnglish: plainEnglish,
		Columns:      columns,
		RowsAffected: rowsAffected,
		AutoFixable:  IsAutoFixable(issueID, columns, healingMode),
	}
}

func buildIssues(r *Report, analysis *profile.Analysis) []Issue {
	mode := r.HealingMode
	var issues []Issue

	if !r.Encoding.IsUTF8 && r.Encoding.Detected != "unknown" && r.Encoding.Detected != "" {
		issues = append(issues, newIssue(IssueEncodingNonUTF8,
			fmt.Sprintf("The file is encoded as %s rather than UTF-8", r.Encoding.Detected),
			nil, 0, mode))
	}
	if n := len(r.Encoding.SuspiciousChars); n > 0 {
		issues = append(issues, newIssue(IssueEncodingSuspicious,
			"Some bytes could not be decoded as UTF-8 and were repaired",
			nil, n, mode))
	}
	if n := len(r.ColumnCount.MisalignedRows); n > 0 {
		issues = append(issues, newIssue(IssueMisalignedRows,
			fmt.Sprintf("%d row(s) have a different number of columns than the header", n),
			nil, n, mode))
	}
	if n := len(r.DuplicateHeaders.RepeatedHeaderRows); n > 0 {
		issues = append(issues, newIssue(IssueRepeatedHeaderRows,
			fmt.Sprintf("The header row reappears %d time(s) inside the data", n),
			nil, n, mode))
	}
	if r.EmptyRows.Count > 0 {
		issues = append(issues, newIssue(IssueEmptyRows,
			fmt.Sprintf("%d completely empty row(s) found", r.EmptyRows.Count),
			nil, r.EmptyRows.Count, mode))
	}
	if len(r.WhitespaceHeaders) > 0 {
		issues = append(issues, newIssue(IssueHeaderWhitespace,
			"Some header names carry leading or trailing whitespace",
			r.WhitespaceHeaders, 0, mode))
	}
	if len(r.ColumnQuality.EmptyColumns) > 0 {
		issues = append(issues, newIssue(IssueEmptyColumns,
			fmt.Sprintf("%d column(s) contain no data at all", len(r.ColumnQuality.EmptyColumns)),
			r.ColumnQuality.EmptyColumns, 0, mode))
	}
	if len(r.ColumnQuality.SingleValueColumns) > 0 {
		var cols []string
		for col := range r.ColumnQuality.SingleValueColumns {
			cols = append(cols, col)
		}
		issues = append(issues, newIssue(IssueSingleValueColumns,
			fmt.Sprintf("%d column(s) hold a single repeated value", len(cols)),
			cols, 0, mode))
	}
	for col, finding := range r.DateFormats {
		issues = append(issues, newIssue(IssueDateMixedFormats,
			fmt.Sprintf("Column '%s' mixes date formats: %s", col, strings.Join(finding.FormatsFound, ", ")),
			[]string{col}, 0, mode))
	}

	if analysis != nil {
		var capsCols, trimCols, nearDupCols, constantCols, outlierCols, piiCols []string
		for _, col := range analysis.Columns {
			for _, issue := range col.SuspectedIssues {
				switch {
				case issue == "Inconsistent capitalisation":
					capsCols = append(capsCols, col.Header)
				case strings.HasPrefix(issue, "Trailing/leading whitespace"):
					trimCols = append(trimCols, col.Header)
				case issue == "Possible duplicates with slight differences":
					nearDupCols = append(nearDupCols, col.Header)
				case issue == "Values suspiciously all the same":
					constantCols = append(constantCols, col.Header)
				case strings.HasPrefix(issue, "Outliers detected"):
					outlierCols = append(outlierCols, col.Header)
				case strings.HasPrefix(issue, "Possible PII"):
					piiCols = append(piiCols, col.Header)
				}
			}
		}
		if len(capsCols) > 0 {
			issues = append(issues, newIssue(IssueInconsistentCaps,
				"Text values use inconsistent capitalisation", capsCols, 0, mode))
		}
		if len(trimCols) > 0 {
			issues = append(issues, newIssue(IssueTrimWhitespace,
				"Values carry leading or trailing whitespace", trimCols, 0, mode))
		}
		if len(nearDupCols) > 0 {
			issues = append(issues, newIssue(IssueNearDuplicates,
				"Some values look like near-duplicates of each other", nearDupCols, 0, mode))
		}
		if len(constantCols) > 0 {
			issues = append(issues, newIssue(IssueConstantValues,
				"Some columns hold nearly identical values throughout", constantCols, 0, mode))
		}
		if len(outlierCols) > 0 {
			issues = append(issues, newIssue(IssueOutliers,
				"Numeric outliers beyond 3 standard deviations detected", outlierCols, 0, mode))
		}
		if len(piiCols) > 0 {
			issues = append(issues, newIssue(IssuePII,
				"Columns may contain personal data (emails, phones, names)", piiCols, 0, mode))
		}
	}
	return issues
}
