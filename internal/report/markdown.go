package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
)

var severityHeadings = []struct {
	severity string
	heading  string
}{
	{diagnose.SeverityCritical, "Critical (will break imports)"},
	{diagnose.SeverityWarning, "Warning (will cause analysis errors)"},
	{diagnose.SeverityInfo, "Info (cosmetic, worth fixing)"},
}

func formatIssue(b *strings.Builder, issue diagnose.Issue) {
	autoFix := "no"
	if issue.AutoFixable {
		autoFix = "yes"
	}
	fmt.Fprintf(b, "- %s\n", issue.PlainEnglish)
	fmt.Fprintf(b, "  Columns: %s\n", strings.Join(issue.Columns, ", "))
	fmt.Fprintf(b, "  Rows affected: %d\n", issue.RowsAffected)
	fmt.Fprintf(b, "  Auto-fixable: %s\n", autoFix)
}

// renderTextReport renders the six-section plain-text report.
func renderTextReport(r *HealthReport) string {
	var b strings.Builder

	b.WriteString("SECTION 1 - FILE OVERVIEW\n")
	fmt.Fprintf(&b, "File: %s\n", r.FileOverview.File)
	fmt.Fprintf(&b, "Size: %d rows x %d columns\n", r.FileOverview.Rows, r.FileOverview.Columns)
	fmt.Fprintf(&b, "Format: %s\n", r.FileOverview.Format)
	fmt.Fprintf(&b, "Encoding: %s\n", r.FileOverview.Encoding)
	fmt.Fprintf(&b, "Scanned: %s\n", r.FileOverview.ScannedAt)
	b.WriteString("\n")

	b.WriteString("SECTION 2 - HEALTH SCORE\n")
	fmt.Fprintf(&b, "Raw Health Score: %d/100 (%s)\n", r.RawHealthScore.Score, r.RawHealthScore.Label)
	fmt.Fprintf(&b, "Recoverability Score: %d/100 (%s)\n", r.Recoverability.Score, r.Recoverability.Label)
	fmt.Fprintf(&b, "Post-Heal Score: %d/100 (%s)\n", r.PostHealScore.Score, r.PostHealScore.Label)
	d := r.RawHealthScore.Deductions
	fmt.Fprintf(&b, "  Raw deductions - Encoding: -%d, Structural: -%d, Date chaos: -%d, Missing data: -%d, Duplicates: -%d, Data quality: -%d\n",
		d["encoding"], d["structural"], d["date_chaos"], d["missing_data"], d["duplicates"], d["data_quality"])
	p := r.HealingProjection
	fmt.Fprintf(&b, "  Healing projection - Mode: %s, Clean rows: %d, Quarantine rows: %d, Needs review: %d, Fixed changes: %d\n",
		p.Mode, p.CleanRows, p.QuarantineRows, p.NeedsReviewRows, p.ActionCounts["Fixed"])
	b.WriteString("\n")

	b.WriteString("SECTION 3 - ISSUES FOUND\n")
	if r.PIIWarning != "" {
		b.WriteString(r.PIIWarning + "\n\n")
	}
	for _, entry := range severityHeadings {
		b.WriteString(entry.heading + "\n")
		items := r.Issues[entry.severity]
		if len(items) == 0 {
			b.WriteString("- None\n")
		} else {
			for _, issue := range items {
				formatIssue(&b, issue)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("SECTION 4 - COLUMN BREAKDOWN\n")
	for _, item := range r.ColumnBreakdown {
		fmt.Fprintf(&b, "%s | %s | %.1f%% null | %s\n",
			item.Column, item.DetectedType, item.NullPercentage, strings.Join(item.TopIssues, "; "))
	}
	b.WriteString("\n")

	b.WriteString("SECTION 5 - RECOMMENDED ACTIONS\n")
	if len(r.RecommendedActions) == 0 {
		b.WriteString("1. No urgent action required.\n")
	} else {
		for i, action := range r.RecommendedActions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, action)
		}
	}
	b.WriteString("\n")

	b.WriteString("SECTION 6 - ASSUMPTIONS\n")
	for _, assumption := range r.Assumptions {
		fmt.Fprintf(&b, "* %s\n", assumption)
	}

	return b.String()
}

// RenderDiagnoseText renders a diagnose report for terminal output.
func RenderDiagnoseText(r *diagnose.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Diagnosis: %s\n", r.File)
	fmt.Fprintf(&b, "Verdict: %s (%d issue(s))\n", r.Summary.Verdict, r.Summary.IssueCount)
	fmt.Fprintf(&b, "Suggested healing mode: %s\n", r.HealingMode)
	fmt.Fprintf(&b, "Encoding: %s (confidence %.2f)\n", r.Encoding.Detected, r.Encoding.Confidence)
	fmt.Fprintf(&b, "Rows: %d, expected columns: %d\n", r.TotalRows, r.ColumnCount.Expected)
	b.WriteString("\n")

	if n := len(r.ColumnCount.MisalignedRows); n > 0 {
		fmt.Fprintf(&b, "Misaligned rows: %d\n", n)
	}
	if r.EmptyRows.Count > 0 {
		fmt.Fprintf(&b, "Empty rows: %d\n", r.EmptyRows.Count)
	}
	if n := len(r.DuplicateHeaders.RepeatedHeaderRows); n > 0 {
		fmt.Fprintf(&b, "Repeated header rows: %d\n", n)
	}
	if len(r.DuplicateHeaders.DuplicateColumns) > 0 {
		fmt.Fprintf(&b, "Duplicate column names: %s\n", strings.Join(r.DuplicateHeaders.DuplicateColumns, ", "))
	}
	if len(r.WhitespaceHeaders) > 0 {
		fmt.Fprintf(&b, "Headers with stray whitespace: %d\n", len(r.WhitespaceHeaders))
	}
	if len(r.DateFormats) > 0 {
		var cols []string
		for col := range r.DateFormats {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(&b, "Mixed date formats in '%s': %s\n", col, strings.Join(r.DateFormats[col].FormatsFound, ", "))
		}
	}
	if len(r.ColumnQuality.EmptyColumns) > 0 {
		fmt.Fprintf(&b, "Empty columns: %s\n", strings.Join(r.ColumnQuality.EmptyColumns, ", "))
	}

	if len(r.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, entry := range severityHeadings {
			for _, issue := range r.Issues {
				if issue.Severity != entry.severity {
					continue
				}
				marker := "manual"
				if issue.AutoFixable {
					marker = "auto-fixable"
				}
				fmt.Fprintf(&b, "  [%s] %s (%s)\n", issue.Severity, issue.PlainEnglish, marker)
			}
		}
	}
	return b.String()
}
