// Package report assembles health reports and writes healing output files.
// It composes the diagnose, profile, and heal packages; scores live here so
// the heal engine stays a pure row transformer.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/profile"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

// Contract names the versioned output shape a JSON document follows, so
// downstream consumers can validate before parsing.
type Contract struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var contractVersions = map[string]string{
	"sheetdoctor.diagnose":     "1.0.0",
	"sheetdoctor.report":       "1.0.0",
	"sheetdoctor.heal_summary": "1.0.0",
}

// BuildContract returns the contract stamp for a known output name.
func BuildContract(name string) Contract {
	return Contract{Name: name, Version: contractVersions[name]}
}

// ToolVersion is stamped into every JSON output.
const ToolVersion = "1.0.0"

// RunSummary is the machine-readable trailer attached to every command run.
type RunSummary struct {
	Tool          string         `json:"tool"`
	Script        string         `json:"script"`
	RunID         string         `json:"run_id"`
	Status        string         `json:"status"`
	GeneratedAt   string         `json:"generated_at"`
	InputFile     string         `json:"input_file"`
	OutputFile    string         `json:"output_file,omitempty"`
	WarningsCount int            `json:"warnings_count"`
	Warnings      []string       `json:"warnings"`
	Metrics       map[string]any `json:"metrics"`
}

func utcNowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// BuildRunSummary stamps a run with a fresh id and UTC timestamp.
func BuildRunSummary(tool, script, inputPath, outputPath string, metrics map[string]any, warnings []string) RunSummary {
	if metrics == nil {
		metrics = map[string]any{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return RunSummary{
		Tool:          tool,
		Script:        script,
		RunID:         uuid.NewString(),
		Status:        "ok",
		GeneratedAt:   utcNowISO(),
		InputFile:     inputPath,
		OutputFile:    outputPath,
		WarningsCount: len(warnings),
		Warnings:      warnings,
		Metrics:       metrics,
	}
}

// FileOverview is the at-a-glance header of a health report.
type FileOverview struct {
	File      string `json:"file"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Format    string `json:"format"`
	Encoding  string `json:"encoding"`
	ScannedAt string `json:"scanned_at"`
}

// ColumnBreakdown is one per-column line of the report.
type ColumnBreakdown struct {
	Column         string   `json:"column"`
	DetectedType   string   `json:"detected_type"`
	NullPercentage float64  `json:"null_percentage"`
	TopIssues      []string `json:"top_issues"`
}

// HealingProjection previews what a healing run produced (or would produce).
type HealingProjection struct {
	Mode              string         `json:"mode"`
	CleanRows         int            `json:"clean_rows"`
	QuarantineRows    int            `json:"quarantine_rows"`
	NeedsReviewRows   int            `json:"needs_review_rows"`
	ModifiedRows      int            `json:"modified_rows"`
	ActionCounts      map[string]int `json:"action_counts"`
	QuarantineReasons map[string]int `json:"quarantine_reasons"`
}

// HealthReport is the complete report document: raw score, what healing
// recovers, per-column findings, and recommended next steps.
type HealthReport struct {
	Contract      Contract `json:"contract"`
	SchemaVersion string   `json:"schema_version"`
	ToolVersion   string   `json:"tool_version"`

	FileOverview   FileOverview       `json:"file_overview"`
	RawHealthScore Score              `json:"raw_health_score"`
	PostHealScore  Score              `json:"post_heal_score"`
	Recoverability RecoverabilityScore `json:"recoverability_score"`

	Issues             map[string][]diagnose.Issue `json:"issues"`
	ColumnBreakdown    []ColumnBreakdown           `json:"column_breakdown"`
	RecommendedActions []string                    `json:"recommended_actions"`
	Assumptions        []string                    `json:"assumptions"`
	PIIWarning         string                      `json:"pii_warning,omitempty"`
	HealingProjection  HealingProjection           `json:"healing_projection"`

	Diagnose   *diagnose.Report  `json:"diagnose"`
	Profile    *profile.Analysis `json:"column_profile"`
	RunSummary RunSummary        `json:"run_summary"`
	TextReport string            `json:"text_report"`
}

func countReviewAndModified(clean []heal.CleanRow) (needsReview, modified int) {
	for _, row := range clean {
		if row.NeedsReview {
			needsReview++
		}
		if row.WasModified {
			modified++
		}
	}
	return needsReview, modified
}

// Build runs diagnosis and healing on a loaded table and assembles the full
// health report, including a post-heal re-diagnosis of the clean partition.
func Build(tbl *table.Table, opts heal.Options) (*HealthReport, *heal.Result, error) {
	return BuildWithCap(tbl, opts, 0)
}

// BuildWithCap is Build with an explicit profiler sample cap; zero means the
// profiler default.
func BuildWithCap(tbl *table.Table, opts heal.Options, sampleCap int) (*HealthReport, *heal.Result, error) {
	diag := diagnose.AnalyzeWithCap(tbl, sampleCap)
	var analysis *profile.Analysis
	if len(tbl.Rows) > 1 {
		analysis = profile.AnalyzeWithCap(tbl.Header(), tbl.DataRows(), sampleCap)
	}
	raw := CalcHealthScore(diag, analysis)

	healed, err := heal.Heal(tbl, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("heal during report: %w", err)
	}

	postDiag, postAnalysis := diagnoseCleanPartition(tbl.Path, healed)
	postScore := CalcHealthScore(postDiag, postAnalysis)
	recoverability := CalcRecoverabilityScore(healed, postScore)

	issuesBySeverity := map[string][]diagnose.Issue{
		diagnose.SeverityCritical: {},
		diagnose.SeverityWarning:  {},
		diagnose.SeverityInfo:     {},
	}
	for _, issue := range diag.Issues {
		issuesBySeverity[issue.Severity] = append(issuesBySeverity[issue.Severity], issue)
	}

	needsReview, modified := countReviewAndModified(healed.Clean)
	projection := HealingProjection{
		Mode:              healed.Mode,
		CleanRows:         len(healed.Clean),
		QuarantineRows:    len(healed.Quarantine),
		NeedsReviewRows:   needsReview,
		ModifiedRows:      modified,
		ActionCounts:      healed.ActionCounts,
		QuarantineReasons: healed.QuarantineReasonCounts,
	}

	contract := BuildContract("sheetdoctor.report")
	r := &HealthReport{
		Contract:      contract,
		SchemaVersion: contract.Version,
		ToolVersion:   ToolVersion,
		FileOverview: FileOverview{
			File:      filepath.Base(tbl.Path),
			Rows:      maxInt(0, len(tbl.Rows)-1),
			Columns:   tbl.Width(),
			Format:    tbl.Format,
			Encoding:  tbl.Meta.Encoding,
			ScannedAt: utcNowISO(),
		},
		RawHealthScore:     raw,
		PostHealScore:      postScore,
		Recoverability:     recoverability,
		Issues:             issuesBySeverity,
		ColumnBreakdown:    buildColumnBreakdown(analysis),
		RecommendedActions: buildActions(diag, healed, recoverability),
		Assumptions:        healed.Assumptions,
		HealingProjection:  projection,
		Diagnose:           diag,
		Profile:            analysis,
	}
	for _, issue := range diag.Issues {
		if issue.ID == diagnose.IssuePII {
			r.PIIWarning = "This file appears to contain PII. Handle according to your data protection policy."
			break
		}
	}
	r.RunSummary = BuildRunSummary("sheetdoctor", "report", tbl.Path, "", map[string]any{
		"detected_format":      tbl.Format,
		"healing_mode":         healed.Mode,
		"raw_health_score":     raw.Score,
		"recoverability_score": recoverability.Score,
		"post_heal_score":      postScore.Score,
		"clean_rows":           len(healed.Clean),
		"quarantine_rows":      len(healed.Quarantine),
		"issues_found":         len(diag.Issues),
	}, nil)
	r.TextReport = renderTextReport(r)
	return r, healed, nil
}

// diagnoseCleanPartition re-runs diagnosis on the healed clean rows, which by
// construction carry a clean UTF-8 stamp and the canonical header.
func diagnoseCleanPartition(file string, healed *heal.Result) (*diagnose.Report, *profile.Analysis) {
	rows := make([][]string, 0, len(healed.Clean)+1)
	rows = append(rows, healed.Headers)
	for _, entry := range healed.Clean {
		rows = append(rows, entry.Row)
	}
	var analysis *profile.Analysis
	if len(rows) > 1 {
		analysis = profile.Analyze(healed.Headers, rows[1:])
	}
	enc := diagnose.EncodingInfo{Detected: "utf-8", Confidence: 1.0, IsUTF8: true}
	return diagnose.AnalyzeRows(file, rows, enc, analysis), analysis
}

func buildColumnBreakdown(analysis *profile.Analysis) []ColumnBreakdown {
	if analysis == nil {
		return nil
	}
	out := make([]ColumnBreakdown, 0, len(analysis.Columns))
	for _, col := range analysis.Columns {
		issues := col.SuspectedIssues
		if len(issues) == 0 {
			issues = []string{"No major issues detected"}
		}
		out = append(out, ColumnBreakdown{
			Column:         col.Header,
			DetectedType:   col.DetectedType,
			NullPercentage: col.NullPercentage,
			TopIssues:      issues,
		})
	}
	return out
}

const maxActions = 6

func buildActions(diag *diagnose.Report, healed *heal.Result, recoverability RecoverabilityScore) []string {
	var actions []string

	autoFixTypes := map[string]bool{}
	autoFixInstances := 0
	manualIssues := 0
	for _, issue := range diag.Issues {
		if issue.AutoFixable {
			autoFixTypes[issue.ID] = true
			autoFixInstances++
		} else {
			manualIssues++
		}
	}
	if autoFixInstances > 0 {
		actions = append(actions, fmt.Sprintf(
			"Run healing now: it can automatically address %d issue type(s) across %d flagged issue instance(s)",
			len(autoFixTypes), autoFixInstances))
	}
	if n := len(healed.Quarantine); n > 0 {
		actions = append(actions, fmt.Sprintf(
			"Review %d row(s) in the quarantine output that could not be repaired safely", n))
	}
	needsReview, _ := countReviewAndModified(healed.Clean)
	if needsReview > 0 {
		actions = append(actions, fmt.Sprintf(
			"Manually inspect %d cleaned row(s) still flagged needs_review=TRUE before relying on them downstream", needsReview))
	}
	for col, finding := range diag.DateFormats {
		fixable := "manual review needed"
		for _, issue := range diag.Issues {
			if issue.ID == diagnose.IssueDateMixedFormats && len(issue.Columns) == 1 && issue.Columns[0] == col && issue.AutoFixable {
				fixable = "auto-fixable"
				break
			}
		}
		actions = append(actions, fmt.Sprintf(
			"Normalize mixed date formats in %s (%d formats found) (%s)", col, len(finding.FormatsFound), fixable))
	}
	for _, issue := range diag.Issues {
		if issue.ID == diagnose.IssueNearDuplicates && len(issue.Columns) > 0 {
			actions = append(actions, fmt.Sprintf(
				"Review near-duplicate values in %s to decide which versions should be merged or kept",
				strings.Join(issue.Columns, ", ")))
		}
		if issue.ID == diagnose.IssueOutliers && len(issue.Columns) > 0 {
			actions = append(actions, fmt.Sprintf(
				"Manually check outlier values in %s before trusting totals or downstream analysis",
				strings.Join(issue.Columns, ", ")))
		}
	}
	if manualIssues > 0 && recoverability.Score < 70 {
		actions = append(actions, fmt.Sprintf(
			"Treat this as a partial rescue, not a one-click cleanup: recoverability is only %d/100", recoverability.Score))
	}
	if !diag.Encoding.IsUTF8 || len(diag.Encoding.SuspiciousChars) > 0 {
		mentioned := false
		for _, a := range actions {
			if strings.Contains(strings.ToLower(a), "encoding") {
				mentioned = true
				break
			}
		}
		if !mentioned {
			actions = append(actions, fmt.Sprintf(
				"Re-decode and normalise text values from the %s encoding so names and notes are readable everywhere (auto-fixable)",
				diag.Encoding.Detected))
		}
	}

	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	return actions
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
