package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
)

// OutputFiles lists everything a heal run wrote to disk.
type OutputFiles struct {
	Cleaned    string `json:"cleaned"`
	Quarantine string `json:"quarantine"`
	ChangeLog  string `json:"changelog"`
	Summary    string `json:"summary"`
}

// RowAccounting ties the three output partitions back to the input rows.
type RowAccounting struct {
	TotalIncludingHeader int `json:"total_including_header"`
	CleanRows            int `json:"clean_rows"`
	QuarantineRows       int `json:"quarantine_rows"`
	NeedsReviewRows      int `json:"needs_review_rows"`
	ModifiedRows         int `json:"modified_rows"`
	DiscardedEmptyRows   int `json:"discarded_empty_rows"`
	DuplicatesRemoved    int `json:"duplicates_removed"`
}

// ChangeAccounting summarizes the change log.
type ChangeAccounting struct {
	Logged                 int            `json:"logged"`
	ActionCounts           map[string]int `json:"action_counts"`
	QuarantineReasonCounts map[string]int `json:"quarantine_reason_counts"`
}

// HealPlanInfo records the run's knobs so a summary is reproducible.
type HealPlanInfo struct {
	SheetName         string            `json:"sheet_name,omitempty"`
	HeaderRowOverride int               `json:"header_row_override,omitempty"`
	RoleOverrides     map[string]string `json:"role_overrides"`
}

// HealSummary is the versioned JSON trailer of a heal run.
type HealSummary struct {
	Contract      Contract         `json:"contract"`
	SchemaVersion string           `json:"schema_version"`
	ToolVersion   string           `json:"tool_version"`
	Mode          string           `json:"mode"`
	InputFile     string           `json:"input_file"`
	OutputFiles   OutputFiles      `json:"output_files"`
	Rows          RowAccounting    `json:"rows"`
	Changes       ChangeAccounting `json:"changes"`
	Plan          HealPlanInfo     `json:"plan"`
	Assumptions   []string         `json:"assumptions"`
	RunSummary    RunSummary       `json:"run_summary"`
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

func padTo(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// WriteHealOutputs writes the three partitions plus the JSON summary next to
// each other in outDir, named after the input file's stem.
func WriteHealOutputs(inputPath, outDir string, result *heal.Result, opts heal.Options, sheet string) (*HealSummary, error) {
	if outDir == "" {
		outDir = filepath.Dir(inputPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	files := OutputFiles{
		Cleaned:    filepath.Join(outDir, stem+"_cleaned.csv"),
		Quarantine: filepath.Join(outDir, stem+"_quarantine.csv"),
		ChangeLog:  filepath.Join(outDir, stem+"_changelog.csv"),
		Summary:    filepath.Join(outDir, stem+"_heal_summary.json"),
	}
	width := len(result.Headers)

	cleanRows := make([][]string, 0, len(result.Clean)+1)
	cleanRows = append(cleanRows, append(append([]string(nil), result.Headers...), "was_modified", "needs_review"))
	for _, entry := range result.Clean {
		row := padTo(entry.Row, width)
		cleanRows = append(cleanRows, append(append([]string(nil), row...), boolCell(entry.WasModified), boolCell(entry.NeedsReview)))
	}
	if err := writeCSV(files.Cleaned, cleanRows); err != nil {
		return nil, err
	}

	quarantineRows := make([][]string, 0, len(result.Quarantine)+1)
	quarantineRows = append(quarantineRows, append(append([]string(nil), result.Headers...), "quarantine_reason"))
	for _, entry := range result.Quarantine {
		row := padTo(entry.Row, width)
		quarantineRows = append(quarantineRows, append(append([]string(nil), row...), entry.Reason))
	}
	if err := writeCSV(files.Quarantine, quarantineRows); err != nil {
		return nil, err
	}

	logRows := make([][]string, 0, len(result.Changes)+1)
	logRows = append(logRows, []string{
		"original_row_number", "column_affected", "original_value",
		"new_value", "action_taken", "reason",
	})
	for _, c := range result.Changes {
		logRows = append(logRows, []string{
			fmt.Sprintf("%d", c.RowNumber), c.Column, c.OriginalValue,
			c.NewValue, c.Action, c.Reason,
		})
	}
	if err := writeCSV(files.ChangeLog, logRows); err != nil {
		return nil, err
	}

	summary := BuildHealSummary(inputPath, files, result, opts, sheet)
	if err := writeJSON(files.Summary, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// BuildHealSummary assembles the heal summary without touching disk.
func BuildHealSummary(inputPath string, files OutputFiles, result *heal.Result, opts heal.Options, sheet string) *HealSummary {
	needsReview, modified := countReviewAndModified(result.Clean)

	roleOverrides := map[string]string{}
	var overrideKeys []int
	for idx := range opts.RoleOverrides {
		overrideKeys = append(overrideKeys, idx)
	}
	sort.Ints(overrideKeys)
	for _, idx := range overrideKeys {
		roleOverrides[fmt.Sprintf("%d", idx+1)] = opts.RoleOverrides[idx]
	}

	contract := BuildContract("sheetdoctor.heal_summary")
	s := &HealSummary{
		Contract:      contract,
		SchemaVersion: contract.Version,
		ToolVersion:   ToolVersion,
		Mode:          result.Mode,
		InputFile:     inputPath,
		OutputFiles:   files,
		Rows: RowAccounting{
			TotalIncludingHeader: result.TotalIn,
			CleanRows:            len(result.Clean),
			QuarantineRows:       len(result.Quarantine),
			NeedsReviewRows:      needsReview,
			ModifiedRows:         modified,
			DiscardedEmptyRows:   result.DiscardedEmpty,
			DuplicatesRemoved:    result.DuplicatesRemoved,
		},
		Changes: ChangeAccounting{
			Logged:                 len(result.Changes),
			ActionCounts:           result.ActionCounts,
			QuarantineReasonCounts: result.QuarantineReasonCounts,
		},
		Plan: HealPlanInfo{
			SheetName:         sheet,
			HeaderRowOverride: opts.HeaderRow,
			RoleOverrides:     roleOverrides,
		},
		Assumptions: result.Assumptions,
	}
	s.RunSummary = BuildRunSummary("sheetdoctor", "heal", inputPath, files.Cleaned, map[string]any{
		"mode":                   result.Mode,
		"total_including_header": result.TotalIn,
		"clean_rows":             len(result.Clean),
		"quarantine_rows":        len(result.Quarantine),
		"needs_review_rows":      needsReview,
		"modified_rows":          modified,
		"changes_logged":         len(result.Changes),
		"role_override_count":    len(roleOverrides),
	}, nil)
	return s
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteReportOutputs writes the text and JSON forms of a health report.
func WriteReportOutputs(inputPath, outDir string, r *HealthReport) (txtPath, jsonPath string, err error) {
	if outDir == "" {
		outDir = filepath.Dir(inputPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("mkdir output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	txtPath = filepath.Join(outDir, stem+"_report.txt")
	jsonPath = filepath.Join(outDir, stem+"_report.json")

	if err := os.WriteFile(txtPath, []byte(r.TextReport), 0o644); err != nil {
		return "", "", fmt.Errorf("write text report: %w", err)
	}
	if err := writeJSON(jsonPath, r); err != nil {
		return "", "", err
	}
	return txtPath, jsonPath, nil
}
