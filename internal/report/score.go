package report

import (
	"math"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/diagnose"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/heal"
	"github.com/KaramelBytes/sheetdoctor-cli/internal/profile"
)

// Score is a 0-100 health verdict with the deductions that produced it.
type Score struct {
	Score      int            `json:"score"`
	Label      string         `json:"label"`
	Deductions map[string]int `json:"deductions"`
	Metrics    ScoreMetrics   `json:"metrics"`
}

// ScoreMetrics exposes the raw counts behind each deduction.
type ScoreMetrics struct {
	OverallNullPercentage float64 `json:"overall_null_percentage"`
	EncodingIssueCount    int     `json:"encoding_issue_count"`
	StructuralIssueCount  int     `json:"structural_issue_count"`
	DateColumnsAffected   int     `json:"date_columns_affected"`
	SemanticIssueTypes    int     `json:"semantic_issue_types"`
}

// RecoverabilityScore scales the post-heal score by how much of the file
// survived into the clean partition.
type RecoverabilityScore struct {
	Score   int                   `json:"score"`
	Label   string                `json:"label"`
	Metrics RecoverabilityMetrics `json:"metrics"`
}

// RecoverabilityMetrics exposes the row counts behind the salvage ratio.
type RecoverabilityMetrics struct {
	CleanRows       int     `json:"clean_rows"`
	QuarantineRows  int     `json:"quarantine_rows"`
	NeedsReviewRows int     `json:"needs_review_rows"`
	ModifiedRows    int     `json:"modified_rows"`
	SalvageRatio    float64 `json:"salvage_ratio"`
}

var scoreLabels = []struct {
	threshold int
	text      string
}{
	{90, "Excellent - minor cleanup only"},
	{70, "Good - a few issues to address"},
	{50, "Fair - significant cleaning needed"},
	{30, "Poor - major surgery required"},
	{0, "Critical - severe data quality issues"},
}

// ScoreLabel maps a 0-100 score to its verdict text.
func ScoreLabel(score int) string {
	for _, entry := range scoreLabels {
		if score >= entry.threshold {
			return entry.text
		}
	}
	return scoreLabels[len(scoreLabels)-1].text
}

// CalcHealthScore deducts from 100 across six weighted categories. Each
// category is capped so one pathological dimension cannot zero the score on
// its own.
func CalcHealthScore(diag *diagnose.Report, analysis *profile.Analysis) Score {
	encodingIssues := 0
	if !diag.Encoding.IsUTF8 && diag.Encoding.Detected != "unknown" && diag.Encoding.Detected != "" {
		encodingIssues++
	}
	if len(diag.Encoding.SuspiciousChars) > 0 {
		encodingIssues++
	}
	encodingDeduction := minInt(20, encodingIssues*5)

	structuralIssues := 0
	if len(diag.ColumnCount.MisalignedRows) > 0 {
		structuralIssues++
	}
	if diag.EmptyRows.Count > 0 {
		structuralIssues++
	}
	if len(diag.DuplicateHeaders.DuplicateColumns) > 0 {
		structuralIssues++
	}
	if len(diag.DuplicateHeaders.RepeatedHeaderRows) > 0 {
		structuralIssues++
	}
	if len(diag.WhitespaceHeaders) > 0 {
		structuralIssues++
	}
	if len(diag.ColumnQuality.EmptyColumns) > 0 {
		structuralIssues++
	}
	if len(diag.ColumnQuality.SingleValueColumns) > 0 {
		structuralIssues++
	}
	structuralDeduction := minInt(30, structuralIssues*10)

	dateDeduction := minInt(20, len(diag.DateFormats)*5)

	missingPercentage := 0.0
	semanticIssueTypes := 0
	nearDupIssue := 0
	if analysis != nil {
		totalNulls := 0
		for _, col := range analysis.Columns {
			totalNulls += col.NullCount
		}
		totalCells := maxInt(1, analysis.TotalRows*maxInt(1, analysis.TotalColumns))
		missingPercentage = float64(totalNulls) / float64(totalCells) * 100
		semanticIssueTypes = len(analysis.IssueCounts)
		nearDupIssue = analysis.IssueCounts["Possible duplicates with slight differences"]
	}
	missingDeduction := minInt(15, int(math.Ceil(missingPercentage/5)))

	duplicateDeduction := 0
	if len(diag.DuplicateHeaders.DuplicateColumns) > 0 || len(diag.DuplicateHeaders.RepeatedHeaderRows) > 0 {
		duplicateDeduction += 5
	}
	if nearDupIssue > 0 {
		duplicateDeduction += 5
	}
	duplicateDeduction = minInt(10, duplicateDeduction)

	dataQualityDeduction := minInt(15, semanticIssueTypes*2)

	deductions := map[string]int{
		"encoding":     encodingDeduction,
		"structural":   structuralDeduction,
		"date_chaos":   dateDeduction,
		"missing_data": missingDeduction,
		"duplicates":   duplicateDeduction,
		"data_quality": dataQualityDeduction,
	}
	total := 0
	for _, d := range deductions {
		total += d
	}
	score := maxInt(0, 100-total)

	return Score{
		Score:      score,
		Label:      ScoreLabel(score),
		Deductions: deductions,
		Metrics: ScoreMetrics{
			OverallNullPercentage: math.Round(missingPercentage*100) / 100,
			EncodingIssueCount:    encodingIssues,
			StructuralIssueCount:  structuralIssues,
			DateColumnsAffected:   len(diag.DateFormats),
			SemanticIssueTypes:    semanticIssueTypes,
		},
	}
}

// CalcRecoverabilityScore answers "how much of this file is worth saving":
// the post-heal score scaled by the clean-to-total row ratio.
func CalcRecoverabilityScore(healed *heal.Result, postHeal Score) RecoverabilityScore {
	cleanRows := len(healed.Clean)
	quarantineRows := len(healed.Quarantine)
	totalRows := cleanRows + quarantineRows
	needsReview, modified := countReviewAndModified(healed.Clean)

	salvageRatio := 1.0
	if totalRows > 0 {
		salvageRatio = float64(cleanRows) / float64(totalRows)
	}
	score := int(math.Round(float64(postHeal.Score) * salvageRatio))
	score = maxInt(0, minInt(100, score))

	return RecoverabilityScore{
		Score: score,
		Label: ScoreLabel(score),
		Metrics: RecoverabilityMetrics{
			CleanRows:       cleanRows,
			QuarantineRows:  quarantineRows,
			NeedsReviewRows: needsReview,
			ModifiedRows:    modified,
			SalvageRatio:    math.Round(salvageRatio*10000) / 10000,
		},
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
