// Package profile infers what each column of a table likely contains, even
// when headers are weak or missing, and surfaces per-column quality issues.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// SampleCap bounds how many data rows feed column analysis.
const SampleCap = 2000

// ValueCount is one entry of a column's most-common-values list.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Column is the full profile of a single column.
type Column struct {
	Header           string             `json:"header"`
	Position         int                `json:"position"`
	DetectedType     string             `json:"detected_type"`
	TypeScores       map[string]float64 `json:"type_scores"`
	NullCount        int                `json:"null_count"`
	NullPercentage   float64            `json:"null_percentage"`
	UniqueCount      int                `json:"unique_count"`
	UniquePercentage float64            `json:"unique_percentage"`
	MostCommonValues []ValueCount       `json:"most_common_values"`
	MinValue         string             `json:"min_value,omitempty"`
	MaxValue         string             `json:"max_value,omitempty"`
	SampleValues     []string           `json:"sample_values"`
	HasMixedTypes    bool               `json:"has_mixed_types"`
	DateFormats      []string           `json:"date_formats,omitempty"`
	SuspectedIssues  []string           `json:"suspected_issues"`
}

// Analysis is the profile of a whole table.
type Analysis struct {
	Columns       []Column       `json:"columns"`
	TotalRows     int            `json:"total_rows"`
	TotalColumns  int            `json:"total_columns"`
	Sampled       bool           `json:"analysis_sampled"`
	DetectedTypes map[string]int `json:"detected_types"`
	IssueCounts   map[string]int `json:"issue_counts"`
}

func round2f(f float64) float64 {
	return math.Round(f*100) / 100
}

// inferColumnType resolves the column's dominant type from per-value scores,
// letting a header hint lower the evidence bar for its suggested type.
func inferColumnType(columnName string, atomicCounts map[string]int, nonNullTexts []string) string {
	nonNullCount := len(nonNullTexts)
	if nonNullCount == 0 {
		return TypeUnknown
	}

	score := map[string]float64{}
	for kind, count := range atomicCounts {
		score[kind] = float64(count) / float64(nonNullCount)
	}

	unique := map[string]bool{}
	totalLen := 0
	for _, text := range nonNullTexts {
		unique[text] = true
		totalLen += len(text)
	}
	uniqueCount := len(unique)
	avgLength := float64(totalLen) / float64(nonNullCount)
	hint := headerHint(columnName)

	switch {
	case hint == TypeFreeText && (avgLength >= 20 || score[TypeFreeText] >= 0.35):
		return TypeFreeText
	case hint == TypeCurrencyAmount && score[TypeCurrencyAmount]+score[TypePlainNumber] >= 0.6:
		return TypeCurrencyAmount
	case hint == TypeCurrencyCode && score[TypeCurrencyCode] >= 0.45:
		return TypeCurrencyCode
	case hint == TypeDate && score[TypeDate] >= 0.35:
		return TypeDate
	case hint == TypeName && score[TypeName] >= 0.35:
		return TypeName
	case hint == TypePercentage && score[TypePercentage]+score[TypePlainNumber] >= 0.6:
		return TypePercentage
	case hint == TypeCategorical && uniqueCount <= maxInt(16, nonNullCount*4/10):
		return TypeCategorical
	case hint == TypeBoolean && score[TypeBoolean] >= 0.5:
		return TypeBoolean
	case hint == TypeIDCode && score[TypeIDCode] >= 0.35:
		return TypeIDCode
	}

	switch {
	case score[TypeBoolean] >= 0.8 && uniqueCount <= 6:
		return TypeBoolean
	case score[TypeEmail] >= 0.6:
		return TypeEmail
	case score[TypePhone] >= 0.6:
		return TypePhone
	case score[TypeURL] >= 0.6:
		return TypeURL
	case score[TypeCurrencyCode] >= 0.7:
		return TypeCurrencyCode
	case score[TypeCountry] >= 0.7:
		return TypeCountry
	case score[TypePercentage] >= 0.7:
		return TypePercentage
	case score[TypeCurrencyAmount] >= 0.55:
		return TypeCurrencyAmount
	case score[TypeDate] >= 0.55:
		return TypeDate
	case score[TypePlainNumber] >= 0.75:
		return TypePlainNumber
	case score[TypeIDCode] >= 0.55 && float64(uniqueCount)/float64(nonNullCount) >= 0.6:
		return TypeIDCode
	case score[TypeName] >= 0.55:
		return TypeName
	case uniqueCount <= maxInt(12, nonNullCount/5) && avgLength <= 24:
		return TypeCategorical
	case avgLength >= 35 || score[TypeFreeText] >= 0.55:
		return TypeFreeText
	}
	return TypeUnknown
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func detectSuspectedIssues(rawValues, nonNullTexts []string, detectedType string, atomicTypes, dateLabels []string, numericValues []float64) []string {
	var issues []string
	nonNullCount := len(nonNullTexts)
	if nonNullCount == 0 {
		return issues
	}

	labelSet := map[string]bool{}
	for _, label := range dateLabels {
		if label != "" {
			labelSet[label] = true
		}
	}
	if len(labelSet) > 1 {
		issues = append(issues, "Mixed date formats detected")
	}

	whitespaceCount := 0
	for _, v := range rawValues {
		if !IsEffectiveNull(v) && edgeSpaceRE.MatchString(v) {
			whitespaceCount++
		}
	}
	if whitespaceCount > 0 {
		pct := math.Round(float64(whitespaceCount)/float64(nonNullCount)*1000) / 10
		issues = append(issues, fmt.Sprintf("Trailing/leading whitespace in %v%% of values", pct))
	}

	caseVariants := map[string]map[string]bool{}
	for _, v := range nonNullTexts {
		key := strings.ToLower(v)
		if caseVariants[key] == nil {
			caseVariants[key] = map[string]bool{}
		}
		caseVariants[key][v] = true
	}
	inconsistentCaps := false
	for _, variants := range caseVariants {
		if len(variants) > 1 {
			inconsistentCaps = true
			break
		}
	}
	if !inconsistentCaps {
		sigCounts := map[string]int{}
		for _, v := range nonNullTexts {
			if anyAlphaRE.MatchString(v) {
				sigCounts[capitalizationSignature(v)]++
			}
		}
		multi := 0
		for _, count := range sigCounts {
			if count >= 2 {
				multi++
			}
		}
		inconsistentCaps = multi > 1
	}
	if inconsistentCaps {
		issues = append(issues, "Inconsistent capitalisation")
	}

	canonicalVariants := map[string]map[string]bool{}
	for _, v := range nonNullTexts {
		canonical := canonicalText(v)
		if canonical == "" {
			continue
		}
		if canonicalVariants[canonical] == nil {
			canonicalVariants[canonical] = map[string]bool{}
		}
		canonicalVariants[canonical][strings.TrimSpace(v)] = true
	}
	for _, variants := range canonicalVariants {
		if len(variants) > 1 {
			issues = append(issues, "Possible duplicates with slight differences")
			break
		}
	}

	valueCounts := map[string]int{}
	top := 0
	for _, v := range nonNullTexts {
		key := strings.ToLower(strings.TrimSpace(v))
		valueCounts[key]++
		if valueCounts[key] > top {
			top = valueCounts[key]
		}
	}
	if float64(top)/float64(nonNullCount) >= 0.9 {
		issues = append(issues, "Values suspiciously all the same")
	}

	if len(numericValues) >= 5 {
		mean := 0.0
		for _, v := range numericValues {
			mean += v
		}
		mean /= float64(len(numericValues))
		variance := 0.0
		for _, v := range numericValues {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(numericValues))
		stddev := math.Sqrt(variance)
		if stddev > 0 {
			for _, v := range numericValues {
				if math.Abs(v-mean) > 3*stddev {
					issues = append(issues, "Outliers detected (values outside 3 standard deviations)")
					break
				}
			}
		}
	}

	piiTypes := map[string]bool{TypeEmail: true, TypePhone: true, TypeName: true}
	piiHits := 0
	for _, kind := range atomicTypes {
		if piiTypes[kind] {
			piiHits++
		}
	}
	if piiTypes[detectedType] || float64(piiHits)/float64(nonNullCount) >= 0.4 {
		issues = append(issues, "Possible PII detected (emails/phones/names)")
	}

	return issues
}

// AnalyzeColumn profiles one column from its raw cell values.
func AnalyzeColumn(header string, position int, values []string) Column {
	totalCount := len(values)
	var nonNullTexts []string
	var atomicTypes []string
	atomicCounts := map[string]int{}
	var dateLabels []string
	var numericValues []float64
	var dateValues []time.Time

	for _, raw := range values {
		if IsEffectiveNull(raw) {
			continue
		}
		text := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", ""))
		nonNullTexts = append(nonNullTexts, text)

		atomic := detectAtomicType(raw)
		atomicTypes = append(atomicTypes, atomic)
		atomicCounts[atomic]++

		if t, label, ok := maybeParseDate(raw); ok {
			dateValues = append(dateValues, t)
			dateLabels = append(dateLabels, label)
		}
		if pct, ok := maybeParsePercentage(raw); ok {
			numericValues = append(numericValues, pct)
		} else if n, ok := maybeParseNumber(raw); ok {
			numericValues = append(numericValues, n)
		}
	}

	nullCount := totalCount - len(nonNullTexts)
	nullPct := 0.0
	if totalCount > 0 {
		nullPct = round2f(float64(nullCount) / float64(totalCount) * 100)
	}

	detected := inferColumnType(header, atomicCounts, nonNullTexts)

	valueCounts := map[string]int{}
	var order []string
	for _, text := range nonNullTexts {
		if valueCounts[text] == 0 {
			order = append(order, text)
		}
		valueCounts[text]++
	}
	uniqueCount := len(valueCounts)
	uniquePct := 0.0
	if len(nonNullTexts) > 0 {
		uniquePct = round2f(float64(uniqueCount) / float64(len(nonNullTexts)) * 100)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return valueCounts[order[i]] > valueCounts[order[j]]
	})
	var mostCommon []ValueCount
	for i, v := range order {
		if i >= 5 {
			break
		}
		mostCommon = append(mostCommon, ValueCount{Value: v, Count: valueCounts[v]})
	}

	minMaterial := maxInt(2, (len(nonNullTexts)+4)/5)
	materialTypes := 0
	for kind, count := range atomicCounts {
		if kind != TypeUnknown && count >= minMaterial {
			materialTypes++
		}
	}

	minValue, maxValue := "", ""
	switch detected {
	case TypeCurrencyAmount, TypePlainNumber, TypePercentage:
		if len(numericValues) > 0 {
			lo, hi := numericValues[0], numericValues[0]
			for _, v := range numericValues[1:] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			minValue = strconv64(lo)
			maxValue = strconv64(hi)
		}
	case TypeDate:
		if len(dateValues) > 0 {
			lo, hi := dateValues[0], dateValues[0]
			for _, t := range dateValues[1:] {
				if t.Before(lo) {
					lo = t
				}
				if t.After(hi) {
					hi = t
				}
			}
			minValue = lo.Format("2006-01-02")
			maxValue = hi.Format("2006-01-02")
		}
	}

	typeScores := map[string]float64{}
	if len(nonNullTexts) > 0 {
		for _, kind := range TypeOrder {
			if count := atomicCounts[kind]; count > 0 {
				typeScores[kind] = round2f(float64(count) / float64(len(nonNullTexts)) * 100)
			}
		}
	}

	var formats []string
	seenFormats := map[string]bool{}
	for _, label := range dateLabels {
		if label != "" && !seenFormats[label] {
			seenFormats[label] = true
			formats = append(formats, label)
		}
	}

	samples := make([]string, 0, 3)
	seenSamples := map[string]bool{}
	for _, v := range nonNullTexts {
		if seenSamples[v] {
			continue
		}
		seenSamples[v] = true
		samples = append(samples, v)
		if len(samples) == 3 {
			break
		}
	}

	return Column{
		Header:           header,
		Position:         position,
		DetectedType:     detected,
		TypeScores:       typeScores,
		NullCount:        nullCount,
		NullPercentage:   nullPct,
		UniqueCount:      uniqueCount,
		UniquePercentage: uniquePct,
		MostCommonValues: mostCommon,
		MinValue:         minValue,
		MaxValue:         maxValue,
		SampleValues:     samples,
		HasMixedTypes:    materialTypes > 1,
		DateFormats:      formats,
		SuspectedIssues:  detectSuspectedIssues(values, nonNullTexts, detected, atomicTypes, dateLabels, numericValues),
	}
}

func strconv64(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}

// Analyze profiles every column of a table. Inputs beyond SampleCap rows are
// truncated and the result marked as sampled.
func Analyze(headers []string, rows [][]string) *Analysis {
	return AnalyzeWithCap(headers, rows, SampleCap)
}

// AnalyzeWithCap is Analyze with an explicit row sample cap.
func AnalyzeWithCap(headers []string, rows [][]string, sampleCap int) *Analysis {
	if sampleCap <= 0 {
		sampleCap = SampleCap
	}
	totalRows := len(rows)
	sampled := false
	if len(rows) > sampleCap {
		rows = rows[:sampleCap]
		sampled = true
	}

	analysis := &Analysis{
		TotalRows:     totalRows,
		TotalColumns:  len(headers),
		Sampled:       sampled,
		DetectedTypes: map[string]int{},
		IssueCounts:   map[string]int{},
	}

	for i, header := range headers {
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				values = append(values, row[i])
			} else {
				values = append(values, "")
			}
		}
		col := AnalyzeColumn(header, i, values)
		analysis.Columns = append(analysis.Columns, col)
		analysis.DetectedTypes[col.DetectedType]++
		for _, issue := range col.SuspectedIssues {
			analysis.IssueCounts[issue]++
		}
	}
	return analysis
}
