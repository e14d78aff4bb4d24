package heal

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/profile"
)

// Plan is the semantic column mapping inferred (or overridden) before
// healing a non-canonical file. A disabled plan means generic mode.
type Plan struct {
	Enabled           bool               `json:"enabled"`
	RolesByIndex      map[int]string     `json:"roles_by_index"`
	ConfidenceByIndex map[int]float64    `json:"confidence_by_index"`
	LabelIdx          int                `json:"label_idx"`
	AmountIdx         int                `json:"amount_idx"`
	CurrencyIdx       int                `json:"currency_idx"`
	DateIdx           int                `json:"date_idx"`
	FillDownIndices   []int              `json:"fill_down_indices"`
}

func disabledPlan() *Plan {
	return &Plan{
		RolesByIndex:      map[int]string{},
		ConfidenceByIndex: map[int]float64{},
		AmountIdx:         -1,
		CurrencyIdx:       -1,
		DateIdx:           -1,
	}
}

var (
	nonAlnumRE     = regexp.MustCompile(`[^a-z0-9]+`)
	idCodeWordRE   = regexp.MustCompile(`\b(id|code)\b`)
	nameWordRE     = regexp.MustCompile(`\bname\b`)
	deptWordRE     = regexp.MustCompile(`\b(ward|clinic|division|department|dept|team|unit|function|location)\b`)
	monthDayYearRE = regexp.MustCompile(`\b(month|day|year)\b`)
	dateWordRE     = regexp.MustCompile(`\b(date|dob|dofb)\b`)
)

func headerText(header string) string {
	return strings.TrimSpace(nonAlnumRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(header)), " "))
}

func headerMatchesRole(header, role string, rules *Rules) bool {
	lowered := headerText(header)
	for _, token := range rules.RoleHeaderHints[role] {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

func statusLikeColumn(col *profile.Column, rules *Rules) bool {
	var values []string
	for _, entry := range col.MostCommonValues {
		if v := strings.TrimSpace(entry.Value); v != "" {
			values = append(values, strings.ToLower(v))
		}
	}
	if len(values) == 0 {
		return false
	}
	hits := 0
	for _, v := range values {
		if _, ok := rules.StatusMap[v]; ok {
			hits++
		}
	}
	min := len(values) / 2
	if min < 1 {
		min = 1
	}
	return hits >= min
}

func averageSampleLength(col *profile.Column) float64 {
	total, n := 0, 0
	for _, v := range col.SampleValues {
		if v != "" {
			total += len(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// roleScores combines the profiler's detected type with header text hints
// into a per-role confidence score, capped at 0.99.
func roleScores(header string, col *profile.Column, rules *Rules) map[string]float64 {
	detected := profile.TypeUnknown
	if col != nil {
		detected = col.DetectedType
	}
	text := headerText(header)
	scores := map[string]float64{}
	for _, role := range rolePriority {
		scores[role] = 0
	}

	switch detected {
	case profile.TypeName:
		scores[RoleName] += 0.45
	case profile.TypeDate:
		scores[RoleDate] += 0.72
	case profile.TypeIDCode:
		scores[RoleIdentifier] += 0.72
	case profile.TypeCurrencyAmount:
		scores[RoleAmount] += 0.72
		scores[RoleMeasurement] += 0.24
	case profile.TypePlainNumber:
		scores[RoleAmount] += 0.42
		scores[RoleMeasurement] += 0.45
	case profile.TypePercentage:
		scores[RoleMeasurement] += 0.35
	case profile.TypeCurrencyCode:
		scores[RoleCurrency] += 0.72
	case profile.TypeBoolean:
		scores[RoleStatus] += 0.20
	case profile.TypeCategorical:
		scores[RoleStatus] += 0.12
		scores[RoleDepartment] += 0.12
		scores[RoleCategory] += 0.12
	case profile.TypeFreeText:
		scores[RoleNotes] += 0.20
	}

	for role := range scores {
		if !headerMatchesRole(header, role, rules) {
			continue
		}
		switch role {
		case RoleIdentifier:
			if idCodeWordRE.MatchString(text) {
				scores[role] += 0.82
			} else {
				scores[role] += 0.68
			}
		case RoleName:
			if nameWordRE.MatchString(text) {
				scores[role] += 0.82
			} else {
				scores[role] += 0.68
			}
		case RoleCurrency:
			scores[role] += 0.68
		case RoleDate, RoleAmount:
			scores[role] += 0.32
		case RoleMeasurement:
			scores[role] += 0.72
		case RoleDepartment:
			if deptWordRE.MatchString(text) {
				scores[role] += 0.82
			} else {
				scores[role] += 0.68
			}
		default:
			scores[role] += 0.68
		}
	}

	if col != nil && statusLikeColumn(col, rules) {
		scores[RoleStatus] += 0.28
	}
	if detected == profile.TypeFreeText && col != nil && averageSampleLength(col) >= 20 {
		scores[RoleNotes] += 0.12
	}

	// Dampeners: a header hinting at another structured role rarely names a
	// person, and Month/Day/Year columns are components rather than dates.
	if !headerMatchesRole(header, RoleName, rules) {
		for _, other := range []string{RoleIdentifier, RoleMeasurement, RoleDepartment, RoleCategory, RoleStatus, RoleDate} {
			if headerMatchesRole(header, other, rules) {
				if scores[RoleName] > 0.40 {
					scores[RoleName] = 0.40
				}
				break
			}
		}
	}
	if monthDayYearRE.MatchString(text) && !dateWordRE.MatchString(text) {
		if scores[RoleDate] > 0.40 {
			scores[RoleDate] = 0.40
		}
	}
	if headerMatchesRole(header, RoleMeasurement, rules) {
		if scores[RoleNotes] > 0.20 {
			scores[RoleNotes] = 0.20
		}
	}

	for role, score := range scores {
		if score > 0.99 {
			scores[role] = 0.99
		}
	}
	return scores
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// BuildPlan profiles up to 1000 cleaned preview rows and greedily assigns
// each semantic role to its best-scoring unclaimed column. Explicit role
// overrides win over inference; "ignore" unmaps a column.
func BuildPlan(headers []string, rawRows [][]string, delimiter string, roleOverrides map[int]string, rules *Rules) *Plan {
	nCols := len(headers)
	var preview [][]string
	for i, raw := range rawRows {
		if i >= 1000 {
			break
		}
		aligned, _, _ := fixAlignmentGeneric(raw, i+2, nCols, delimiter)
		cleaned, _ := cleanRow(aligned, i+2, headers)
		preview = append(preview, cleaned)
	}
	if len(preview) == 0 {
		return disabledPlan()
	}

	analysis := profile.Analyze(headers, preview)
	colByHeader := map[string]*profile.Column{}
	for i := range analysis.Columns {
		colByHeader[analysis.Columns[i].Header] = &analysis.Columns[i]
	}
	candidateScores := make([]map[string]float64, nCols)
	for i, header := range headers {
		candidateScores[i] = roleScores(header, colByHeader[header], rules)
	}

	assignments := map[int]string{}
	confidences := map[int]float64{}
	taken := map[int]bool{}

	for _, role := range rolePriority {
		bestIdx, bestScore := -1, 0.0
		for idx := 0; idx < nCols; idx++ {
			if taken[idx] {
				continue
			}
			if s := candidateScores[idx][role]; s > bestScore {
				bestIdx, bestScore = idx, s
			}
		}
		if bestIdx >= 0 && bestScore >= rules.RoleThresholds[role] {
			assignments[bestIdx] = role
			confidences[bestIdx] = round2(bestScore)
			taken[bestIdx] = true
		}
	}

	assignUniqueType := func(role, detectedType string, minimum float64) {
		for _, assigned := range assignments {
			if assigned == role {
				return
			}
		}
		candidate := -1
		for idx, header := range headers {
			if taken[idx] {
				continue
			}
			col := colByHeader[header]
			if col != nil && col.DetectedType == detectedType {
				if candidate >= 0 {
					return
				}
				candidate = idx
			}
		}
		if candidate < 0 {
			return
		}
		if score := candidateScores[candidate][role]; score >= minimum {
			assignments[candidate] = role
			confidences[candidate] = round2(score)
			taken[candidate] = true
		}
	}

	assignUniqueType(RoleIdentifier, profile.TypeIDCode, 0.58)
	assignUniqueType(RoleName, profile.TypeName, 0.58)
	assignUniqueType(RoleDate, profile.TypeDate, 0.58)
	assignUniqueType(RoleAmount, profile.TypeCurrencyAmount, 0.58)
	assignUniqueType(RoleCurrency, profile.TypeCurrencyCode, 0.58)
	assignUniqueType(RoleNotes, profile.TypeFreeText, 0.55)

	// Measurement can repeat across columns (readings, scores, rates).
	for idx := 0; idx < nCols; idx++ {
		if taken[idx] {
			continue
		}
		if score := candidateScores[idx][RoleMeasurement]; score >= rules.RoleThresholds[RoleMeasurement] {
			assignments[idx] = RoleMeasurement
			confidences[idx] = round2(score)
			taken[idx] = true
		}
	}

	for idx, role := range roleOverrides {
		if idx < 0 || idx >= nCols {
			continue
		}
		delete(assignments, idx)
		delete(confidences, idx)
		if role == "ignore" {
			continue
		}
		for assignedIdx, assignedRole := range assignments {
			if assignedRole == role {
				delete(assignments, assignedIdx)
				delete(confidences, assignedIdx)
			}
		}
		assignments[idx] = role
		confidences[idx] = 1.0
	}

	primary := map[string]bool{}
	for _, role := range assignments {
		primary[role] = true
	}
	countIn := func(roles ...string) int {
		n := 0
		for _, r := range roles {
			if primary[r] {
				n++
			}
		}
		return n
	}
	enabled := false
	if primary[RoleAmount] && countIn(RoleName, RoleDate, RoleCurrency, RoleStatus, RoleDepartment, RoleCategory) >= 2 {
		enabled = true
	} else if countIn(RoleIdentifier, RoleName, RoleDate, RoleStatus, RoleDepartment, RoleCategory, RoleNotes, RoleMeasurement) >= 3 &&
		countIn(RoleIdentifier, RoleDate, RoleMeasurement) >= 1 {
		enabled = true
	}
	if !enabled {
		return disabledPlan()
	}

	findRole := func(role string) int {
		for idx, assigned := range assignments {
			if assigned == role {
				return idx
			}
		}
		return -1
	}
	labelIdx := 0
	for _, role := range []string{RoleName, RoleIdentifier, RoleDepartment, RoleCategory, RoleNotes} {
		if idx := findRole(role); idx >= 0 {
			labelIdx = idx
			break
		}
	}
	var fillDown []int
	for idx, role := range assignments {
		switch role {
		case RoleDepartment, RoleCategory, RoleStatus, RoleCurrency:
			fillDown = append(fillDown, idx)
		}
	}

	return &Plan{
		Enabled:           true,
		RolesByIndex:      assignments,
		ConfidenceByIndex: confidences,
		LabelIdx:          labelIdx,
		AmountIdx:         findRole(RoleAmount),
		CurrencyIdx:       findRole(RoleCurrency),
		DateIdx:           findRole(RoleDate),
		FillDownIndices:   fillDown,
	}
}

func parseISODate(s string) (time.Time, bool) {
	if !isoDateRE.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dayDelta(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// flagNearDuplicates marks rows whose key columns match exactly and whose
// dates fall within the near-duplicate window. Both rows stay in the clean
// output; neither is dropped.
func flagNearDuplicates(clean []CleanRow, changelog *[]Change, keyIndices []int, dateIdx, labelIdx int, keyDesc string, rules *Rules) {
	if dateIdx < 0 || len(keyIndices) < 2 {
		return
	}
	index := map[string]int{}
	for i := range clean {
		row := clean[i].Row
		parts := make([]string, len(keyIndices))
		for k, ki := range keyIndices {
			if ki < len(row) {
				parts[k] = row[ki]
			}
		}
		key := strings.Join(parts, "\x1f")
		j, seen := index[key]
		if !seen {
			index[key] = i
			continue
		}
		prev := &clean[j]
		entry := &clean[i]
		if dateIdx >= len(prev.Row) || dateIdx >= len(entry.Row) {
			continue
		}
		d1, d2 := prev.Row[dateIdx], entry.Row[dateIdx]
		t1, ok1 := parseISODate(d1)
		t2, ok2 := parseISODate(d2)
		if !ok1 || !ok2 {
			continue
		}
		delta := dayDelta(t1, t2)
		if delta > rules.NearDuplicateDayWindow {
			continue
		}
		prev.NeedsReview = true
		entry.NeedsReview = true
		for _, pair := range []struct {
			flagged     *CleanRow
			otherDate   string
			otherRowNum int
		}{{entry, d1, prev.RowNum}, {prev, d2, entry.RowNum}} {
			label := ""
			if labelIdx < len(pair.flagged.Row) {
				label = pair.flagged.Row[labelIdx]
			}
			*changelog = append(*changelog, Change{
				RowNumber:     pair.flagged.RowNum,
				Column:        "[row]",
				OriginalValue: label,
				Action:        ActionFlagged,
				Reason: fmt.Sprintf("Near-duplicate: same %s; date %s differs by %d day(s) from row %d (%s)",
					keyDesc, pair.flagged.Row[dateIdx], delta, pair.otherRowNum, pair.otherDate),
			})
		}
	}
}
