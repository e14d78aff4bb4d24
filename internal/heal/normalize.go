package heal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Canonical schema column positions.
const (
	colName = iota
	colDepartment
	colDate
	colAmount
	colCurrency
	colCategory
	colStatus
	colNotes
	nSchemaCols
)

var (
	isoDateTimeRE  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T`)
	slashDMYRE     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	slashYMDRE     = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	hyphenDMYRE    = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	hyphenShortRE  = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{2})$`)
	monthNameRE    = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{1,2})\s+(\d{4})$`)
	unixStampRE    = regexp.MustCompile(`^\d{10}$`)
	excelSerialRE  = regexp.MustCompile(`^\d{5}$`)
	accountingRE   = regexp.MustCompile(`^\(([0-9,. ]+)\)$`)
	commaDecimalRE = regexp.MustCompile(`,\d{2}$`)
	currencySymRE  = regexp.MustCompile(`[€£¥₹$]`)
	trailingCodeRE = regexp.MustCompile(`(?i)\s*(USD|EUR|GBP|INR|CAD|AUD)\s*$`)
	currencyCodeRE = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|INR|CAD|AUD|JPY)\b`)
	isoCodeRE      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// excelEpoch is the Windows 1900 date system epoch (with the Lotus leap-year
// quirk already folded in).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate rewrites a date-like value to canonical YYYY-MM-DD.
// Already-canonical and empty values pass through unchanged. Ambiguous
// 4-digit-year dates assume day-first and fall back to month-first;
// two-digit-year hyphen dates are treated as US-style MM-DD-YY with years
// below 50 pivoting to 20xx.
func NormalizeDate(value string, rules *Rules) (string, bool, string) {
	v := strings.TrimSpace(value)
	if v == "" || isoDateRE.MatchString(v) {
		return v, false, ""
	}

	if m := isoDateTimeRE.FindStringSubmatch(v); m != nil {
		return m[1], true, "ISO 8601 datetime truncated to date-only"
	}

	if m := slashDMYRE.FindStringSubmatch(v); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		for _, try := range []struct {
			day, month int
			label      string
		}{{a, b, "DD/MM/YYYY"}, {b, a, "MM/DD/YYYY"}} {
			if t, ok := validDate(year, try.month, try.day); ok {
				return fmtDate(t), true,
					try.label + " normalised to ISO YYYY-MM-DD (day-first assumed for ambiguous dates)"
			}
		}
		return v, false, ""
	}

	if m := slashYMDRE.FindStringSubmatch(v); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := validDate(year, month, day); ok {
			return fmtDate(t), true, "Slash-separated ISO-style date normalised to YYYY-MM-DD"
		}
		return v, false, ""
	}

	if m := hyphenDMYRE.FindStringSubmatch(v); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		for _, try := range []struct {
			day, month int
			label      string
		}{{a, b, "DD-MM-YYYY"}, {b, a, "MM-DD-YYYY"}} {
			if t, ok := validDate(year, try.month, try.day); ok {
				return fmtDate(t), true,
					try.label + " normalised to ISO YYYY-MM-DD (day-first assumed for ambiguous dates)"
			}
		}
		return v, false, ""
	}

	if m := hyphenShortRE.FindStringSubmatch(v); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		yr, _ := strconv.Atoi(m[3])
		year := 1900 + yr
		if yr < 50 {
			year = 2000 + yr
		}
		for _, try := range []struct {
			day, month int
			label      string
		}{{b, a, "MM-DD-YY"}, {a, b, "DD-MM-YY"}} {
			if t, ok := validDate(year, try.month, try.day); ok {
				return fmtDate(t), true,
					try.label + " normalised to ISO YYYY-MM-DD (20xx assumed for year < 50)"
			}
		}
		return v, false, ""
	}

	if m := monthNameRE.FindStringSubmatch(v); m != nil {
		if month, ok := rules.MonthNames[strings.ToLower(m[1])]; ok {
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if t, ok := validDate(year, month, day); ok {
				return fmtDate(t), true, "Written-out month name normalised to ISO YYYY-MM-DD"
			}
		}
		return v, false, ""
	}

	if unixStampRE.MatchString(v) {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return fmtDate(time.Unix(secs, 0).UTC()), true, "Unix timestamp (UTC) converted to YYYY-MM-DD"
		}
		return v, false, ""
	}

	if excelSerialRE.MatchString(v) {
		serial, _ := strconv.Atoi(v)
		if serial >= 40000 && serial <= 55000 {
			return fmtDate(excelEpoch.AddDate(0, 0, serial)), true,
				"Excel serial date (Windows epoch 1899-12-30) converted to YYYY-MM-DD"
		}
	}

	return v, false, ""
}

// NormalizeAmount strips currency markers and separators and reformats to
// two decimal places. Placeholder values (N/A, TBD, ...) are cleared.
func NormalizeAmount(value string, rules *Rules) (string, bool, string) {
	v := strings.TrimSpace(value)
	orig := v
	if rules.AmountNullTokens[strings.ToLower(v)] {
		return "", orig != "", "Non-numeric placeholder left blank (N/A / TBD)"
	}

	v = currencySymRE.ReplaceAllString(v, "")
	v = strings.TrimSpace(trailingCodeRE.ReplaceAllString(v, ""))

	if m := accountingRE.FindStringSubmatch(v); m != nil {
		v = "-" + m[1]
	}

	desc := "Amount normalised to 2 decimal places"
	hasComma := strings.Contains(v, ",")
	hasDot := strings.Contains(v, ".")
	switch {
	case hasComma && hasDot:
		if strings.Index(v, ".") < strings.Index(v, ",") {
			v = strings.ReplaceAll(v, ".", "")
			v = strings.ReplaceAll(v, ",", ".")
			desc = "European decimal format (1.200,00) converted"
		} else {
			v = strings.ReplaceAll(v, ",", "")
			desc = "US thousands separator removed"
		}
	case hasComma:
		if commaDecimalRE.MatchString(v) {
			v = strings.ReplaceAll(v, ",", ".")
			desc = "Comma decimal separator converted to period"
		} else {
			v = strings.ReplaceAll(v, ",", "")
			desc = "Thousands-separator comma removed"
		}
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(v, " ", ""), 64)
	if err != nil {
		return orig, false, ""
	}
	result := fmt.Sprintf("%.2f", f)
	return result, result != orig, desc
}

// ParseAmountLike reports whether a value parses as an amount after
// normalization, returning the parsed number.
func ParseAmountLike(value string, rules *Rules) (float64, bool) {
	if strings.TrimSpace(value) == "" {
		return 0, false
	}
	normalized, changed, _ := NormalizeAmount(value, rules)
	candidate := strings.TrimSpace(value)
	if changed || normalized != value {
		candidate = normalized
	}
	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeCurrency maps symbols and spelled-out currency names to ISO
// 3-letter codes. Unrecognized tokens are left untouched.
func NormalizeCurrency(value string, rules *Rules) (string, bool, string) {
	v := strings.TrimSpace(value)
	if v == "" {
		return v, false, ""
	}
	cleaned := v
	for sym := range rules.CurrencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	for _, lookup := range []string{strings.ToLower(cleaned), strings.ToLower(v)} {
		if code, ok := rules.CurrencyMap[lookup]; ok {
			return code, code != v, fmt.Sprintf("Currency '%s' standardised to ISO 3-letter code", v)
		}
	}
	if isoCodeRE.MatchString(cleaned) {
		return cleaned, cleaned != v, "Currency uppercased to ISO format"
	}
	return v, false, ""
}

// titleCase upper-cases the first letter of every word, where a word starts
// after any non-letter, matching spreadsheet-style Title Case.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// NormalizeName collapses whitespace, inverts "Last, First" order, and
// title-cases the tokens.
func NormalizeName(value string) (string, bool, string) {
	v := strings.Join(strings.Fields(value), " ")
	if v == "" {
		return v, false, ""
	}
	var reasons []string
	if strings.Join(strings.Fields(value), " ") != value {
		reasons = append(reasons, "extra whitespace collapsed")
	}
	if idx := strings.Index(v, ","); idx >= 0 {
		last := strings.TrimSpace(v[:idx])
		first := strings.TrimSpace(v[idx+1:])
		if first != "" {
			v = first + " " + last
			reasons = append(reasons, "Last, First → First Last")
		}
	}
	result := titleCase(v)
	if result == value {
		return result, false, ""
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "name title-cased")
	}
	return result, true, "Name normalised: " + strings.Join(reasons, "; ")
}

// NormalizeStatus maps synonyms to the canonical Approved/Rejected/Pending
// set; anything unrecognized is title-cased.
func NormalizeStatus(value string, rules *Rules) (string, bool, string) {
	v := strings.TrimSpace(value)
	result, ok := rules.StatusMap[strings.ToLower(v)]
	if !ok {
		result = v
		if v != "" {
			result = titleCase(v)
		}
	}
	if result == v {
		return result, false, ""
	}
	return result, true, fmt.Sprintf("Status '%s' standardised to canonical form", v)
}

// ExtractCurrencyFromText pulls an ISO code or symbol out of a combined
// token like "$1,200 USD", returning the residual amount text and the code.
// The amount is empty when no parseable number remains.
func ExtractCurrencyFromText(value string, rules *Rules) (string, string) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", ""
	}

	currency := ""
	if m := currencyCodeRE.FindStringSubmatch(raw); m != nil {
		currency = strings.ToUpper(m[1])
	} else {
		for sym, code := range rules.CurrencySymbols {
			if strings.Contains(raw, sym) {
				currency = code
				break
			}
		}
	}

	candidate := currencyCodeRE.ReplaceAllString(raw, "")
	for sym := range rules.CurrencySymbols {
		candidate = strings.ReplaceAll(candidate, sym, "")
	}
	candidate = strings.Join(strings.Fields(candidate), " ")

	if currency != "" {
		if _, ok := ParseAmountLike(candidate, rules); ok {
			return candidate, currency
		}
	}
	return "", currency
}

// splitAmountCurrency untangles combined amount+currency tokens between the
// two given columns: a currency marker found inside the amount field moves
// to the currency field, and an amount found inside the currency field moves
// back to the amount field.
func splitAmountCurrency(row []string, rowNum int, headers []string, amountIdx, currencyIdx int, rules *Rules) ([]string, []Change) {
	if amountIdx < 0 || currencyIdx < 0 || amountIdx >= len(row) || currencyIdx >= len(row) {
		return row, nil
	}
	out := append([]string(nil), row...)
	var changes []Change
	amountLabel := columnLabel(headers, amountIdx)
	currencyLabel := columnLabel(headers, currencyIdx)

	amountVal := out[amountIdx]
	currencyVal := out[currencyIdx]

	extractedAmount, extractedCurrency := ExtractCurrencyFromText(amountVal, rules)
	if extractedCurrency != "" && strings.TrimSpace(currencyVal) == "" {
		if extractedAmount != "" && extractedAmount != amountVal {
			out[amountIdx] = extractedAmount
			changes = append(changes, Change{
				RowNumber:     rowNum,
				Column:        amountLabel,
				OriginalValue: amountVal,
				NewValue:      extractedAmount,
				Action:        ActionFixed,
				Reason:        "Currency marker removed from amount-like field so the numeric value can be parsed cleanly",
			})
		}
		out[currencyIdx] = extractedCurrency
		changes = append(changes, Change{
			RowNumber:     rowNum,
			Column:        currencyLabel,
			OriginalValue: currencyVal,
			NewValue:      extractedCurrency,
			Action:        ActionFixed,
			Reason:        "Currency recovered from amount-like field",
		})
		currencyVal = out[currencyIdx]
	}

	if strings.TrimSpace(out[amountIdx]) == "" && strings.TrimSpace(currencyVal) != "" {
		extractedAmount, extractedCurrency := ExtractCurrencyFromText(currencyVal, rules)
		if extractedAmount != "" {
			originalCurrency := out[currencyIdx]
			out[amountIdx] = extractedAmount
			changes = append(changes, Change{
				RowNumber:     rowNum,
				Column:        amountLabel,
				OriginalValue: "",
				NewValue:      extractedAmount,
				Action:        ActionFixed,
				Reason:        "Amount recovered from currency-like field",
			})
			if extractedCurrency != "" {
				out[currencyIdx] = extractedCurrency
				changes = append(changes, Change{
					RowNumber:     rowNum,
					Column:        currencyLabel,
					OriginalValue: originalCurrency,
					NewValue:      extractedCurrency,
					Action:        ActionFixed,
					Reason:        "Currency standardised after recovering combined amount/currency text",
				})
			}
		}
	}

	return out, changes
}

// applySchemaNormalizations runs the per-column normalizers against the
// canonical 8-column schema.
func applySchemaNormalizations(row []string, rowNum int, rules *Rules) ([]string, []Change) {
	out := append([]string(nil), row...)
	var changes []Change

	out, splitChanges := splitAmountCurrency(out, rowNum, rules.CanonicalHeaders, colAmount, colCurrency, rules)
	changes = append(changes, splitChanges...)

	maybeFix := func(idx int, label string, fn func(string) (string, bool, string)) {
		orig := out[idx]
		val, changed, reason := fn(orig)
		if changed {
			out[idx] = val
			changes = append(changes, Change{
				RowNumber: rowNum, Column: label,
				OriginalValue: orig, NewValue: val,
				Action: ActionFixed, Reason: reason,
			})
		}
	}

	maybeFix(colDate, "Date", func(s string) (string, bool, string) { return NormalizeDate(s, rules) })
	maybeFix(colAmount, "Amount", func(s string) (string, bool, string) { return NormalizeAmount(s, rules) })
	maybeFix(colCurrency, "Currency", func(s string) (string, bool, string) { return NormalizeCurrency(s, rules) })
	maybeFix(colName, "Employee Name", NormalizeName)
	maybeFix(colStatus, "Status", func(s string) (string, bool, string) { return NormalizeStatus(s, rules) })

	for _, tc := range []struct {
		idx    int
		label  string
		reason string
	}{
		{colDepartment, "Department", "Department title-cased"},
		{colCategory, "Category", "Category title-cased"},
	} {
		orig := out[tc.idx]
		fixed := titleCase(strings.Join(strings.Fields(orig), " "))
		if fixed != orig {
			out[tc.idx] = fixed
			changes = append(changes, Change{
				RowNumber: rowNum, Column: tc.label,
				OriginalValue: orig, NewValue: fixed,
				Action: ActionFixed, Reason: tc.reason,
			})
		}
	}

	return out, changes
}

// applySemanticNormalizations dispatches normalizers by inferred column role.
func applySemanticNormalizations(row []string, rowNum int, headers []string, plan *Plan, rules *Rules) ([]string, []Change) {
	out := append([]string(nil), row...)
	var changes []Change

	out, splitChanges := splitAmountCurrency(out, rowNum, headers, plan.AmountIdx, plan.CurrencyIdx, rules)
	changes = append(changes, splitChanges...)

	for idx, role := range plan.RolesByIndex {
		if idx >= len(out) {
			continue
		}
		original := out[idx]
		var (
			newValue string
			changed  bool
			reason   string
		)
		switch role {
		case RoleDate:
			newValue, changed, reason = NormalizeDate(original, rules)
		case RoleAmount:
			newValue, changed, reason = NormalizeAmount(original, rules)
		case RoleIdentifier:
			newValue = strings.Join(strings.Fields(original), " ")
			changed = newValue != original
			reason = "Identifier spacing normalised"
		case RoleMeasurement:
			newValue = strings.Join(strings.Fields(original), " ")
			changed = newValue != original
			reason = "Measurement text spacing normalised"
		case RoleCurrency:
			newValue, changed, reason = NormalizeCurrency(original, rules)
		case RoleName:
			newValue, changed, reason = NormalizeName(original)
		case RoleStatus:
			newValue, changed, reason = NormalizeStatus(original, rules)
		case RoleDepartment, RoleCategory:
			newValue = titleCase(strings.Join(strings.Fields(original), " "))
			changed = newValue != original
			reason = titleCase(role) + " title-cased"
		default:
			continue
		}
		if changed {
			out[idx] = newValue
			changes = append(changes, Change{
				RowNumber: rowNum, Column: columnLabel(headers, idx),
				OriginalValue: original, NewValue: newValue,
				Action: ActionFixed, Reason: reason,
			})
		}
	}

	return out, changes
}

func hasReviewToken(row []string, rules *Rules) bool {
	for _, cell := range row {
		v := strings.TrimSpace(cell)
		if v != "" && rules.ReviewTokens[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

// needsReviewSchema flags a row for human review when the amount is blank,
// the date did not normalize, or structure had to be repaired.
func needsReviewSchema(row []string, wasPadded bool, rules *Rules) bool {
	if row[colAmount] == "" {
		return true
	}
	if d := row[colDate]; d != "" && !isoDateRE.MatchString(d) {
		return true
	}
	return wasPadded
}

func needsReviewSemantic(row []string, structureChanged bool, plan *Plan, rules *Rules) bool {
	if structureChanged {
		return true
	}
	if plan.AmountIdx >= 0 && plan.AmountIdx < len(row) && strings.TrimSpace(row[plan.AmountIdx]) == "" {
		return true
	}
	if plan.DateIdx >= 0 && plan.DateIdx < len(row) {
		if d := strings.TrimSpace(row[plan.DateIdx]); d != "" && !isoDateRE.MatchString(d) {
			return true
		}
	}
	return hasReviewToken(row, rules)
}

func needsReviewGeneric(row []string, structureChanged bool, rules *Rules) bool {
	if structureChanged {
		return true
	}
	return hasReviewToken(row, rules)
}

// forwardFillGaps repairs merged-cell style export gaps: short blank runs in
// a fill-down column inherit the nearest preceding value when the row is
// otherwise populated. Filled rows are flagged for review.
func forwardFillGaps(clean []CleanRow, changelog *[]Change, headers []string, fillColumns []int, rules *Rules) {
	applyFill := func(gaps []int, lastValue string, colIdx int) {
		if lastValue == "" || len(gaps) == 0 || len(gaps) > rules.FillDownMaxGap {
			return
		}
		for _, gi := range gaps {
			entry := &clean[gi]
			if colIdx >= len(entry.Row) || strings.TrimSpace(entry.Row[colIdx]) != "" {
				continue
			}
			entry.Row[colIdx] = lastValue
			entry.WasModified = true
			entry.NeedsReview = true
			*changelog = append(*changelog, Change{
				RowNumber:     entry.RowNum,
				Column:        columnLabel(headers, colIdx),
				OriginalValue: "",
				NewValue:      lastValue,
				Action:        ActionFixed,
				Reason:        "Blank categorical cell forward-filled to repair a merged-cell style export gap",
			})
		}
	}

	for _, colIdx := range fillColumns {
		lastValue := ""
		var gaps []int

		for i := range clean {
			if colIdx >= len(clean[i].Row) {
				continue
			}
			cell := strings.TrimSpace(clean[i].Row[colIdx])
			otherFilled := 0
			for j, c := range clean[i].Row {
				if j != colIdx && strings.TrimSpace(c) != "" {
					otherFilled++
				}
			}

			if cell != "" {
				if lastValue != "" && len(gaps) > 0 && len(gaps) <= rules.FillDownMaxGap {
					applyFill(gaps, lastValue, colIdx)
				}
				lastValue = cell
				gaps = nil
				continue
			}

			if lastValue != "" && otherFilled >= 2 {
				gaps = append(gaps, i)
			} else {
				gaps = nil
			}
		}
		applyFill(gaps, lastValue, colIdx)
	}
}
