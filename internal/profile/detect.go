package profile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Detected column types, ordered from most to least specific.
const (
	TypeDate           = "date"
	TypeCurrencyAmount = "currency/amount"
	TypePlainNumber    = "plain number"
	TypePercentage     = "percentage"
	TypeEmail          = "email address"
	TypePhone          = "phone number"
	TypeURL            = "URL"
	TypeCountry        = "country name or code"
	TypeCurrencyCode   = "currency code"
	TypeName           = "name"
	TypeCategorical    = "categorical"
	TypeFreeText       = "free text"
	TypeBoolean        = "boolean"
	TypeIDCode         = "ID/code"
	TypeUnknown        = "unknown"
)

// TypeOrder fixes the reporting order of type scores.
var TypeOrder = []string{
	TypeDate, TypeCurrencyAmount, TypePlainNumber, TypePercentage,
	TypeEmail, TypePhone, TypeURL, TypeCountry, TypeCurrencyCode,
	TypeName, TypeCategorical, TypeFreeText, TypeBoolean, TypeIDCode,
	TypeUnknown,
}

type dateFormat struct {
	layout  string
	pattern *regexp.Regexp
	label   string
}

// DateFormats are the recognized textual date shapes; the label names the
// format in diagnostics. Ambiguous shapes share a pattern and are tried in
// order.
var DateFormats = []dateFormat{
	{"2006-01-02", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "YYYY-MM-DD"},
	{"2006/01/02", regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), "YYYY/MM/DD"},
	{"2/1/2006", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "DD/MM/YYYY"},
	{"1/2/2006", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "MM/DD/YYYY"},
	{"2-1-2006", regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "DD-MM-YYYY"},
	{"1-2-2006", regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "MM-DD-YYYY"},
	{"2/1/06", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`), "DD/MM/YY"},
	{"1/2/06", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`), "MM/DD/YY"},
	{"2-1-06", regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{2}$`), "DD-MM-YY"},
	{"1-2-06", regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{2}$`), "MM-DD-YY"},
	{"January 2 2006", regexp.MustCompile(`^[A-Za-z]+\s+\d{1,2}\s+\d{4}$`), "Month D YYYY"},
	{"Jan 2 2006", regexp.MustCompile(`^[A-Za-z]{3}\s+\d{1,2}\s+\d{4}$`), "Mon D YYYY"},
	{"2 January 2006", regexp.MustCompile(`^\d{1,2}\s+[A-Za-z]+\s+\d{4}$`), "D Month YYYY"},
	{"2 Jan 2006", regexp.MustCompile(`^\d{1,2}\s+[A-Za-z]{3}\s+\d{4}$`), "D Mon YYYY"},
	{"January 2, 2006", regexp.MustCompile(`^[A-Za-z]+\s+\d{1,2},\s+\d{4}$`), "Month D, YYYY"},
	{"Jan 2, 2006", regexp.MustCompile(`^[A-Za-z]{3}\s+\d{1,2},\s+\d{4}$`), "Mon D, YYYY"},
}

var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var booleanTrue = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true, "approved": true, "approve": true,
}

var booleanFalse = map[string]bool{
	"false": true, "no": true, "n": true, "0": true, "rejected": true, "reject": true,
}

var currencyCodes = map[string]bool{
	"AED": true, "AUD": true, "BRL": true, "CAD": true, "CHF": true, "CNY": true,
	"EUR": true, "GBP": true, "HKD": true, "INR": true, "JPY": true, "KRW": true,
	"MXN": true, "NOK": true, "NZD": true, "PLN": true, "RUB": true, "SEK": true,
	"SGD": true, "TRY": true, "USD": true, "ZAR": true,
}

var countryCodes = map[string]bool{
	"AE": true, "AU": true, "BR": true, "CA": true, "CH": true, "CN": true,
	"DE": true, "ES": true, "FR": true, "GB": true, "HK": true, "IN": true,
	"IT": true, "JP": true, "KR": true, "MX": true, "NL": true, "NZ": true,
	"PL": true, "RU": true, "SE": true, "SG": true, "TR": true, "US": true,
	"ZA": true,
}

var countryNames = map[string]bool{
	"argentina": true, "australia": true, "austria": true, "belgium": true,
	"brazil": true, "canada": true, "china": true, "denmark": true,
	"finland": true, "france": true, "germany": true, "hong kong": true,
	"india": true, "indonesia": true, "ireland": true, "italy": true,
	"japan": true, "kenya": true, "malaysia": true, "mexico": true,
	"netherlands": true, "new zealand": true, "norway": true, "pakistan": true,
	"poland": true, "portugal": true, "russia": true, "saudi arabia": true,
	"singapore": true, "south africa": true, "south korea": true, "spain": true,
	"sweden": true, "switzerland": true, "thailand": true, "turkey": true,
	"uae": true, "uk": true, "united arab emirates": true, "united kingdom": true,
	"united states": true, "united states of america": true, "usa": true,
	"us": true, "vietnam": true,
}

var nameStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "before": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true, "on": true,
	"or": true, "said": true, "the": true, "to": true, "with": true, "was": true,
	"were": true, "worth": true,
}

var (
	emailRE        = regexp.MustCompile(`(?i)^[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}$`)
	phoneRE        = regexp.MustCompile(`^(?:\+?\d{1,3}[\s().-]*)?(?:\(?\d{2,4}\)?[\s().-]*)?\d[\d\s().-]{5,}\d$`)
	urlRE          = regexp.MustCompile(`(?i)^(?:https?://|www\.)\S+$`)
	percentRE      = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?%$`)
	idCodeRE       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-]{2,}$`)
	nameRE         = regexp.MustCompile("^[A-Za-z][A-Za-z'`.-]*(?:\\s+[A-Za-z][A-Za-z'`.-]*){1,3}$")
	edgeSpaceRE    = regexp.MustCompile(`^\s+|\s+$`)
	nonAlnumRE     = regexp.MustCompile(`[^a-z0-9]+`)
	leadingCodeRE  = regexp.MustCompile(`^[A-Z]{3}`)
	trailingCodeRE = regexp.MustCompile(`(?i)(USD|EUR|INR|GBP|JPY|CAD|AUD|AED|CHF)$`)
	embeddedCodeRE = regexp.MustCompile(`(?i)\b(?:USD|EUR|INR|GBP|JPY|CAD|AUD|AED|CHF)\b`)
	numberRE       = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
	alphaTokenRE   = regexp.MustCompile(`[A-Za-z]+`)
	anyAlphaRE     = regexp.MustCompile(`[A-Za-z]`)
	anyDigitRE     = regexp.MustCompile(`\d`)
)

var sentinelNulls = map[string]bool{
	"": true, "na": true, "n/a": true, "none": true, "null": true,
	"nil": true, "nan": true, "tbd": true, "-": true,
}

// IsEffectiveNull reports whether a cell is empty or a sentinel null token.
func IsEffectiveNull(value string) bool {
	return sentinelNulls[strings.ToLower(strings.TrimSpace(value))]
}

func canonicalText(value string) string {
	return nonAlnumRE.ReplaceAllString(strings.ToLower(value), "")
}

var headerHints = []struct {
	needle   string
	inferred string
}{
	{"date", TypeDate},
	{"amount", TypeCurrencyAmount},
	{"price", TypeCurrencyAmount},
	{"cost", TypeCurrencyAmount},
	{"currency", TypeCurrencyCode},
	{"email", TypeEmail},
	{"phone", TypePhone},
	{"mobile", TypePhone},
	{"url", TypeURL},
	{"website", TypeURL},
	{"country", TypeCountry},
	{"nation", TypeCountry},
	{"name", TypeName},
	{"notes", TypeFreeText},
	{"comment", TypeFreeText},
	{"description", TypeFreeText},
	{"message", TypeFreeText},
	{"status", TypeCategorical},
	{"type", TypeCategorical},
	{"category", TypeCategorical},
	{"id", TypeIDCode},
	{"code", TypeIDCode},
	{"percent", TypePercentage},
	{"ratio", TypePercentage},
	{"flag", TypeBoolean},
	{"is_", TypeBoolean},
	{"has_", TypeBoolean},
}

func headerHint(columnName string) string {
	lowered := strings.ToLower(strings.TrimSpace(columnName))
	for _, h := range headerHints {
		if strings.Contains(lowered, h.needle) {
			return h.inferred
		}
	}
	return ""
}

func looksLikeName(text string) bool {
	if !nameRE.MatchString(text) {
		return false
	}
	tokens := strings.Fields(text)
	capitalized := 0
	allUpper := true
	for _, token := range tokens {
		lower := strings.Trim(strings.ToLower(token), ".'`-")
		if nameStopwords[lower] {
			return false
		}
		r := []rune(token)[0]
		if unicode.IsUpper(r) {
			capitalized++
		}
		if strings.ToUpper(token) != token {
			allUpper = false
		}
	}
	return capitalized >= 2 || allUpper
}

// maybeParseNumber parses numeric text after stripping currency markers,
// handling accounting negatives and both comma conventions.
func maybeParseNumber(value string) (float64, bool) {
	text := strings.TrimSpace(value)
	if text == "" || sentinelNulls[strings.ToLower(text)] {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = strings.TrimSpace(text[1 : len(text)-1])
	}

	text = strings.ReplaceAll(text, " ", "")
	text = leadingCodeRE.ReplaceAllString(text, "")
	text = trailingCodeRE.ReplaceAllString(text, "")
	for _, sym := range []string{"$", "€", "£", "¥", "₹"} {
		text = strings.ReplaceAll(text, sym, "")
	}

	hasComma := strings.Contains(text, ",")
	hasDot := strings.Contains(text, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(text, ",") > strings.LastIndex(text, ".") {
			text = strings.ReplaceAll(text, ".", "")
			text = strings.ReplaceAll(text, ",", ".")
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	case strings.Count(text, ",") == 1 && !hasDot:
		parts := strings.SplitN(text, ",", 2)
		switch len(parts[1]) {
		case 2:
			text = parts[0] + "." + parts[1]
		case 3:
			text = parts[0] + parts[1]
		}
	default:
		text = strings.ReplaceAll(text, ",", "")
	}

	if !numberRE.MatchString(text) {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

func maybeParsePercentage(value string) (float64, bool) {
	text := strings.TrimSpace(value)
	if !percentRE.MatchString(text) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(text, "%"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// maybeParseDate tries each known textual date shape in order and returns
// the parsed time with the format label that matched.
func maybeParseDate(value string) (time.Time, string, bool) {
	text := strings.TrimSpace(value)
	if text == "" || sentinelNulls[strings.ToLower(text)] {
		return time.Time{}, "", false
	}
	for _, df := range DateFormats {
		if !df.pattern.MatchString(text) {
			continue
		}
		if t, err := time.Parse(df.layout, text); err == nil {
			return t, df.label, true
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), "inferred datetime", true
		}
	}
	return time.Time{}, "", false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func hasCurrencyMarker(text string) bool {
	if strings.ContainsAny(text, "$€£¥₹") {
		return true
	}
	return embeddedCodeRE.MatchString(text)
}

func idCodeLike(text string) bool {
	return idCodeRE.MatchString(text) && anyAlphaRE.MatchString(text) && anyDigitRE.MatchString(text)
}

// detectAtomicType classifies a single cell value.
func detectAtomicType(value string) string {
	text := strings.TrimSpace(value)
	lower := strings.ToLower(text)
	if text == "" || sentinelNulls[lower] {
		return TypeUnknown
	}
	if _, _, ok := maybeParseDate(text); ok {
		return TypeDate
	}
	if emailRE.MatchString(text) {
		return TypeEmail
	}
	if urlRE.MatchString(text) {
		return TypeURL
	}
	if phoneRE.MatchString(text) && countDigits(text) >= 7 {
		return TypePhone
	}
	if _, ok := maybeParsePercentage(text); ok {
		return TypePercentage
	}
	if currencyCodes[strings.ToUpper(text)] {
		return TypeCurrencyCode
	}
	if countryNames[lower] || countryCodes[strings.ToUpper(text)] {
		return TypeCountry
	}
	if booleanTrue[lower] || booleanFalse[lower] {
		return TypeBoolean
	}
	if hasCurrencyMarker(text) {
		if _, ok := maybeParseNumber(text); ok {
			return TypeCurrencyAmount
		}
	}
	if _, ok := maybeParseNumber(text); ok {
		return TypePlainNumber
	}
	if idCodeLike(text) {
		return TypeIDCode
	}
	if looksLikeName(text) {
		return TypeName
	}
	return TypeFreeText
}

func capitalizationSignature(value string) string {
	tokens := alphaTokenRE.FindAllString(value, -1)
	if len(tokens) == 0 {
		return "other"
	}
	upper, lower, title := true, true, true
	for _, token := range tokens {
		if strings.ToUpper(token) != token {
			upper = false
		}
		if strings.ToLower(token) != token {
			lower = false
		}
		if len(token) > 1 {
			head, tail := token[:1], token[1:]
			if strings.ToUpper(head) != head || strings.ToLower(tail) != tail {
				title = false
			}
		}
	}
	switch {
	case upper:
		return "upper"
	case lower:
		return "lower"
	case title:
		return "title"
	}
	return "mixed"
}
