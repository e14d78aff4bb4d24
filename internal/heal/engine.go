package heal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

// ErrNotEnoughRows is returned when a table has no data rows to heal.
var ErrNotEnoughRows = errors.New("file is empty or has only a header")

// Options controls a healing run. Zero values mean full auto-detection.
type Options struct {
	// HeaderRow forces the 1-based header row instead of detecting it.
	HeaderRow int
	// RoleOverrides pins column roles by 0-based index; "ignore" unmaps.
	RoleOverrides map[int]string
	Rules         *Rules
}

// Result is the complete outcome of a healing run: the three output
// partitions plus the row accounting that ties them back to the input.
type Result struct {
	Mode    string   `json:"mode"`
	Headers []string `json:"headers"`

	Clean      []CleanRow      `json:"clean"`
	Quarantine []QuarantineRow `json:"quarantine"`
	Changes    []Change        `json:"changes"`

	TotalIn           int `json:"total_rows_in"`
	DiscardedEmpty    int `json:"discarded_empty_rows"`
	DuplicatesRemoved int `json:"duplicates_removed"`

	ActionCounts           map[string]int `json:"action_counts"`
	QuarantineReasonCounts map[string]int `json:"quarantine_reason_counts"`
	Assumptions            []string       `json:"assumptions"`
	Plan                   *Plan          `json:"semantic_plan,omitempty"`
}

var schemaAssumptions = []string{
	"Rows that still contain Excel formulas as text (for example '=SUM(...)') are quarantined because they are not stable data values",
	"Ambiguous DD/MM vs MM/DD dates: day-first assumed; fallback to month-first if day-first is impossible",
	"MM-DD-YY / DD-MM-YY two-digit years: month-first assumed; fallback to day-first if impossible; 2000-2049 for YY < 50, 1950-1999 for YY >= 50",
	"Unix timestamps: interpreted as UTC; converted to YYYY-MM-DD",
	"Excel serial dates: Windows epoch (1899-12-30); range 40,000-55,000 treated as dates",
	"European decimal 1.200,00: detected when period precedes comma; converted to 1200.00",
	"Combined values like '$1,200 USD' are split so Amount keeps the numeric value and Currency keeps the ISO code",
	"Blank / N/A / TBD amounts: cleared to empty string and flagged needs_review=TRUE",
	"Symbol+code combos like 'INR ₹' keep the ISO code and drop the symbol",
	"Department abbreviations are kept as-is (expanding them requires a lookup table)",
	"Short blank runs in categorical columns are forward-filled when they look like merged-cell export gaps; filled rows are flagged for review",
	"Rows with long single-cell prose are treated as notes/metadata rather than transactional data",
	"Rows labelled TOTAL/Subtotal/SUM are quarantined when the amount matches the running total closely enough to look calculated",
	"Near-duplicate rows (same Name/Amount/Currency/Category, date within 2 days): both kept, both flagged",
	"Exact duplicates: first occurrence kept; subsequent occurrences removed and logged",
	"Short rows (< 8 columns): padded with empty strings; flagged needs_review=TRUE",
	"Sparse rows below 50% filled columns are quarantined",
	"Completely empty rows are discarded without a quarantine entry",
}

var genericAssumptions = []string{
	"Rows that still contain Excel formulas as text are quarantined because they are not stable data values",
	"Delimiter is auto-detected from the file content (comma/semicolon/tab/pipe)",
	"Rows with overflow columns are repaired by merging overflow into the last column",
	"Rows with missing trailing columns are padded with empty strings",
	"Repeated header rows and subtotal/total structural rows are quarantined",
	"Long one-cell prose rows are treated as notes rather than tabular data",
	"Rows before a detected header are moved to File Metadata entries in the Change Log",
	"BOM/null bytes/line breaks/smart quotes are normalised in text cells",
	"Exact duplicate rows are removed (first occurrence kept)",
	"Completely empty rows are discarded without a quarantine entry",
}

var semanticAssumptions = append(append([]string(nil), genericAssumptions...),
	"When headers are non-standard, likely semantic roles are inferred from the column values and header hints",
	"Date-like columns are normalised to YYYY-MM-DD when confidence is high enough",
	"Amount-like and currency-like columns are normalised even when their headers are not exact schema matches",
	"Status-like, department-like, and category-like columns are title-cased or canonicalised when their semantics are clear enough",
	"Near-duplicate detection uses inferred semantic key columns instead of fixed schema names",
)

// Heal runs the full pipeline on a loaded table: preprocessing, mode
// selection, row classification and repair, and the post-pass extras.
func Heal(tbl *table.Table, opts Options) (*Result, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if len(tbl.Rows) < 2 {
		return nil, ErrNotEnoughRows
	}

	totalIn := len(tbl.Rows)
	rows, preChanges := preprocessRows(tbl.Rows, opts.HeaderRow, rules)
	if len(rows) < 2 {
		return nil, fmt.Errorf("file is empty after metadata/header detection")
	}

	delimiter := ","
	if tbl.Meta.Delimiter != 0 {
		delimiter = string(tbl.Meta.Delimiter)
	}

	var res *Result
	if rules.IsCanonicalHeader(rows[0]) && len(opts.RoleOverrides) == 0 {
		res = processSchemaSpecific(rows, preChanges, rules)
	} else {
		res = processGeneric(rows, delimiter, preChanges, opts.RoleOverrides, rules)
	}
	res.TotalIn = totalIn

	res.ActionCounts = map[string]int{}
	for _, c := range res.Changes {
		res.ActionCounts[c.Action]++
	}
	res.QuarantineReasonCounts = map[string]int{}
	for _, q := range res.Quarantine {
		res.QuarantineReasonCounts[q.Reason]++
	}
	return res, nil
}

func conformWidth(row []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}

func firstNonEmptyCell(row []string) string {
	for _, c := range row {
		if c != "" {
			return c
		}
	}
	return "[empty]"
}

func quarantineChange(rowNum int, cls, columnHint, rowID, reason string) Change {
	logReason := reason
	if cls == classFormula {
		logReason = "formula_residue: Excel formula found, not data"
	}
	return Change{
		RowNumber:     rowNum,
		Column:        columnHint,
		OriginalValue: truncateText(rowID, 60),
		Action:        ActionQuarantined,
		Reason:        logReason,
	}
}

func processSchemaSpecific(rows [][]string, initial []Change, rules *Rules) *Result {
	headers := append([]string(nil), rules.CanonicalHeaders...)
	headerSig := headerSignature(rows[0])

	res := &Result{
		Mode:        ModeSchemaSpecific,
		Headers:     headers,
		Changes:     append([]Change(nil), initial...),
		Assumptions: schemaAssumptions,
	}
	seenExact := map[string]int{}
	runningTotal := 0.0
	dataRows := rows[1:]

	for i, raw := range dataRows {
		rowNum := i + 2

		cls := classifyRawRow(raw, headerSig, rules)
		if cls == classEmpty {
			res.DiscardedEmpty++
			continue
		}
		if cls != classNormal {
			reason := schemaQuarantineReasons[cls]
			qRow := conformWidth(raw, nSchemaCols)
			columnHint := "[row]"
			if cls == classFormula {
				if ok, label := detectFormulaColumn(raw, headers); ok {
					columnHint = label
				} else {
					columnHint = "formula_residue"
				}
			}
			res.Quarantine = append(res.Quarantine, QuarantineRow{Row: qRow, RowNum: rowNum, Reason: reason})
			res.Changes = append(res.Changes, quarantineChange(rowNum, cls, columnHint, firstNonEmptyCell(qRow), reason))
			continue
		}

		aligned, alignChg := fixAlignment(raw, rowNum)
		wasPadded := alignChg != nil && strings.Contains(strings.ToLower(alignChg.Reason), "padded")
		if alignChg != nil {
			res.Changes = append(res.Changes, *alignChg)
		}

		cleaned, cellChgs := cleanRow(aligned, rowNum, headers)
		res.Changes = append(res.Changes, cellChgs...)

		fixed, normChgs := applySchemaNormalizations(cleaned, rowNum, rules)
		res.Changes = append(res.Changes, normChgs...)

		labelCell := fixed[colName]
		if labelCell == "" {
			labelCell = fixed[colDepartment]
		}
		if labelCell == "" {
			labelCell = fixed[colCategory]
		}
		if rowAmountTotalish(labelCell, fixed[colAmount], runningTotal, rules) ||
			sparseTotalLabelRow(fixed, colName, colAmount, rules) {
			res.Quarantine = append(res.Quarantine, QuarantineRow{Row: fixed, RowNum: rowNum, Reason: ReasonCalculatedSubtotal})
			res.Changes = append(res.Changes, Change{
				RowNumber: rowNum, Column: "Amount",
				OriginalValue: fixed[colAmount],
				Action:        ActionQuarantined,
				Reason:        ReasonCalculatedSubtotal,
			})
			continue
		}

		wasModified := alignChg != nil || len(cellChgs) > 0 || len(normChgs) > 0

		key := strings.Join(fixed, "\x1f")
		if firstNum, dup := seenExact[key]; dup {
			res.DuplicatesRemoved++
			res.Changes = append(res.Changes, Change{
				RowNumber: rowNum, Column: "[row]",
				OriginalValue: fixed[0],
				Action:        ActionRemoved,
				Reason:        fmt.Sprintf("Exact duplicate of row %d", firstNum),
			})
			continue
		}
		seenExact[key] = rowNum

		res.Clean = append(res.Clean, CleanRow{
			Row:         fixed,
			RowNum:      rowNum,
			WasModified: wasModified,
			NeedsReview: needsReviewSchema(fixed, wasPadded, rules),
		})
		if amount, ok := ParseAmountLike(fixed[colAmount], rules); ok {
			runningTotal += amount
		}
	}

	if len(dataRows) <= rules.LargeFileSkipExtras {
		fillCols := []int{colDepartment, colCategory, colStatus, colCurrency}
		forwardFillGaps(res.Clean, &res.Changes, headers, fillCols, rules)
		flagNearDuplicates(res.Clean, &res.Changes,
			[]int{colName, colAmount, colCurrency, colCategory},
			colDate, colName, "Name/Amount/Currency/Category", rules)
	}
	return res
}

func processGeneric(rows [][]string, delimiter string, initial []Change, roleOverrides map[int]string, rules *Rules) *Result {
	headers, headerChgs := normalizeHeaders(rows[0])
	nCols := len(headers)
	headerSig := headerSignature(headers)
	plan := BuildPlan(headers, rows[1:], delimiter, roleOverrides, rules)

	mode := ModeGeneric
	assumptions := genericAssumptions
	if plan.Enabled {
		mode = ModeSemantic
		assumptions = semanticAssumptions
	}

	res := &Result{
		Mode:        mode,
		Headers:     headers,
		Changes:     append(append([]Change(nil), initial...), headerChgs...),
		Assumptions: assumptions,
		Plan:        plan,
	}
	seenExact := map[string]int{}
	runningTotal := 0.0

	amountIdx := plan.AmountIdx
	if amountIdx < 0 {
		for i, header := range headers {
			lower := strings.ToLower(header)
			if strings.Contains(lower, "amount") || strings.Contains(lower, "total") {
				amountIdx = i
				break
			}
		}
	}
	labelIdx := 0
	if plan.Enabled {
		labelIdx = plan.LabelIdx
	}

	for i, raw := range rows[1:] {
		rowNum := i + 2

		cls := classifyRawRowGeneric(raw, headerSig, nCols, rules)
		if cls == classEmpty {
			res.DiscardedEmpty++
			continue
		}
		if cls != classNormal {
			reason := genericQuarantineReasons[cls]
			qRow := conformWidth(raw, nCols)
			columnHint := "[row]"
			if cls == classFormula {
				if ok, label := detectFormulaColumn(raw, headers); ok {
					columnHint = label
				} else {
					columnHint = "formula_residue"
				}
			}
			res.Quarantine = append(res.Quarantine, QuarantineRow{Row: qRow, RowNum: rowNum, Reason: reason})
			res.Changes = append(res.Changes, quarantineChange(rowNum, cls, columnHint, firstNonEmptyCell(qRow), reason))
			continue
		}

		aligned, alignChg, structureChanged := fixAlignmentGeneric(raw, rowNum, nCols, delimiter)
		if alignChg != nil {
			res.Changes = append(res.Changes, *alignChg)
		}

		cleaned, cellChgs := cleanRow(aligned, rowNum, headers)
		res.Changes = append(res.Changes, cellChgs...)

		var semChgs []Change
		if plan.Enabled {
			cleaned, semChgs = applySemanticNormalizations(cleaned, rowNum, headers, plan, rules)
			res.Changes = append(res.Changes, semChgs...)
		}
		wasModified := alignChg != nil || len(cellChgs) > 0 || len(semChgs) > 0

		labelText := ""
		if labelIdx < len(cleaned) {
			labelText = cleaned[labelIdx]
		}
		amountText := ""
		if amountIdx >= 0 && amountIdx < len(cleaned) {
			amountText = cleaned[amountIdx]
		}
		if amountIdx >= 0 && (rowAmountTotalish(labelText, amountText, runningTotal, rules) ||
			sparseTotalLabelRow(cleaned, labelIdx, amountIdx, rules)) {
			res.Quarantine = append(res.Quarantine, QuarantineRow{Row: cleaned, RowNum: rowNum, Reason: ReasonCalculatedSubtotal})
			res.Changes = append(res.Changes, Change{
				RowNumber: rowNum, Column: columnLabel(headers, amountIdx),
				OriginalValue: amountText,
				Action:        ActionQuarantined,
				Reason:        ReasonCalculatedSubtotal,
			})
			continue
		}

		key := strings.Join(cleaned, "\x1f")
		if firstNum, dup := seenExact[key]; dup {
			res.DuplicatesRemoved++
			first := ""
			if len(cleaned) > 0 {
				first = cleaned[0]
			}
			res.Changes = append(res.Changes, Change{
				RowNumber: rowNum, Column: "[row]",
				OriginalValue: first,
				Action:        ActionRemoved,
				Reason:        fmt.Sprintf("Exact duplicate of row %d", firstNum),
			})
			continue
		}
		seenExact[key] = rowNum

		needsReview := needsReviewGeneric(cleaned, structureChanged, rules)
		if plan.Enabled {
			needsReview = needsReviewSemantic(cleaned, structureChanged, plan, rules)
		}
		res.Clean = append(res.Clean, CleanRow{
			Row:         cleaned,
			RowNum:      rowNum,
			WasModified: wasModified,
			NeedsReview: needsReview,
		})
		if amountIdx >= 0 && amountIdx < len(cleaned) {
			if amount, ok := ParseAmountLike(cleaned[amountIdx], rules); ok {
				runningTotal += amount
			}
		}
	}

	if plan.Enabled && len(plan.FillDownIndices) > 0 && len(rows)-1 <= rules.LargeFileSkipExtras {
		forwardFillGaps(res.Clean, &res.Changes, headers, plan.FillDownIndices, rules)
		var keyIndices []int
		for idx, role := range plan.RolesByIndex {
			switch role {
			case RoleName, RoleAmount, RoleCurrency, RoleCategory, RoleDepartment:
				keyIndices = append(keyIndices, idx)
			}
		}
		flagNearDuplicates(res.Clean, &res.Changes, keyIndices, plan.DateIdx, plan.LabelIdx,
			"semantic key columns", rules)
	}
	return res
}

// PlanColumn is one row of an inspection report: the role a column would
// get and with what confidence.
type PlanColumn struct {
	ColumnIndex int     `json:"column_index"`
	Header      string  `json:"header"`
	Role        string  `json:"role"`
	Confidence  float64 `json:"confidence"`
}

// PlanComparison lines up the detected role, any override, and the final
// role for one column.
type PlanComparison struct {
	ColumnIndex        int     `json:"column_index"`
	Header             string  `json:"header"`
	DetectedRole       string  `json:"detected_role"`
	DetectedConfidence float64 `json:"detected_confidence"`
	OverrideRole       string  `json:"override_role"`
	FinalRole          string  `json:"final_role"`
	FinalConfidence    float64 `json:"final_confidence"`
}

// Inspection previews a healing run without performing it: detected header
// position, effective headers, candidate mode, and the semantic mapping.
type Inspection struct {
	Delimiter               string           `json:"delimiter"`
	OriginalRowsTotal       int              `json:"original_rows_total"`
	DetectedHeaderRowNumber int              `json:"detected_header_row_number"`
	DetectedHeaderBandRows  []int            `json:"detected_header_band_rows"`
	MetadataRowsRemoved     int              `json:"metadata_rows_removed"`
	HeaderBandMerged        bool             `json:"header_band_merged"`
	EffectiveHeaders        []string         `json:"effective_headers"`
	HealingModeCandidate    string           `json:"healing_mode_candidate"`
	SuggestedColumns        []PlanColumn     `json:"suggested_semantic_columns"`
	Columns                 []PlanColumn     `json:"semantic_columns"`
	Comparison              []PlanComparison `json:"semantic_comparison"`
	AppliedRoleOverrides    map[string]string `json:"applied_role_overrides"`
}

func planColumns(headers []string, plan *Plan) []PlanColumn {
	var cols []PlanColumn
	for idx := 0; idx < len(headers); idx++ {
		role, ok := plan.RolesByIndex[idx]
		if !ok {
			continue
		}
		cols = append(cols, PlanColumn{
			ColumnIndex: idx + 1,
			Header:      headers[idx],
			Role:        role,
			Confidence:  plan.ConfidenceByIndex[idx],
		})
	}
	return cols
}

func planComparison(headers []string, suggested, effective *Plan, overrides map[int]string) []PlanComparison {
	rows := make([]PlanComparison, 0, len(headers))
	for idx, header := range headers {
		rows = append(rows, PlanComparison{
			ColumnIndex:        idx + 1,
			Header:             header,
			DetectedRole:       suggested.RolesByIndex[idx],
			DetectedConfidence: suggested.ConfidenceByIndex[idx],
			OverrideRole:       overrides[idx],
			FinalRole:          effective.RolesByIndex[idx],
			FinalConfidence:    effective.ConfidenceByIndex[idx],
		})
	}
	return rows
}

var schemaRoleOrder = []string{
	RoleName, RoleDepartment, RoleDate, RoleAmount,
	RoleCurrency, RoleCategory, RoleStatus, RoleNotes,
}

// InspectPlan dry-runs header detection and role inference against a loaded
// table and reports what a healing run would do.
func InspectPlan(tbl *table.Table, opts Options) (*Inspection, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	if len(tbl.Rows) == 0 {
		return nil, ErrNotEnoughRows
	}

	headerIdx := detectHeaderRowIndex(tbl.Rows, opts.HeaderRow, rules)
	bandStart := detectHeaderBandStart(tbl.Rows, headerIdx, rules)
	rows, preChanges := preprocessRows(tbl.Rows, opts.HeaderRow, rules)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no usable rows remain after preprocessing")
	}

	metadataRemoved := 0
	bandMerged := false
	for _, c := range preChanges {
		switch c.Column {
		case "[file metadata]":
			metadataRemoved++
		case "[header band]":
			bandMerged = true
		}
	}
	bandRows := make([]int, 0, headerIdx-bandStart+1)
	for n := bandStart + 1; n <= headerIdx+1; n++ {
		bandRows = append(bandRows, n)
	}

	delimiter := ","
	if tbl.Meta.Delimiter != 0 {
		delimiter = string(tbl.Meta.Delimiter)
	}

	insp := &Inspection{
		Delimiter:               delimiter,
		OriginalRowsTotal:       len(tbl.Rows),
		DetectedHeaderRowNumber: headerIdx + 1,
		DetectedHeaderBandRows:  bandRows,
		MetadataRowsRemoved:     metadataRemoved,
		HeaderBandMerged:        bandMerged,
		AppliedRoleOverrides:    map[string]string{},
	}
	for idx, role := range opts.RoleOverrides {
		insp.AppliedRoleOverrides[fmt.Sprintf("%d", idx+1)] = role
	}

	rawHeader := rows[0]
	if rules.IsCanonicalHeader(rawHeader) && len(opts.RoleOverrides) == 0 {
		headers := append([]string(nil), rules.CanonicalHeaders...)
		insp.EffectiveHeaders = headers
		insp.HealingModeCandidate = ModeSchemaSpecific
		for idx, role := range schemaRoleOrder {
			col := PlanColumn{ColumnIndex: idx + 1, Header: headers[idx], Role: role, Confidence: 0.99}
			insp.SuggestedColumns = append(insp.SuggestedColumns, col)
			insp.Columns = append(insp.Columns, col)
			insp.Comparison = append(insp.Comparison, PlanComparison{
				ColumnIndex: idx + 1, Header: headers[idx],
				DetectedRole: role, DetectedConfidence: 0.99,
				FinalRole: role, FinalConfidence: 0.99,
			})
		}
		return insp, nil
	}

	headers, _ := normalizeHeaders(rawHeader)
	suggested := BuildPlan(headers, rows[1:], delimiter, nil, rules)
	effective := BuildPlan(headers, rows[1:], delimiter, opts.RoleOverrides, rules)

	insp.EffectiveHeaders = headers
	insp.HealingModeCandidate = ModeGeneric
	if effective.Enabled {
		insp.HealingModeCandidate = ModeSemantic
	}
	insp.SuggestedColumns = planColumns(headers, suggested)
	insp.Columns = planColumns(headers, effective)
	insp.Comparison = planComparison(headers, suggested, effective, opts.RoleOverrides)
	return insp, nil
}
