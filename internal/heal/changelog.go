package heal

// Change is one append-only change-log entry. Row-level actions use a
// pseudo column name such as "[row]" or "[row structure]".
type Change struct {
	RowNumber     int    `json:"original_row_number"`
	Column        string `json:"column_affected"`
	OriginalValue string `json:"original_value"`
	NewValue      string `json:"new_value"`
	Action        string `json:"action_taken"`
	Reason        string `json:"reason"`
}

// CleanRow is a row that survived healing, possibly modified or flagged.
type CleanRow struct {
	Row         []string `json:"row"`
	RowNum      int      `json:"row_num"`
	WasModified bool     `json:"was_modified"`
	NeedsReview bool     `json:"needs_review"`
}

// QuarantineRow is a row excluded from the clean output with a stated reason.
type QuarantineRow struct {
	Row    []string `json:"row"`
	RowNum int      `json:"row_num"`
	Reason string   `json:"reason"`
}
