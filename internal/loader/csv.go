package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

func init() {
	Register(&delimitedFormat{})
}

// delimitedFormat loads CSV, TSV and delimited .txt files. Lines that are
// not valid UTF-8 are decoded as Latin-1 so a handful of stray bytes never
// sinks the whole file; the table is marked degraded when that happens.
type delimitedFormat struct{}

func (f *delimitedFormat) Name() string { return "csv" }

func (f *delimitedFormat) Extensions() []string { return []string{".csv", ".tsv", ".txt"} }

func (f *delimitedFormat) Load(path string, opts Options) (*table.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	text, meta := decodeMixed(raw)

	delimiter := detectDelimiter(text)
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		delimiter = '\t'
	}
	if strings.HasSuffix(strings.ToLower(path), ".txt") {
		if err := validateTextTable(text, delimiter); err != nil {
			return nil, err
		}
	}
	meta.Delimiter = delimiter

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited input: %w", err)
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, trimTrailingEmpty(rec))
	}

	return &table.Table{Rows: rows, Meta: meta}, nil
}

// decodeMixed decodes raw bytes line by line: valid UTF-8 passes through,
// anything else falls back to Latin-1 byte mapping. Null bytes are dropped.
func decodeMixed(raw []byte) (string, table.Meta) {
	lines := bytes.Split(raw, []byte("\n"))
	decoded := make([]string, len(lines))
	degraded := 0
	var warnings []string

	for i, line := range lines {
		if utf8.Valid(line) {
			decoded[i] = string(line)
			continue
		}
		degraded++
		if len(warnings) < 10 {
			warnings = append(warnings, fmt.Sprintf("row %d: invalid UTF-8 byte sequence decoded as Latin-1", i+1))
		}
		runes := make([]rune, len(line))
		for j, b := range line {
			runes[j] = rune(b)
		}
		decoded[i] = string(runes)
	}

	meta := table.Meta{Encoding: "utf-8", EncodingConfidence: 1.0}
	if degraded > 0 {
		meta.Encoding = "latin-1"
		meta.DegradedMode = true
		meta.EncodingConfidence = 1.0 - float64(degraded)/float64(len(lines))
		meta.Warnings = warnings
	}

	text := strings.Join(decoded, "\n")
	return strings.ReplaceAll(text, "\x00", ""), meta
}

// detectDelimiter scores each candidate by how wide and how consistent the
// resulting rows are. A delimiter that mostly yields one-column rows is
// heavily penalized.
func detectDelimiter(text string) rune {
	var sampleLines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			sampleLines = append(sampleLines, line)
			if len(sampleLines) == 120 {
				break
			}
		}
	}
	sample := strings.Join(sampleLines, "\n")

	best := ','
	bestScore := float64(-1 << 30)
	bestWidth := 0

	for _, delim := range []rune{',', ';', '\t', '|'} {
		reader := csv.NewReader(strings.NewReader(sample))
		reader.Comma = delim
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		records, err := reader.ReadAll()
		if err != nil {
			continue
		}
		var rows [][]string
		for _, rec := range records {
			for _, cell := range rec {
				if strings.TrimSpace(cell) != "" {
					rows = append(rows, rec)
					break
				}
			}
		}
		if len(rows) < 2 {
			continue
		}

		widthCounts := map[int]int{}
		for _, row := range rows {
			widthCounts[len(row)]++
		}
		modeWidth, modeCount := 0, 0
		for width, count := range widthCounts {
			if count > modeCount || (count == modeCount && width > modeWidth) {
				modeWidth, modeCount = width, count
			}
		}
		consistency := float64(modeCount) / float64(len(rows))

		score := float64(modeWidth)*2.0 + consistency*float64(modeWidth)
		if len(rows[0]) == modeWidth {
			score += 1.0
		}
		if modeWidth == 1 {
			score -= 10.0
		}

		if score > bestScore || (score == bestScore && modeWidth > bestWidth) {
			bestScore = score
			bestWidth = modeWidth
			best = delim
		}
	}
	return best
}

// validateTextTable rejects .txt files that are prose rather than delimited
// data: at least 2 rows must split into multiple fields.
func validateTextTable(text string, delimiter rune) error {
	var sampleLines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			sampleLines = append(sampleLines, line)
			if len(sampleLines) == 50 {
				break
			}
		}
	}
	reader := csv.NewReader(strings.NewReader(strings.Join(sampleLines, "\n")))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: .txt file is not parseable as delimited data", ErrUnsupported)
	}
	multiField := 0
	for _, rec := range records {
		if len(rec) > 1 {
			multiField++
		}
	}
	if len(records) < 2 || multiField < 2 {
		return fmt.Errorf("%w: .txt file does not appear to contain delimited/tabular data", ErrUnsupported)
	}
	return nil
}
