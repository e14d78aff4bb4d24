package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

func init() {
	Register(&jsonFormat{})
}

// jsonFormat loads .json files holding an array of objects. An object root
// is scanned for its first array value; a plain object becomes a one-row
// table. Headers are the union of keys in first-seen order, so later objects
// can add columns without losing earlier rows.
type jsonFormat struct{}

func (f *jsonFormat) Name() string { return "json" }

func (f *jsonFormat) Extensions() []string { return []string{".json"} }

func (f *jsonFormat) Load(path string, opts Options) (*table.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var warnings []string
	var records []any
	switch v := root.(type) {
	case []any:
		records = v
	case map[string]any:
		key := firstListKey(v)
		if key != "" {
			records = v[key].([]any)
			warnings = append(warnings, fmt.Sprintf("Nested JSON: used array at top-level key '%s'", key))
		} else {
			records = []any{v}
			warnings = append(warnings, "JSON is a single object; treated as a one-row table")
		}
	default:
		return nil, fmt.Errorf("%w: JSON root must be an array or object", ErrUnsupported)
	}

	var headers []string
	seen := map[string]int{}
	var objects []map[string]any
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: JSON array must contain objects", ErrUnsupported)
		}
		objects = append(objects, obj)
		for _, key := range objectKeys(obj, raw) {
			if _, dup := seen[key]; !dup {
				seen[key] = len(headers)
				headers = append(headers, key)
			}
		}
	}
	if len(headers) == 0 {
		return nil, ErrEmptyInput
	}

	rows := make([][]string, 0, len(objects)+1)
	rows = append(rows, headers)
	for _, obj := range objects {
		row := make([]string, len(headers))
		for key, value := range obj {
			row[seen[key]] = jsonCellText(value)
		}
		rows = append(rows, trimTrailingEmpty(row))
	}

	meta := table.Meta{
		Encoding:           "utf-8",
		EncodingConfidence: 1.0,
		Delimiter:          ',',
		Warnings:           warnings,
	}
	return &table.Table{Rows: rows, Meta: meta}, nil
}

// firstListKey returns the lexically first key whose value is an array.
// Go maps have no insertion order, so sorting keeps the choice stable.
func firstListKey(obj map[string]any) string {
	var keys []string
	for k, v := range obj {
		if _, ok := v.([]any); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

// objectKeys sorts keys for a stable header order; Go maps do not preserve
// the document's key order.
func objectKeys(obj map[string]any, _ []byte) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jsonCellText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
