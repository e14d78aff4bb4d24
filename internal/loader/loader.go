// Package loader turns supported file formats (CSV/TSV, XLSX, JSON) into a
// raw table for diagnosis and healing. Loaders never repair anything: ragged
// rows, stray headers and metadata rows all pass through untouched.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/table"
)

// Hard ceilings protecting downstream stages from pathological inputs.
const (
	MaxRows = 500000
	MaxCols = 512
)

var (
	ErrUnsupported = errors.New("unsupported file format")
	ErrEmptyInput  = errors.New("file contains no rows")
	ErrTooLarge    = errors.New("file exceeds row or column limits")
)

// Options tweaks how a file is loaded.
type Options struct {
	// Sheet selects a worksheet by name for workbook formats. Empty means
	// the first sheet.
	Sheet string

	// MaxRows and MaxCols override the package guards when positive.
	MaxRows int
	MaxCols int
}

// Format loads one family of file extensions.
type Format interface {
	Name() string
	Extensions() []string
	Load(path string, opts Options) (*table.Table, error)
}

var registry = map[string]Format{}

// Register adds a format to the loader dispatch table, keyed by extension.
func Register(f Format) {
	for _, ext := range f.Extensions() {
		registry[ext] = f
	}
}

// SupportedExtensions lists every registered extension, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads a file using the format registered for its extension.
func Load(path string) (*table.Table, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(path string, opts Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (supported: %s)",
			ErrUnsupported, ext, strings.Join(SupportedExtensions(), ", "))
	}
	tbl, err := f.Load(path, opts)
	if err != nil {
		return nil, err
	}
	if len(tbl.Rows) == 0 {
		return nil, ErrEmptyInput
	}
	maxRows, maxCols := MaxRows, MaxCols
	if opts.MaxRows > 0 {
		maxRows = opts.MaxRows
	}
	if opts.MaxCols > 0 {
		maxCols = opts.MaxCols
	}
	if len(tbl.Rows) > maxRows {
		return nil, fmt.Errorf("%w: %d rows (limit %d)", ErrTooLarge, len(tbl.Rows), maxRows)
	}
	if w := tbl.Width(); w > maxCols {
		return nil, fmt.Errorf("%w: %d columns (limit %d)", ErrTooLarge, w, maxCols)
	}
	tbl.Path = path
	tbl.Format = f.Name()
	return tbl, nil
}

func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
