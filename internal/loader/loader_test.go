package loader_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/loader"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadCSVDetectsSemicolon(t *testing.T) {
	path := writeFixture(t, "data.csv", []byte("a;b;c\n1;2;3\n4;5;6\n"))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Meta.Delimiter != ';' {
		t.Fatalf("delimiter = %q, want ';'", tbl.Meta.Delimiter)
	}
	if len(tbl.Rows) != 3 || len(tbl.Rows[0]) != 3 {
		t.Fatalf("rows = %v, want 3x3", tbl.Rows)
	}
	if tbl.Format != "csv" {
		t.Fatalf("format = %q, want csv", tbl.Format)
	}
}

func TestLoadTSVForcesTab(t *testing.T) {
	path := writeFixture(t, "data.tsv", []byte("a\tb\n1\t2\n"))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Meta.Delimiter != '\t' {
		t.Fatalf("delimiter = %q, want tab", tbl.Meta.Delimiter)
	}
	if tbl.Rows[1][1] != "2" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
}

func TestLoadCSVLatin1Fallback(t *testing.T) {
	path := writeFixture(t, "data.csv", []byte("name,city\ncaf\xe9,Paris\n"))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !tbl.Meta.DegradedMode || tbl.Meta.Encoding != "latin-1" {
		t.Fatalf("meta = %+v, want degraded latin-1", tbl.Meta)
	}
	if tbl.Rows[1][0] != "café" {
		t.Fatalf("cell = %q, want café", tbl.Rows[1][0])
	}
	if len(tbl.Meta.Warnings) == 0 {
		t.Fatal("expected a decode warning")
	}
}

func TestLoadCSVStripsBOM(t *testing.T) {
	path := writeFixture(t, "data.csv", []byte("\xEF\xBB\xBFa,b\n1,2\n"))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Rows[0][0] != "a" {
		t.Fatalf("header cell = %q, want a", tbl.Rows[0][0])
	}
}

func TestLoadJSONArray(t *testing.T) {
	path := writeFixture(t, "data.json", []byte(`[{"a":"1","b":"2"},{"a":"3","c":"4"}]`))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, h := range want {
		if tbl.Rows[0][i] != h {
			t.Fatalf("headers = %v, want %v", tbl.Rows[0], want)
		}
	}
	if tbl.Rows[2][0] != "3" || tbl.Rows[2][2] != "4" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	if tbl.Format != "json" {
		t.Fatalf("format = %q, want json", tbl.Format)
	}
}

func TestLoadJSONObjectRoot(t *testing.T) {
	path := writeFixture(t, "data.json", []byte(`{"items":[{"x":"1"},{"x":"2"}],"note":"hi"}`))
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %v, want header + 2", tbl.Rows)
	}
	if len(tbl.Meta.Warnings) == 0 {
		t.Fatal("expected nested-JSON warning")
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	path := writeFixture(t, "data.parquet", []byte("x"))
	_, err := loader.Load(path)
	if !errors.Is(err, loader.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestLoadRejectsProseTxt(t *testing.T) {
	path := writeFixture(t, "notes.txt", []byte("just some prose here\nand another line of it\n"))
	_, err := loader.Load(path)
	if !errors.Is(err, loader.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFixture(t, "empty.csv", nil)
	_, err := loader.Load(path)
	if !errors.Is(err, loader.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestLoadRowLimitOverride(t *testing.T) {
	path := writeFixture(t, "data.csv", []byte("a,b\n1,2\n3,4\n"))
	_, err := loader.LoadWithOptions(path, loader.Options{MaxRows: 2})
	if !errors.Is(err, loader.ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func writeXLSXFixture(t *testing.T, sheetXML string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
 xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Data" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
<sst><si><t>Name</t></si><si><t>Amount</t></si><si><t>Alice</t></si></sst>`,
		"xl/worksheets/sheet1.xml": sheetXML,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return writeFixture(t, "book.xlsx", buf.Bytes())
}

const defaultSheetXML = `<?xml version="1.0"?>
<worksheet><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>42.5</v></c></row>
</sheetData></worksheet>`

func TestLoadXLSX(t *testing.T) {
	path := writeXLSXFixture(t, defaultSheetXML)
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Format != "xlsx" || tbl.Meta.SheetName != "Data" {
		t.Fatalf("format=%q sheet=%q, want xlsx/Data", tbl.Format, tbl.Meta.SheetName)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %v, want 2", tbl.Rows)
	}
	if tbl.Rows[0][0] != "Name" || tbl.Rows[0][1] != "Amount" {
		t.Fatalf("header = %v", tbl.Rows[0])
	}
	if tbl.Rows[1][0] != "Alice" || tbl.Rows[1][1] != "42.5" {
		t.Fatalf("data row = %v", tbl.Rows[1])
	}
}

func TestLoadXLSXUnknownSheet(t *testing.T) {
	path := writeXLSXFixture(t, defaultSheetXML)
	_, err := loader.LoadWithOptions(path, loader.Options{Sheet: "Missing"})
	if err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestLoadXLSXCellsWithoutRefAttr(t *testing.T) {
	// streaming writers are allowed to omit the r attribute on row and c
	// elements; cells then occupy sequential positions
	sheetXML := `<?xml version="1.0"?>
<worksheet><sheetData>
<row><c t="s"><v>0</v></c><c t="s"><v>1</v></c></row>
<row><c t="s"><v>2</v></c><c><v>42.5</v></c></row>
<row><c r="B3" t="s"><v>2</v></c><c><v>7</v></c></row>
</sheetData></worksheet>`
	path := writeXLSXFixture(t, sheetXML)
	tbl, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %v, want 3", tbl.Rows)
	}
	if tbl.Rows[0][0] != "Name" || tbl.Rows[0][1] != "Amount" {
		t.Fatalf("header = %v", tbl.Rows[0])
	}
	if tbl.Rows[1][0] != "Alice" || tbl.Rows[1][1] != "42.5" {
		t.Fatalf("data row = %v", tbl.Rows[1])
	}
	// a ref-less cell after a referenced one continues from its position
	want := []string{"", "Alice", "7"}
	for i, cell := range want {
		if tbl.Rows[2][i] != cell {
			t.Fatalf("mixed-ref row = %v, want %v", tbl.Rows[2], want)
		}
	}
}
