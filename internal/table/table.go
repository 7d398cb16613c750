// Package table reads keyword exports (XLSX or delimited text in a range of
// encodings) into a header-named grid of cells.
package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/model"
)

// Format identifies how a file was parsed.
type Format string

const (
	FormatXLSX      Format = "xlsx"
	FormatDelimited Format = "delimited"
)

// Value is a single cell. Spreadsheet cells stored as numbers carry the
// number directly; everything else is text.
type Value struct {
	Text    string
	Num     float64
	Numeric bool
}

// TextValue builds a text cell.
func TextValue(s string) Value { return Value{Text: s} }

// NumberValue builds a numeric cell.
func NumberValue(f float64, raw string) Value { return Value{Text: raw, Num: f, Numeric: true} }

// Blank reports whether the cell holds nothing but whitespace.
func (v Value) Blank() bool {
	return !v.Numeric && strings.TrimSpace(v.Text) == ""
}

// Table is a parsed file: normalized header names plus data rows. Every row
// has exactly len(Header) cells.
type Table struct {
	Header    []string
	Rows      [][]Value
	Format    Format
	Encoding  string
	Delimiter rune
}

// Column returns the index of the first column named name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Read parses the file at path. Spreadsheets are detected by magic bytes or
// extension; anything else is decoded as delimited text, trying each
// candidate encoding until one parses. All failures are unreadable_input.
func Read(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapError(model.KindUnreadableInput, err, "read %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case bytes.HasPrefix(data, magicXLS):
		return nil, model.NewError(model.KindUnreadableInput, "%s: legacy .xls workbooks are not supported, save as .xlsx or .csv", path)
	case bytes.HasPrefix(data, magicZIP), ext == ".xlsx":
		t, err := readSpreadsheet(data)
		if err != nil {
			return nil, model.WrapError(model.KindUnreadableInput, err, "parse spreadsheet %s", path)
		}
		logRead(path, t)
		return t, nil
	case ext == ".xls":
		return nil, model.NewError(model.KindUnreadableInput, "%s: legacy .xls workbooks are not supported, save as .xlsx or .csv", path)
	}

	var lastErr error
	for _, enc := range encodingOrder(data) {
		text, err := enc.decode(data)
		if err != nil {
			lastErr = eris.Wrapf(err, "table: decode as %s", enc.name)
			zap.L().Debug("table: encoding rejected", zap.String("path", path), zap.String("encoding", enc.name), zap.Error(err))
			continue
		}
		t, err := readDelimited(text)
		if err != nil {
			lastErr = eris.Wrapf(err, "table: parse as %s", enc.name)
			zap.L().Debug("table: parse failed", zap.String("path", path), zap.String("encoding", enc.name), zap.Error(err))
			continue
		}
		t.Encoding = enc.name
		logRead(path, t)
		return t, nil
	}

	return nil, model.WrapError(model.KindUnreadableInput, lastErr, "could not read %s as delimited text with any supported encoding", path)
}

// NormalizeHeader trims whitespace, drops a stray byte-order mark and
// lower-cases a column name.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

func logRead(path string, t *Table) {
	zap.L().Info("table: read file",
		zap.String("path", path),
		zap.String("format", string(t.Format)),
		zap.String("encoding", t.Encoding),
		zap.Int("columns", len(t.Header)),
		zap.Int("rows", len(t.Rows)),
	)
}

// build pads or validates raw rows against the header and drops rows that
// are entirely blank.
func build(header []string, raw [][]Value, strict bool) (*Table, error) {
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = NormalizeHeader(h)
	}

	for i, cells := range raw {
		if len(cells) > len(header) {
			if strict {
				return nil, eris.Errorf("table: expected %d fields in line %d, saw %d", len(header), i+2, len(cells))
			}
			cells = cells[:len(header)]
		}
		if allBlank(cells) {
			continue
		}
		row := make([]Value, len(header))
		copy(row, cells)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func allBlank(cells []Value) bool {
	for _, c := range cells {
		if !c.Blank() {
			return false
		}
	}
	return true
}
