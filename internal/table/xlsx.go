package table

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var (
	magicZIP = []byte("PK\x03\x04")
	magicXLS = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// readSpreadsheet parses the first sheet of an XLSX workbook; its first row
// is the header.
func readSpreadsheet(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, cell.String())
	}
	for len(header) > 0 && NormalizeHeader(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, eris.New("xlsx: header row is empty")
	}

	raw := make([][]Value, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		raw = append(raw, rowToValues(row))
	}

	t, err := build(header, raw, false)
	if err != nil {
		return nil, err
	}
	t.Format = FormatXLSX
	return t, nil
}

func rowToValues(row *xlsx.Row) []Value {
	cells := make([]Value, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		if cell.Type() == xlsx.CellTypeNumeric {
			if f, err := cell.Float(); err == nil {
				cells[j] = NumberValue(f, cell.Value)
				continue
			}
		}
		cells[j] = TextValue(cell.String())
	}
	return cells
}
