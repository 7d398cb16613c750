package table

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Delimiters considered by the sniffer, in tie-break order.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

const sniffLines = 20

// readDelimited parses decoded text. The first record is the header; a data
// row with more fields than the header is a structural error.
func readDelimited(text string) (*Table, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, eris.New("table: no columns to parse from file")
	}

	delim := SniffDelimiter(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // validated against the header below

	var header []string
	var raw [][]Value
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = record
			continue
		}
		cells := make([]Value, len(record))
		for i, field := range record {
			cells[i] = TextValue(field)
		}
		raw = append(raw, cells)
	}
	if len(header) == 0 {
		return nil, eris.New("table: no header row")
	}

	t, err := build(header, raw, true)
	if err != nil {
		return nil, err
	}
	t.Format = FormatDelimited
	t.Delimiter = delim
	return t, nil
}

// SniffDelimiter picks the candidate delimiter that splits the first lines
// of text into the same, largest number of fields. Without a consistent
// candidate the header line decides; with no candidate at all it is ','.
func SniffDelimiter(text string) rune {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == sniffLines {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestCount := rune(0), 0
	for _, d := range candidateDelimiters {
		n := countOutsideQuotes(lines[0], d)
		if n == 0 {
			continue
		}
		consistent := true
		for _, line := range lines[1:] {
			if countOutsideQuotes(line, d) != n {
				consistent = false
				break
			}
		}
		if consistent && n > bestCount {
			best, bestCount = d, n
		}
	}
	if best != 0 {
		return best
	}

	for _, d := range candidateDelimiters {
		if n := countOutsideQuotes(lines[0], d); n > bestCount {
			best, bestCount = d, n
		}
	}
	if best != 0 {
		return best
	}
	return ','
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}
