package keyword

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/table"
)

var numberRx = regexp.MustCompile(`[-+]?\d[\d,\.]*`)

var placeholders = map[string]bool{
	"na":   true,
	"n/a":  true,
	"-":    true,
	"none": true,
}

type competitionLevel struct {
	index float64
	label string
}

var competitionLevels = map[string]competitionLevel{
	"low":    {0.2, model.CompetitionLow},
	"medium": {0.6, model.CompetitionMedium},
	"med":    {0.6, model.CompetitionMedium},
	"high":   {0.9, model.CompetitionHigh},
}

// CleanNumber converts a cell to a number. Numeric cells are used as-is;
// text goes through CleanNumberText. ok is false when the cell holds no
// usable number.
func CleanNumber(v table.Value) (float64, bool) {
	if v.Numeric {
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return v.Num, true
	}
	return CleanNumberText(v.Text)
}

// CleanNumberText extracts the first number-looking token from s, e.g.
// "$2.10" → 2.1, "1,200" → 1200, "1.234,56" → 1234.56. When a token has
// both ',' and '.', whichever comes last is the decimal point.
func CleanNumberText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || placeholders[strings.ToLower(s)] {
		return 0, false
	}

	token := numberRx.FindString(s)
	if token == "" {
		return 0, false
	}

	comma, dot := strings.LastIndex(token, ","), strings.LastIndex(token, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		token = strings.ReplaceAll(token, ".", "")
		token = strings.ReplaceAll(token, ",", ".")
	default:
		token = strings.ReplaceAll(token, ",", "")
	}

	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCompetition maps a competition cell to an index and an optional
// label. Categorical values (low, medium/med, high) win; anything else is
// cleaned as a number and kept verbatim, so "62%" stays 62.
func ParseCompetition(v table.Value) (*float64, *string) {
	if v.Blank() {
		return nil, nil
	}
	if !v.Numeric {
		s := strings.ToLower(strings.TrimSpace(v.Text))
		if lvl, ok := competitionLevels[s]; ok {
			return model.Float64(lvl.index), model.String(lvl.label)
		}
	}
	if f, ok := CleanNumber(v); ok {
		return model.Float64(f), nil
	}
	return nil, nil
}
