package keyword

import (
	"strings"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/table"
)

// Field is a canonical input column.
type Field string

const (
	FieldKeyword         Field = "keyword"
	FieldVolume          Field = "volume"
	FieldCPC             Field = "cpc"
	FieldDifficulty      Field = "kd"
	FieldClicks          Field = "clicks"
	FieldURL             Field = "url"
	FieldCompetition     Field = "competition"
	FieldCompetitionText Field = "competition_text"
)

// Accepted header spellings per field, already normalized.
var aliases = map[Field][]string{
	FieldKeyword: {"keyword", "query", "search term", "term"},
	FieldVolume: {
		"volume", "search_volume", "avg_monthly_searches", "search volume",
		"search volume (avg)", "avg. monthly searches",
	},
	FieldCPC: {"cpc", "avg_cpc", "cost_per_click", "cpc (usd)", "avg. cpc"},
	FieldDifficulty: {
		"kd", "difficulty", "keyword_difficulty", "keyword difficulty",
		"difficulty (%)", "kd (%)",
	},
	FieldClicks: {"clicks", "est_clicks", "estimated clicks"},
	FieldURL:    {"url", "target_url", "landing_page", "top url"},
	FieldCompetition: {
		"competition", "comp", "ad_competition", "competition_index",
		"competition (gkp)", "comp. index", "competitive density",
	},
	FieldCompetitionText: {
		"competition level", "comp level", "ad competition", "comp_text",
		"competition_text",
	},
}

// maxHeadersInError bounds the header list quoted in a missing-column error.
const maxHeadersInError = 20

// Columns maps each canonical field to a table column index (-1 when absent).
type Columns map[Field]int

// Has reports whether f was mapped.
func (c Columns) Has(f Field) bool {
	i, ok := c[f]
	return ok && i >= 0
}

// ResolveColumns picks, per field, the first header whose name is an
// accepted alias. A missing keyword column is missing_required_column.
func ResolveColumns(header []string) (Columns, error) {
	cols := make(Columns, len(aliases))
	for field, names := range aliases {
		cols[field] = firstMatch(header, names)
	}

	if !cols.Has(FieldKeyword) {
		seen := header
		if len(seen) > maxHeadersInError {
			seen = seen[:maxHeadersInError]
		}
		return nil, model.NewError(model.KindMissingRequiredColumn,
			"no 'keyword' column found. Seen headers: %s", strings.Join(seen, ", "))
	}
	return cols, nil
}

func firstMatch(header, names []string) int {
	for i, h := range header {
		h = table.NormalizeHeader(h)
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}
