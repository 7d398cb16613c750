// Package keyword turns a parsed export table into deduplicated keyword
// records and rescales their difficulty onto 0-100.
package keyword

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/table"
)

// Options configures Normalize.
type Options struct {
	Locale  string
	MaxRows int // <= 0 means no cap
}

// Stats summarizes one normalization pass.
type Stats struct {
	RowsRead      int `json:"rows_read"`
	EmptyKeywords int `json:"empty_keywords"`
	Duplicates    int `json:"duplicates"`
	Kept          int `json:"kept"`
}

// Import reads the file at path and normalizes it.
func Import(path string, opts Options) ([]model.KeywordRecord, Stats, error) {
	tbl, err := table.Read(path)
	if err != nil {
		return nil, Stats{}, err
	}
	return Normalize(tbl, opts)
}

// Normalize maps the first opts.MaxRows rows of tbl onto keyword records,
// dropping rows without a keyword and keeping the first record for each
// distinct keyword. Unparseable cells become absent values.
func Normalize(tbl *table.Table, opts Options) ([]model.KeywordRecord, Stats, error) {
	cols, err := ResolveColumns(tbl.Header)
	if err != nil {
		return nil, Stats{}, err
	}

	rows := tbl.Rows
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		rows = rows[:opts.MaxRows]
	}

	var stats Stats
	stats.RowsRead = len(rows)

	records := make([]model.KeywordRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := toRecord(row, cols, opts.Locale)
		if !ok {
			stats.EmptyKeywords++
			continue
		}
		records = append(records, rec)
	}

	records, stats.Duplicates = Dedup(records)
	stats.Kept = len(records)

	zap.L().Info("keyword: normalized records",
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("empty_keywords", stats.EmptyKeywords),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("kept", stats.Kept),
	)
	return records, stats, nil
}

// NormalizeKeyword canonicalizes keyword text: NFC, trimmed, lower-cased.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Dedup keeps the first record for each keyword, in order, and reports how
// many were dropped.
func Dedup(records []model.KeywordRecord) ([]model.KeywordRecord, int) {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.KeywordRecord, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.Keyword]; dup {
			continue
		}
		seen[r.Keyword] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// ResolvePath returns path when it names an existing file, else the first
// of <dataDir>/keywords.xlsx and <dataDir>/keywords.csv that exists.
func ResolvePath(path, dataDir string) (string, error) {
	if path != "" && isFile(path) {
		return path, nil
	}
	if dataDir != "" {
		for _, name := range []string{"keywords.xlsx", "keywords.csv"} {
			candidate := filepath.Join(dataDir, name)
			if isFile(candidate) {
				zap.L().Debug("keyword: using fallback input", zap.String("requested", path), zap.String("path", candidate))
				return candidate, nil
			}
		}
	}
	return "", model.NewError(model.KindFileNotFound, "input file not found: %s", path)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func toRecord(row []table.Value, cols Columns, locale string) (model.KeywordRecord, bool) {
	kw := NormalizeKeyword(cell(row, cols, FieldKeyword).Text)
	if kw == "" {
		return model.KeywordRecord{}, false
	}

	rec := model.KeywordRecord{
		Keyword: kw,
		Source:  model.SourceUpload,
		Locale:  locale,
	}

	if f, ok := number(row, cols, FieldVolume); ok && f >= 0 {
		rec.Volume = model.Int64(int64(math.Trunc(f)))
	}
	if f, ok := number(row, cols, FieldCPC); ok && f >= 0 {
		rec.CPC = model.Float64(f)
	}
	if f, ok := number(row, cols, FieldDifficulty); ok {
		rec.Difficulty = model.Float64(f)
	}
	if f, ok := number(row, cols, FieldClicks); ok {
		rec.Clicks = model.Float64(f)
	}
	if cols.Has(FieldURL) {
		if u := strings.TrimSpace(cell(row, cols, FieldURL).Text); u != "" {
			rec.URL = model.String(u)
		}
	}

	// A textual competition column is preferred over a numeric one.
	switch {
	case cols.Has(FieldCompetitionText):
		rec.Competition, rec.CompetitionLabel = ParseCompetition(cell(row, cols, FieldCompetitionText))
	case cols.Has(FieldCompetition):
		rec.Competition, rec.CompetitionLabel = ParseCompetition(cell(row, cols, FieldCompetition))
	}

	return rec, true
}

func cell(row []table.Value, cols Columns, f Field) table.Value {
	i, ok := cols[f]
	if !ok || i < 0 || i >= len(row) {
		return table.Value{}
	}
	return row[i]
}

func number(row []table.Value, cols Columns, f Field) (float64, bool) {
	if !cols.Has(f) {
		return 0, false
	}
	v := cell(row, cols, f)
	n, ok := CleanNumber(v)
	if !ok && !v.Blank() {
		zap.L().Debug("keyword: unparseable number", zap.String("field", string(f)), zap.String("value", v.Text))
	}
	return n, ok
}

// NormalizeRecords re-applies keyword normalization and dedup to records
// that are already in memory. Records whose keyword normalizes to empty are
// dropped. On Normalize output it is a no-op.
func NormalizeRecords(records []model.KeywordRecord) []model.KeywordRecord {
	out := make([]model.KeywordRecord, 0, len(records))
	for _, r := range records {
		r.Keyword = NormalizeKeyword(r.Keyword)
		if r.Keyword == "" {
			continue
		}
		out = append(out, r)
	}
	out, _ = Dedup(out)
	return out
}
