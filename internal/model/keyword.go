package model

// Competition labels produced from categorical source values.
const (
	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"
)

// KeywordRecord is one normalized row of keyword-performance data.
// Optional metrics are nil when the source cell was blank or unparseable.
type KeywordRecord struct {
	Keyword          string   `json:"keyword"`
	Source           string   `json:"source"`
	Locale           string   `json:"locale"`
	Volume           *int64   `json:"volume"`
	CPC              *float64 `json:"cpc"`
	Difficulty       *float64 `json:"kd"`
	Clicks           *float64 `json:"clicks"`
	URL              *string  `json:"url"`
	Competition      *float64 `json:"competition"`
	CompetitionLabel *string  `json:"competition_label"`
}

// SourceUpload marks records imported from a user-supplied file.
const SourceUpload = "upload"

// WithDifficulty returns a copy of r with the difficulty replaced.
func (r KeywordRecord) WithDifficulty(kd *float64) KeywordRecord {
	r.Difficulty = kd
	return r
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
