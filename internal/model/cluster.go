package model

import (
	"encoding/json"
	"math"
)

// Intent is the dominant search intent of a cluster.
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentCommercial    Intent = "commercial"
	IntentTransactional Intent = "transactional"
	IntentNavigational  Intent = "navigational"
)

// AllIntents returns every intent label.
func AllIntents() []Intent {
	return []Intent{
		IntentInformational,
		IntentCommercial,
		IntentTransactional,
		IntentNavigational,
	}
}

// Valid reports whether i is one of the four known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentInformational, IntentCommercial, IntentTransactional, IntentNavigational:
		return true
	default:
		return false
	}
}

// ClusterMetrics holds per-cluster aggregates. Values are kept at full
// precision; JSON output is rounded (3 places, 6 for Score).
type ClusterMetrics struct {
	AvgVolume      float64  `json:"avg_volume"`
	AvgDifficulty  float64  `json:"avg_kd"`
	AvgCPC         float64  `json:"avg_cpc"`
	AvgCompetition *float64 `json:"avg_competition"`
	BrandFit       float64  `json:"brand_fit"`
	Intent         Intent   `json:"intent"`
	Score          float64  `json:"score"`
}

// DefaultMetrics returns the zero-valued metrics assigned at clustering time.
func DefaultMetrics() ClusterMetrics {
	return ClusterMetrics{Intent: IntentInformational}
}

// Rounded returns a copy with output precision applied.
func (m ClusterMetrics) Rounded() ClusterMetrics {
	out := m
	out.AvgVolume = Round(m.AvgVolume, 3)
	out.AvgDifficulty = Round(m.AvgDifficulty, 3)
	out.AvgCPC = Round(m.AvgCPC, 3)
	out.BrandFit = Round(m.BrandFit, 3)
	out.Score = Round(m.Score, 6)
	if m.AvgCompetition != nil {
		out.AvgCompetition = Float64(Round(*m.AvgCompetition, 3))
	}
	return out
}

// MarshalJSON emits the rounded metrics.
func (m ClusterMetrics) MarshalJSON() ([]byte, error) {
	type plain ClusterMetrics
	return json.Marshal(plain(m.Rounded()))
}

// Cluster is a group of topically related keyword records.
type Cluster struct {
	ID      string          `json:"cluster_id"`
	Label   string          `json:"label"`
	Members []KeywordRecord `json:"members"`
	Metrics ClusterMetrics  `json:"metrics"`
}

// Keywords returns up to limit member keywords in member order.
// A limit <= 0 returns all of them.
func (c Cluster) Keywords(limit int) []string {
	n := len(c.Members)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = c.Members[i].Keyword
	}
	return out
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
