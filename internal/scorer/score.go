package scorer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/model"
)

// IntentWeight maps an intent to its contribution to the score. Unknown
// intents count as informational.
func IntentWeight(i model.Intent) float64 {
	switch i {
	case model.IntentCommercial:
		return 0.6
	case model.IntentTransactional:
		return 1.0
	case model.IntentNavigational:
		return 0.2
	default:
		return 0.25
	}
}

// Range is a min/max pair.
type Range struct {
	Lo, Hi float64
}

// Normalize maps v onto [0,1] for in-range values; a degenerate range
// (Hi <= Lo) yields 0.
func (r Range) Normalize(v float64) float64 {
	if r.Hi <= r.Lo {
		return 0
	}
	return (v - r.Lo) / (r.Hi - r.Lo)
}

// Bounds are the normalization ranges shared by every cluster in a run.
type Bounds struct {
	Volume     Range
	Difficulty Range
	CPC        Range
}

// Fallback ranges for metrics with no values at all.
var (
	FallbackVolume     = Range{0, 1}
	FallbackDifficulty = Range{0, 100}
	FallbackCPC        = Range{0, 5}
)

// GlobalBounds computes min/max of volume, difficulty and cpc over every
// member of every cluster. Absent values are skipped.
func GlobalBounds(clusters []model.Cluster) Bounds {
	vol, kd, cpc := newTracker(), newTracker(), newTracker()
	for _, c := range clusters {
		for _, m := range c.Members {
			if m.Volume != nil {
				vol.add(float64(*m.Volume))
			}
			if m.Difficulty != nil {
				kd.add(*m.Difficulty)
			}
			if m.CPC != nil {
				cpc.add(*m.CPC)
			}
		}
	}
	return Bounds{
		Volume:     vol.rangeOr(FallbackVolume),
		Difficulty: kd.rangeOr(FallbackDifficulty),
		CPC:        cpc.rangeOr(FallbackCPC),
	}
}

type tracker struct {
	r Range
	n int
}

func newTracker() *tracker {
	return &tracker{r: Range{Lo: math.Inf(1), Hi: math.Inf(-1)}}
}

func (t *tracker) add(v float64) {
	t.r.Lo = math.Min(t.r.Lo, v)
	t.r.Hi = math.Max(t.r.Hi, v)
	t.n++
}

func (t *tracker) rangeOr(fallback Range) Range {
	if t.n == 0 {
		return fallback
	}
	return t.r
}

// Aggregate fills the cluster averages into m. Averages of metrics with no
// values are 0, except competition which stays nil.
func Aggregate(members []model.KeywordRecord, m model.ClusterMetrics) model.ClusterMetrics {
	var vol, kd, cpc, comp mean
	for _, r := range members {
		if r.Volume != nil {
			vol.add(float64(*r.Volume))
		}
		if r.Difficulty != nil {
			kd.add(*r.Difficulty)
		}
		if r.CPC != nil {
			cpc.add(*r.CPC)
		}
		if r.Competition != nil {
			comp.add(*r.Competition)
		}
	}
	m.AvgVolume = vol.value()
	m.AvgDifficulty = kd.value()
	m.AvgCPC = cpc.value()
	m.AvgCompetition = nil
	if comp.n > 0 {
		m.AvgCompetition = model.Float64(comp.value())
	}
	return m
}

type mean struct {
	sum float64
	n   int
}

func (a *mean) add(v float64) {
	a.sum += v
	a.n++
}

func (a *mean) value() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

// CompositeScore combines the aggregates in m. Difficulty is subtracted;
// every other term adds.
func CompositeScore(m model.ClusterMetrics, b Bounds, w model.Weights) float64 {
	return w[WeightVolume]*b.Volume.Normalize(m.AvgVolume) -
		w[WeightKD]*b.Difficulty.Normalize(m.AvgDifficulty) +
		w[WeightCPC]*b.CPC.Normalize(m.AvgCPC) +
		w[WeightBrand]*m.BrandFit +
		w[WeightIntent]*IntentWeight(m.Intent)
}

// Rank scores every cluster against run-wide bounds and returns copies
// sorted by descending score. Equal scores keep their input order.
func Rank(clusters []model.Cluster, w model.Weights) ([]model.Cluster, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}

	bounds := GlobalBounds(clusters)
	out := make([]model.Cluster, len(clusters))
	for i, c := range clusters {
		c.Metrics = Aggregate(c.Members, c.Metrics)
		c.Metrics.Score = CompositeScore(c.Metrics, bounds, w)
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metrics.Score > out[j].Metrics.Score
	})

	if len(out) > 0 {
		zap.L().Info("scorer: ranked clusters",
			zap.Int("clusters", len(out)),
			zap.Float64("top_score", out[0].Metrics.Score),
			zap.String("top_cluster", out[0].ID),
		)
	}
	return out, nil
}
