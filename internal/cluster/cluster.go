// Package cluster groups keyword records into topical clusters using TF-IDF
// vectors and a seeded mini-batch k-means.
package cluster

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/keyword-cli/internal/model"
)

// Defaults used when Options fields are zero.
const (
	DefaultSeed      = 42
	DefaultBatchSize = 2048
	DefaultMaxIter   = 100
	MinDocFreq       = 2
)

// Options configures Build.
type Options struct {
	K         int // 0 picks AutoK
	Seed      uint64
	BatchSize int
	MaxIter   int
}

func (o Options) withDefaults(n int) Options {
	if o.K <= 0 {
		o.K = AutoK(n)
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	return o
}

// Build partitions records into clusters. Every record lands in exactly one
// cluster; clusters are returned in order of their first member and carry
// default metrics.
func Build(records []model.KeywordRecord, opts Options) ([]model.Cluster, error) {
	if len(records) == 0 {
		return nil, model.NewError(model.KindEmptyInput, "no keyword records to cluster")
	}
	opts = opts.withDefaults(len(records))

	docs := make([]string, len(records))
	for i, r := range records {
		docs[i] = r.Keyword
	}
	m := Vectorize(docs, MinDocFreq)

	km := KMeans{K: opts.K, Seed: opts.Seed, BatchSize: opts.BatchSize, MaxIter: opts.MaxIter}
	labels := km.Fit(m.Rows, len(m.Vocab))

	order := make([]int, 0, opts.K)
	buckets := make(map[int][]int)
	for i, lab := range labels {
		if _, ok := buckets[lab]; !ok {
			order = append(order, lab)
		}
		buckets[lab] = append(buckets[lab], i)
	}

	clusters := make([]model.Cluster, 0, len(order))
	for _, lab := range order {
		idxs := buckets[lab]
		members := make([]model.KeywordRecord, len(idxs))
		for j, i := range idxs {
			members[j] = records[i]
		}
		clusters = append(clusters, model.Cluster{
			ID:      fmt.Sprintf("c%d", lab),
			Label:   Label(m, idxs, members[0].Keyword),
			Members: members,
			Metrics: model.DefaultMetrics(),
		})
	}

	zap.L().Info("cluster: built clusters",
		zap.Int("records", len(records)),
		zap.Int("k", min(opts.K, len(records))),
		zap.Int("vocabulary", len(m.Vocab)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters, nil
}

// Label returns the vocabulary term with the largest summed weight over the
// given rows, or fallback when every summed weight is zero.
func Label(m *Matrix, idxs []int, fallback string) string {
	if len(m.Vocab) == 0 {
		return fallback
	}
	sum := make([]float64, len(m.Vocab))
	for _, i := range idxs {
		m.Rows[i].AddTo(sum, 1)
	}
	if floats.Max(sum) <= 0 {
		return fallback
	}
	return m.Vocab[floats.MaxIdx(sum)]
}
