package cluster

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keyword-cli/internal/model"
)

func records(keywords ...string) []model.KeywordRecord {
	out := make([]model.KeywordRecord, len(keywords))
	for i, k := range keywords {
		out[i] = model.KeywordRecord{Keyword: k}
	}
	return out
}

func TestAutoK(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 10}, {1, 10}, {499, 10}, {500, 15}, {1999, 15}, {2000, 20}, {50000, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, AutoK(tt.n))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t,
		[]string{"convert", "xlsx", "to", "pdf", "convert xlsx", "xlsx to", "to pdf"},
		Terms("Convert XLSX to PDF"),
	)
	// Single-character tokens are dropped before bigrams are formed.
	assert.Equal(t, []string{"excel", "pdf", "excel pdf"}, Terms("excel a pdf"))
	assert.Equal(t, []string{"aspose", "cells", "aspose cells"}, Terms("aspose.cells"))
}

func TestVectorize(t *testing.T) {
	m := Vectorize([]string{"excel to pdf", "excel to csv", "word"}, 2)

	assert.Equal(t, []string{"excel", "excel to", "to"}, m.Vocab)
	require.Len(t, m.Rows, 3)
	assert.Empty(t, m.Rows[2].Idx)
	for _, r := range m.Rows[:2] {
		assert.InDelta(t, 1.0, r.SqNorm(), 1e-9)
	}
	// Every surviving term appears in both documents, so weights are equal.
	assert.InDelta(t, 1/math.Sqrt(3), m.Rows[0].Val[0], 1e-9)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil, Options{})
	require.Error(t, err)
	assert.Equal(t, model.KindEmptyInput, model.KindOf(err))
}

func TestBuild_Coverage(t *testing.T) {
	var kws []string
	for _, topic := range []string{"excel", "pdf", "word", "chart"} {
		for _, suffix := range []string{"converter", "viewer", "editor", "api", "tutorial", "online"} {
			kws = append(kws, topic+" "+suffix)
		}
	}
	recs := records(kws...)

	clusters, err := Build(recs, Options{K: 4})
	require.NoError(t, err)
	require.NotEmpty(t, clusters)
	assert.LessOrEqual(t, len(clusters), 4)

	seen := make(map[string]int)
	ids := make(map[string]bool)
	for _, c := range clusters {
		assert.NotEmpty(t, c.Members)
		assert.NotEmpty(t, c.Label)
		assert.False(t, ids[c.ID], "duplicate cluster id %s", c.ID)
		ids[c.ID] = true
		assert.Equal(t, model.IntentInformational, c.Metrics.Intent)
		for _, m := range c.Members {
			seen[m.Keyword]++
		}
	}
	require.Len(t, seen, len(recs))
	for kw, n := range seen {
		assert.Equal(t, 1, n, kw)
	}

	// First cluster holds the first record.
	assert.Equal(t, recs[0].Keyword, clusters[0].Members[0].Keyword)
}

func TestBuild_Deterministic(t *testing.T) {
	var kws []string
	for i := 0; i < 60; i++ {
		kws = append(kws, fmt.Sprintf("topic%d keyword %d", i%6, i))
	}
	recs := records(kws...)

	a, err := Build(recs, Options{K: 5, BatchSize: 16})
	require.NoError(t, err)
	b, err := Build(recs, Options{K: 5, BatchSize: 16})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_KCappedAtRecordCount(t *testing.T) {
	clusters, err := Build(records("alpha beta", "gamma delta"), Options{K: 10})
	require.NoError(t, err)
	total := 0
	for _, c := range clusters {
		total += len(c.Members)
	}
	assert.Equal(t, 2, total)
	assert.LessOrEqual(t, len(clusters), 2)
}

func TestBuild_DegenerateLabel(t *testing.T) {
	clusters, err := Build(records("alpha beta", "gamma delta", "epsilon zeta"), Options{K: 1})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "alpha beta", clusters[0].Label)
	assert.Equal(t, "c0", clusters[0].ID)
}

func TestLabel(t *testing.T) {
	m := Vectorize([]string{"excel to pdf", "excel viewer", "pdf viewer", "excel export"}, 2)
	assert.Equal(t, "excel", Label(m, []int{0, 1, 3}, "fallback"))
	assert.Equal(t, "fallback", Label(&Matrix{}, []int{0}, "fallback"))
}

func TestKMeans_SeparatesObviousGroups(t *testing.T) {
	rows := []Vector{
		{Idx: []int{0}, Val: []float64{1}},
		{Idx: []int{0}, Val: []float64{1}},
		{Idx: []int{1}, Val: []float64{1}},
		{Idx: []int{1}, Val: []float64{1}},
	}
	labels := KMeans{K: 2, Seed: 42, BatchSize: 4, MaxIter: 10}.Fit(rows, 2)
	require.Len(t, labels, 4)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
}
