package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterMetrics_MarshalRounds(t *testing.T) {
	t.Parallel()

	m := ClusterMetrics{
		AvgVolume:     1234.56789,
		AvgDifficulty: 33.33333,
		BrandFit:      0.6666666,
		Intent:        IntentCommercial,
		Score:         0.123456789,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.InDelta(t, 1234.568, got["avg_volume"], 1e-9)
	assert.InDelta(t, 33.333, got["avg_kd"], 1e-9)
	assert.InDelta(t, 0.667, got["brand_fit"], 1e-9)
	assert.InDelta(t, 0.123457, got["score"], 1e-9)
	assert.InDelta(t, 0.0, got["avg_cpc"], 1e-9)
	assert.Nil(t, got["avg_competition"])
	assert.Equal(t, "commercial", got["intent"])

	// Rounding never touches the in-memory value.
	assert.InDelta(t, 0.123456789, m.Score, 1e-12)
}

func TestDefaultMetrics(t *testing.T) {
	t.Parallel()

	m := DefaultMetrics()
	assert.Equal(t, IntentInformational, m.Intent)
	assert.Nil(t, m.AvgCompetition)
	assert.Zero(t, m.Score)
}

func TestIntent_Valid(t *testing.T) {
	t.Parallel()

	for _, in := range AllIntents() {
		assert.True(t, in.Valid(), in)
	}
	assert.False(t, Intent("other").Valid())
}

func TestCluster_Keywords(t *testing.T) {
	t.Parallel()

	c := Cluster{Members: []KeywordRecord{
		{Keyword: "a"}, {Keyword: "b"}, {Keyword: "c"},
	}}
	assert.Equal(t, []string{"a", "b"}, c.Keywords(2))
	assert.Equal(t, []string{"a", "b", "c"}, c.Keywords(0))
}

func validIdea() TopicIdea {
	return TopicIdea{
		ClusterID:          "c0",
		Title:              "Convert Excel to PDF",
		Angle:              "Step-by-step walkthrough",
		Outline:            []string{"Intro", "Setup", "Convert"},
		TargetPersona:      "Developer",
		PrimaryKeyword:     "excel to pdf",
		SupportingKeywords: []string{"xlsx to pdf", "convert xlsx", "excel export"},
	}
}

func TestTopicIdea_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*TopicIdea)
		wantErr string
	}{
		{name: "valid", mutate: func(*TopicIdea) {}},
		{name: "short outline", mutate: func(ti *TopicIdea) { ti.Outline = ti.Outline[:2] }, wantErr: "outline"},
		{name: "long outline", mutate: func(ti *TopicIdea) {
			ti.Outline = []string{"1", "2", "3", "4", "5", "6", "7", "8"}
		}, wantErr: "outline"},
		{name: "too many supporting", mutate: func(ti *TopicIdea) {
			ti.SupportingKeywords = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}
		}, wantErr: "supporting_keywords"},
		{name: "missing title", mutate: func(ti *TopicIdea) { ti.Title = " " }, wantErr: "title is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idea := validIdea()
			tt.mutate(&idea)
			err := idea.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunResult_Summary(t *testing.T) {
	t.Parallel()

	r := &RunResult{
		RunID:   "abcd1234",
		Brand:   "Aspose",
		Product: "Aspose.Cells",
		Locale:  "en-US",
		Clusters: []Cluster{
			{ID: "c1", Label: "excel", Members: make([]KeywordRecord, 3), Metrics: ClusterMetrics{Score: 0.5000004, Intent: IntentTransactional}},
		},
	}

	s := r.Summary()
	require.Len(t, s.Clusters, 1)
	assert.Equal(t, "c1", s.Clusters[0].ClusterID)
	assert.Equal(t, 3, s.Clusters[0].NMembers)
	assert.InDelta(t, 0.5, s.Clusters[0].Score, 1e-9)
	assert.Equal(t, IntentTransactional, s.Clusters[0].Intent)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	base := NewError(KindEmptyInput, "no rows after preprocessing")
	assert.Equal(t, KindEmptyInput, KindOf(base))
	assert.Equal(t, KindEmptyInput, KindOf(fmt.Errorf("outer: %w", base)))
	assert.Equal(t, KindEmptyInput, KindOf(eris.Wrap(base, "pipeline: run")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	cause := errors.New("boom")
	wrapped := WrapError(KindUnreadableInput, cause, "decode %s", "a.csv")
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "unreadable_input: decode a.csv")
}
