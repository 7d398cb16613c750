package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keyword-cli/internal/config"
	"github.com/sells-group/keyword-cli/internal/model"
)

func withTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		KRA: config.KRAConfig{
			Brand:       "Aspose",
			Product:     "Aspose.Cells",
			Locale:      "en-US",
			TopClusters: 10,
			MaxRows:     50000,
			Weights:     map[string]float64{"volume": 0.35, "kd": 0.25, "cpc": 0.15, "brand": 0.15, "intent": 0.10},
		},
	}
	t.Cleanup(func() { cfg = prev })
}

func newRequestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addRequestFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestBuildRequest_Defaults(t *testing.T) {
	withTestConfig(t)

	req, err := buildRequest(newRequestFlags(t), "kw.csv")
	require.NoError(t, err)

	assert.Equal(t, "kw.csv", req.FilePath)
	assert.Equal(t, "Aspose", req.Brand)
	assert.Equal(t, "Aspose.Cells", req.Product)
	assert.Equal(t, 10, req.TopClusters)
	assert.Equal(t, 50000, req.MaxRows)
	assert.False(t, req.SkipTopics)
	assert.InDelta(t, 0.35, req.Weights["volume"], 1e-9)
}

func TestBuildRequest_FlagOverrides(t *testing.T) {
	withTestConfig(t)

	fs := newRequestFlags(t, "--brand", "Contoso", "--product", "Sheets", "--locale", "de-DE",
		"--k", "7", "--top", "3", "--max-rows", "100", "--member-limit", "5", "--skip-topics")
	req, err := buildRequest(fs, "kw.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "Contoso", req.Brand)
	assert.Equal(t, "Sheets", req.Product)
	assert.Equal(t, "de-DE", req.Locale)
	assert.Equal(t, 7, req.ClusteringK)
	assert.Equal(t, 3, req.TopClusters)
	assert.Equal(t, 100, req.MaxRows)
	assert.Equal(t, 5, req.MemberLimit)
	assert.True(t, req.SkipTopics)
}

func TestBuildRequest_WeightsFile(t *testing.T) {
	withTestConfig(t)

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  volume: 0.5\n  kd: 0.2\n  cpc: 0.1\n  brand: 0.1\n  intent: 0.1\n"), 0o644))

	req, err := buildRequest(newRequestFlags(t, "--weights", path), "kw.csv")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, req.Weights["volume"], 1e-9)
}

func TestBuildRequest_InvalidWeightsFile(t *testing.T) {
	withTestConfig(t)

	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  volume: 1\n"), 0o644))

	_, err := buildRequest(newRequestFlags(t, "--weights", path), "kw.csv")
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidWeights, model.KindOf(err))
}

func TestWriteResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	result := &model.RunResult{RunID: "ab12cd34", Brand: "Acme", Topics: []model.TopicIdea{}}

	path, err := writeResult(dir, result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kra_result_ab12cd34.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.RunResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ab12cd34", got.RunID)
	assert.Equal(t, "Acme", got.Brand)
}
