package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keyword-cli/internal/config"
	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/store"
)

// fakeRunner records the last request and returns a canned result or error.
type fakeRunner struct {
	last   model.RunRequest
	result *model.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req model.RunRequest) (*model.RunResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &model.RunResult{
		RunID:   "ab12cd34",
		Brand:   req.Brand,
		Product: req.Product,
		Locale:  req.Locale,
		Clusters: []model.Cluster{{
			ID:      "c0",
			Label:   "widget price",
			Members: make([]model.KeywordRecord, 4),
			Metrics: model.ClusterMetrics{Intent: model.IntentCommercial, Score: 0.5},
		}},
		Topics: []model.TopicIdea{},
	}, nil
}

func testDefaults(dataDir string) config.KRAConfig {
	return config.KRAConfig{
		OutputDir:   filepath.Join(dataDir, "out"),
		Brand:       "Aspose",
		Product:     "Aspose.Cells",
		Locale:      "en-US",
		TopClusters: 10,
		MaxRows:     50000,
		DataDir:     dataDir,
		Weights:     map[string]float64{"volume": 0.35, "kd": 0.25, "cpc": 0.15, "brand": 0.15, "intent": 0.10},
	}
}

func newTestSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRunEndpoint_UploadAndOverrides(t *testing.T) {
	dataDir := t.TempDir()
	runner := &fakeRunner{}
	h := newRouter(newAPI(runner, nil, testDefaults(dataDir), config.ServerConfig{}), nil)

	body, ct := multipartBody(t, map[string]string{
		"brand":        "Contoso",
		"product":      "Sheets",
		"locale":       "de-DE",
		"top_clusters": "5",
		"k":            "8",
	}, "Export.CSV", "Keyword\nfoo\n")

	req := httptest.NewRequest(http.MethodPost, "/api/run", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "Contoso", runner.last.Brand)
	assert.Equal(t, "Sheets", runner.last.Product)
	assert.Equal(t, "de-DE", runner.last.Locale)
	assert.Equal(t, 5, runner.last.TopClusters)
	assert.Equal(t, 8, runner.last.ClusteringK)
	assert.Equal(t, 50000, runner.last.MaxRows)

	assert.Equal(t, dataDir, filepath.Dir(runner.last.FilePath))
	base := filepath.Base(runner.last.FilePath)
	assert.True(t, strings.HasPrefix(base, "upload_"), base)
	assert.Equal(t, ".csv", filepath.Ext(base))
	assert.Len(t, base, len("upload_")+8+len(".csv"))
	saved, err := os.ReadFile(runner.last.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "Keyword\nfoo\n", string(saved))

	var resp struct {
		model.RunResult
		ArtifactPath string `json:"artifact_path"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ab12cd34", resp.RunID)
	require.Len(t, resp.Clusters, 1)
	assert.Len(t, resp.Clusters[0].Members, 4)
	assert.Equal(t, model.IntentCommercial, resp.Clusters[0].Metrics.Intent)

	assert.Equal(t, filepath.Join(dataDir, "out", "kra_result_ab12cd34.json"), resp.ArtifactPath)
	artifact, err := os.ReadFile(resp.ArtifactPath)
	require.NoError(t, err)
	var written model.RunResult
	require.NoError(t, json.Unmarshal(artifact, &written))
	assert.Equal(t, "ab12cd34", written.RunID)
	assert.Equal(t, "Contoso", written.Brand)
}

func TestRunEndpoint_ArtifactWriteError(t *testing.T) {
	dataDir := t.TempDir()
	blocker := filepath.Join(dataDir, "out")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(dataDir), config.ServerConfig{}), nil)

	body, ct := multipartBody(t, nil, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/run", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "create output dir")
}

func TestRunEndpoint_NoFileUsesDefaults(t *testing.T) {
	runner := &fakeRunner{}
	h := newRouter(newAPI(runner, nil, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

	body, ct := multipartBody(t, nil, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/run", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, runner.last.FilePath)
	assert.Equal(t, "Aspose", runner.last.Brand)
}

func TestRunEndpoint_InvalidInteger(t *testing.T) {
	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

	body, ct := multipartBody(t, map[string]string{"top_clusters": "ten"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/run", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "top_clusters")
}

func TestRunEndpoint_ErrorKinds(t *testing.T) {
	tests := []struct {
		kind   model.ErrorKind
		status int
	}{
		{model.KindFileNotFound, http.StatusNotFound},
		{model.KindUnreadableInput, http.StatusBadRequest},
		{model.KindMissingRequiredColumn, http.StatusBadRequest},
		{model.KindInvalidWeights, http.StatusBadRequest},
		{model.KindEmptyInput, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{err: model.NewError(tt.kind, "boom")}
			h := newRouter(newAPI(runner, nil, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

			body, ct := multipartBody(t, nil, "", "")
			req := httptest.NewRequest(http.MethodPost, "/api/run", body)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			var eb errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &eb))
			assert.Equal(t, tt.kind, eb.Kind)
		})
	}
}

func TestStatusForKind_Unclassified(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusForKind(""))
}

func TestRunEndpoint_RateLimited(t *testing.T) {
	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(t.TempDir()), config.ServerConfig{RunsPerMinute: 1}), nil)

	codes := make([]int, 0, 2)
	for range 2 {
		body, ct := multipartBody(t, nil, "", "")
		req := httptest.NewRequest(http.MethodPost, "/api/run", body)
		req.Header.Set("Content-Type", ct)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRunsEndpoints(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	run, err := st.CreateRun(ctx, model.RunRequest{Brand: "Aspose", Product: "Aspose.Cells"})
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, model.RunRequest{Brand: "Aspose", Product: "Aspose.Words"})
	require.NoError(t, err)

	h := newRouter(newAPI(&fakeRunner{}, st, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs?product=Aspose.Cells", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Aspose.Cells", got.Request.Product)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRunsEndpoints_NoStore(t *testing.T) {
	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(t.TempDir()), config.ServerConfig{}), nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newRouter(newAPI(&fakeRunner{}, nil, testDefaults(t.TempDir()), config.ServerConfig{}), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
