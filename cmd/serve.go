package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/keyword-cli/internal/config"
	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/store"
)

const maxUploadBytes = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for keyword runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetInt("port")
		if port != 0 {
			cfg.Server.Port = port
		}

		env, err := initPipeline(ctx, "serve", true, topicsLimiter(cfg.Batch.TopicsPerMinute))
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(newAPI(env.Pipeline, env.Store, cfg.KRA, cfg.Server), cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runner executes one pipeline run.
type runner interface {
	Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error)
}

// api holds the handler dependencies.
type api struct {
	runner   runner
	store    store.Store
	defaults config.KRAConfig
	limiter  *rate.Limiter // nil disables throttling
}

func newAPI(r runner, st store.Store, defaults config.KRAConfig, srv config.ServerConfig) *api {
	a := &api{runner: r, store: st, defaults: defaults}
	if srv.RunsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(srv.RunsPerMinute)), srv.RunsPerMinute)
	}
	return a
}

func newRouter(a *api, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(a.throttle).Post("/run", a.handleRun)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
	})
	return r
}

func (a *api) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && !a.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// runResponse is the full result of an API run plus where its JSON
// artifact was written.
type runResponse struct {
	*model.RunResult
	ArtifactPath string `json:"artifact_path"`
}

// handleRun accepts a multipart form with an optional keyword file and
// per-run overrides, runs the pipeline synchronously, writes the
// kra_result_<run_id>.json artifact into the output dir and returns the
// full result.
func (a *api) handleRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error(), "")
		return
	}

	req, err := a.requestFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	path, err := a.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	req.FilePath = path

	result, err := a.runner.Run(r.Context(), req)
	if err != nil {
		kind := model.KindOf(err)
		zap.L().Warn("api: run failed", zap.String("kind", string(kind)), zap.Error(err))
		writeError(w, statusForKind(kind), err.Error(), kind)
		return
	}

	outDir := a.defaults.OutputDir
	if outDir == "" {
		outDir = "out"
	}
	path, err = writeResult(outDir, result)
	if err != nil {
		zap.L().Error("api: write artifact", zap.String("run_id", result.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunResult: result, ArtifactPath: path})
}

func (a *api) requestFromForm(r *http.Request) (model.RunRequest, error) {
	req := a.defaults.Request("")
	if v := strings.TrimSpace(r.FormValue("brand")); v != "" {
		req.Brand = v
	}
	if v := strings.TrimSpace(r.FormValue("product")); v != "" {
		req.Product = v
	}
	if v := strings.TrimSpace(r.FormValue("locale")); v != "" {
		req.Locale = v
	}
	for field, dst := range map[string]*int{"top_clusters": &req.TopClusters, "k": &req.ClusteringK} {
		v := strings.TrimSpace(r.FormValue(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return model.RunRequest{}, fmt.Errorf("%s must be a non-negative integer", field)
		}
		*dst = n
	}
	return req, nil
}

// saveUpload stores the "file" part as <data_dir>/upload_<8 hex>.<ext>. It
// returns "" when the form carries no file.
func (a *api) saveUpload(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "api: read upload")
	}
	defer f.Close() //nolint:errcheck

	dir := a.defaults.DataDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "api: create data dir %s", dir)
	}

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	path := filepath.Join(dir, "upload_"+uuid.NewString()[:8]+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "api: create upload")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, f); err != nil {
		return "", eris.Wrap(err, "api: save upload")
	}
	return path, nil
}

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured", "")
		return
	}

	filter := store.RunFilter{
		Status:  model.RunStatus(r.URL.Query().Get("status")),
		Product: r.URL.Query().Get("product"),
	}
	for param, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := r.URL.Query().Get(param); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, param+" must be a non-negative integer", "")
				return
			}
			*dst = n
		}
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store not configured", "")
		return
	}

	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// statusForKind maps a pipeline error kind to an HTTP status.
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindFileNotFound:
		return http.StatusNotFound
	case model.KindEmptyInput:
		return http.StatusUnprocessableEntity
	case model.KindUnreadableInput, model.KindMissingRequiredColumn, model.KindInvalidWeights:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string          `json:"error"`
	Kind  model.ErrorKind `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, kind model.ErrorKind) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
