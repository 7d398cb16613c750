// Package pipeline runs one keyword research run end to end: import,
// difficulty rescale, clustering, annotation, scoring and, optionally,
// topic generation.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/annotate"
	"github.com/sells-group/keyword-cli/internal/cluster"
	"github.com/sells-group/keyword-cli/internal/config"
	"github.com/sells-group/keyword-cli/internal/keyword"
	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/scorer"
	"github.com/sells-group/keyword-cli/internal/store"
	"github.com/sells-group/keyword-cli/internal/topic"
)

// Pipeline orchestrates the stages of a run. The store and the topic
// generator are optional.
type Pipeline struct {
	cfg    config.KRAConfig
	store  store.Store
	topics topic.Generator
	now    func() time.Time
}

// New creates a Pipeline. st and gen may be nil.
func New(cfg config.KRAConfig, st store.Store, gen topic.Generator) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		topics: gen,
		now:    time.Now,
	}
}

// Run executes the pipeline for req. On failure the run is marked failed in
// the store (when attached) and the stage error is returned unchanged so
// callers can recover its kind with model.KindOf.
func (p *Pipeline) Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
	if req.Weights == nil {
		req.Weights = scorer.DefaultWeights()
	}
	if req.MemberLimit <= 0 {
		req.MemberLimit = topic.DefaultMemberLimit
	}

	runID := store.NewRunID()
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, req)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}

	log := zap.L().With(zap.String("run_id", runID), zap.String("product", req.Product))
	log.Info("pipeline: starting run", zap.String("file", req.FilePath))

	result, err := p.run(ctx, runID, req, log)
	if err != nil {
		p.fail(ctx, runID, err, log)
		return nil, err
	}

	if p.store != nil {
		if err := p.store.UpdateRunResult(ctx, runID, result); err != nil {
			err = eris.Wrap(err, "pipeline: save result")
			p.fail(ctx, runID, err, log)
			return nil, err
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("records", result.Records),
		zap.Int("clusters", result.ClustersTotal),
		zap.Int("topics", len(result.Topics)),
	)
	return result, nil
}

// fail records err against the run. It runs detached from ctx so a
// cancelled run is still marked failed.
func (p *Pipeline) fail(ctx context.Context, runID string, err error, log *zap.Logger) {
	log.Error("pipeline: run failed", zap.Error(err))
	if p.store == nil {
		return
	}
	if failErr := p.store.FailRun(context.WithoutCancel(ctx), runID, err.Error()); failErr != nil {
		log.Warn("pipeline: failed to record failure", zap.Error(failErr))
	}
}

func (p *Pipeline) run(ctx context.Context, runID string, req model.RunRequest, log *zap.Logger) (*model.RunResult, error) {
	setStatus := func(status model.RunStatus) {
		if p.store == nil {
			return
		}
		if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
			log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
		}
	}

	if err := scorer.ValidateWeights(req.Weights); err != nil {
		return nil, err
	}

	// Import.
	setStatus(model.RunStatusImporting)
	path, err := keyword.ResolvePath(req.FilePath, p.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	records, _, err := keyword.Import(path, keyword.Options{Locale: req.Locale, MaxRows: req.MaxRows})
	if err != nil {
		return nil, err
	}
	records = keyword.RescaleDifficulty(records)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: import")
	}

	// Cluster and annotate.
	setStatus(model.RunStatusClustering)
	clusters, err := cluster.Build(records, cluster.Options{
		K:         req.ClusteringK,
		Seed:      p.cfg.Seed,
		BatchSize: p.cfg.BatchSize,
		MaxIter:   p.cfg.MaxIter,
	})
	if err != nil {
		return nil, err
	}
	clusters = annotate.New(req.Brand, req.Product).Annotate(clusters)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cluster")
	}

	// Score and rank.
	setStatus(model.RunStatusScoring)
	ranked, err := scorer.Rank(clusters, req.Weights)
	if err != nil {
		return nil, err
	}
	top := TopN(ranked, req.TopClusters)

	result := &model.RunResult{
		RunID:         runID,
		Brand:         req.Brand,
		Product:       req.Product,
		Locale:        req.Locale,
		Clusters:      top,
		Topics:        []model.TopicIdea{},
		Records:       len(records),
		ClustersTotal: len(ranked),
		CreatedAt:     p.now().UTC(),
	}

	if p.topics == nil || req.SkipTopics {
		return result, nil
	}

	setStatus(model.RunStatusGeneratingTopics)
	resp, err := p.topics.Generate(ctx, topic.Request{
		Brand:       req.Brand,
		Product:     req.Product,
		Locale:      req.Locale,
		Clusters:    top,
		MemberLimit: req.MemberLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate topics")
	}
	if resp.Topics != nil {
		result.Topics = resp.Topics
	}
	result.TopicsDiscarded = resp.Discarded
	result.Warnings = append(result.Warnings, resp.Warnings...)
	return result, nil
}

// TopN returns the first n ranked clusters, or all of them when n <= 0.
func TopN(ranked []model.Cluster, n int) []model.Cluster {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
