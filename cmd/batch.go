package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/keyword-cli/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the pipeline for several keyword files concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		files, _ := cmd.Flags().GetStringSlice("file")
		files = append(files, args...)
		if len(files) == 0 {
			return eris.New("batch: at least one --file is required")
		}

		reqs := make([]model.RunRequest, 0, len(files))
		for _, f := range files {
			req, err := buildRequest(cmd.Flags(), f)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}

		env, err := initPipeline(ctx, "batch", true, topicsLimiter(cfg.Batch.TopicsPerMinute))
		if err != nil {
			return err
		}
		defer env.Close()

		outDir, _ := cmd.Flags().GetString("output-dir")
		if outDir == "" {
			outDir = cfg.KRA.OutputDir
		}

		_, failed, err := processBatch(ctx, reqs, cfg.Batch.MaxConcurrentRuns, func(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
			result, err := env.Pipeline.Run(ctx, req)
			if err != nil {
				return nil, err
			}
			if outDir != "" {
				if _, err := writeResult(outDir, result); err != nil {
					return nil, err
				}
			}
			summary := result.Summary()
			zap.L().Info("batch: run complete",
				zap.String("run_id", summary.RunID),
				zap.String("file", req.FilePath),
				zap.Any("clusters", summary.Clusters),
				zap.Int("topics", len(summary.Topics)),
			)
			return result, nil
		})
		if err != nil {
			return err
		}
		if failed > 0 {
			zap.L().Warn("batch finished with failures", zap.Int64("failed", failed))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringSlice("file", nil, "keyword export to process (repeatable)")
	batchCmd.Flags().String("output-dir", "", "directory for JSON results (default from config)")
	addRequestFlags(batchCmd.Flags())
	rootCmd.AddCommand(batchCmd)
}

// runFunc is the callback signature for running the pipeline on one request.
type runFunc func(ctx context.Context, req model.RunRequest) (*model.RunResult, error)

// processBatch runs every request concurrently with at most concurrency in
// flight. A failed run is logged and counted; it does not abort the batch.
func processBatch(ctx context.Context, reqs []model.RunRequest, concurrency int, run runFunc) (succeeded, failed int64, err error) {
	if len(reqs) == 0 {
		zap.L().Info("no keyword files to process")
		return 0, 0, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("files", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var ok, bad atomic.Int64

	for _, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("file", req.FilePath))

			result, err := run(gctx, req)
			if err != nil {
				bad.Add(1)
				log.Error("run failed",
					zap.String("kind", string(model.KindOf(err))),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}

			ok.Add(1)
			log.Info("run complete",
				zap.String("run_id", result.RunID),
				zap.Int("clusters", len(result.Clusters)),
				zap.Int("topics", len(result.Topics)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ok.Load(), bad.Load(), eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", ok.Load()),
		zap.Int64("failed", bad.Load()),
	)
	return ok.Load(), bad.Load(), nil
}
