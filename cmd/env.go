package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/keyword-cli/internal/pipeline"
	"github.com/sells-group/keyword-cli/internal/resilience"
	"github.com/sells-group/keyword-cli/internal/store"
	"github.com/sells-group/keyword-cli/internal/topic"
	anthropicpkg "github.com/sells-group/keyword-cli/pkg/anthropic"
)

// pipelineEnv holds the store and pipeline used by the run, batch and serve
// commands.
type pipelineEnv struct {
	Store    store.Store // nil when run history is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "keyword.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// topicsLimiter spreads topic generation calls evenly across a minute.
// perMinute <= 0 disables throttling.
func topicsLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// initTopicGenerator returns nil when no Anthropic key is configured.
func initTopicGenerator(limiter *rate.Limiter) topic.Generator {
	if cfg.Anthropic.Key == "" {
		zap.L().Debug("KEYWORD_ANTHROPIC_KEY not set, topic generation disabled")
		return nil
	}

	var clientOpts []option.RequestOption
	if cfg.Anthropic.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, clientOpts...)

	opts := []topic.Option{
		topic.WithRetry(resilience.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)),
	}
	if cfg.Anthropic.Model != "" {
		opts = append(opts, topic.WithModel(cfg.Anthropic.Model))
	}
	if cfg.Anthropic.MaxTokens > 0 {
		opts = append(opts, topic.WithMaxTokens(cfg.Anthropic.MaxTokens))
	}
	if cfg.Anthropic.Temperature > 0 {
		opts = append(opts, topic.WithTemperature(cfg.Anthropic.Temperature))
	}
	if limiter != nil {
		opts = append(opts, topic.WithLimiter(limiter))
	}
	return topic.NewAnthropicGenerator(client, opts...)
}

// initPipeline validates the config for mode, opens the store (unless
// withStore is false) and builds the Pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string, withStore bool, limiter *rate.Limiter) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	env.Pipeline = pipeline.New(cfg.KRA, env.Store, initTopicGenerator(limiter))
	return env, nil
}
