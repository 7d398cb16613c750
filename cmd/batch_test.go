package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keyword-cli/internal/model"
)

func TestProcessBatch_Empty(t *testing.T) {
	called := false
	ok, failed, err := processBatch(context.Background(), nil, 2, func(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, ok)
	assert.Zero(t, failed)
	assert.False(t, called)
}

func TestProcessBatch_CountsFailuresWithoutAborting(t *testing.T) {
	reqs := []model.RunRequest{
		{FilePath: "a.csv"},
		{FilePath: "missing.csv"},
		{FilePath: "b.csv"},
	}

	var calls atomic.Int64
	ok, failed, err := processBatch(context.Background(), reqs, 2, func(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
		calls.Add(1)
		if req.FilePath == "missing.csv" {
			return nil, model.NewError(model.KindFileNotFound, "input file not found: %s", req.FilePath)
		}
		return &model.RunResult{RunID: req.FilePath}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, int64(2), ok)
	assert.Equal(t, int64(1), failed)
}

func TestProcessBatch_RespectsConcurrency(t *testing.T) {
	reqs := make([]model.RunRequest, 8)

	var inFlight, peak atomic.Int64
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = processBatch(context.Background(), reqs, 2, func(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return &model.RunResult{}, nil
		})
	}()

	close(release)
	<-done
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestProcessBatch_ZeroConcurrencyRunsSerially(t *testing.T) {
	reqs := []model.RunRequest{{}, {}}
	ok, _, err := processBatch(context.Background(), reqs, 0, func(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
		return &model.RunResult{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ok)
}
