package topic

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/keyword-cli/internal/resilience"
	"github.com/sells-group/keyword-cli/pkg/anthropic"
)

// Defaults for AnthropicGenerator.
const (
	DefaultModel       = "claude-haiku-4-5-20251001"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.2
)

// AnthropicGenerator generates topics with the Anthropic Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	retry       resilience.Policy
	limiter     *rate.Limiter
}

// Option configures an AnthropicGenerator.
type Option func(*AnthropicGenerator)

// WithModel overrides the model ID.
func WithModel(model string) Option {
	return func(g *AnthropicGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(g *AnthropicGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *AnthropicGenerator) { g.temperature = t }
}

// WithRetry sets the retry policy for the API call.
func WithRetry(p resilience.Policy) Option {
	return func(g *AnthropicGenerator) { g.retry = p }
}

// WithLimiter throttles calls shared across concurrent runs.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *AnthropicGenerator) { g.limiter = l }
}

// NewAnthropicGenerator returns a generator backed by client.
func NewAnthropicGenerator(client anthropic.Client, opts ...Option) *AnthropicGenerator {
	g := &AnthropicGenerator{
		client:      client,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		retry:       resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retry.Retryable == nil {
		g.retry.Retryable = retryable
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.RetryLogger("anthropic.create_message")
	}
	return g
}

// Generate asks the model for one topic per cluster. Ideas that fail
// validation are counted in Discarded; output that is not JSON at all
// yields no topics and a warning. Only a failed API call is an error.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(req.Clusters) == 0 {
		return &Response{}, nil
	}

	payload, err := BuildPayload(req)
	if err != nil {
		return nil, err
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "topic: wait for rate limiter")
		}
	}

	temp := g.temperature
	msgReq := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: payload}},
		Temperature: &temp,
	}
	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "topic: generate")
	}
	resp.Usage.LogCost(g.model, "topics")

	ids := make(map[string]bool, len(req.Clusters))
	for _, c := range req.Clusters {
		ids[c.ID] = true
	}

	out := &Response{Usage: resp.Usage}
	parsed, err := ParseTopics(resp.Text(), ids)
	if err != nil {
		zap.L().Warn("topic: unparseable model output", zap.Error(err), zap.String("stop_reason", resp.StopReason))
		out.Warnings = append(out.Warnings, "topic generation returned no parseable JSON")
		return out, nil
	}

	out.Topics = parsed.Topics
	out.Discarded = parsed.Discarded
	for _, reason := range parsed.Reasons {
		zap.L().Debug("topic: discarded idea", zap.String("reason", reason))
	}
	if parsed.Discarded > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%d topic idea(s) failed validation and were discarded", parsed.Discarded))
	}

	zap.L().Info("topic: generated ideas",
		zap.Int("clusters", len(req.Clusters)),
		zap.Int("kept", len(out.Topics)),
		zap.Int("discarded", out.Discarded),
	)
	return out, nil
}

func retryable(err error) bool {
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err)
}
