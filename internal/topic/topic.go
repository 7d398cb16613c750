// Package topic asks an LLM for blog topic ideas for the top-ranked
// keyword clusters and keeps only the ideas that validate.
package topic

import (
	"context"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/pkg/anthropic"
)

// DefaultMemberLimit is the number of keywords per cluster sent to the LLM.
const DefaultMemberLimit = 12

// Request describes one topic-generation call.
type Request struct {
	Brand       string
	Product     string
	Locale      string
	Clusters    []model.Cluster // already ranked and truncated
	MemberLimit int
}

// Response holds the ideas that survived validation.
type Response struct {
	Topics    []model.TopicIdea
	Discarded int
	Warnings  []string
	Usage     anthropic.TokenUsage
}

// Generator produces topic ideas for ranked clusters.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
