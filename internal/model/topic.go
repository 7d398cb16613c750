package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Outline and supporting keyword bounds accepted from the topic generator.
const (
	MinOutlineItems       = 3
	MaxOutlineItems       = 7
	MinSupportingKeywords = 3
	MaxSupportingKeywords = 8
)

// TopicIdea is a blog topic proposed for one ranked cluster.
type TopicIdea struct {
	ClusterID          string   `json:"cluster_id"`
	Title              string   `json:"title"`
	Angle              string   `json:"angle"`
	Outline            []string `json:"outline"`
	TargetPersona      string   `json:"target_persona"`
	PrimaryKeyword     string   `json:"primary_keyword"`
	SupportingKeywords []string `json:"supporting_keywords"`
	InternalLinks      []string `json:"internal_links"`
}

// Validate checks required fields and list bounds.
func (t TopicIdea) Validate() error {
	var errs []string

	required := []struct {
		name, value string
	}{
		{"cluster_id", t.ClusterID},
		{"title", t.Title},
		{"angle", t.Angle},
		{"target_persona", t.TargetPersona},
		{"primary_keyword", t.PrimaryKeyword},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, f.name+" is required")
		}
	}

	if n := len(t.Outline); n < MinOutlineItems || n > MaxOutlineItems {
		errs = append(errs, "outline must have 3-7 items")
	}
	for _, item := range t.Outline {
		if strings.TrimSpace(item) == "" {
			errs = append(errs, "outline items must be non-empty")
			break
		}
	}
	if n := len(t.SupportingKeywords); n < MinSupportingKeywords || n > MaxSupportingKeywords {
		errs = append(errs, "supporting_keywords must have 3-8 items")
	}

	if len(errs) > 0 {
		return eris.Errorf("topic: invalid idea: %s", strings.Join(errs, "; "))
	}
	return nil
}
