package topic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keyword-cli/internal/model"
)

// ParseResult is the outcome of parsing one LLM response.
type ParseResult struct {
	Topics    []model.TopicIdea
	Discarded int
	Reasons   []string
}

// ParseTopics extracts topic ideas from raw model output. Each item is
// decoded and validated on its own; items that fail, or that name a
// cluster not in clusterIDs, are discarded. An error means the output was
// not a JSON object with a topics list at all.
func ParseTopics(text string, clusterIDs map[string]bool) (*ParseResult, error) {
	var envelope struct {
		Topics []json.RawMessage `json:"topics"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &envelope); err != nil {
		return nil, eris.Wrap(err, "topic: response is not a JSON object")
	}

	res := &ParseResult{Topics: make([]model.TopicIdea, 0, len(envelope.Topics))}
	for i, raw := range envelope.Topics {
		idea, err := decodeIdea(raw)
		if err == nil && !clusterIDs[idea.ClusterID] {
			err = eris.Errorf("topic: unknown cluster_id %q", idea.ClusterID)
		}
		if err != nil {
			res.Discarded++
			res.Reasons = append(res.Reasons, fmt.Sprintf("topic %d: %v", i, err))
			continue
		}
		res.Topics = append(res.Topics, idea)
	}
	return res, nil
}

func decodeIdea(raw json.RawMessage) (model.TopicIdea, error) {
	var idea model.TopicIdea
	if err := json.Unmarshal(raw, &idea); err != nil {
		return idea, eris.Wrap(err, "topic: decode idea")
	}
	if idea.InternalLinks == nil {
		idea.InternalLinks = []string{}
	}
	return idea, idea.Validate()
}

// cleanJSON strips markdown fences and surrounding prose, keeping the
// first '{' through the last '}'.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
