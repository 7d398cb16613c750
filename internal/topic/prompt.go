package topic

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keyword-cli/internal/model"
)

const systemPrompt = `You are a blog keyword analyst for a software product.
You receive keyword clusters ranked by opportunity. Propose one blog topic per cluster.
Return STRICT JSON only, no prose and no markdown, shaped as {"topics": [...]}.
Each topic must include:
- cluster_id: the cluster_id it was written for, copied exactly
- title
- angle: the thematic angle
- outline: 3-7 section headings
- target_persona
- primary_keyword
- supporting_keywords: 3-8 keywords
- internal_links: zero or more product page or doc references`

type promptKeyword struct {
	Keyword string `json:"keyword"`
	Volume  *int64 `json:"volume,omitempty"`
}

type promptCluster struct {
	ClusterID string          `json:"cluster_id"`
	Label     string          `json:"label"`
	Intent    model.Intent    `json:"intent"`
	BrandFit  float64         `json:"brand_fit"`
	Score     float64         `json:"score"`
	Keywords  []promptKeyword `json:"keywords"`
}

type promptPayload struct {
	Brand    string          `json:"brand"`
	Product  string          `json:"product"`
	Locale   string          `json:"locale"`
	Clusters []promptCluster `json:"clusters"`
}

// BuildPayload renders the user message for req.
func BuildPayload(req Request) (string, error) {
	limit := req.MemberLimit
	if limit <= 0 {
		limit = DefaultMemberLimit
	}

	p := promptPayload{
		Brand:    req.Brand,
		Product:  req.Product,
		Locale:   req.Locale,
		Clusters: make([]promptCluster, 0, len(req.Clusters)),
	}
	for _, c := range req.Clusters {
		members := c.Members
		if len(members) > limit {
			members = members[:limit]
		}
		kws := make([]promptKeyword, len(members))
		for i, m := range members {
			kws[i] = promptKeyword{Keyword: m.Keyword, Volume: m.Volume}
		}
		p.Clusters = append(p.Clusters, promptCluster{
			ClusterID: c.ID,
			Label:     c.Label,
			Intent:    c.Metrics.Intent,
			BrandFit:  model.Round(c.Metrics.BrandFit, 3),
			Score:     model.Round(c.Metrics.Score, 6),
			Keywords:  kws,
		})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "topic: marshal payload")
	}
	return string(data), nil
}
