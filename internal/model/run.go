package model

import "time"

// RunStatus represents the current state of a keyword research run.
type RunStatus string

const (
	RunStatusQueued           RunStatus = "queued"
	RunStatusImporting        RunStatus = "importing"
	RunStatusClustering       RunStatus = "clustering"
	RunStatusScoring          RunStatus = "scoring"
	RunStatusGeneratingTopics RunStatus = "generating_topics"
	RunStatusComplete         RunStatus = "complete"
	RunStatusFailed           RunStatus = "failed"
)

// Weights maps the five score components (volume, kd, cpc, brand, intent)
// to their weight in the composite score.
type Weights map[string]float64

// RunRequest is the input to one pipeline run.
type RunRequest struct {
	Brand       string  `json:"brand"`
	Product     string  `json:"product"`
	Locale      string  `json:"locale"`
	FilePath    string  `json:"file_path"`
	ClusteringK int     `json:"clustering_k,omitempty"`
	TopClusters int     `json:"top_clusters"`
	MaxRows     int     `json:"max_rows"`
	MemberLimit int     `json:"member_limit,omitempty"`
	Weights     Weights `json:"weights"`
	SkipTopics  bool    `json:"skip_topics,omitempty"`
}

// RunResult is the full output of a run: ranked clusters plus topics.
type RunResult struct {
	RunID           string      `json:"run_id"`
	Brand           string      `json:"brand"`
	Product         string      `json:"product"`
	Locale          string      `json:"locale"`
	Clusters        []Cluster   `json:"clusters"`
	Topics          []TopicIdea `json:"topics"`
	Records         int         `json:"records"`
	ClustersTotal   int         `json:"clusters_total"`
	TopicsDiscarded int         `json:"topics_discarded"`
	Warnings        []string    `json:"warnings,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ClusterSummary is the compact per-cluster view of a result.
type ClusterSummary struct {
	ClusterID string  `json:"cluster_id"`
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	Intent    Intent  `json:"intent"`
	NMembers  int     `json:"n_members"`
}

// RunSummary is a small, transport-friendly digest of a RunResult.
type RunSummary struct {
	RunID    string           `json:"run_id"`
	Brand    string           `json:"brand"`
	Product  string           `json:"product"`
	Locale   string           `json:"locale"`
	Clusters []ClusterSummary `json:"clusters"`
	Topics   []TopicIdea      `json:"topics"`
}

// Summary condenses the result for API and CLI output.
func (r *RunResult) Summary() RunSummary {
	s := RunSummary{
		RunID:    r.RunID,
		Brand:    r.Brand,
		Product:  r.Product,
		Locale:   r.Locale,
		Clusters: make([]ClusterSummary, 0, len(r.Clusters)),
		Topics:   r.Topics,
	}
	for _, c := range r.Clusters {
		s.Clusters = append(s.Clusters, ClusterSummary{
			ClusterID: c.ID,
			Label:     c.Label,
			Score:     Round(c.Metrics.Score, 6),
			Intent:    c.Metrics.Intent,
			NMembers:  len(c.Members),
		})
	}
	return s
}

// Run is a persisted run record.
type Run struct {
	ID        string     `json:"id"`
	Request   RunRequest `json:"request"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
