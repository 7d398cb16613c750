package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/keyword-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:      "abc12345",
			Request: model.RunRequest{Product: "Aspose.Cells"},
			Status:  model.RunStatusComplete,
			Result: &model.RunResult{
				Clusters:      make([]model.Cluster, 3),
				ClustersTotal: 12,
				Topics:        make([]model.TopicIdea, 2),
			},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def67890",
			Request:   model.RunRequest{Product: "An Extremely Long Product Name For Display"},
			Status:    model.RunStatusClustering,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "PRODUCT")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Aspose.Cells")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "3/12")
	assert.Contains(t, output, "clustering")
	assert.Contains(t, output, "An Extremely Long Product N...")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
}
