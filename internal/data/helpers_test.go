package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain/model"
)

func mustUpsertSource(t *testing.T, db *sql.DB, name string) *model.Source {
	t.Helper()
	src, err := NewSourceRepo(db).Upsert(context.Background(), &model.UpsertSourceRequest{
		Name:    name,
		Kind:    model.SourceKindAPI,
		BaseURL: "https://jobs.example.com/api",
		Config:  model.SourceConfig{"list_key": "results"},
	})
	require.NoError(t, err)
	return src
}

func ingestJobRequest(sourceID string) *model.CreateJobRequest {
	return &model.CreateJobRequest{
		Type:     model.JobTypeIngest,
		Payload:  json.RawMessage(fmt.Sprintf(`{"source_id":%q,"trigger":"manual"}`, sourceID)),
		SourceID: &sourceID,
	}
}

func newPosting(title, company, url string, sourceID string) model.NewPosting {
	return model.NewPosting{
		NormalizedPosting: model.NormalizedPosting{
			Title:       title,
			Company:     company,
			Location:    "Remote",
			URL:         url,
			Description: "Build things with Go and SQL",
			Tags:        []string{"sql"},
			IsRemote:    true,
			Raw:         json.RawMessage(fmt.Sprintf(`{"title":%q}`, title)),
		},
		IdentityHash: fmt.Sprintf("hash-%s-%s", title, company),
		SourceID:     sourceID,
		SourceName:   "board",
	}
}

func strPtr(s string) *string { return &s }
