// Package devseed upserts demonstration sources for local development.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/harvester/internal/core"
	"github.com/target/harvester/internal/data"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	sources *service.SourceService
}

// NewServices constructs seeding services over db.
func NewServices(db *sql.DB) Services {
	return NewServicesWithRepo(data.NewSourceRepo(db))
}

// NewServicesWithRepo constructs seeding services over an arbitrary source repository.
func NewServicesWithRepo(repo core.SourceRepository) Services {
	return Services{
		sources: service.NewSourceService(service.SourceServiceOptions{SourceRepo: repo}),
	}
}

// Run upserts every default source. Sources are keyed by name, so running it
// again refreshes their configuration. It returns the number of failures.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, req := range DefaultSources() {
		src, err := svcs.sources.Upsert(ctx, req)
		if err != nil {
			failures++
			logger.WarnContext(ctx, "failed to seed source", "name", req.Name, "error", err)
			continue
		}
		logger.InfoContext(ctx, "seeded source", "name", src.Name, "id", src.ID, "kind", src.Kind)
	}
	if failures > 0 {
		return failures, fmt.Errorf("%d of %d sources failed to seed", failures, len(DefaultSources()))
	}
	return 0, nil
}

// DefaultSources returns the demonstration sources. The API source points at a
// public board and stays inactive until enabled; the browser source exercises
// selector extraction against a local fixture server.
func DefaultSources() []*model.UpsertSourceRequest {
	return []*model.UpsertSourceRequest{
		{
			Name:    "remotive-api",
			Kind:    model.SourceKindAPI,
			BaseURL: "https://remotive.com",
			Config: model.SourceConfig{
				"url":      "https://remotive.com/api/remote-jobs",
				"list_key": "jobs",
				"params":   map[string]any{"category": "software-dev", "limit": "50"},
			},
			Active:       boolPtr(false),
			PollInterval: "@every 6h",
		},
		{
			Name:    "local-careers-page",
			Kind:    model.SourceKindBrowser,
			BaseURL: "http://localhost:8090",
			Config: model.SourceConfig{
				"url":                  "http://localhost:8090/careers",
				"container_selector":   ".job-card",
				"title_selector":       ".job-title",
				"company_selector":     ".job-company",
				"location_selector":    ".job-location",
				"link_selector":        "a.job-link",
				"description_selector": ".job-summary",
			},
			Active:       boolPtr(true),
			PollInterval: "@hourly",
		},
	}
}

func boolPtr(b bool) *bool { return &b }
