// Package ingest fetches raw postings from sources and turns them into catalog rows.
//
// A source's kind selects a Strategy. Strategies only retrieve raw records; the
// Normalizer and IdentityHash are pure functions applied by the pipeline afterwards.
package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/target/harvester/internal/domain/model"
)

// Strategy retrieves raw postings for one source.
type Strategy interface {
	// ValidateConfiguration returns a *ConfigurationError when required keys are absent.
	ValidateConfiguration() error
	// FetchRawPostings returns every raw record currently offered by the source.
	// Failures are reported as *FetchError.
	FetchRawPostings(ctx context.Context) ([]RawPosting, error)
}

// PageRenderer returns the rendered HTML of a page.
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Deps are the shared resources strategies borrow. None are owned by a strategy.
type Deps struct {
	HTTPClient       *http.Client
	Renderer         PageRenderer
	UserAgent        string
	MaxResponseBytes int64
}

// NewStrategy selects the strategy for src.Kind.
func NewStrategy(src model.Source, deps Deps) (Strategy, error) {
	switch src.Kind {
	case model.SourceKindAPI:
		return newAPIStrategy(src, deps), nil
	case model.SourceKindBrowser:
		return newBrowserStrategy(src, deps), nil
	default:
		return nil, &ConfigurationError{
			Source: src.Name,
			Reason: fmt.Sprintf("unsupported kind %q", src.Kind),
		}
	}
}
