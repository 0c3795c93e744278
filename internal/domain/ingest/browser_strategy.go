package ingest

import (
	"context"
	"errors"

	"github.com/target/harvester/internal/domain/model"
)

// ErrNoRenderer is returned by browser sources when no browser runs in this process.
var ErrNoRenderer = errors.New("headless browser is not available")

type browserStrategy struct {
	source    string
	pageURL   string
	selectors Selectors
	renderer  PageRenderer
}

func newBrowserStrategy(src model.Source, deps Deps) *browserStrategy {
	cfg := src.Config
	pageURL, _ := cfg.String("url")
	sel := Selectors{}
	sel.Container, _ = cfg.String("container_selector")
	sel.Title, _ = cfg.String("title_selector")
	sel.Company, _ = cfg.String("company_selector")
	sel.Location, _ = cfg.String("location_selector")
	sel.Link, _ = cfg.String("link_selector")
	sel.Description, _ = cfg.String("description_selector")

	return &browserStrategy{
		source:    src.Name,
		pageURL:   pageURL,
		selectors: sel,
		renderer:  deps.Renderer,
	}
}

func (s *browserStrategy) ValidateConfiguration() error {
	var missing []string
	if s.pageURL == "" {
		missing = append(missing, "url")
	}
	if s.selectors.Container == "" {
		missing = append(missing, "container_selector")
	}
	if s.selectors.Title == "" {
		missing = append(missing, "title_selector")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Source: s.source, Missing: missing}
	}
	return nil
}

func (s *browserStrategy) FetchRawPostings(ctx context.Context) ([]RawPosting, error) {
	if s.renderer == nil {
		return nil, &FetchError{Source: s.source, Op: "render", Err: ErrNoRenderer}
	}
	html, err := s.renderer.Render(ctx, s.pageURL)
	if err != nil {
		return nil, &FetchError{Source: s.source, Op: "render", Err: err}
	}
	items, err := ExtractPostings(html, s.pageURL, s.selectors)
	if err != nil {
		return nil, &FetchError{Source: s.source, Op: "parse", Err: err}
	}
	return items, nil
}

var _ Strategy = (*browserStrategy)(nil)
