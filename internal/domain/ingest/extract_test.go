package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain/model"
)

const listingHTML = `<html><body>
<ul>
  <li class="job">
    <h2 class="title"> Go   Developer </h2>
    <span class="company">Acme</span>
    <span class="loc">Remote</span>
    <a href="/jobs/1">Apply</a>
    <p class="desc">Build services in Go and SQL.</p>
  </li>
  <li class="job">
    <h2 class="title">Data Engineer</h2>
    <a href="https://other.example.org/j/2">Apply</a>
  </li>
  <li class="job">
    <span class="company">No title here</span>
  </li>
</ul>
</body></html>`

func TestExtractPostings(t *testing.T) {
	items, err := ExtractPostings(listingHTML, "https://careers.example.com/list", Selectors{
		Container:   "li.job",
		Title:       ".title",
		Company:     ".company",
		Location:    ".loc",
		Description: ".desc",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Go Developer", items[0]["title"])
	assert.Equal(t, "Acme", items[0]["company"])
	assert.Equal(t, "Remote", items[0]["location"])
	assert.Equal(t, "https://careers.example.com/jobs/1", items[0]["url"])
	assert.Equal(t, "Build services in Go and SQL.", items[0]["description"])

	assert.Equal(t, "Unknown", items[1]["company"])
	assert.Equal(t, "Unknown", items[1]["location"])
	assert.Equal(t, "https://other.example.org/j/2", items[1]["url"])
	assert.Equal(t, "", items[1]["description"])
}

func TestExtractPostings_ContainerIsAnchor(t *testing.T) {
	html := `<div><a class="card" href="jobs/7"><b>Ops</b></a></div>`
	items, err := ExtractPostings(html, "https://example.com/board/", Selectors{Container: "a.card", Title: "b"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/board/jobs/7", items[0]["url"])
}

type stubRenderer struct {
	html string
	err  error
	urls []string
}

func (s *stubRenderer) Render(_ context.Context, pageURL string) (string, error) {
	s.urls = append(s.urls, pageURL)
	return s.html, s.err
}

func browserSource(cfg model.SourceConfig) model.Source {
	return model.Source{Name: "board", Kind: model.SourceKindBrowser, Config: cfg}
}

func TestBrowserStrategy_Fetch(t *testing.T) {
	r := &stubRenderer{html: listingHTML}
	s, err := NewStrategy(browserSource(model.SourceConfig{
		"url":                "https://careers.example.com/list",
		"container_selector": "li.job",
		"title_selector":     ".title",
	}), Deps{Renderer: r})
	require.NoError(t, err)
	require.NoError(t, s.ValidateConfiguration())

	items, err := s.FetchRawPostings(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, []string{"https://careers.example.com/list"}, r.urls)
}

func TestBrowserStrategy_RenderFailureIsFetchError(t *testing.T) {
	r := &stubRenderer{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	s, err := NewStrategy(browserSource(model.SourceConfig{
		"url": "https://nowhere.invalid", "container_selector": "li", "title_selector": "h2",
	}), Deps{Renderer: r})
	require.NoError(t, err)

	_, err = s.FetchRawPostings(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "render", fe.Op)
}

func TestBrowserStrategy_NoRenderer(t *testing.T) {
	s, err := NewStrategy(browserSource(model.SourceConfig{
		"url": "https://example.com", "container_selector": "li", "title_selector": "h2",
	}), Deps{})
	require.NoError(t, err)
	_, err = s.FetchRawPostings(context.Background())
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestBrowserStrategy_ValidateConfiguration(t *testing.T) {
	r := &stubRenderer{}
	s, err := NewStrategy(browserSource(model.SourceConfig{"url": "https://example.com"}), Deps{Renderer: r})
	require.NoError(t, err)

	err = s.ValidateConfiguration()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"container_selector", "title_selector"}, cfgErr.Missing)
	assert.Empty(t, r.urls)
}
