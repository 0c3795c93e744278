package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/harvester/internal/domain/model"
)

const (
	defaultUserAgent        = "harvester/1.0"
	defaultMaxResponseBytes = 10 << 20
)

// apiStrategy issues one GET against a JSON endpoint and locates the posting list in the body.
type apiStrategy struct {
	source   string
	endpoint string
	headers  map[string]string
	params   map[string]string
	listKey  string

	client    *http.Client
	userAgent string
	maxBytes  int64
}

func newAPIStrategy(src model.Source, deps Deps) *apiStrategy {
	endpoint, ok := src.Config.String("url")
	if !ok {
		endpoint = src.BaseURL
	}
	listKey, _ := src.Config.String("list_key")

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ua := deps.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBytes := deps.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	return &apiStrategy{
		source:    src.Name,
		endpoint:  endpoint,
		headers:   src.Config.StringMap("headers"),
		params:    src.Config.StringMap("params"),
		listKey:   listKey,
		client:    client,
		userAgent: ua,
		maxBytes:  maxBytes,
	}
}

func (s *apiStrategy) ValidateConfiguration() error {
	if s.endpoint == "" {
		return &ConfigurationError{Source: s.source, Missing: []string{"url"}}
	}
	u, err := url.Parse(s.endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ConfigurationError{Source: s.source, Reason: fmt.Sprintf("url %q is not an absolute http(s) URL", s.endpoint)}
	}
	return nil
}

func (s *apiStrategy) FetchRawPostings(ctx context.Context) ([]RawPosting, error) {
	req, err := s.newRequest(ctx)
	if err != nil {
		return nil, &FetchError{Source: s.source, Op: "request", Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.source, Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Source: s.source, Op: "status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Source: s.source, Op: "read", Err: err}
	}
	if int64(len(body)) > s.maxBytes {
		return nil, &FetchError{Source: s.source, Op: "read", Err: fmt.Errorf("response exceeds %d bytes", s.maxBytes)}
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &FetchError{Source: s.source, Op: "decode", Err: err}
	}

	return toRawPostings(s.locateList(data)), nil
}

func (s *apiStrategy) newRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, err
	}
	if len(s.params) > 0 {
		q := u.Query()
		for k, v := range s.params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// locateList returns the list at listKey, else the root when it is a list, else nil.
// listKey names a top-level field first; only when the body has no such field is
// it evaluated as a JMESPath expression, so keys like "job-list" or "2024" work.
func (s *apiStrategy) locateList(data any) []any {
	if s.listKey != "" {
		if obj, ok := data.(map[string]any); ok {
			if v, present := obj[s.listKey]; present {
				list, _ := v.([]any)
				return list
			}
		}
		if found, err := jmespath.Search(s.listKey, data); err == nil {
			if list, ok := found.([]any); ok {
				return list
			}
		}
	}
	if list, ok := data.([]any); ok {
		return list
	}
	return nil
}

func toRawPostings(items []any) []RawPosting {
	out := make([]RawPosting, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, RawPosting(obj))
			continue
		}
		out = append(out, RawPosting{"value": item})
	}
	return out
}

var _ Strategy = (*apiStrategy)(nil)
