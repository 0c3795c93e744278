package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxNameLen is the maximum allowed length for source names in characters.
	maxNameLen = 255

	// DefaultPollInterval is applied when a source is upserted without a schedule.
	DefaultPollInterval = "@every 6h"
)

// SourceKind selects the fetch strategy for a source. The set is closed.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SourceKind string

const (
	// SourceKindAPI fetches postings from a JSON HTTP endpoint.
	SourceKindAPI SourceKind = "api"
	// SourceKindBrowser renders a page in a headless browser and scrapes it.
	SourceKindBrowser SourceKind = "browser"
)

// SourceKinds lists every supported kind.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceKindAPI, SourceKindBrowser}
}

// Valid returns true if the SourceKind is supported.
func (k SourceKind) Valid() bool {
	return k == SourceKindAPI || k == SourceKindBrowser
}

// UnmarshalText accepts "scraper" as an alias for browser.
func (k *SourceKind) UnmarshalText(text []byte) error {
	v := SourceKind(strings.ToLower(strings.TrimSpace(string(text))))
	if v == "scraper" {
		v = SourceKindBrowser
	}
	if !v.Valid() {
		return fmt.Errorf("invalid source kind: %q", string(text))
	}
	*k = v
	return nil
}

// SourceConfig is the free-form strategy configuration stored with a source.
type SourceConfig map[string]any

// String returns a trimmed string value for key.
func (c SourceConfig) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// StringMap returns a string-valued map for key. Non-string values are formatted with %v.
func (c SourceConfig) StringMap(key string) map[string]string {
	raw, ok := c[key].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case nil:
			continue
		default:
			out[k] = fmt.Sprintf("%v", tv)
		}
	}
	return out
}

// Has reports whether key is present with a non-empty string value.
func (c SourceConfig) Has(key string) bool {
	_, ok := c.String(key)
	return ok
}

// Source is a configured origin of postings.
type Source struct {
	ID           string       `json:"id"                       db:"id"`
	Name         string       `json:"name"                     db:"name"`
	Kind         SourceKind   `json:"kind"                     db:"kind"`
	BaseURL      string       `json:"base_url"                 db:"base_url"`
	Config       SourceConfig `json:"config"                   db:"config"`
	Active       bool         `json:"active"                   db:"active"`
	PollInterval string       `json:"poll_interval"            db:"poll_interval"`
	LastRunAt    *time.Time   `json:"last_run_at,omitempty"    db:"last_run_at"`
	LastQueuedAt *time.Time   `json:"last_queued_at,omitempty" db:"last_queued_at"`
	NextPollAt   *time.Time   `json:"next_poll_at,omitempty"   db:"next_poll_at"`
	CreatedAt    time.Time    `json:"created_at"               db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"               db:"updated_at"`
}

// UpsertSourceRequest creates a source or replaces the configuration of the source with the same name.
type UpsertSourceRequest struct {
	Name         string       `json:"name"`
	Kind         SourceKind   `json:"kind"`
	BaseURL      string       `json:"base_url"`
	Config       SourceConfig `json:"config,omitempty"`
	Active       *bool        `json:"active,omitempty"`
	PollInterval string       `json:"poll_interval,omitempty"`
}

// Normalize trims inputs and applies defaults. Call before Validate.
func (r *UpsertSourceRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.BaseURL = strings.TrimSpace(r.BaseURL)
	r.PollInterval = strings.TrimSpace(r.PollInterval)
	if r.PollInterval == "" {
		r.PollInterval = DefaultPollInterval
	}
	if r.Config == nil {
		r.Config = SourceConfig{}
	}
}

// IsActive returns the requested active flag, defaulting to true.
func (r *UpsertSourceRequest) IsActive() bool {
	return r.Active == nil || *r.Active
}

// Validate validates the UpsertSourceRequest fields.
func (r *UpsertSourceRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(r.Name) > maxNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("kind must be one of %v", SourceKinds())
	}
	if r.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(r.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("base_url must be an absolute http(s) URL")
	}
	return nil
}
