package model

import (
	"encoding/json"
	"time"
)

// Posting is a normalized job listing in the catalog.
//
// IdentityHash and URL are each unique across the catalog. Company is a
// denormalized string rather than a reference to a company directory.
type Posting struct {
	ID           string          `json:"id"                   db:"id"`
	IdentityHash string          `json:"identity_hash"        db:"identity_hash"`
	Title        string          `json:"title"                db:"title"`
	Company      string          `json:"company"              db:"company"`
	Location     string          `json:"location"             db:"location"`
	URL          *string         `json:"url,omitempty"        db:"url"`
	Description  string          `json:"description"          db:"description"`
	SalaryMin    *float64        `json:"salary_min,omitempty" db:"salary_min"`
	SalaryMax    *float64        `json:"salary_max,omitempty" db:"salary_max"`
	Currency     *string         `json:"currency,omitempty"   db:"currency"`
	Tags         []string        `json:"tags"                 db:"tags"`
	IsRemote     bool            `json:"is_remote"            db:"is_remote"`
	Board        string          `json:"board,omitempty"      db:"board"`
	SourceID     *string         `json:"source_id,omitempty"  db:"source_id"`
	SourceName   string          `json:"source_name"          db:"source_name"`
	RawPayload   json.RawMessage `json:"raw_payload"          db:"raw_payload"`
	CreatedAt    time.Time       `json:"created_at"           db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"           db:"updated_at"`
}

// NormalizedPosting is the canonical shape produced from one raw record.
type NormalizedPosting struct {
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	SalaryMin   *float64
	SalaryMax   *float64
	Currency    *string
	Tags        []string
	IsRemote    bool
	Board       string
	Raw         json.RawMessage
}

// NewPosting is a normalized posting staged for insertion by a run.
type NewPosting struct {
	NormalizedPosting
	IdentityHash string
	SourceID     string
	SourceName   string
}

// PostingListOptions filters catalog listings.
type PostingListOptions struct {
	SourceID *string
	Remote   *bool
	Tag      string
	// Query matches title or company case-insensitively.
	Query  string
	Limit  int
	Offset int
}
