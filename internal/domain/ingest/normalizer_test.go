package ingest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	raw := RawPosting{
		"title":       "  Senior Backend Engineer ",
		"company":     " Acme ",
		"location":    "Remote - US",
		"url":         "https://jobs.example.co.uk/postings/42",
		"description": "We use Python, Docker and AWS. Pay around $150k.",
		"extra":       float64(7),
	}

	got, err := NewNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Senior Backend Engineer", got.Title)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Remote - US", got.Location)
	assert.Equal(t, "https://jobs.example.co.uk/postings/42", got.URL)
	assert.Equal(t, raw["description"], got.Description)
	require.NotNil(t, got.SalaryMin)
	require.NotNil(t, got.SalaryMax)
	assert.InDelta(t, 150000, *got.SalaryMin, 0.001)
	assert.InDelta(t, 150000, *got.SalaryMax, 0.001)
	require.NotNil(t, got.Currency)
	assert.Equal(t, "USD", *got.Currency)
	assert.Equal(t, []string{"python", "docker", "aws"}, got.Tags)
	assert.True(t, got.IsRemote)
	assert.Equal(t, "example.co.uk", got.Board)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.Raw, &payload))
	assert.Equal(t, "  Senior Backend Engineer ", payload["title"])
	assert.InDelta(t, 7, payload["extra"], 0.001)
}

func TestNormalizer_SalaryTextWinsOverDescription(t *testing.T) {
	got, err := NewNormalizer().Normalize(RawPosting{
		"title":       "Engineer",
		"salary_text": "$90K base",
		"description": "Up to $200k",
	})
	require.NoError(t, err)
	require.NotNil(t, got.SalaryMin)
	assert.InDelta(t, 90000, *got.SalaryMin, 0.001)
}

func TestNormalizer_NoSalary(t *testing.T) {
	got, err := NewNormalizer().Normalize(RawPosting{
		"title":       "Engineer",
		"description": "Competitive pay, $5k signing bonus",
	})
	require.NoError(t, err)
	assert.Nil(t, got.SalaryMin)
	assert.Nil(t, got.SalaryMax)
	assert.Nil(t, got.Currency)
	assert.Empty(t, got.Tags)
	assert.False(t, got.IsRemote)
	assert.Empty(t, got.Board)
}

func TestNormalizer_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  RawPosting
	}{
		{"missing title", RawPosting{"company": "Acme"}},
		{"blank title", RawPosting{"title": "   "}},
		{"non-string title", RawPosting{"title": 12.0}},
		{"non-string location", RawPosting{"title": "Dev", "location": []any{"NYC"}}},
		{"scalar element", RawPosting{"value": "just a string"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalizer().Normalize(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPosting))
		})
	}
}

func TestNormalizer_NullFieldsAreAbsent(t *testing.T) {
	got, err := NewNormalizer().Normalize(RawPosting{"title": "Dev", "company": nil, "url": nil})
	require.NoError(t, err)
	assert.Empty(t, got.Company)
	assert.Empty(t, got.URL)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("Berlin", "Hybrid, WFH Fridays"))
	assert.True(t, IsRemote("", "Work From Home available"))
	assert.True(t, IsRemote("REMOTE", ""))
	assert.False(t, IsRemote("Austin, TX", "On-site only"))
}

func TestExtractTags_VocabularyOrder(t *testing.T) {
	assert.Equal(t, []string{"python", "react", "kubernetes", "sql"},
		ExtractTags("PostgreSQL, Kubernetes, React and Python"))
	// "java" is a substring of "javascript"; matching is by substring.
	assert.Equal(t, []string{"java"}, ExtractTags("JavaScript"))
}

func TestBoardOf(t *testing.T) {
	assert.Equal(t, "greenhouse.io", BoardOf("https://boards.greenhouse.io/acme/jobs/1"))
	assert.Equal(t, "", BoardOf("/relative/path"))
	assert.Equal(t, "", BoardOf(""))
	assert.Equal(t, "", BoardOf("https://localhost/jobs"))
}
