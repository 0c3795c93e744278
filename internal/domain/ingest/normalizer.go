package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/target/harvester/internal/domain/model"
	"golang.org/x/net/publicsuffix"
)

// RawPosting is one record as delivered by a source, before normalization.
type RawPosting map[string]any

const currencyUSD = "USD"

var (
	salaryPattern = regexp.MustCompile(`(?i)\$(\d{2,3})k`)

	// TagVocabulary is matched against descriptions in this order.
	TagVocabulary = []string{"python", "java", "react", "fastapi", "docker", "kubernetes", "aws", "sql"}

	remoteKeywords = []string{"remote", "work from home", "wfh"}

	stringFields = []string{"title", "company", "location", "url", "description", "salary_text"}
)

// Normalizer converts raw records into NormalizedPosting values. It holds no state.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() Normalizer { return Normalizer{} }

// Normalize produces the canonical posting for raw. It returns an error wrapping
// ErrMalformedPosting when the record has no title or a known field has the wrong type.
func (Normalizer) Normalize(raw RawPosting) (model.NormalizedPosting, error) {
	fields := make(map[string]string, len(stringFields))
	for _, key := range stringFields {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return model.NormalizedPosting{}, fmt.Errorf("%w: field %q is %T, want string", ErrMalformedPosting, key, v)
		}
		fields[key] = s
	}

	title := strings.TrimSpace(fields["title"])
	if title == "" {
		return model.NormalizedPosting{}, fmt.Errorf("%w: title is required", ErrMalformedPosting)
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return model.NormalizedPosting{}, fmt.Errorf("%w: encode raw payload: %v", ErrMalformedPosting, err)
	}

	description := fields["description"]
	location := strings.TrimSpace(fields["location"])
	postingURL := strings.TrimSpace(fields["url"])

	salaryText := fields["salary_text"]
	if salaryText == "" {
		salaryText = description
	}
	minSalary, maxSalary, currency := ExtractSalary(salaryText)

	return model.NormalizedPosting{
		Title:       title,
		Company:     strings.TrimSpace(fields["company"]),
		Location:    location,
		URL:         postingURL,
		Description: description,
		SalaryMin:   minSalary,
		SalaryMax:   maxSalary,
		Currency:    currency,
		Tags:        ExtractTags(description),
		IsRemote:    IsRemote(location, description),
		Board:       BoardOf(postingURL),
		Raw:         rawJSON,
	}, nil
}

// ExtractSalary finds the first "$NNk" figure and returns it as both bounds in USD.
func ExtractSalary(text string) (*float64, *float64, *string) {
	if text == "" {
		return nil, nil, nil
	}
	m := salaryPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, nil, nil
	}
	lo := float64(n) * 1000
	hi := lo
	cur := currencyUSD
	return &lo, &hi, &cur
}

// ExtractTags returns the vocabulary entries that occur in description.
func ExtractTags(description string) []string {
	tags := []string{}
	if description == "" {
		return tags
	}
	lower := strings.ToLower(description)
	for _, tag := range TagVocabulary {
		if strings.Contains(lower, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsRemote reports whether location or description mention remote work.
func IsRemote(location, description string) bool {
	text := strings.ToLower(location + " " + description)
	for _, kw := range remoteKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// BoardOf returns the registrable domain of a posting URL, or "" when it has none.
func BoardOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return etld1
}
