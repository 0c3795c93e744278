package ingest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	unknownValue = "Unknown"
	defaultLink  = "a"
)

// Selectors locate posting fields inside a rendered listing page.
// Company, Location, Link and Description are optional.
type Selectors struct {
	Container   string
	Title       string
	Company     string
	Location    string
	Link        string
	Description string
}

// ExtractPostings scrapes one raw record per container element that has a non-empty title.
// Relative links are resolved against pageURL.
func ExtractPostings(html, pageURL string, sel Selectors) ([]RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	linkSel := sel.Link
	if linkSel == "" {
		linkSel = defaultLink
	}

	out := []RawPosting{}
	doc.Find(sel.Container).Each(func(_ int, s *goquery.Selection) {
		title := textOf(s, sel.Title)
		if title == "" {
			return
		}
		out = append(out, RawPosting{
			"title":       title,
			"company":     orUnknown(textOf(s, sel.Company)),
			"location":    orUnknown(textOf(s, sel.Location)),
			"url":         resolveHref(base, s, linkSel),
			"description": textOf(s, sel.Description),
			"source":      "browser",
		})
	})
	return out, nil
}

func textOf(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

func orUnknown(v string) string {
	if v == "" {
		return unknownValue
	}
	return v
}

func resolveHref(base *url.URL, s *goquery.Selection, selector string) string {
	href, ok := s.Find(selector).First().Attr("href")
	if !ok {
		if goquery.NodeName(s) != "a" {
			return ""
		}
		href, ok = s.Attr("href")
		if !ok {
			return ""
		}
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
