package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Provider looks up candidate source URLs for a query.
type Provider interface {
	// Name returns the identifier used in configuration, e.g. "scholar".
	Name() string
	// Search returns at most limit absolute http(s) URLs in listing order.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Default provider endpoints.
const (
	DefaultScholarEndpoint  = "https://scholar.google.com/scholar"
	DefaultCrossrefEndpoint = "https://api.crossref.org/works"
)

// ScholarProvider scrapes a Google Scholar result listing.
type ScholarProvider struct {
	client   *Client
	endpoint string
}

// NewScholarProvider creates a provider querying endpoint (default Google
// Scholar).
func NewScholarProvider(client *Client, endpoint string) *ScholarProvider {
	if endpoint == "" {
		endpoint = DefaultScholarEndpoint
	}

	return &ScholarProvider{client: client, endpoint: endpoint}
}

// Name returns "scholar".
func (p *ScholarProvider) Name() string { return "scholar" }

// Search returns the title links of the result listing.
func (p *ScholarProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	base, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid scholar endpoint: %w", err)
	}

	params := base.Query()
	params.Set("q", query)
	base.RawQuery = params.Encode()

	resp, err := p.client.Get(ctx, base.String())
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse result listing: %w", err)
	}

	var links []string

	doc.Find("h3.gs_rt > a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(links) >= limit {
			return false
		}

		href, ok := s.Attr("href")
		if !ok {
			return true
		}

		if link := absoluteLink(base, href); link != "" {
			links = append(links, link)
		}

		return true
	})

	return links, nil
}

// CrossrefProvider queries the Crossref works API.
type CrossrefProvider struct {
	client   *Client
	endpoint string
}

// NewCrossrefProvider creates a provider querying endpoint (default the
// public Crossref API).
func NewCrossrefProvider(client *Client, endpoint string) *CrossrefProvider {
	if endpoint == "" {
		endpoint = DefaultCrossrefEndpoint
	}

	return &CrossrefProvider{client: client, endpoint: endpoint}
}

// Name returns "crossref".
func (p *CrossrefProvider) Name() string { return "crossref" }

type crossrefResponse struct {
	Message struct {
		Items []struct {
			URL string `json:"URL"`
		} `json:"items"`
	} `json:"message"`
}

// Search returns the landing URLs of the best matching works.
func (p *CrossrefProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	base, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid crossref endpoint: %w", err)
	}

	params := base.Query()
	params.Set("query", query)
	params.Set("rows", strconv.Itoa(limit))
	base.RawQuery = params.Encode()

	resp, err := p.client.Get(ctx, base.String())
	if err != nil {
		return nil, err
	}

	var parsed crossrefResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("decode crossref response: %w", err)
	}

	var links []string

	for _, item := range parsed.Message.Items {
		if len(links) >= limit {
			break
		}

		if link := absoluteLink(base, item.URL); link != "" {
			links = append(links, link)
		}
	}

	return links, nil
}

// NoneProvider disables the search path.
type NoneProvider struct{}

// Name returns "none".
func (NoneProvider) Name() string { return "none" }

// Search always returns no results.
func (NoneProvider) Search(context.Context, string, int) ([]string, error) { return nil, nil }

// absoluteLink resolves href against base and keeps only http(s) results.
func absoluteLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}
