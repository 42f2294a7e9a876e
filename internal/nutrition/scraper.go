package nutrition

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultSearchURL = "https://www.google.com/search"
	// DefaultSelector is the answer box of the basic-HTML results page.
	DefaultSelector  = "div.BNeawe.iBp4i.AP7Wnd"
	DefaultUserAgent = "Mozilla/5.0 (compatible; nutri-vision/1.0)"
)

type ScraperOptions struct {
	SearchURL string
	Selector  string
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
}

// Scraper reads the calorie answer off a search results page.
type Scraper struct {
	url       *url.URL
	selector  string
	userAgent string
	client    *http.Client
}

func NewScraper(opts ScraperOptions) (*Scraper, error) {
	raw := opts.SearchURL
	if raw == "" {
		raw = DefaultSearchURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid search url: %w", err)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	s := &Scraper{
		url:       u,
		selector:  opts.Selector,
		userAgent: opts.UserAgent,
		client:    client,
	}
	if s.selector == "" {
		s.selector = DefaultSelector
	}
	if s.userAgent == "" {
		s.userAgent = DefaultUserAgent
	}
	return s, nil
}

func (s *Scraper) Fetch(ctx context.Context, label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%w: empty label", ErrLookupUnavailable)
	}

	u := *s.url
	q := u.Query()
	q.Set("q", "calories in "+label)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrLookupUnavailable, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %v", ErrLookupUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: search returned status %d", ErrLookupUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse page: %v", ErrLookupUnavailable, err)
	}

	text := strings.TrimSpace(doc.Find(s.selector).First().Text())
	if text == "" {
		return "", fmt.Errorf("%w: no match for %q", ErrLookupUnavailable, s.selector)
	}
	return text, nil
}

var _ Fetcher = (*Scraper)(nil)
