// Package fetch retrieves page titles and article text for corpus candidates.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/util"
)

// PlaceholderTitle stands in for a page without a <title>
const PlaceholderTitle = "No Title Found"

const (
	minParagraphChars = 50
	minLineChars      = 20
)

// RobotsPolicy answers whether a URL may be fetched
type RobotsPolicy interface {
	CanFetch(ctx context.Context, rawURL string) (bool, error)
}

// Throttle delays requests per host
type Throttle interface {
	Wait(ctx context.Context, rawURL string) error
}

// Options configures a Fetcher
type Options struct {
	TitleTimeout   time.Duration
	ArticleTimeout time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	// MinTitleLength rejects shorter titles; titles must be longer than five characters by default
	MinTitleLength int
	Robots         RobotsPolicy // nil skips robots.txt
	Throttle       Throttle     // nil disables per-host spacing
	HTTPProxy      string
	HTTPSProxy     string
	NoProxy        string
	Logger         *zap.Logger
}

// Page is the extracted content of an article
type Page struct {
	Title string
	Text  string
}

// Fetcher fetches and extracts HTML pages. Each call makes exactly one attempt.
type Fetcher struct {
	httpClient     *http.Client
	userAgent      string
	maxBytes       int64
	titleTimeout   time.Duration
	articleTimeout time.Duration
	minTitle       int
	robots         RobotsPolicy
	throttle       Throttle
	logger         *zap.Logger
}

// NewFetcher creates a Fetcher
func NewFetcher(opts Options) *Fetcher {
	if opts.TitleTimeout <= 0 {
		opts.TitleTimeout = 5 * time.Second
	}
	if opts.ArticleTimeout <= 0 {
		opts.ArticleTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2_000_000
	}
	if opts.MinTitleLength <= 0 {
		opts.MinTitleLength = 6
	}

	return &Fetcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
				MaxIdleConnsPerHost: 4,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:      opts.UserAgent,
		maxBytes:       opts.MaxBodyBytes,
		titleTimeout:   opts.TitleTimeout,
		articleTimeout: opts.ArticleTimeout,
		minTitle:       opts.MinTitleLength,
		robots:         opts.Robots,
		throttle:       opts.Throttle,
		logger:         logging.OrNop(opts.Logger),
	}
}

// FetchTitle returns the page title. Placeholder and too-short titles are
// parse-class failures.
func (f *Fetcher) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.titleTimeout)
	defer cancel()

	doc, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	title := pageTitle(doc)
	if title == PlaceholderTitle || utf8.RuneCountInString(title) < f.minTitle {
		return "", &Error{Class: ClassParse, URL: rawURL, Err: fmt.Errorf("%w: %q", ErrNoTitle, title)}
	}
	return title, nil
}

// FetchArticle returns the page title and body text. The body is every
// paragraph over 50 characters; pages without such paragraphs fall back to
// visible text lines over 20 characters.
func (f *Fetcher) FetchArticle(ctx context.Context, rawURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.articleTimeout)
	defer cancel()

	doc, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	text := paragraphText(doc)
	if text == "" {
		text = visibleLines(doc)
	}
	if text == "" {
		return nil, &Error{Class: ClassParse, URL: rawURL, Err: ErrNoText}
	}

	return &Page{Title: pageTitle(doc), Text: text}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if f.robots != nil {
		allowed, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &Error{Class: ClassParse, URL: rawURL, Err: err}
		}
		if !allowed {
			return nil, &Error{Class: ClassRobots, URL: rawURL, Err: ErrRobotsDisallowed}
		}
	}

	if f.throttle != nil {
		if err := f.throttle.Wait(ctx, rawURL); err != nil {
			return nil, &Error{Class: ClassNetwork, URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Class: ClassParse, URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Class: ClassNetwork, URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Class:      ClassHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{Class: ClassParse, URL: rawURL, Err: fmt.Errorf("decode body: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		class := ClassParse
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			class = ClassNetwork
		}
		return nil, &Error{Class: class, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return doc, nil
}

func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return PlaceholderTitle
	}
	return title
}

func paragraphText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minParagraphChars {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// visibleLines collects text nodes outside script-like elements, one per
// line, keeping lines longer than 20 characters
func visibleLines(doc *goquery.Document) string {
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				line = strings.TrimSpace(line)
				if utf8.RuneCountInString(line) > minLineChars {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}
