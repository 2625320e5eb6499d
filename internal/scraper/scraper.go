// Package scraper downloads the large images linked from a link-list page.
// It follows each link once, saves qualifying images to the output folder
// and reports the fate of every image URL it saw.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/kozaktomas/selfie-finder/internal/config"
	"github.com/kozaktomas/selfie-finder/internal/constants"
)

// Outcome is what happened to a single image URL.
type Outcome string

const (
	OutcomeSaved        Outcome = "saved"
	OutcomeTooSmall     Outcome = "too_small"
	OutcomeFetchFailed  Outcome = "fetch_failed"
	OutcomeDecodeFailed Outcome = "decode_failed"
	OutcomeWriteFailed  Outcome = "write_failed"
	OutcomeBlocked      Outcome = "blocked"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{
	OutcomeSaved, OutcomeTooSmall, OutcomeFetchFailed,
	OutcomeDecodeFailed, OutcomeWriteFailed, OutcomeBlocked,
}

// Result describes one processed image URL.
type Result struct {
	Index   int
	URL     string
	PageURL string
	Outcome Outcome
	Width   int
	Height  int
	Path    string // set when saved
	Err     error
}

// Report summarises a scrape run.
type Report struct {
	RunID       string
	StartURL    string
	Links       int
	PagesFailed int
	Results     []Result
	Duration    time.Duration
}

// Count returns the number of images with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Scraper fetches pages and images over HTTP. It processes one URL at a time.
type Scraper struct {
	cfg     config.ScraperConfig
	client  *http.Client
	linkSel cascadia.Matcher
	robots  *robotsChecker

	// OnResult, if set, is called after every processed image.
	OnResult func(Result)
}

// New creates a scraper for cfg.
func New(cfg config.ScraperConfig) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:    cfg,
		client: &http.Client{},
	}

	if cfg.LinkSelector != "" {
		sel, err := cascadia.Parse(cfg.LinkSelector)
		if err != nil {
			return nil, fmt.Errorf("invalid link selector %q: %w", cfg.LinkSelector, err)
		}
		s.linkSel = sel
	}
	if cfg.RespectRobots {
		s.robots = newRobotsChecker(s.client, cfg.UserAgent)
	}
	return s, nil
}

// Run scrapes everything reachable from the start page. Individual failures
// are recorded in the report; only cancellation of ctx is returned as error.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:    uuid.New().String(),
		StartURL: s.cfg.StartURL,
	}

	log.Printf("Fetching link list from: %s", s.cfg.StartURL)
	links, err := s.LinkURLs(ctx, s.cfg.StartURL)
	if err != nil {
		log.Printf("Failed to fetch %s: %v", s.cfg.StartURL, err)
	}
	report.Links = len(links)
	if len(links) == 0 {
		log.Printf("No links found on the start page. Check the link selector or URL.")
		report.Duration = time.Since(start)
		return report, ctx.Err()
	}
	log.Printf("Found %d link(s) on the link list page", len(links))

	counter := 0
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		if IsImageURL(link) {
			counter++
			log.Printf("Direct image link found: %s", link)
			s.record(report, s.DownloadImage(ctx, link, s.cfg.StartURL, counter))
			continue
		}

		log.Printf("Scanning images on: %s", link)
		imgs, err := s.ImageURLs(ctx, link)
		if err != nil {
			log.Printf("Failed to fetch %s: %v", link, err)
			report.PagesFailed++
			continue
		}
		log.Printf("Found %d image(s) on %s", len(imgs), link)

		for _, img := range imgs {
			if err := ctx.Err(); err != nil {
				report.Duration = time.Since(start)
				return report, err
			}
			counter++
			s.record(report, s.DownloadImage(ctx, img, link, counter))
		}
	}

	report.Duration = time.Since(start)
	log.Printf("Done. Processed %d image URL(s), saved %d", counter, report.Count(OutcomeSaved))
	return report, nil
}

func (s *Scraper) record(report *Report, res Result) {
	report.Results = append(report.Results, res)
	if s.OnResult != nil {
		s.OnResult(res)
	}
}

// LinkURLs returns the links on the link-list page at startURL.
func (s *Scraper) LinkURLs(ctx context.Context, startURL string) ([]string, error) {
	doc, base, err := s.fetchPage(ctx, startURL)
	if err != nil {
		return nil, err
	}
	return extractLinks(doc, base, s.linkSel), nil
}

// ImageURLs returns the image sources found on the page at pageURL.
func (s *Scraper) ImageURLs(ctx context.Context, pageURL string) ([]string, error) {
	doc, base, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return extractImages(doc, base), nil
}

func (s *Scraper) fetchPage(ctx context.Context, pageURL string) (*html.Node, *url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if s.robots != nil && !s.robots.Allowed(ctx, pageURL) {
		return nil, nil, errBlocked
	}

	body, err := s.fetch(ctx, pageURL, s.cfg.PageTimeout)
	if err != nil {
		return nil, nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, base, nil
}

var errBlocked = errors.New("blocked by robots.txt")

// fetch GETs rawURL and returns the body. Non-2xx statuses and bodies
// larger than constants.MaxDownloadSize are errors.
func (s *Scraper) fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > constants.MaxDownloadSize {
		return nil, fmt.Errorf("response larger than %d bytes", constants.MaxDownloadSize)
	}
	return body, nil
}
