package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html/charset"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// Fetcher retrieves a page and returns it as a parsed document. Failures are
// reported as *models.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// NewFetcher returns the fetcher selected by cfg.FetchMode.
func NewFetcher(cfg *config.Config) Fetcher {
	if cfg.FetchMode == config.FetchModeBrowser {
		return NewBrowserFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.AllowedDomains)
	}
	return NewHTTPFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.AllowedDomains)
}

type HTTPFetcher struct {
	httpClient     *http.Client
	userAgent      string
	allowedDomains []string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string, allowedDomains []string) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:      userAgent,
		allowedDomains: allowedDomains,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := checkURL(pageURL, f.allowedDomains); err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &models.FetchError{URL: pageURL, StatusCode: res.StatusCode}
	}

	// WordPress pages occasionally declare a legacy charset; goquery expects UTF-8.
	body, err := charset.NewReader(res.Body, res.Header.Get("Content-Type"))
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: fmt.Errorf("failed to decode body: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return doc, nil
}

// BrowserFetcher renders the page in headless Chrome before handing the
// resulting DOM to goquery.
type BrowserFetcher struct {
	timeout        time.Duration
	userAgent      string
	allowedDomains []string
}

func NewBrowserFetcher(timeout time.Duration, userAgent string, allowedDomains []string) *BrowserFetcher {
	return &BrowserFetcher{
		timeout:        timeout,
		userAgent:      userAgent,
		allowedDomains: allowedDomains,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := checkURL(pageURL, f.allowedDomains); err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: err}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(f.userAgent))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: fmt.Errorf("headless browser: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &models.FetchError{URL: pageURL, Err: fmt.Errorf("failed to read rendered page: %w", err)}
	}
	return doc, nil
}

func checkURL(urlStr string, allowedDomains []string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: only http and https allowed", parsedURL.Scheme)
	}

	hostname := parsedURL.Hostname()
	for _, domain := range allowedDomains {
		if hostname == domain {
			return nil
		}
	}
	return fmt.Errorf("security violation: URL hostname %s is not in allowlist", hostname)
}
