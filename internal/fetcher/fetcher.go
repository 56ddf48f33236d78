package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// SelectorType names the extraction strategy applied to rendered HTML.
type SelectorType string

const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	SelectorText  SelectorType = "text"
)

// Request describes one extraction attempt, per §4.2.
type Request struct {
	URL             string
	Selector        string
	SelectorType    SelectorType
	WaitSelector    string
	Timeout         time.Duration
	TakeScreenshot  bool
}

// Result is the Fetcher adapter's output contract (§4.2, §6).
type Result struct {
	Success        bool
	Text           string
	HTML           string
	ScreenshotRef  string
	Error          string
	ResponseTimeMs int64
	FinalURL       string
}

// RetryPolicy implements the linear-backoff retry described in §7 for
// transient fetch failures.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Fetcher drives a browser pool to turn (url, selector) into extracted
// text, with retry-with-backoff for transient failures.
type Fetcher struct {
	pool           *Pool
	retry          RetryPolicy
	userAgent      string
	screenshotDir  string
	screenshotting bool
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) { f.retry = RetryPolicy{Attempts: attempts, Delay: delay} }
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithScreenshots enables on-demand screenshot capture (SPEC_FULL.md
// supplemented feature) and sets the directory PNGs are written under.
func WithScreenshots(dir string) Option {
	return func(f *Fetcher) { f.screenshotting = true; f.screenshotDir = dir }
}

func New(pool *Pool, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		pool:   pool,
		retry:  RetryPolicy{Attempts: 1, Delay: 0},
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to req.URL, optionally waits for req.WaitSelector, and
// extracts per req.SelectorType. Failures are surfaced as
// Result.Success=false, never as an error return — matching the contract
// in §4.2 ("all surfaced as success=false, not exceptions").
func (f *Fetcher) Fetch(ctx context.Context, req Request) Result {
	attempts := f.retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last Result
	for i := 0; i < attempts; i++ {
		last = f.fetchOnce(ctx, req)
		if last.Success || !isTransient(last.Error) {
			return last
		}
		if i < attempts-1 && f.retry.Delay > 0 {
			select {
			case <-time.After(f.retry.Delay * time.Duration(i+1)):
			case <-ctx.Done():
				last.Error = ctx.Err().Error()
				return last
			}
		}
	}
	return last
}

func isTransient(errMsg string) bool {
	return errMsg != "" && !strings.Contains(errMsg, "selector")
}

func (f *Fetcher) fetchOnce(ctx context.Context, req Request) Result {
	start := time.Now()
	result := Result{FinalURL: req.URL}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mb, err := f.pool.acquire(fetchCtx)
	if err != nil {
		result.Error = fmt.Sprintf("navigation error: %v", err)
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}
	defer f.pool.release(mb)

	page, err := newStealthPage(mb.browser)
	if err != nil {
		result.Error = fmt.Sprintf("navigation error: %v", err)
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}
	defer page.Close()

	page = page.Context(fetchCtx)
	if f.userAgent != "" {
		_ = page.SetExtraHeaders([]string{"User-Agent", f.userAgent})
	}

	if err := page.Navigate(req.URL); err != nil {
		result.Error = fmt.Sprintf("navigation error: %v", err)
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}
	if err := page.WaitLoad(); err != nil {
		result.Error = fmt.Sprintf("navigation error: %v", err)
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}

	if req.WaitSelector != "" {
		waitable := page.Timeout(timeout)
		if _, err := waitable.Element(req.WaitSelector); err != nil {
			result.Error = "wait timeout"
			result.ResponseTimeMs = time.Since(start).Milliseconds()
			return result
		}
	}

	if info, err := page.Info(); err == nil && info.URL != "" {
		result.FinalURL = info.URL
	}

	html, err := page.HTML()
	if err != nil {
		result.Error = fmt.Sprintf("navigation error: %v", err)
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}
	result.HTML = html

	text, err := extract(html, req.Selector, req.SelectorType)
	if err != nil {
		result.Error = err.Error()
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		return result
	}
	result.Text = text
	result.Success = true

	if req.TakeScreenshot && f.screenshotting {
		if ref, err := f.captureScreenshot(page); err == nil {
			result.ScreenshotRef = ref
		} else {
			f.logger.Warn("screenshot capture failed", "error", err, "url", req.URL)
		}
	}

	result.ResponseTimeMs = time.Since(start).Milliseconds()
	return result
}

// extract applies the selector-type-specific extraction rules from §4.2.
func extract(html, selector string, kind SelectorType) (string, error) {
	switch kind {
	case SelectorCSS:
		return extractCSS(html, selector)
	case SelectorXPath:
		return extractXPath(html, selector)
	case SelectorText:
		return extractText(html, selector), nil
	default:
		return "", fmt.Errorf("unsupported selector type: %q", kind)
	}
}

func extractCSS(html, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("selector parse error: %w", err)
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return "", nil
	}
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		outer, err := goquery.OuterHtml(s)
		if err != nil {
			outer = ""
		}
		parts = append(parts, strings.TrimSpace(s.Text())+"\n"+outer)
	})
	return strings.Join(parts, "\n"), nil
}

func extractXPath(html, expr string) (string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("selector parse error: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return "", fmt.Errorf("selector parse error: %w", err)
	}
	if len(nodes) == 0 {
		return "", nil
	}
	var parts []string
	for _, n := range nodes {
		text := strings.TrimSpace(htmlquery.InnerText(n))
		outer := htmlquery.OutputHTML(n, true)
		parts = append(parts, text+"\n"+outer)
	}
	return strings.Join(parts, "\n"), nil
}

const textContextChars = 100

func extractText(html, literal string) string {
	idx := strings.Index(html, literal)
	if idx == -1 {
		return ""
	}
	start := idx - textContextChars
	if start < 0 {
		start = 0
	}
	end := idx + len(literal) + textContextChars
	if end > len(html) {
		end = len(html)
	}
	return html[start:end]
}

func (f *Fetcher) captureScreenshot(page *rod.Page) (string, error) {
	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s/%d.png", f.screenshotDir, time.Now().UnixNano())
	return ref, writeScreenshot(ref, data)
}
