// Package fetch downloads the source workbook from the ONS dataset
// page. The download link is rendered client-side, so the page is
// driven through a headless browser to resolve the current file URL.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"hpdash/internal/config"
)

// Fetcher resolves and downloads the latest ratio workbook.
type Fetcher struct {
	cfg      config.FetchConfig
	headless bool
	logger   *slog.Logger
}

// NewFetcher creates a fetcher for the configured dataset page.
func NewFetcher(cfg config.FetchConfig, headless bool, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cfg:      cfg,
		headless: headless,
		logger:   logger.With(slog.String("component", "fetcher")),
	}
}

// Fetch resolves the workbook link on the dataset page, downloads the
// file into the output directory, and returns its path.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	href, err := f.resolveWorkbookURL(ctx)
	if err != nil {
		return "", err
	}

	f.logger.InfoContext(ctx, "resolved workbook link", slog.String("url", href))
	return f.download(ctx, href)
}

// resolveWorkbookURL loads the dataset page and picks the first .xlsx
// download link out of the rendered DOM.
func (f *Fetcher) resolveWorkbookURL(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var hrefs []string
	js := `Array.from(document.querySelectorAll('a[href]'))
		.map(a => a.getAttribute('href'))
		.filter(h => h && h.toLowerCase().endsWith('.xlsx'))`

	start := time.Now()
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(f.cfg.PageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(js, &hrefs),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset page %s: %w", f.cfg.PageURL, err)
	}
	if len(hrefs) == 0 {
		return "", fmt.Errorf("no .xlsx link found on %s", f.cfg.PageURL)
	}

	f.logger.DebugContext(ctx, "dataset page scanned",
		slog.Int("xlsx_links", len(hrefs)),
		slog.Duration("duration", time.Since(start)))

	return f.absoluteURL(hrefs[0])
}

func (f *Fetcher) absoluteURL(href string) (string, error) {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, nil
	}
	base, err := url.Parse(f.cfg.PageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", f.cfg.PageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid workbook link %s: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (f *Fetcher) download(ctx context.Context, fileURL string) (string, error) {
	if err := os.MkdirAll(f.cfg.OutDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", f.cfg.OutDir, err)
	}

	name := path.Base(fileURL)
	if name == "" || name == "." || name == "/" {
		name = "house-price-to-residence-based-earnings.xlsx"
	}
	dest := filepath.Join(f.cfg.OutDir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed for %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status for %s: %s", fileURL, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	f.logger.InfoContext(ctx, "workbook downloaded",
		slog.String("path", dest),
		slog.Int64("size_bytes", written))

	return dest, nil
}
