package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/btp-tools/fichetech/internal/browser"
)

// Engine acquires PDF datasheets for a product page. Each run launches its
// own browser session and tears it down again; nothing is shared across
// requests, including the content-hash dedup table.
type Engine struct {
	browserOpts *browser.Options
	strategies  []siteStrategy
	logger      *slog.Logger
}

func NewEngine(opts *browser.Options, logger *slog.Logger) *Engine {
	return &Engine{
		browserOpts: opts,
		strategies:  siteStrategies(),
		logger:      logger.With("component", "pdf_engine"),
	}
}

// AcquirePDFs navigates to productURL, dismisses consent overlays, runs the
// matching site strategy (generic ladder as last resort) and returns the
// ordered, deduplicated list of saved file paths. Zero files is not an
// error; only failing to open the page at all is.
func (e *Engine) AcquirePDFs(ctx context.Context, productURL, downloadDir string) ([]string, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	b, err := browser.New(e.browserOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if _, err := page.Goto(productURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(10000),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", productURL, err)
	}

	s := &session{
		page:    page,
		request: b.Context().Request(),
		dir:     downloadDir,
		dedup:   newDedupStore(),
		logger:  e.logger,
	}

	dismissed := dismissConsent(page, e.logger)
	e.logger.Info("consent handling done", "dismissed", dismissed, "url", productURL)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host := hostOf(productURL)
	var saved []string
	for _, strat := range e.strategies {
		if !strings.Contains(host, strat.host) {
			continue
		}
		e.logger.Info("running site strategy", "strategy", strat.name)
		saved = strat.run(s)
		break
	}

	if len(saved) == 0 {
		e.logger.Info("falling back to generic strategy", "url", productURL)
		saved = append(saved, downloadGeneric(s)...)
	}

	result := dedupePaths(saved)
	e.logger.Info("pdf acquisition finished", "url", productURL, "files", len(result))
	return result, nil
}

func hostOf(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return rawURL
}
