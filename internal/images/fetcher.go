package images

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const simpleUserAgent = "Mozilla/5.0"

// advancedHeaders imitate a real browser session; some retailers 403 plain
// clients outright.
var advancedHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "fr-FR,fr;q=0.9,en;q=0.8",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

type Fetcher struct {
	client     *http.Client
	logger     *slog.Logger
	maxRetries int

	// randomized delay bounds, shrunk to zero in tests
	retryDelayMin    time.Duration
	retryDelayMax    time.Duration
	downloadDelayMin time.Duration
	downloadDelayMax time.Duration
}

type FetcherOptions struct {
	Timeout    time.Duration
	MaxRetries int
}

func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		logger:           logger.With("component", "images"),
		maxRetries:       opts.MaxRetries,
		retryDelayMin:    2 * time.Second,
		retryDelayMax:    5 * time.Second,
		downloadDelayMin: 1 * time.Second,
		downloadDelayMax: 3 * time.Second,
	}
}

// FetchAndDownload extracts up to limit image URLs from the product page and
// writes them into outDir as image1.jpg, image2.jpg, ... The simple tier is
// tried first; the advanced tier only runs when it yields nothing.
func (f *Fetcher) FetchAndDownload(ctx context.Context, pageURL, outDir string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	urls, err := f.fetchSimple(ctx, pageURL, limit)
	if err != nil {
		f.logger.Warn("simple image fetch failed", "url", pageURL, "error", err)
	}
	if len(urls) > 0 {
		f.logger.Info("simple image fetch succeeded", "count", len(urls))
		return f.download(ctx, urls, outDir, pageURL, false), nil
	}

	f.logger.Info("simple fetch found no images, trying advanced fetch", "url", pageURL)
	urls, err = f.fetchAdvanced(ctx, pageURL, limit)
	if err != nil {
		return nil, fmt.Errorf("advanced image fetch failed: %w", err)
	}
	if len(urls) == 0 {
		f.logger.Warn("no images found by either tier", "url", pageURL)
		return nil, nil
	}

	f.logger.Info("advanced image fetch succeeded", "count", len(urls))
	return f.download(ctx, urls, outDir, pageURL, true), nil
}

func (f *Fetcher) fetchSimple(ctx context.Context, pageURL string, limit int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", simpleUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	urls := ExtractImageURLs(string(body), pageURL)
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

// fetchAdvanced retries with browser-realistic headers and pre-set consent
// cookies. The second attempt warms up on the site's home page to collect
// cookies; a 403 burns an attempt and retries until the budget is spent.
func (f *Fetcher) fetchAdvanced(ctx context.Context, pageURL string, limit int) ([]string, error) {
	session, origin, err := f.newSession(pageURL)
	if err != nil {
		return nil, err
	}

	var body []byte
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			sleepRand(ctx, f.retryDelayMin, f.retryDelayMax)
		}
		if attempt == 1 {
			f.warmup(ctx, session, origin)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		applyHeaders(req, advancedHeaders)
		if attempt > 0 {
			req.Header.Set("Referer", origin+"/")
		}

		resp, err := session.Do(req)
		if err != nil {
			lastErr = err
			f.logger.Warn("advanced fetch attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode == http.StatusForbidden {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("403 after %d attempts", attempt+1)
			f.logger.Warn("blocked with 403", "attempt", attempt+1)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, lastErr
	}

	urls := ExtractImageURLsAdvanced(string(body), pageURL)
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

func (f *Fetcher) newSession(pageURL string) (*http.Client, string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page URL: %w", err)
	}
	origin := parsed.Scheme + "://" + parsed.Host

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, "", err
	}
	originURL, _ := url.Parse(origin + "/")
	jar.SetCookies(originURL, []*http.Cookie{
		{Name: "cookieconsent_status", Value: "dismiss"},
		{Name: "accepted_cookies", Value: "true"},
	})

	session := &http.Client{
		Timeout:   f.client.Timeout,
		Transport: f.client.Transport,
		Jar:       jar,
	}
	return session, origin, nil
}

func (f *Fetcher) warmup(ctx context.Context, session *http.Client, origin string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/", nil)
	if err != nil {
		return
	}
	applyHeaders(req, advancedHeaders)
	resp, err := session.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	sleepRand(ctx, f.downloadDelayMin, f.downloadDelayMax)
}

// download fetches each URL sequentially into image<N>.jpg. A single failed
// URL is logged and skipped, never fatal to the batch.
func (f *Fetcher) download(ctx context.Context, urls []string, outDir, pageURL string, advanced bool) []string {
	client := f.client
	if advanced {
		if session, _, err := f.newSession(pageURL); err == nil {
			client = session
		}
	}

	var saved []string
	for i, u := range urls {
		if advanced && i > 0 {
			sleepRand(ctx, f.downloadDelayMin, f.downloadDelayMax)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			f.logger.Warn("skipping malformed image URL", "url", u, "error", err)
			continue
		}
		if advanced {
			applyHeaders(req, advancedHeaders)
			req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
			if parsed, err := url.Parse(u); err == nil {
				req.Header.Set("Referer", parsed.Scheme+"://"+parsed.Host+"/")
			}
		} else {
			req.Header.Set("User-Agent", simpleUserAgent)
		}

		resp, err := client.Do(req)
		if err != nil {
			f.logger.Warn("failed to download image", "url", u, "error", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			f.logger.Warn("failed to download image", "url", u, "status", resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			f.logger.Warn("failed to read image body", "url", u, "error", err)
			continue
		}

		path := filepath.Join(outDir, fmt.Sprintf("image%d.jpg", i+1))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			f.logger.Warn("failed to write image", "path", path, "error", err)
			continue
		}

		f.logger.Info("image saved", "path", path, "bytes", len(body))
		saved = append(saved, path)
	}
	return saved
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

func sleepRand(ctx context.Context, min, max time.Duration) {
	if max <= 0 {
		return
	}
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
