// Package resolver locates a product page URL for a free-text query by
// asking DuckDuckGo's HTML endpoints, filtering hits against per-domain
// product-page rules and ranking them by keyword overlap.
package resolver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redis/go-redis/v9"

	"github.com/btp-tools/fichetech/internal/models"
)

const userAgent = "Mozilla/5.0"

type endpoint struct {
	url  string
	post bool
	// lite endpoints have no result markup classes, only bare anchors
	lite bool
}

func defaultEndpoints() []endpoint {
	return []endpoint{
		{url: "https://duckduckgo.com/html/", post: true},
		{url: "https://html.duckduckgo.com/html/", post: true},
		{url: "https://duckduckgo.com/lite/", lite: true},
		{url: "https://lite.duckduckgo.com/lite/", lite: true},
	}
}

type Resolver struct {
	client     *http.Client
	endpoints  []endpoint
	cache      *redis.Client
	cacheTTL   time.Duration
	maxResults int
	logger     *slog.Logger
}

// Options configures a Resolver. Cache may be nil, in which case resolved
// URLs are not cached.
type Options struct {
	MaxResults int
	Timeout    time.Duration
	Cache      *redis.Client
	CacheTTL   time.Duration
}

func New(opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}

	return &Resolver{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				// retailer and search pages occasionally ship broken chains
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		endpoints:  defaultEndpoints(),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		maxResults: opts.MaxResults,
		logger:     logger.With("component", "resolver"),
	}
}

// Resolve returns the best product URL for the query restricted to the given
// domains, or "" when no backend produced a matching result. Backend
// failures are swallowed and recorded in the returned attempts.
func (r *Resolver) Resolve(ctx context.Context, query string, domains []string) (string, []models.Attempt, error) {
	cacheKey := r.cacheKey(query, domains)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			r.logger.Info("resolved from cache", "query", query, "url", cached)
			return cached, nil, nil
		}
	}

	results, attempts := r.search(ctx, query, domains)
	best := PickBestResult(results, strings.Fields(query))
	if best == "" {
		r.logger.Warn("no product URL found", "query", query, "attempts", len(attempts))
		return "", attempts, nil
	}

	r.logger.Info("resolved product URL", "query", query, "url", best)
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, best, r.cacheTTL).Err(); err != nil {
			r.logger.Warn("failed to cache resolved URL", "error", err)
		}
	}
	return best, attempts, nil
}

func (r *Resolver) cacheKey(query string, domains []string) string {
	return "fichetech:resolve:" + strings.ToLower(query) + "|" + strings.Join(domains, ",")
}

// search tries each backend in order until one yields at least one result
// that passes the product-URL filter.
func (r *Resolver) search(ctx context.Context, query string, domains []string) ([]models.SearchResult, []models.Attempt) {
	siteFilters := make([]string, 0, len(domains))
	for _, d := range domains {
		siteFilters = append(siteFilters, "site:"+d)
	}
	q := query + " " + strings.Join(siteFilters, " OR ")

	var attempts []models.Attempt
	for _, ep := range r.endpoints {
		results, status, err := r.queryEndpoint(ctx, ep, q, domains)
		if err != nil {
			attempts = append(attempts, models.Attempt{Endpoint: ep.url, Status: err.Error()})
			r.logger.Warn("search backend failed", "endpoint", ep.url, "error", err)
			continue
		}
		attempts = append(attempts, models.Attempt{Endpoint: ep.url, Status: fmt.Sprintf("%d", status)})
		if len(results) > 0 {
			return results, attempts
		}
	}
	return nil, attempts
}

func (r *Resolver) queryEndpoint(ctx context.Context, ep endpoint, q string, domains []string) ([]models.SearchResult, int, error) {
	var req *http.Request
	var err error
	if ep.post {
		form := url.Values{"q": {q}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, ep.url, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, ep.url+"?q="+url.QueryEscape(q), nil)
	}
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse results: %w", err)
	}

	selector := "a.result__a"
	if ep.lite {
		selector = "a[href]"
	}

	var results []models.SearchResult
	doc.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		real := DecodeRedirect(href)
		if IsProductURL(real, domains) {
			title := strings.TrimSpace(a.Text())
			if title == "" {
				title = real
			}
			results = append(results, models.SearchResult{Title: title, URL: real})
		}
		return len(results) < r.maxResults
	})

	return results, resp.StatusCode, nil
}

// DecodeRedirect unwraps DuckDuckGo's redirect links, which carry the true
// destination in the uddg query parameter and may be protocol-relative.
func DecodeRedirect(u string) string {
	if u == "" {
		return u
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	if real := parsed.Query().Get("uddg"); real != "" {
		return real
	}
	return u
}

// IsProductURL reports whether u looks like a product page on one of the
// given domains. se.com gets loose recognition because its catalog spans
// many locale paths; the others either match the /p/<slug>-A<digits> shape
// or fall back to any URL under the domain.
func IsProductURL(u string, domains []string) bool {
	for _, p := range productPatterns(domains) {
		if p.MatchString(u) {
			return true
		}
	}
	return false
}

func productPatterns(domains []string) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, d := range domains {
		if d == "se.com" {
			patterns = append(patterns,
				regexp.MustCompile(`(?i)https?://(?:www\.)?se\.com/.*/product/[A-Za-z0-9_-]+(?:[/?#].*)?$`),
				regexp.MustCompile(`(?i)https?://(?:www\.)?se\.com/[a-z]{2}/[a-z]{2}/product/[A-Za-z0-9_-]+(?:[/?].*)?$`),
				regexp.MustCompile(`(?i)https?://(?:www\.)?se\.com/.*`),
			)
			continue
		}
		escaped := regexp.QuoteMeta(d)
		patterns = append(patterns,
			regexp.MustCompile(`(?i)https?://(?:www\.)?`+escaped+`/p/.+-A\d+(?:[/?#].*)?$`),
			regexp.MustCompile(`(?i)https?://(?:www\.)?`+escaped+`/.*`),
		)
	}
	return patterns
}

// PickBestResult scores each result by how many query keywords appear,
// case-insensitively, in its title or URL and returns the URL of the best
// one. Ties keep first-seen order.
func PickBestResult(results []models.SearchResult, keywords []string) string {
	if len(results) == 0 {
		return ""
	}

	type scored struct {
		score int
		url   string
	}
	ranked := make([]scored, 0, len(results))
	for _, res := range results {
		title := strings.ToLower(res.Title)
		u := strings.ToLower(res.URL)
		score := 0
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if strings.Contains(title, kw) || strings.Contains(u, kw) {
				score++
			}
		}
		ranked = append(ranked, scored{score: score, url: res.URL})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked[0].url
}
