// Package images finds and downloads representative product images using a
// two-tier strategy: a plain fetch parsed for <img> tags, then a
// heuristic-heavy fetch that digs through inline scripts, meta tags,
// selector fallbacks and style attributes.
package images

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	thumbSuffixRe = regexp.MustCompile(`(?i)-S\.`)
	imageExtEndRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)
	imageExtRe    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)`)
	smallAssetRe  = regexp.MustCompile(`(?i)-S\.|thumb|mini|small|icon|logo`)
	chromeAssetRe = regexp.MustCompile(`(?i)logo|icon|favicon|header|footer|nav|menu|banner|thumb|mini|small`)
	backgroundRe  = regexp.MustCompile(`background-image:\s*url\(["']?([^"')]+)["']?\)`)
)

// scriptPatterns mine inline script/JSON payloads that commonly embed
// product image URLs.
var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"imageUrl":\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)"image":\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)"src":\s*"([^"]+\.(?:jpg|jpeg|png|webp))"`),
	regexp.MustCompile(`(?i)imageUrls?["']\s*:\s*\[([^\]]+)\]`),
	regexp.MustCompile(`(?i)productImages?["']\s*:\s*\[([^\]]+)\]`),
	regexp.MustCompile(`(?i)"url":\s*"([^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`),
	regexp.MustCompile(`(?i)"href":\s*"([^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`),
	regexp.MustCompile(`(?i)https://[^"\s]*\.(?:jpg|jpeg|png|webp)(?:\?[^"\s]*)?`),
	regexp.MustCompile(`(?i)"media":\s*\{[^}]*"url":\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)"assets":\s*\[[^\]]*"([^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`),
}

// lazyAttrs are the attributes scanned on <img>-like elements, in order.
var lazyAttrs = []string{"src", "data-src", "data-original", "data-lazy", "data-zoom-src", "data-large", "data-full"}

// imgSelectors are tried in addition to bare <img> to catch gallery markup.
var imgSelectors = []string{
	"img",
	".product-image img",
	".gallery img",
	"[data-role='product-image'] img",
	".product-media img",
	".product-gallery img",
	".image-container img",
	"[class*='product'] img",
	"[class*='image'] img",
}

// ExtractImageURLs is the tier-1 extractor: <img> src and common lazy-load
// attributes, thumbnails and non-image extensions rejected, first-seen
// order kept.
func ExtractImageURLs(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var urls []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		raw := firstAttr(img, "src", "data-src", "data-original")
		if raw == "" {
			return
		}
		abs, ok := absoluteURL(base, raw)
		if !ok {
			return
		}
		if thumbSuffixRe.MatchString(abs) {
			return
		}
		if imageExtEndRe.MatchString(abs) {
			urls = append(urls, abs)
		}
	})

	return dedupe(urls)
}

// ExtractImageURLsAdvanced is the tier-2 extractor: script-pattern battery,
// Open Graph metas, selector fallbacks with lazy-load attributes and inline
// background-image styles, merged and filtered against the asset blocklist.
func ExtractImageURLsAdvanced(html, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var urls []string
	for _, pattern := range scriptPatterns {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			hit := match[0]
			if len(match) > 1 {
				hit = match[1]
			}
			if !imageExtRe.MatchString(hit) {
				continue
			}
			clean := strings.ReplaceAll(hit, `\/`, "/")
			clean = strings.ReplaceAll(clean, `\"`, `"`)
			abs, ok := absoluteURL(base, clean)
			if !ok {
				continue
			}
			if !smallAssetRe.MatchString(abs) {
				urls = append(urls, abs)
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return dedupe(filterCandidates(urls))
	}

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, meta *goquery.Selection) {
		content, _ := meta.Attr("content")
		if content == "" {
			return
		}
		if abs, ok := absoluteURL(base, content); ok && imageExtRe.MatchString(abs) {
			urls = append(urls, abs)
		}
	})

	for _, selector := range imgSelectors {
		doc.Find(selector).Each(func(_ int, img *goquery.Selection) {
			for _, attr := range lazyAttrs {
				raw, exists := img.Attr(attr)
				if !exists || raw == "" {
					continue
				}
				abs, ok := absoluteURL(base, raw)
				if !ok || !imageExtRe.MatchString(abs) {
					continue
				}
				if !smallAssetRe.MatchString(abs) {
					urls = append(urls, abs)
				}
			}
		})
	}

	doc.Find("[style]").Each(func(_ int, elem *goquery.Selection) {
		style, _ := elem.Attr("style")
		for _, match := range backgroundRe.FindAllStringSubmatch(style, -1) {
			if !imageExtRe.MatchString(match[1]) {
				continue
			}
			if abs, ok := absoluteURL(base, match[1]); ok {
				urls = append(urls, abs)
			}
		}
	})

	return dedupe(filterCandidates(urls))
}

func filterCandidates(urls []string) []string {
	var kept []string
	for _, u := range urls {
		if chromeAssetRe.MatchString(u) {
			continue
		}
		if imageExtRe.MatchString(u) {
			kept = append(kept, u)
		}
	}
	return kept
}

func firstAttr(sel *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, exists := sel.Attr(attr); exists && v != "" {
			return v
		}
	}
	return ""
}

func absoluteURL(base *url.URL, ref string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	return base.ResolveReference(parsed).String(), true
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
