package pdf

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"
)

var pdfURLRe = regexp.MustCompile(`\.pdf($|\?)`)

// session bundles the page, the authenticated request context and the
// per-request dedup store for one PDF-acquisition run.
type session struct {
	page    playwright.Page
	request playwright.APIRequestContext
	dir     string
	dedup   *dedupStore
	logger  *slog.Logger
}

func (s *session) saveContent(suggestedName string, content []byte) (string, bool) {
	path, err := s.dedup.save(s.dir, suggestedName, content)
	if err != nil {
		s.logger.Warn("failed to save pdf", "name", suggestedName, "error", err)
		return "", false
	}
	s.logger.Info("pdf saved", "path", path, "bytes", len(content))
	return path, true
}

// saveDownload persists a browser-native download, routing the bytes through
// the dedup store.
func (s *session) saveDownload(dl playwright.Download) (string, bool) {
	tmp := filepath.Join(s.dir, ".partial-"+dl.SuggestedFilename())
	if err := dl.SaveAs(tmp); err != nil {
		s.logger.Warn("failed to persist download", "error", err)
		return "", false
	}
	content, err := os.ReadFile(tmp)
	os.Remove(tmp)
	if err != nil {
		s.logger.Warn("failed to read download", "error", err)
		return "", false
	}
	return s.saveContent(dl.SuggestedFilename(), content)
}

// fetchAndSave issues a direct GET through the browser's request context and
// saves the body when the response is OK and looks like a PDF.
func (s *session) fetchAndSave(absURL string) (string, bool) {
	resp, err := s.request.Get(absURL)
	if err != nil {
		return "", false
	}
	if !resp.Ok() {
		return "", false
	}
	if !isPDFResponse(resp.Headers()["content-type"], absURL) {
		return "", false
	}
	body, err := resp.Body()
	if err != nil {
		return "", false
	}
	return s.saveContent(fileNameFromURL(absURL), body)
}

func (s *session) resolveHref(href string) string {
	base, err := url.Parse(s.page.URL())
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// harvestAnchors saves every PDF reachable through the matched anchors'
// hrefs. max bounds the anchor scan; 0 means unbounded.
func (s *session) harvestAnchors(anchors playwright.Locator, max int) []string {
	var saved []string
	count, err := anchors.Count()
	if err != nil {
		return saved
	}
	if max > 0 && count > max {
		count = max
	}
	for i := 0; i < count; i++ {
		href, err := anchors.Nth(i).GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		if path, ok := s.fetchAndSave(s.resolveHref(href)); ok {
			saved = append(saved, path)
		}
	}
	return saved
}

// clickCapture runs the interactive ladder on one element: await a native
// download event, then a PDF network response triggered by the same click,
// then navigation to a .pdf address followed by a direct GET. Every step's
// failure is swallowed; the next tactic runs.
func (s *session) clickCapture(target playwright.Locator, dlTimeout, respTimeout, navTimeout float64) []string {
	var saved []string

	dl, err := s.page.ExpectDownload(func() error {
		return target.Click()
	}, playwright.PageExpectDownloadOptions{Timeout: playwright.Float(dlTimeout)})
	if err == nil {
		if path, ok := s.saveDownload(dl); ok {
			saved = append(saved, path)
		}
		return saved
	}

	resp, err := s.page.ExpectResponse(func(r playwright.Response) bool {
		return strings.Contains(strings.ToLower(r.Headers()["content-type"]), "application/pdf")
	}, func() error {
		return target.Click()
	}, playwright.PageExpectResponseOptions{Timeout: playwright.Float(respTimeout)})
	if err == nil {
		body, err := resp.Body()
		if err != nil {
			return saved
		}
		if path, ok := s.saveContent(fileNameFromURL(resp.URL()), body); ok {
			saved = append(saved, path)
		}
		return saved
	}

	if err := target.Click(); err != nil {
		return saved
	}
	if err := s.page.WaitForURL(pdfURLRe, playwright.PageWaitForURLOptions{Timeout: playwright.Float(navTimeout)}); err != nil {
		return saved
	}
	if path, ok := s.fetchAndSave(s.page.URL()); ok {
		saved = append(saved, path)
	}
	return saved
}

// labelLadder tries each document-link phrase against link-role, button-role
// and plain-text elements until one click sequence yields a file.
func (s *session) labelLadder(labels []string) []string {
	var saved []string
	for _, label := range labels {
		pattern := regexp.MustCompile(`(?i)` + label)
		for _, loc := range []playwright.Locator{
			s.page.GetByRole("link", playwright.PageGetByRoleOptions{Name: pattern}),
			s.page.GetByRole("button", playwright.PageGetByRoleOptions{Name: pattern}),
			s.page.GetByText(pattern),
		} {
			count, err := loc.Count()
			if err != nil || count == 0 {
				continue
			}
			target := clickTarget(loc.First())
			target.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
				Timeout: playwright.Float(1500),
			})
			if got := s.clickCapture(target, 8000, 6000, 4000); len(got) > 0 {
				return append(saved, got...)
			}
		}
	}
	return saved
}

// clickTarget climbs from a text match to the enclosing anchor or button so
// the click lands on the actual affordance.
func clickTarget(loc playwright.Locator) playwright.Locator {
	ancestor := loc.Locator("xpath=ancestor-or-self::a | ancestor-or-self::button").First()
	if count, err := ancestor.Count(); err == nil && count > 0 {
		return ancestor
	}
	return loc
}
