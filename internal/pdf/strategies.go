package pdf

import (
	"regexp"

	"github.com/playwright-community/playwright-go"
)

// candidateLabels is the generic ladder of document-link phrases, most
// specific first.
var candidateLabels = []string{
	`\bsans\s*prix\b`,
	`\btout\s*télécharger\b`,
	`\btélécharger\b`,
	`\btélécharger\s*sans\s*prix\b`,
	`\bdownload\b`,
	`\btechnical\s*sheet\b`,
	`\bfiche\s*technique\b`,
	`\bfiche\s*produit\b`,
	`\bnotice\b`,
	`\bimprimer\s*sans\s*prix\b`,
	`\bcatalogue\b`,
	`\bfiche\s*technique\s*du\s*produit\b`,
	`\bprofil\s*environnemental\b`,
}

var secomLabels = []string{
	`\bfiche\s*technique\s*du\s*produit\b`,
	`\bfiche\s*technique\b`,
	`\bfiche\s*produit\b`,
	`\btout\s*télécharger\b`,
	`\btélécharger\b`,
	`\bdocumentation\b`,
}

var cedeoLabels = []string{
	`\bsans\s*prix\b`,
	`\bimprimer\s*sans\s*prix\b`,
	`\btélécharger\s*sans\s*prix\b`,
	`\bfiche\s*produit\b`,
	`\bfiche\s*technique\b`,
	`\bdocumentation\b`,
	`\bnotice\b`,
	// no trailing \b: é is not an ASCII word character
	`\bFDS\b|\bfiche\s*de\s*sécurité`,
	`\btélécharger\b`,
}

var (
	sansPrixRe        = regexp.MustCompile(`(?i)\bsans\s*prix\b`)
	toutTelechargerRe = regexp.MustCompile(`(?i)\btout\s*télécharger\b`)
	voirDocumentsRe   = regexp.MustCompile(`(?i)\bvoir\s*tous?\s*les\s*documents\b`)
)

// siteStrategy is one retailer's ordered set of download tactics. Dispatch
// is by hostname substring, in declaration order.
type siteStrategy struct {
	name string
	host string
	run  func(s *session) []string
}

func siteStrategies() []siteStrategy {
	return []siteStrategy{
		{name: "se.com", host: "se.com", run: downloadSecom},
		{name: "cedeo", host: "cedeo.fr", run: downloadCedeo},
		{name: "pointp", host: "pointp.fr", run: downloadPointP},
	}
}

// downloadSecom: direct download-pdf anchors, then the "tout télécharger"
// button, then the se.com label ladder, finally opening the full document
// list and retrying the ladder.
func downloadSecom(s *session) []string {
	dismissConsent(s.page, s.logger)

	saved := s.harvestAnchors(s.page.Locator(`a[href*="download-pdf"]`), 0)

	if len(saved) == 0 {
		btn := s.page.GetByRole("button", playwright.PageGetByRoleOptions{Name: toutTelechargerRe})
		if count, err := btn.Count(); err == nil && count > 0 {
			saved = s.clickCapture(btn.First(), 8000, 6000, 4000)
		}
	}

	if len(saved) == 0 {
		saved = s.labelLadder(secomLabels)
	}

	if len(saved) == 0 {
		seeAll := s.page.GetByRole("link", playwright.PageGetByRoleOptions{Name: voirDocumentsRe})
		if count, err := seeAll.Count(); err == nil && count > 0 {
			seeAll.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)})
		}
		saved = s.labelLadder(secomLabels)
	}

	return saved
}

// downloadCedeo: anchors labeled "sans prix" harvested directly, then an
// interactive click on the same label, then the cedeo label ladder.
func downloadCedeo(s *session) []string {
	dismissConsent(s.page, s.logger)

	saved := s.harvestAnchors(s.page.Locator("a", playwright.PageLocatorOptions{HasText: sansPrixRe}), 0)

	if len(saved) == 0 {
		link := s.page.GetByRole("link", playwright.PageGetByRoleOptions{Name: sansPrixRe})
		if count, err := link.Count(); err == nil && count > 0 {
			target := link.First()
			target.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
				Timeout: playwright.Float(1500),
			})
			saved = s.clickCapture(target, 6000, 6000, 4000)
		}
	}

	if len(saved) == 0 {
		saved = s.labelLadder(cedeoLabels)
	}

	return saved
}

// downloadPointP: bare .pdf anchors (scan capped at 25), then the "sans
// prix" link, then the generic label ladder.
func downloadPointP(s *session) []string {
	dismissConsent(s.page, s.logger)

	saved := s.harvestAnchors(s.page.Locator(`a[href$=".pdf"], a[href*=".pdf?"]`), 25)

	if len(saved) == 0 {
		link := s.page.GetByRole("link", playwright.PageGetByRoleOptions{Name: sansPrixRe})
		if count, err := link.Count(); err == nil && count > 0 {
			target := link.First()
			target.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
				Timeout: playwright.Float(1500),
			})
			saved = s.clickCapture(target, 7000, 6000, 4000)
		}
	}

	if len(saved) == 0 {
		saved = s.labelLadder(candidateLabels)
	}

	return saved
}

func downloadGeneric(s *session) []string {
	return s.labelLadder(candidateLabels)
}
