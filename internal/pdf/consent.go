package pdf

import (
	"log/slog"
	"regexp"

	"github.com/playwright-community/playwright-go"
)

// knownConsentSelectors are exact matches for common consent-manager accept
// buttons (OneTrust, Axeptio), probed with a short visibility timeout each.
var knownConsentSelectors = []string{
	"#onetrust-accept-btn-handler",
	".ot-sdk-container #onetrust-accept-btn-handler",
	"#accept-recommended-btn-handler",
	".save-preference-btn-handler",
	"#axeptio_btn_acceptAll",
	"button#axeptio_btn_acceptAll",
}

// consentOverlaySelectors are containers waited on (hidden) after a click.
var consentOverlaySelectors = []string{
	"#onetrust-banner-sdk",
	"#onetrust-pc-sdk",
	".onetrust-pc-dark-filter",
	"#onetrust-consent-sdk",
}

// acceptPhrases cover multilingual consent-accept labels, matched
// case-insensitively against button, link, then plain-text elements.
var acceptPhrases = []string{
	`tout accepter`,
	`accepter`,
	`j.?accepte`,
	`ok`,
	`continuer sans accepter`,
	`accept all`,
	`agree`,
	`allow all`,
	`necessary only`,
	`confirm your choices`,
	`accept & close`,
	`accepter & fermer`,
}

// consentProbe is the bounded visibility wait applied to each known
// selector; banners often render just after domcontentloaded.
func consentProbe() playwright.LocatorWaitForOptions {
	return playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(800),
	}
}

// dismissConsent tries to click a consent-accept affordance and waits for
// known overlays to disappear. Best-effort: it reports whether a click
// landed and never returns an error.
func dismissConsent(page playwright.Page, logger *slog.Logger) bool {
	clicked := false

	for _, sel := range knownConsentSelectors {
		loc := page.Locator(sel).First()
		if err := loc.WaitFor(consentProbe()); err != nil {
			continue
		}
		if err := loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(800)}); err != nil {
			continue
		}
		logger.Debug("consent dismissed via selector", "selector", sel)
		clicked = true
		break
	}

	if !clicked {
	phrases:
		for _, phrase := range acceptPhrases {
			pattern := regexp.MustCompile(`(?i)` + phrase)
			for _, loc := range []playwright.Locator{
				page.GetByRole("button", playwright.PageGetByRoleOptions{Name: pattern}),
				page.GetByRole("link", playwright.PageGetByRoleOptions{Name: pattern}),
				page.GetByText(pattern),
			} {
				count, err := loc.Count()
				if err != nil || count == 0 {
					continue
				}
				if err := loc.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(1200)}); err != nil {
					continue
				}
				logger.Debug("consent dismissed via phrase", "phrase", phrase)
				clicked = true
				break phrases
			}
		}
	}

	waitConsentGone(page)
	return clicked
}

// waitConsentGone waits briefly for consent overlays to become hidden.
// Absence of the overlay is not an error.
func waitConsentGone(page playwright.Page) {
	for _, sel := range consentOverlaySelectors {
		page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
			State:   playwright.WaitForSelectorStateHidden,
			Timeout: playwright.Float(4000),
		})
	}
}
