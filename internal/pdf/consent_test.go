package pdf

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentProbeWaitsForVisibility(t *testing.T) {
	probe := consentProbe()

	// a bounded wait, not an instant visibility check
	require.NotNil(t, probe.State)
	assert.Equal(t, *playwright.WaitForSelectorStateVisible, *probe.State)
	require.NotNil(t, probe.Timeout)
	assert.Equal(t, float64(800), *probe.Timeout)
}

func TestConsentSelectorsCoverKnownManagers(t *testing.T) {
	assert.Contains(t, knownConsentSelectors, "#onetrust-accept-btn-handler")
	assert.Contains(t, knownConsentSelectors, "#axeptio_btn_acceptAll")
}
