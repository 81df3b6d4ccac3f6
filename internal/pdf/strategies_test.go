package pdf

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadLabelsCompile(t *testing.T) {
	for _, labels := range [][]string{candidateLabels, secomLabels, cedeoLabels} {
		for _, label := range labels {
			_, err := regexp.Compile(`(?i)` + label)
			require.NoError(t, err, "label %q must compile", label)
		}
	}
}

func TestDownloadLabelsMatchKnownPhrases(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		phrase string
	}{
		{name: "generic sans prix", labels: candidateLabels, phrase: "Télécharger sans prix"},
		{name: "generic fiche technique", labels: candidateLabels, phrase: "Fiche technique du produit"},
		{name: "secom tout telecharger", labels: secomLabels, phrase: "Tout télécharger"},
		{name: "cedeo fds acronym", labels: cedeoLabels, phrase: "FDS"},
		// accented trailing word, matched without an ASCII boundary
		{name: "cedeo fiche de securite", labels: cedeoLabels, phrase: "Fiche de sécurité"},
		{name: "cedeo fiche de securite in context", labels: cedeoLabels, phrase: "Télécharger la fiche de sécurité (PDF)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := false
			for _, label := range tt.labels {
				if regexp.MustCompile(`(?i)` + label).MatchString(tt.phrase) {
					matched = true
					break
				}
			}
			assert.True(t, matched, "no label matched %q", tt.phrase)
		})
	}
}

func TestSiteStrategyOrder(t *testing.T) {
	strategies := siteStrategies()
	require.Len(t, strategies, 3)
	assert.Equal(t, "se.com", strategies[0].host)
	assert.Equal(t, "cedeo.fr", strategies[1].host)
	assert.Equal(t, "pointp.fr", strategies[2].host)
}
