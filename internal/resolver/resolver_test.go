package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btp-tools/fichetech/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsProductURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		domains  []string
		expected bool
	}{
		{
			name:     "pointp product page",
			url:      "https://www.pointp.fr/p/disjoncteur-differentiel-legrand-A12345",
			domains:  []string{"pointp.fr"},
			expected: true,
		},
		{
			name:     "cedeo product page",
			url:      "https://www.cedeo.fr/p/chauffe-eau-thermor-A67890",
			domains:  []string{"cedeo.fr"},
			expected: true,
		},
		{
			name:     "se.com product page",
			url:      "https://www.se.com/fr/fr/product/A9R11225",
			domains:  []string{"se.com"},
			expected: true,
		},
		{
			name:     "any page under a listed domain is accepted",
			url:      "https://www.pointp.fr/l/electricite/disjoncteurs",
			domains:  []string{"pointp.fr"},
			expected: true,
		},
		{
			name:     "unlisted domain is rejected",
			url:      "https://unrelated.com/p/foo-A1",
			domains:  []string{"pointp.fr"},
			expected: false,
		},
		{
			name:     "empty domain list rejects everything",
			url:      "https://www.pointp.fr/p/disjoncteur-A12345",
			domains:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProductURL(tt.url, tt.domains))
		})
	}
}

func TestDecodeRedirect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "uddg redirect",
			input:    "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.pointp.fr%2Fp%2Fdisjoncteur-A12345&rut=abc",
			expected: "https://www.pointp.fr/p/disjoncteur-A12345",
		},
		{
			name:     "protocol relative uddg redirect",
			input:    "//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.cedeo.fr%2Fp%2Ffoo-A1",
			expected: "https://www.cedeo.fr/p/foo-A1",
		},
		{
			name:     "direct url passes through",
			input:    "https://www.pointp.fr/p/disjoncteur-A12345",
			expected: "https://www.pointp.fr/p/disjoncteur-A12345",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeRedirect(tt.input))
		})
	}
}

func TestPickBestResult(t *testing.T) {
	results := []models.SearchResult{
		{Title: "Disjoncteur Hager", URL: "https://www.pointp.fr/p/disjoncteur-hager-A999"},
		{Title: "Disjoncteur différentiel Legrand 411632", URL: "https://www.pointp.fr/p/disjoncteur-legrand-411632-A123"},
		{Title: "Interrupteur Legrand", URL: "https://www.pointp.fr/p/interrupteur-legrand-A456"},
	}

	best := PickBestResult(results, []string{"Disjoncteur", "Legrand", "411632"})
	assert.Equal(t, "https://www.pointp.fr/p/disjoncteur-legrand-411632-A123", best)
}

func TestPickBestResultTiesKeepFirstSeen(t *testing.T) {
	results := []models.SearchResult{
		{Title: "Disjoncteur A", URL: "https://www.pointp.fr/p/a-A1"},
		{Title: "Disjoncteur B", URL: "https://www.pointp.fr/p/b-A2"},
	}

	best := PickBestResult(results, []string{"disjoncteur"})
	assert.Equal(t, "https://www.pointp.fr/p/a-A1", best)
}

func TestPickBestResultEmpty(t *testing.T) {
	assert.Equal(t, "", PickBestResult(nil, []string{"disjoncteur"}))
}

func TestResolveFallsBackAcrossBackends(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("q"), "site:pointp.fr")

		fmt.Fprint(w, `<html><body>
			<a class="result__a" href="https://www.pointp.fr/p/disjoncteur-differentiel-legrand-411632-A123">Disjoncteur différentiel Legrand 411632</a>
			<a class="result__a" href="https://www.pointp.fr/p/autre-produit-A456">Autre produit</a>
		</body></html>`)
	}))
	defer working.Close()

	r := New(Options{}, testLogger())
	r.endpoints = []endpoint{
		{url: broken.URL, post: true},
		{url: working.URL, post: true},
	}

	best, attempts, err := r.Resolve(context.Background(), "Disjoncteur différentiel Legrand 411632", []string{"pointp.fr"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.pointp.fr/p/disjoncteur-differentiel-legrand-411632-A123", best)
	require.Len(t, attempts, 2)
	assert.Equal(t, broken.URL, attempts[0].Endpoint)
	assert.Contains(t, attempts[0].Status, "500")
	assert.Equal(t, "200", attempts[1].Status)
}

func TestResolveNoResults(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no results</body></html>`)
	}))
	defer empty.Close()

	r := New(Options{}, testLogger())
	r.endpoints = []endpoint{{url: empty.URL, post: true}}

	best, attempts, err := r.Resolve(context.Background(), "produit introuvable", []string{"pointp.fr"})
	require.NoError(t, err)
	assert.Equal(t, "", best)
	require.Len(t, attempts, 1)
}

func TestResolveLiteBackendFiltersForeignAnchors(t *testing.T) {
	lite := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.RawQuery, "q="))
		fmt.Fprint(w, `<html><body>
			<a href="https://duckduckgo.com/settings">Settings</a>
			<a href="https://www.cedeo.fr/p/chauffe-eau-A42">Chauffe-eau</a>
		</body></html>`)
	}))
	defer lite.Close()

	r := New(Options{}, testLogger())
	r.endpoints = []endpoint{{url: lite.URL, lite: true}}

	best, _, err := r.Resolve(context.Background(), "chauffe-eau", []string{"cedeo.fr"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.cedeo.fr/p/chauffe-eau-A42", best)
}
