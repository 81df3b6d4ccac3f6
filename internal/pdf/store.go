// Package pdf drives a headless-browser session against a product page to
// retrieve the vendor's original PDF datasheets. It dismisses consent
// overlays, dispatches to a per-site download strategy and deduplicates
// saved files by content hash.
package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// dedupStore tracks content hashes of PDFs saved within a single request.
// It must never be shared across requests.
type dedupStore struct {
	byHash map[string]string
}

func newDedupStore() *dedupStore {
	return &dedupStore{byHash: make(map[string]string)}
}

// save writes content into dir under suggestedName unless a file with
// identical bytes was already written this request, in which case the
// existing path is returned and nothing is written.
func (d *dedupStore) save(dir, suggestedName string, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	key := hex.EncodeToString(sum[:])

	if existing, ok := d.byHash[key]; ok {
		return existing, nil
	}

	path := uniqueFilePath(dir, ensurePDFExt(suggestedName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	d.byHash[key] = path
	return path, nil
}

// uniqueFilePath returns a path in dir that does not collide with an
// existing file, suffixing _1, _2, ... before the extension as needed.
func uniqueFilePath(dir, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	path := filepath.Join(dir, filename)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}

func ensurePDFExt(name string) string {
	if name == "" {
		name = "document.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// fileNameFromURL derives a filename from the last path segment of u.
func fileNameFromURL(u string) string {
	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		if name := filepath.Base(parsed.Path); name != "/" && name != "." {
			return name
		}
		return "document.pdf"
	}
	if idx := strings.LastIndex(u, "/"); idx >= 0 && idx < len(u)-1 {
		return u[idx+1:]
	}
	return "document.pdf"
}

// dedupePaths removes duplicate path strings preserving first-seen order.
// Hash dedup already guarantees content uniqueness, but multiple strategies
// can append the same path.
func dedupePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func isPDFResponse(contentType, respURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(respURL), ".pdf")
}
