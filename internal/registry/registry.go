// Package registry keeps finished and in-flight request results in memory so
// the API can serve them back. Nothing survives a restart; persistence is
// deliberately out of scope.
package registry

import (
	"sync"

	"github.com/btp-tools/fichetech/internal/models"
)

type Registry struct {
	mu      sync.RWMutex
	results map[string]*models.RequestResult
	order   []string
}

func New() *Registry {
	return &Registry{
		results: make(map[string]*models.RequestResult),
	}
}

func (r *Registry) Add(result *models.RequestResult) {
	if result == nil || result.RequestID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.results[result.RequestID]; !exists {
		r.order = append(r.order, result.RequestID)
	}
	r.results[result.RequestID] = result
}

func (r *Registry) Get(requestID string) (*models.RequestResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[requestID]
	return result, ok
}

// List returns results in insertion order, oldest first.
func (r *Registry) List() []*models.RequestResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RequestResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.results[id])
	}
	return out
}

type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{Total: len(r.order)}
	for _, result := range r.results {
		switch result.Status {
		case models.StatusSuccess:
			stats.Success++
		case models.StatusError:
			stats.Errors++
		}
	}
	return stats
}
