package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btp-tools/fichetech/internal/models"
)

func TestAddAndGet(t *testing.T) {
	reg := New()

	result := &models.RequestResult{RequestID: "req-1", Status: models.StatusSuccess}
	reg.Add(result)

	got, ok := reg.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, result, got)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
}

func TestAddIgnoresEmptyID(t *testing.T) {
	reg := New()
	reg.Add(nil)
	reg.Add(&models.RequestResult{})

	assert.Empty(t, reg.List())
}

func TestListKeepsInsertionOrder(t *testing.T) {
	reg := New()
	for i := 1; i <= 3; i++ {
		reg.Add(&models.RequestResult{RequestID: fmt.Sprintf("req-%d", i)})
	}

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "req-1", list[0].RequestID)
	assert.Equal(t, "req-2", list[1].RequestID)
	assert.Equal(t, "req-3", list[2].RequestID)
}

func TestAddSameIDUpdatesInPlace(t *testing.T) {
	reg := New()
	reg.Add(&models.RequestResult{RequestID: "req-1", Status: models.StatusError})
	reg.Add(&models.RequestResult{RequestID: "req-1", Status: models.StatusSuccess})

	got, ok := reg.Get("req-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusSuccess, got.Status)
	assert.Len(t, reg.List(), 1)
}

func TestStats(t *testing.T) {
	reg := New()
	reg.Add(&models.RequestResult{RequestID: "a", Status: models.StatusSuccess})
	reg.Add(&models.RequestResult{RequestID: "b", Status: models.StatusSuccess})
	reg.Add(&models.RequestResult{RequestID: "c", Status: models.StatusError})

	stats := reg.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Errors)
}

func TestConcurrentAccess(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Add(&models.RequestResult{RequestID: fmt.Sprintf("req-%d", i), Status: models.StatusSuccess})
			reg.Get(fmt.Sprintf("req-%d", i))
			reg.List()
			reg.Stats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Stats().Total)
}
