package memory

import (
	"context"
	"sync"
	"time"

	"github.com/example/shopfront/pkg/models"
)

type StatsRepositoryMemory struct {
	mu        sync.Mutex
	counters  map[string]map[string]int64
	updated   map[string]time.Time
	customers map[string]map[string]struct{}
}

func NewStatsRepositoryMemory() *StatsRepositoryMemory {
	return &StatsRepositoryMemory{
		counters:  make(map[string]map[string]int64),
		updated:   make(map[string]time.Time),
		customers: make(map[string]map[string]struct{}),
	}
}

func (r *StatsRepositoryMemory) ApplyDelta(ctx context.Context, shopID string, delta models.Delta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.counters[shopID]
	if !exists {
		c = make(map[string]int64)
		r.counters[shopID] = c
	}
	for name, n := range delta {
		c[name] += n
	}
	r.updated[shopID] = time.Now()
	return nil
}

// Get returns zeroed stats for shops that never received a delta.
func (r *StatsRepositoryMemory) Get(ctx context.Context, shopID string) (*models.ShopStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := models.StatsFromCounters(shopID, r.counters[shopID])
	stats.UpdatedAt = r.updated[shopID]
	return stats, nil
}

func (r *StatsRepositoryMemory) AddCustomer(ctx context.Context, shopID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, exists := r.customers[shopID]
	if !exists {
		set = make(map[string]struct{})
		r.customers[shopID] = set
	}
	if _, seen := set[userID]; seen {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}
