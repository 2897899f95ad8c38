package feed

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/evacnet/evac_core/internal/snapshot"
	"github.com/evacnet/evac_core/internal/store"
)

// Refresher periodically reloads the hazard feed and publishes a fresh
// snapshot. A failed reload keeps the previous snapshot in place.
type Refresher struct {
	store    *store.Store
	cache    *snapshot.Store
	interval time.Duration
}

func New(st *store.Store, cache *snapshot.Store, interval time.Duration) *Refresher {
	return &Refresher{
		store:    st,
		cache:    cache,
		interval: interval,
	}
}

// jitterDelay picks a random delay below a tenth of the refresh
// interval. Intervals too short to divide yield no jitter.
func jitterDelay(interval time.Duration) time.Duration {
	window := interval / 10
	if window <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(window)))
}

// RefreshOnce loads the feed and rebuilds the snapshot a single time.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	data, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	r.cache.Refresh(data.Zones, data.Segments, data.Facilities)
	return nil
}

// Run blocks, refreshing the snapshot on every tick until ctx is
// cancelled. Refresh errors are logged, never fatal.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("Feed refresher started (interval %s)", r.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Feed refresher stopped")
			return
		case <-ticker.C:
			// Jitter keeps replicas from hitting the store in lockstep.
			if delay := jitterDelay(r.interval); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					log.Println("Feed refresher stopped")
					return
				case <-timer.C:
				}
			}
			if err := r.RefreshOnce(ctx); err != nil {
				log.Printf("Warning: feed refresh failed, keeping previous snapshot: %v", err)
			}
		}
	}
}
