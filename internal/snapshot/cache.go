package snapshot

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/graph"
	"github.com/evacnet/evac_core/internal/hazard"
	"github.com/evacnet/evac_core/internal/models"
)

// Snapshot is the atomic unit of consistency: one generation of hazard
// index, route graph and facility data, built together and never
// mutated. All queries for one logical request must read a single
// snapshot reference.
type Snapshot struct {
	ID         uuid.UUID
	Hazards    *hazard.Index
	Graph      *graph.RouteGraph
	Facilities []models.Facility
	Segments   []models.RoadSegment
	BuiltAt    time.Time
}

// Stale reports whether the snapshot is older than the given threshold.
// Advisory only: stale snapshots are still served.
func (s *Snapshot) Stale(threshold time.Duration) bool {
	if threshold <= 0 {
		return false
	}
	return time.Since(s.BuiltAt) > threshold
}

// Store publishes snapshots atomically. Readers never block and never
// observe a partially built snapshot; refreshes are serialized, and
// concurrent refresh calls coalesce onto the in-flight build.
type Store struct {
	cfg       config.RiskConfig
	staleness time.Duration

	current atomic.Pointer[Snapshot]

	mu       sync.Mutex
	building bool
	done     chan struct{}
}

// NewStore creates an empty snapshot store. Current returns nil until
// the first Refresh completes.
func NewStore(cfg config.RiskConfig, staleness time.Duration) *Store {
	return &Store{cfg: cfg, staleness: staleness}
}

// Current returns the most recently committed snapshot without
// blocking, or nil before the first refresh
func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// StalenessThreshold returns the configured staleness window
func (st *Store) StalenessThreshold() time.Duration {
	return st.staleness
}

// Refresh builds a fresh hazard index and route graph from the given
// feed data and publishes them atomically. If another refresh is
// already running, the call waits for it and returns its result instead
// of building twice.
func (st *Store) Refresh(zones []models.HazardZone, segments []models.RoadSegment, facilities []models.Facility) *Snapshot {
	st.mu.Lock()
	if st.building {
		ch := st.done
		st.mu.Unlock()
		<-ch
		return st.Current()
	}
	st.building = true
	st.done = make(chan struct{})
	ch := st.done
	st.mu.Unlock()

	started := time.Now()

	hz := hazard.BuildIndex(zones, st.cfg)
	g := graph.Build(segments, hz, st.cfg)

	snap := &Snapshot{
		ID:         uuid.New(),
		Hazards:    hz,
		Graph:      g,
		Facilities: facilities,
		Segments:   segments,
		BuiltAt:    time.Now(),
	}

	st.current.Store(snap)

	st.mu.Lock()
	st.building = false
	st.mu.Unlock()
	close(ch)

	log.Printf("Published snapshot %s in %v (%d zones, %d nodes, %d edges, %d facilities)",
		snap.ID, time.Since(started), hz.ZoneCount(), g.NodeCount(), g.EdgeCount(), len(facilities))

	return snap
}
