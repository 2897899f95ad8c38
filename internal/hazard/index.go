package hazard

import (
	"log"
	"math"

	"github.com/paulmach/orb"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/models"
)

const (
	// gridThreshold is the zone count below which candidate lookup falls
	// back to a linear scan. Small batches are cheaper to scan than to
	// bucket.
	gridThreshold = 32

	// cellSizeDeg is the spatial grid cell size (~25km at the equator)
	cellSizeDeg = 0.25
)

// bufferedZone is an active hazard zone with its derived danger radius
type bufferedZone struct {
	zone   models.HazardZone
	radius float64 // meters
	risk   models.RiskLevel
	bound  orb.Bound // geometry bound padded by radius
}

// Index answers point and segment risk queries against a fixed set of
// hazard zones. It is immutable after construction and safe for
// concurrent use.
type Index struct {
	zones []bufferedZone
	grid  map[cellKey][]int // zone indices by covered cell, nil below gridThreshold
}

type cellKey struct {
	x, y int32
}

// BuildIndex derives buffered danger regions for every active zone and
// arranges them for sub-linear lookup. Zones with missing or degenerate
// geometry are skipped individually, never failing the batch. Pure
// function of its inputs.
func BuildIndex(zones []models.HazardZone, cfg config.RiskConfig) *Index {
	idx := &Index{}

	for _, z := range zones {
		if !z.Active() {
			continue
		}
		if !validGeometry(z.Geometry) {
			log.Printf("Warning: hazard zone %s has invalid geometry, skipping", z.ID)
			continue
		}
		if !z.Severity.Valid() {
			log.Printf("Warning: hazard zone %s has unknown severity %q, skipping", z.ID, z.Severity)
			continue
		}

		radius := cfg.BufferMeters[z.Severity]
		idx.zones = append(idx.zones, bufferedZone{
			zone:   z,
			radius: radius,
			risk:   models.RiskFromSeverity(z.Severity),
			bound:  padBound(z.Geometry.Bound(), radius),
		})
	}

	if len(idx.zones) > gridThreshold {
		idx.grid = buildGrid(idx.zones)
	}

	return idx
}

func buildGrid(zones []bufferedZone) map[cellKey][]int {
	grid := make(map[cellKey][]int)
	for i, bz := range zones {
		minX, minY := cellOf(bz.bound.Min)
		maxX, maxY := cellOf(bz.bound.Max)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				key := cellKey{x, y}
				grid[key] = append(grid[key], i)
			}
		}
	}
	return grid
}

func cellOf(p orb.Point) (int32, int32) {
	return int32(math.Floor(p[0] / cellSizeDeg)), int32(math.Floor(p[1] / cellSizeDeg))
}

// ZoneCount returns the number of indexed (active, valid) zones
func (idx *Index) ZoneCount() int {
	return len(idx.zones)
}

// Zones returns the indexed zones in input order
func (idx *Index) Zones() []models.HazardZone {
	out := make([]models.HazardZone, len(idx.zones))
	for i, bz := range idx.zones {
		out[i] = bz.zone
	}
	return out
}

// RiskAt classifies the hazard exposure of a single lon/lat point: the
// highest risk among all buffers containing it.
func (idx *Index) RiskAt(pt orb.Point) models.RiskLevel {
	risk := models.RiskNone
	for _, i := range idx.candidates(orb.Bound{Min: pt, Max: pt}) {
		bz := idx.zones[i]
		if bz.risk <= risk {
			continue
		}
		if !bz.bound.Contains(pt) {
			continue
		}
		if pointToGeometry(pt, bz.zone.Geometry) <= bz.radius {
			risk = bz.risk
		}
	}
	return risk
}

// SegmentRisk classifies the hazard exposure of the straight segment
// between two lon/lat points: the highest risk among all buffers the
// segment touches.
func (idx *Index) SegmentRisk(a, b orb.Point) models.RiskLevel {
	segBound := orb.MultiPoint{a, b}.Bound()

	risk := models.RiskNone
	for _, i := range idx.candidates(segBound) {
		bz := idx.zones[i]
		if bz.risk <= risk {
			continue
		}
		if !bz.bound.Intersects(segBound) {
			continue
		}
		if segmentToGeometry(a, b, bz.zone.Geometry) <= bz.radius {
			risk = bz.risk
		}
	}
	return risk
}

// LineRisk classifies a full polyline: the highest risk of any of its
// consecutive segments.
func (idx *Index) LineRisk(line orb.LineString) models.RiskLevel {
	risk := models.RiskNone
	for i := 0; i < len(line)-1; i++ {
		if r := idx.SegmentRisk(line[i], line[i+1]); r > risk {
			risk = r
			if risk == models.RiskCritical {
				break
			}
		}
	}
	return risk
}

// candidates returns the zone indices whose padded bounds may overlap the
// query bound. With the grid unset every zone is a candidate.
func (idx *Index) candidates(query orb.Bound) []int {
	if idx.grid == nil {
		all := make([]int, len(idx.zones))
		for i := range idx.zones {
			all[i] = i
		}
		return all
	}

	minX, minY := cellOf(query.Min)
	maxX, maxY := cellOf(query.Max)

	seen := make(map[int]bool)
	var out []int
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for _, i := range idx.grid[cellKey{x, y}] {
				if !seen[i] {
					seen[i] = true
					out = append(out, i)
				}
			}
		}
	}
	return out
}

// validGeometry rejects nil and degenerate geometries at the ingestion
// boundary
func validGeometry(g orb.Geometry) bool {
	switch geom := g.(type) {
	case nil:
		return false
	case orb.Point:
		return !math.IsNaN(geom[0]) && !math.IsNaN(geom[1])
	case orb.LineString:
		return len(geom) >= 2
	case orb.Polygon:
		return len(geom) > 0 && len(geom[0]) >= 3
	case orb.MultiPolygon:
		for _, poly := range geom {
			if len(poly) > 0 && len(poly[0]) >= 3 {
				return true
			}
		}
		return false
	case orb.MultiLineString:
		for _, ls := range geom {
			if len(ls) >= 2 {
				return true
			}
		}
		return false
	default:
		return false
	}
}
