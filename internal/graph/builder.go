package graph

import (
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/hazard"
	"github.com/evacnet/evac_core/internal/models"
)

// coordPrecision is the rounding step for node deduplication, about 1.1m
// at the equator. Endpoints closer than this merge into one intersection;
// the builder tests probe this boundary.
const coordPrecision = 1e-5

type coordKey struct {
	x, y int64
}

func keyOf(p orb.Point) coordKey {
	return coordKey{
		x: int64(math.Round(p[0] / coordPrecision)),
		y: int64(math.Round(p[1] / coordPrecision)),
	}
}

// Build converts road segments into a risk-weighted graph using the
// hazard index for exposure classification. Blocked segments and
// segments fully inside a critical buffer contribute no traversable
// edge. The build is deterministic: identical inputs yield identical
// node IDs and edge sets.
func Build(segments []models.RoadSegment, hz *hazard.Index, cfg config.RiskConfig) *RouteGraph {
	g := &RouteGraph{}
	nodeIndex := make(map[coordKey]NodeID)

	intern := func(p orb.Point) NodeID {
		key := keyOf(p)
		if id, ok := nodeIndex[key]; ok {
			return id
		}
		id := NodeID(len(g.nodes))
		g.nodes = append(g.nodes, Node{ID: id, Point: p})
		g.adj = append(g.adj, nil)
		nodeIndex[key] = id
		return id
	}

	for _, seg := range segments {
		if seg.Blocked {
			g.skippedSegments++
			continue
		}

		line := dedupeVertices(seg.Geometry)
		if len(line) < 2 {
			log.Printf("Warning: segment %s has degenerate geometry, skipping", seg.ID)
			g.skippedSegments++
			continue
		}

		// Honor the feed's base length when present by scaling the
		// geometric sub-edge lengths to sum to it.
		scale := 1.0
		if seg.LengthMeters > 0 {
			geoLen := 0.0
			for i := 0; i < len(line)-1; i++ {
				geoLen += geo.DistanceHaversine(line[i], line[i+1])
			}
			if geoLen > 0 {
				scale = seg.LengthMeters / geoLen
			}
		}

		for i := 0; i < len(line)-1; i++ {
			a, b := line[i], line[i+1]

			risk := hz.SegmentRisk(a, b)
			mult := cfg.RiskMultipliers[risk]
			if math.IsInf(mult, 1) {
				// Critical exposure is a hard exclude
				continue
			}

			length := geo.DistanceHaversine(a, b) * scale
			if length == 0 {
				continue
			}

			cost := length * (1 + mult)
			edge := Edge{
				SegmentID:    seg.ID,
				LengthMeters: length,
				RiskPenalty:  length * mult,
				Cost:         cost,
				Risk:         risk,
			}

			from, to := intern(a), intern(b)
			if from == to {
				continue
			}

			// Bidirectional: one directed edge each way
			fwd := edge
			fwd.From, fwd.To = from, to
			g.adj[from] = append(g.adj[from], int32(len(g.edges)))
			g.edges = append(g.edges, fwd)

			rev := edge
			rev.From, rev.To = to, from
			g.adj[to] = append(g.adj[to], int32(len(g.edges)))
			g.edges = append(g.edges, rev)
		}
	}

	log.Printf("Built route graph: %d nodes, %d edges (%d segments skipped)",
		len(g.nodes), len(g.edges), g.skippedSegments)

	return g
}

// dedupeVertices drops consecutive vertices that collapse onto the same
// rounded coordinate, so zero-length sub-edges never enter the graph
func dedupeVertices(line orb.LineString) orb.LineString {
	if len(line) == 0 {
		return line
	}

	out := orb.LineString{line[0]}
	for _, p := range line[1:] {
		if keyOf(p) != keyOf(out[len(out)-1]) {
			out = append(out, p)
		}
	}
	return out
}
