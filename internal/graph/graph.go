package graph

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/evacnet/evac_core/internal/models"
)

// NodeID indexes a node inside one RouteGraph. IDs are assigned in
// first-seen order during the build and are only meaningful within the
// graph that produced them.
type NodeID int32

// Node is a deduplicated road-network intersection
type Node struct {
	ID    NodeID
	Point orb.Point // lon, lat
}

// Edge is a directed, risk-weighted connection between two nodes.
// Cost = LengthMeters * (1 + multiplier); RiskPenalty is the multiplier
// share of that cost.
type Edge struct {
	From         NodeID
	To           NodeID
	SegmentID    string
	LengthMeters float64
	RiskPenalty  float64
	Cost         float64
	Risk         models.RiskLevel
}

// RouteGraph is an immutable, snapshot-scoped weighted graph over the
// road network. It is built atomically and never mutated afterwards, so
// concurrent queries need no locking.
type RouteGraph struct {
	nodes []Node
	edges []Edge
	adj   [][]int32 // outgoing edge indices per node

	skippedSegments int
}

// NodeCount returns the number of deduplicated nodes
func (g *RouteGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges
func (g *RouteGraph) EdgeCount() int {
	return len(g.edges)
}

// SkippedSegments returns how many input segments were rejected during
// the build
func (g *RouteGraph) SkippedSegments() int {
	return g.skippedSegments
}

// Node returns the node for an ID
func (g *RouteGraph) Node(id NodeID) Node {
	return g.nodes[id]
}

// OutEdges returns a copy of the outgoing edges of a node
func (g *RouteGraph) OutEdges(id NodeID) []Edge {
	idxs := g.adj[id]
	out := make([]Edge, len(idxs))
	for i, e := range idxs {
		out[i] = g.edges[e]
	}
	return out
}

// NearestNode snaps a lon/lat point to the closest graph node and
// returns its distance in meters. ok is false for an empty graph.
func (g *RouteGraph) NearestNode(pt orb.Point) (NodeID, float64, bool) {
	if len(g.nodes) == 0 {
		return 0, 0, false
	}

	best := NodeID(0)
	bestDist := math.Inf(1)
	for _, n := range g.nodes {
		d := geo.DistanceHaversine(pt, n.Point)
		if d < bestDist {
			bestDist = d
			best = n.ID
		}
	}
	return best, bestDist, true
}
