package routing

import (
	"container/heap"
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/graph"
	"github.com/evacnet/evac_core/internal/models"
)

// Typed query failures. Staleness is snapshot metadata, not an error;
// nothing here is ever fatal to the process.
var (
	// ErrUnreachable means no path exists or an endpoint could not be
	// snapped to the graph
	ErrUnreachable = errors.New("no reachable route")

	// ErrCancelled means the caller's deadline or cancellation fired
	// before the search finished
	ErrCancelled = errors.New("route search cancelled")
)

// maxExploredNodes caps traversal work on pathological graphs
const maxExploredNodes = 500000

// FindSafeRoute computes the lowest-cost route between two lon/lat
// points on the risk-weighted graph. Endpoints snap to the nearest node
// within cfg.MaxSnapDistanceMeters. Ties between equal-cost paths break
// on fewer hops, then lower cumulative risk.
func FindSafeRoute(ctx context.Context, g *graph.RouteGraph, cfg config.RiskConfig, start, end orb.Point) (*models.RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	src, dst, err := snapEndpoints(g, cfg, start, end)
	if err != nil {
		return nil, err
	}

	if src == dst {
		// Trivial route: already there, no hazard exposure
		return &models.RouteResult{
			Points:      []orb.Point{g.Node(src).Point},
			Coordinates: [][2]float64{pointToLatLon(g.Node(src).Point)},
			SafetyScore: 100,
		}, nil
	}

	edges, err := shortestPath(ctx, g, src, dst, nil)
	if err != nil {
		return nil, err
	}

	return buildResult(g, cfg, src, edges), nil
}

func snapEndpoints(g *graph.RouteGraph, cfg config.RiskConfig, start, end orb.Point) (graph.NodeID, graph.NodeID, error) {
	src, srcDist, ok := g.NearestNode(start)
	if !ok || srcDist > cfg.MaxSnapDistanceMeters {
		return 0, 0, fmt.Errorf("%w: start point too far from road network", ErrUnreachable)
	}
	dst, dstDist, ok := g.NearestNode(end)
	if !ok || dstDist > cfg.MaxSnapDistanceMeters {
		return 0, 0, fmt.Errorf("%w: end point too far from road network", ErrUnreachable)
	}
	return src, dst, nil
}

// penaltyFn optionally re-weights an edge during search. nil means the
// edge's own cost is used.
type penaltyFn func(graph.Edge) float64

// shortestPath runs Dijkstra from src to dst and returns the edge
// sequence of the best path
func shortestPath(ctx context.Context, g *graph.RouteGraph, src, dst graph.NodeID, penalty penaltyFn) ([]graph.Edge, error) {
	n := g.NodeCount()

	dist := make([]float64, n)
	hops := make([]int, n)
	risk := make([]float64, n)
	settled := make([]bool, n)
	prev := make([]graph.Edge, n)
	hasPrev := make([]bool, n)
	reached := make([]bool, n)

	openSet := &priorityQueue{}
	heap.Init(openSet)
	heap.Push(openSet, &queueItem{node: src})
	reached[src] = true

	explored := 0
	for openSet.Len() > 0 {
		// Honor cancellation between pops, like any long search should
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		default:
		}

		if explored > maxExploredNodes {
			return nil, fmt.Errorf("%w: explored %d nodes without reaching destination", ErrUnreachable, explored)
		}

		current := heap.Pop(openSet).(*queueItem)
		if settled[current.node] {
			continue
		}
		settled[current.node] = true
		explored++

		if current.node == dst {
			return tracePath(src, dst, prev, hasPrev), nil
		}

		for _, edge := range g.OutEdges(current.node) {
			if settled[edge.To] {
				continue
			}

			cost := edge.Cost
			if penalty != nil {
				cost = penalty(edge)
			}

			cand := &queueItem{
				node: edge.To,
				cost: dist[current.node] + cost,
				hops: hops[current.node] + 1,
				risk: risk[current.node] + edge.RiskPenalty,
			}

			if reached[edge.To] && !better(cand, dist[edge.To], hops[edge.To], risk[edge.To]) {
				continue
			}

			dist[edge.To] = cand.cost
			hops[edge.To] = cand.hops
			risk[edge.To] = cand.risk
			prev[edge.To] = edge
			hasPrev[edge.To] = true
			reached[edge.To] = true
			heap.Push(openSet, cand)
		}
	}

	return nil, fmt.Errorf("%w: destination not connected", ErrUnreachable)
}

// better applies the cost, then hops, then cumulative-risk tie-break
func better(cand *queueItem, cost float64, hops int, risk float64) bool {
	if cand.cost != cost {
		return cand.cost < cost
	}
	if cand.hops != hops {
		return cand.hops < hops
	}
	return cand.risk < risk
}

func tracePath(src, dst graph.NodeID, prev []graph.Edge, hasPrev []bool) []graph.Edge {
	var reversed []graph.Edge
	for at := dst; at != src; {
		if !hasPrev[at] {
			return nil
		}
		e := prev[at]
		reversed = append(reversed, e)
		at = e.From
	}

	edges := make([]graph.Edge, len(reversed))
	for i, e := range reversed {
		edges[len(reversed)-1-i] = e
	}
	return edges
}

// buildResult converts an edge sequence into a RouteResult. The safety
// score is the base-length share of total path cost: 100 for a
// hazard-free route, approaching 0 as the risk term dominates.
func buildResult(g *graph.RouteGraph, cfg config.RiskConfig, src graph.NodeID, edges []graph.Edge) *models.RouteResult {
	points := []orb.Point{g.Node(src).Point}
	coords := [][2]float64{pointToLatLon(g.Node(src).Point)}

	var lengthMeters, riskCost float64
	for _, e := range edges {
		lengthMeters += e.LengthMeters
		riskCost += e.RiskPenalty

		p := g.Node(e.To).Point
		points = append(points, p)
		coords = append(coords, pointToLatLon(p))
	}

	score := 100.0
	if total := lengthMeters + riskCost; total > 0 {
		score = 100 * (1 - riskCost/total)
	}
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	distanceKm := lengthMeters / 1000

	minutes := 0.0
	if cfg.EvacSpeedKmh > 0 {
		minutes = distanceKm / cfg.EvacSpeedKmh * 60
	}

	return &models.RouteResult{
		Points:               points,
		Coordinates:          coords,
		TotalDistanceKm:      distanceKm,
		SafetyScore:          score,
		EstimatedTimeMinutes: minutes,
		Hops:                 len(edges),
	}
}

func pointToLatLon(p orb.Point) [2]float64 {
	return [2]float64{p[1], p[0]}
}

// queueItem is one frontier entry of the Dijkstra open set
type queueItem struct {
	node  graph.NodeID
	cost  float64
	hops  int
	risk  float64
	index int // for heap
}

// priorityQueue implements heap.Interface for the Dijkstra open set
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	if pq[i].hops != pq[j].hops {
		return pq[i].hops < pq[j].hops
	}
	return pq[i].risk < pq[j].risk
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
