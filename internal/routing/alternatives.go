package routing

import (
	"context"
	"errors"
	"sort"

	"github.com/paulmach/orb"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/graph"
	"github.com/evacnet/evac_core/internal/models"
)

type edgeKey struct {
	from, to graph.NodeID
}

// FindAlternativeRoutes returns up to k routes between start and end
// with pairwise edge divergence of at least cfg.MinRouteDivergence,
// ordered by ascending cost. It uses penalty-based re-weighting: every
// accepted route's edges get more expensive for the next search, pushing
// it onto different roads. Fewer than k diverse routes is not an error.
func FindAlternativeRoutes(ctx context.Context, g *graph.RouteGraph, cfg config.RiskConfig, start, end orb.Point, k int) ([]*models.RouteResult, error) {
	if k <= 0 {
		return nil, nil
	}

	src, dst, err := snapEndpoints(g, cfg, start, end)
	if err != nil {
		return nil, err
	}
	if src == dst {
		r, err := FindSafeRoute(ctx, g, cfg, start, end)
		if err != nil {
			return nil, err
		}
		return []*models.RouteResult{r}, nil
	}

	penalties := make(map[edgeKey]float64)
	penalty := func(e graph.Edge) float64 {
		cost := e.Cost
		if f, ok := penalties[edgeKey{e.From, e.To}]; ok {
			cost *= f
		}
		return cost
	}

	type candidate struct {
		result   *models.RouteResult
		trueCost float64
	}

	var accepted []candidate
	var acceptedEdges []map[edgeKey]bool

	// A few extra attempts absorb searches that come back insufficiently
	// diverse
	maxAttempts := k * 4
	for attempt := 0; attempt < maxAttempts && len(accepted) < k; attempt++ {
		edges, err := shortestPath(ctx, g, src, dst, penalty)
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		if err != nil {
			break
		}

		set := make(map[edgeKey]bool, len(edges))
		for _, e := range edges {
			set[edgeKey{e.From, e.To}] = true
			// Undirected divergence: count the reverse as shared too
			set[edgeKey{e.To, e.From}] = true
		}

		if diverseEnough(set, acceptedEdges, cfg.MinRouteDivergence) {
			accepted = append(accepted, candidate{
				result:   buildResult(g, cfg, src, edges),
				trueCost: pathCost(edges),
			})
			acceptedEdges = append(acceptedEdges, set)
		}

		// Penalize regardless of acceptance so a rejected duplicate
		// does not repeat forever
		for _, e := range edges {
			key := edgeKey{e.From, e.To}
			if _, ok := penalties[key]; !ok {
				penalties[key] = 1
			}
			penalties[key] *= cfg.AlternativePenaltyFactor
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].trueCost < accepted[j].trueCost
	})

	results := make([]*models.RouteResult, len(accepted))
	for i, c := range accepted {
		results[i] = c.result
	}
	return results, nil
}

func pathCost(edges []graph.Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += e.Cost
	}
	return total
}

// diverseEnough checks the candidate edge set against every accepted
// route: at least minDivergence of the candidate's edges must be new
func diverseEnough(candidate map[edgeKey]bool, accepted []map[edgeKey]bool, minDivergence float64) bool {
	if len(accepted) == 0 {
		return true
	}

	for _, prev := range accepted {
		shared := 0
		for key := range candidate {
			if prev[key] {
				shared++
			}
		}
		divergence := 1 - float64(shared)/float64(len(candidate))
		if divergence < minDivergence {
			return false
		}
	}
	return true
}
