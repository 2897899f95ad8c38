package facility

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/hazard"
	"github.com/evacnet/evac_core/internal/models"
)

// Nearest ranks facilities around a query point by hazard-adjusted
// proximity. Sort key: ascending distance, then safe-before-unsafe, then
// ascending shelter occupancy ratio. Facilities inside a critical buffer
// are excluded, unless nothing safer exists within the search radius,
// in which case the nearest one is returned flagged InDangerZone rather
// than silently dropping every candidate.
func Nearest(loc orb.Point, facilities []models.Facility, hz *hazard.Index, cfg config.RiskConfig, limit int) []models.RankedFacility {
	if limit <= 0 {
		limit = 5
	}
	maxMeters := cfg.MaxFacilityRadiusKm * 1000

	var ranked []models.RankedFacility
	var excluded []models.RankedFacility // inside critical buffers

	for _, f := range facilities {
		dist := geo.DistanceHaversine(loc, f.Location)
		if maxMeters > 0 && dist > maxMeters {
			continue
		}

		risk := hz.RiskAt(f.Location)
		entry := models.RankedFacility{
			Facility:     f,
			DistanceKm:   dist / 1000,
			InDangerZone: risk > models.RiskNone,
		}

		if risk == models.RiskCritical {
			excluded = append(excluded, entry)
			continue
		}
		ranked = append(ranked, entry)
	}

	if len(ranked) == 0 {
		if len(excluded) == 0 {
			return nil
		}
		// Last resort: the nearest facility even though it sits inside
		// a critical buffer
		sortRanked(excluded)
		return excluded[:1]
	}

	sortRanked(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortRanked(entries []models.RankedFacility) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if a.InDangerZone != b.InDangerZone {
			return !a.InDangerZone
		}
		return a.Facility.OccupancyRatio() < b.Facility.OccupancyRatio()
	})
}

// Summarize aggregates shelter capacity across a facility set
func Summarize(facilities []models.Facility) models.CapacitySummary {
	var s models.CapacitySummary

	for _, f := range facilities {
		if f.Kind != models.FacilityShelter {
			continue
		}
		s.TotalShelters++
		s.TotalCapacity += f.Capacity
		s.CurrentOccupancy += f.Occupancy
		if f.Capacity > 0 && f.Occupancy >= f.Capacity {
			s.SheltersAtCapacity++
		}
		if f.HasMedical {
			s.SheltersWithMedical++
		}
	}

	s.AvailableCapacity = s.TotalCapacity - s.CurrentOccupancy
	if s.AvailableCapacity < 0 {
		s.AvailableCapacity = 0
	}
	if s.TotalCapacity > 0 {
		s.OccupancyRate = float64(s.CurrentOccupancy) / float64(s.TotalCapacity) * 100
	}
	return s
}
