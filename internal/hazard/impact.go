package hazard

import (
	"github.com/evacnet/evac_core/internal/models"
)

// AnalyzeImpact summarizes what the indexed hazards touch: exposed
// facilities, road length inside danger buffers, and the population the
// upstream feed attributes to active zones.
func AnalyzeImpact(idx *Index, facilities []models.Facility, segments []models.RoadSegment) models.ImpactSummary {
	summary := models.ImpactSummary{
		ActiveZones: idx.ZoneCount(),
	}

	for _, z := range idx.Zones() {
		summary.AffectedPopulation += z.AffectedPopulation
	}

	for _, f := range facilities {
		if idx.RiskAt(f.Location) > models.RiskNone {
			summary.AffectedFacilities++
		}
	}

	for _, s := range segments {
		if s.Blocked {
			summary.BlockedSegments++
		}
		if idx.LineRisk(s.Geometry) > models.RiskNone {
			summary.AffectedRoadsKm += s.LengthMeters / 1000
		}
	}

	summary.Assessment = assessSeverity(summary.AffectedPopulation, summary.AffectedFacilities)
	return summary
}

// assessSeverity grades overall impact from affected population and
// facility counts
func assessSeverity(population, facilities int) models.Severity {
	switch {
	case population > 100000 || facilities > 50:
		return models.SeverityCritical
	case population > 10000 || facilities > 10:
		return models.SeverityHigh
	case population > 1000 || facilities > 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
