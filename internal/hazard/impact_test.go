package hazard

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/models"
)

func TestAnalyzeImpact(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	z := zone("flood-1", models.SeverityHigh, square(0, 0, 0.01))
	z.AffectedPopulation = 12000
	idx := BuildIndex([]models.HazardZone{z}, cfg)

	facilities := []models.Facility{
		{ID: "inside", Kind: models.FacilityShelter, Location: orb.Point{0, 0}},
		{ID: "far", Kind: models.FacilityHospital, Location: orb.Point{1, 1}},
	}

	segments := []models.RoadSegment{
		{
			ID:           "crossing",
			Geometry:     orb.LineString{{-0.05, 0}, {0.05, 0}},
			LengthMeters: 11000,
		},
		{
			ID:           "clear",
			Geometry:     orb.LineString{{-0.05, 0.5}, {0.05, 0.5}},
			LengthMeters: 11000,
		},
		{
			ID:           "blocked",
			Geometry:     orb.LineString{{-0.05, 0.6}, {0.05, 0.6}},
			LengthMeters: 2000,
			Blocked:      true,
		},
	}

	summary := AnalyzeImpact(idx, facilities, segments)

	assert.Equal(t, 1, summary.ActiveZones)
	assert.Equal(t, 12000, summary.AffectedPopulation)
	assert.Equal(t, 1, summary.AffectedFacilities)
	assert.Equal(t, 1, summary.BlockedSegments)
	assert.InDelta(t, 11, summary.AffectedRoadsKm, 0.001)
	assert.Equal(t, models.SeverityHigh, summary.Assessment)
}

func TestAssessSeverity(t *testing.T) {
	tests := []struct {
		name       string
		population int
		facilities int
		expected   models.Severity
	}{
		{"Quiet day", 100, 0, models.SeverityLow},
		{"Population past medium", 5000, 0, models.SeverityMedium},
		{"Facilities past medium", 0, 3, models.SeverityMedium},
		{"Population past high", 50000, 0, models.SeverityHigh},
		{"Facilities past high", 0, 11, models.SeverityHigh},
		{"Population past critical", 200000, 0, models.SeverityCritical},
		{"Facilities past critical", 0, 51, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, assessSeverity(tt.population, tt.facilities))
		})
	}
}
