package hazard

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/models"
)

// square builds a closed square polygon of half-width h degrees around
// (lon, lat)
func square(lon, lat, h float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon - h, lat - h},
		{lon + h, lat - h},
		{lon + h, lat + h},
		{lon - h, lat + h},
		{lon - h, lat - h},
	}}
}

func zone(id string, sev models.Severity, geom orb.Geometry) models.HazardZone {
	return models.HazardZone{
		ID:         id,
		HazardType: "flood",
		Name:       id,
		Geometry:   geom,
		Severity:   sev,
		Status:     models.StatusActive,
	}
}

func TestBuildIndexFiltering(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	tests := []struct {
		name     string
		zones    []models.HazardZone
		expected int
	}{
		{
			name:     "Active zone indexed",
			zones:    []models.HazardZone{zone("z1", models.SeverityLow, square(0, 0, 0.01))},
			expected: 1,
		},
		{
			name: "Resolved zone skipped",
			zones: []models.HazardZone{
				{ID: "z1", Geometry: square(0, 0, 0.01), Severity: models.SeverityLow, Status: models.StatusResolved},
			},
			expected: 0,
		},
		{
			name: "Monitoring zone still indexed",
			zones: []models.HazardZone{
				{ID: "z1", Geometry: square(0, 0, 0.01), Severity: models.SeverityLow, Status: models.StatusMonitoring},
			},
			expected: 1,
		},
		{
			name: "Nil geometry skipped",
			zones: []models.HazardZone{
				{ID: "z1", Severity: models.SeverityLow, Status: models.StatusActive},
			},
			expected: 0,
		},
		{
			name: "Degenerate polygon skipped",
			zones: []models.HazardZone{
				zone("z1", models.SeverityLow, orb.Polygon{orb.Ring{{0, 0}, {1, 1}}}),
			},
			expected: 0,
		},
		{
			name: "Unknown severity skipped",
			zones: []models.HazardZone{
				{ID: "z1", Geometry: square(0, 0, 0.01), Severity: "apocalyptic", Status: models.StatusActive},
			},
			expected: 0,
		},
		{
			name: "One bad zone does not drop the batch",
			zones: []models.HazardZone{
				zone("good", models.SeverityHigh, square(0, 0, 0.01)),
				{ID: "bad", Severity: models.SeverityLow, Status: models.StatusActive},
				zone("good2", models.SeverityLow, square(1, 1, 0.01)),
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex(tt.zones, cfg)
			assert.Equal(t, tt.expected, idx.ZoneCount())
		})
	}
}

func TestRiskAt(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	// High-severity square (buffer 1500m) around the origin, ~1.1km wide
	idx := BuildIndex([]models.HazardZone{
		zone("high", models.SeverityHigh, square(0, 0, 0.01)),
	}, cfg)

	tests := []struct {
		name     string
		pt       orb.Point
		expected models.RiskLevel
	}{
		{
			name:     "Inside polygon",
			pt:       orb.Point{0, 0},
			expected: models.RiskHigh,
		},
		{
			name: "Within buffer outside polygon",
			// ~1.1km east of the polygon edge, inside the 1500m buffer
			pt:       orb.Point{0.02, 0},
			expected: models.RiskHigh,
		},
		{
			name: "Beyond buffer",
			// ~4.4km east of the polygon edge
			pt:       orb.Point{0.05, 0},
			expected: models.RiskNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, idx.RiskAt(tt.pt))
		})
	}
}

func TestRiskAtOverlappingZonesTakesMax(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	idx := BuildIndex([]models.HazardZone{
		zone("low", models.SeverityLow, square(0, 0, 0.04)),
		zone("critical", models.SeverityCritical, square(0, 0, 0.005)),
	}, cfg)

	assert.Equal(t, models.RiskCritical, idx.RiskAt(orb.Point{0, 0}))
	// Inside the wide low polygon but beyond the small critical zone's
	// 3000m buffer
	assert.Equal(t, models.RiskLow, idx.RiskAt(orb.Point{0.035, 0}))
}

func TestBufferGrowsWithSeverity(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	// Same geometry, escalating severity: a fixed probe point ~2km from
	// the polygon edge enters the danger region only once the buffer
	// radius passes that distance.
	probe := orb.Point{0.028, 0} // ~2km east of the edge at lon 0.01

	tests := []struct {
		severity models.Severity
		expected models.RiskLevel
	}{
		{models.SeverityLow, models.RiskNone},          // 250m buffer
		{models.SeverityMedium, models.RiskNone},       // 750m buffer
		{models.SeverityHigh, models.RiskNone},         // 1500m buffer
		{models.SeverityCritical, models.RiskCritical}, // 3000m buffer
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			idx := BuildIndex([]models.HazardZone{
				zone("z", tt.severity, square(0, 0, 0.01)),
			}, cfg)
			assert.Equal(t, tt.expected, idx.RiskAt(probe))
		})
	}
}

func TestSegmentRisk(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	idx := BuildIndex([]models.HazardZone{
		zone("high", models.SeverityHigh, square(0, 0, 0.01)),
	}, cfg)

	tests := []struct {
		name     string
		a, b     orb.Point
		expected models.RiskLevel
	}{
		{
			name:     "Segment crossing the polygon with clear endpoints",
			a:        orb.Point{-0.05, 0},
			b:        orb.Point{0.05, 0},
			expected: models.RiskHigh,
		},
		{
			name:     "Segment through the buffer only",
			a:        orb.Point{-0.05, 0.02},
			b:        orb.Point{0.05, 0.02},
			expected: models.RiskHigh,
		},
		{
			name: "Segment well clear",
			// ~5.5km north of the polygon edge
			a:        orb.Point{-0.05, 0.06},
			b:        orb.Point{0.05, 0.06},
			expected: models.RiskNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, idx.SegmentRisk(tt.a, tt.b))
		})
	}
}

func TestLineRisk(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	idx := BuildIndex([]models.HazardZone{
		zone("medium", models.SeverityMedium, square(0, 0, 0.01)),
	}, cfg)

	// Polyline whose middle segment crosses the zone
	line := orb.LineString{
		{-0.1, 0.1},
		{-0.05, 0},
		{0.05, 0},
		{0.1, 0.1},
	}
	assert.Equal(t, models.RiskMedium, idx.LineRisk(line))

	clear := orb.LineString{{-0.1, 0.2}, {0.1, 0.2}}
	assert.Equal(t, models.RiskNone, idx.LineRisk(clear))
}

func TestGridMatchesLinearScan(t *testing.T) {
	cfg := config.DefaultRiskConfig()

	// Enough zones to trigger the grid index; spread across several cells
	var zones []models.HazardZone
	for i := 0; i < 40; i++ {
		lon := float64(i) * 0.1
		zones = append(zones, zone(fmt.Sprintf("z%d", i), models.SeverityLow, square(lon, 0, 0.01)))
	}

	idx := BuildIndex(zones, cfg)
	assert.Equal(t, 40, idx.ZoneCount())

	// Every zone center must report its own risk through the grid path
	for i := 0; i < 40; i++ {
		lon := float64(i) * 0.1
		assert.Equal(t, models.RiskLow, idx.RiskAt(orb.Point{lon, 0}), "zone %d center", i)
	}

	// A point between zones, outside every 250m buffer
	assert.Equal(t, models.RiskNone, idx.RiskAt(orb.Point{0.05, 0}))
	// A point far outside the covered area
	assert.Equal(t, models.RiskNone, idx.RiskAt(orb.Point{20, 20}))
}
