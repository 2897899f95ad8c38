package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evacnet/evac_core/internal/models"
)

func TestParseHazardZones(t *testing.T) {
	polygon := json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`)

	tests := []struct {
		name     string
		raw      []RawHazardZone
		expected int
	}{
		{
			name: "GeoJSON geometry accepted",
			raw: []RawHazardZone{
				{ID: "z1", HazardType: "flood", Geometry: polygon, Severity: "high", Status: "active"},
			},
			expected: 1,
		},
		{
			name: "WKT geometry accepted",
			raw: []RawHazardZone{
				{ID: "z1", GeometryWKT: "POLYGON((0 0,1 0,1 1,0 1,0 0))", Severity: "low"},
			},
			expected: 1,
		},
		{
			name: "Missing geometry rejected",
			raw: []RawHazardZone{
				{ID: "z1", Severity: "low"},
			},
			expected: 0,
		},
		{
			name: "Malformed GeoJSON rejected",
			raw: []RawHazardZone{
				{ID: "z1", Geometry: json.RawMessage(`{"type":"Polygon"`), Severity: "low"},
			},
			expected: 0,
		},
		{
			name: "Unknown severity rejected",
			raw: []RawHazardZone{
				{ID: "z1", Geometry: polygon, Severity: "catastrophic"},
			},
			expected: 0,
		},
		{
			name: "One bad record does not drop the batch",
			raw: []RawHazardZone{
				{ID: "good", Geometry: polygon, Severity: "medium"},
				{ID: "bad", Severity: "medium"},
				{ID: "good2", GeometryWKT: "POINT(2 2)", Severity: "critical"},
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := ParseHazardZones(tt.raw)
			assert.Len(t, zones, tt.expected)
		})
	}
}

func TestParseHazardZoneFields(t *testing.T) {
	reported := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	raw := []RawHazardZone{
		{
			ID:                 "z1",
			HazardType:         "cyclone",
			Name:               "Cyclone North",
			GeometryWKT:        "POLYGON((0 0,1 0,1 1,0 1,0 0))",
			Severity:           "HIGH",
			Status:             "Monitoring",
			AffectedPopulation: 4200,
			ReportedAt:         reported,
		},
	}

	zones := ParseHazardZones(raw)
	require.Len(t, zones, 1)

	z := zones[0]
	assert.Equal(t, "z1", z.ID)
	assert.Equal(t, "cyclone", z.HazardType)
	assert.Equal(t, models.SeverityHigh, z.Severity)
	assert.Equal(t, models.StatusMonitoring, z.Status)
	assert.Equal(t, 4200, z.AffectedPopulation)
	assert.Equal(t, reported, z.ReportedAt)
	assert.IsType(t, orb.Polygon{}, z.Geometry)
}

func TestParseHazardZoneStatusDefaults(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected models.ZoneStatus
	}{
		{"Empty status is active", "", models.StatusActive},
		{"Unknown status is active", "pending-review", models.StatusActive},
		{"Resolved passes through", "resolved", models.StatusResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := ParseHazardZones([]RawHazardZone{
				{ID: "z1", GeometryWKT: "POINT(1 1)", Severity: "low", Status: tt.status},
			})
			require.Len(t, zones, 1)
			assert.Equal(t, tt.expected, zones[0].Status)
		})
	}
}

func TestParseRoadSegments(t *testing.T) {
	line := json.RawMessage(`{"type":"LineString","coordinates":[[0,0],[0.01,0]]}`)

	tests := []struct {
		name     string
		raw      []RawRoadSegment
		expected int
	}{
		{
			name:     "Valid polyline",
			raw:      []RawRoadSegment{{ID: "s1", Geometry: line, BaseLengthMeters: 1100}},
			expected: 1,
		},
		{
			name:     "WKT polyline",
			raw:      []RawRoadSegment{{ID: "s1", GeometryWKT: "LINESTRING(0 0,1 1)"}},
			expected: 1,
		},
		{
			name:     "Polygon geometry rejected",
			raw:      []RawRoadSegment{{ID: "s1", Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`)}},
			expected: 0,
		},
		{
			name:     "Single-point polyline rejected",
			raw:      []RawRoadSegment{{ID: "s1", Geometry: json.RawMessage(`{"type":"LineString","coordinates":[[0,0]]}`)}},
			expected: 0,
		},
		{
			name:     "Out-of-range coordinates rejected",
			raw:      []RawRoadSegment{{ID: "s1", GeometryWKT: "LINESTRING(0 0,200 95)"}},
			expected: 0,
		},
		{
			name:     "Missing geometry rejected",
			raw:      []RawRoadSegment{{ID: "s1"}},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := ParseRoadSegments(tt.raw)
			assert.Len(t, segments, tt.expected)
		})
	}
}

func TestParseRoadSegmentFields(t *testing.T) {
	raw := []RawRoadSegment{
		{
			ID:               "s1",
			Name:             "Corniche Ouest",
			GeometryWKT:      "LINESTRING(-17.46 14.70,-17.45 14.71)",
			BaseLengthMeters: 1800,
			RoadClass:        "primary",
			Condition:        "paved",
			Blocked:          true,
		},
	}

	segments := ParseRoadSegments(raw)
	require.Len(t, segments, 1)

	s := segments[0]
	assert.Equal(t, "Corniche Ouest", s.Name)
	assert.Equal(t, 1800.0, s.LengthMeters)
	assert.Equal(t, "primary", s.RoadClass)
	assert.True(t, s.Blocked)
	assert.Len(t, s.Geometry, 2)
}

func TestParseFacilities(t *testing.T) {
	tests := []struct {
		name     string
		raw      []RawFacility
		expected int
	}{
		{
			name:     "Valid shelter",
			raw:      []RawFacility{{ID: "f1", Kind: "shelter", Lat: 14.7, Lon: -17.45, Capacity: 200}},
			expected: 1,
		},
		{
			name:     "Hospital kind accepted case-insensitively",
			raw:      []RawFacility{{ID: "f1", Kind: "Hospital", Lat: 14.7, Lon: -17.45}},
			expected: 1,
		},
		{
			name:     "Unknown kind rejected",
			raw:      []RawFacility{{ID: "f1", Kind: "warehouse", Lat: 14.7, Lon: -17.45}},
			expected: 0,
		},
		{
			name:     "Out-of-range latitude rejected",
			raw:      []RawFacility{{ID: "f1", Kind: "shelter", Lat: 95, Lon: 0}},
			expected: 0,
		},
		{
			name:     "Null island rejected",
			raw:      []RawFacility{{ID: "f1", Kind: "shelter", Lat: 0, Lon: 0}},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facilities := ParseFacilities(tt.raw)
			assert.Len(t, facilities, tt.expected)
		})
	}
}

func TestParseFacilityFields(t *testing.T) {
	raw := []RawFacility{
		{
			ID: "f1", Kind: "shelter", Name: "Stade LSS",
			Lat: 14.75, Lon: -17.44,
			Capacity: 5000, Occupancy: 1200,
			HasFood: true, HasWater: true, HasMedical: false, EmergencyReady: true,
		},
	}

	facilities := ParseFacilities(raw)
	require.Len(t, facilities, 1)

	f := facilities[0]
	assert.Equal(t, models.FacilityShelter, f.Kind)
	assert.Equal(t, orb.Point{-17.44, 14.75}, f.Location)
	assert.Equal(t, 5000, f.Capacity)
	assert.Equal(t, 1200, f.Occupancy)
	assert.True(t, f.HasFood)
	assert.True(t, f.EmergencyReady)
	assert.False(t, f.HasMedical)
	assert.InDelta(t, 0.24, f.OccupancyRatio(), 0.001)
}
