package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/evacnet/evac_core/internal/models"
)

// Raw feed records as delivered by upstream sources. Loosely typed on
// purpose: validation and conversion into strongly-typed entities
// happens here, rejecting malformed items individually so one bad
// record never aborts a batch.

// RawHazardZone is an upstream hazard record. Geometry may arrive as a
// GeoJSON geometry object or a WKT string; GeoJSON wins when both are
// set.
type RawHazardZone struct {
	ID                 string          `json:"id"`
	HazardType         string          `json:"hazard_type"`
	Name               string          `json:"name"`
	Geometry           json.RawMessage `json:"geometry,omitempty"`
	GeometryWKT        string          `json:"geometry_wkt,omitempty"`
	Severity           string          `json:"severity"`
	Status             string          `json:"status"`
	AffectedPopulation int             `json:"affected_population,omitempty"`
	ReportedAt         time.Time       `json:"reported_at,omitempty"`
}

// RawRoadSegment is an upstream road-network record
type RawRoadSegment struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Geometry         json.RawMessage `json:"geometry,omitempty"`
	GeometryWKT      string          `json:"geometry_wkt,omitempty"`
	BaseLengthMeters float64         `json:"base_length_meters"`
	RoadClass        string          `json:"road_class"`
	Condition        string          `json:"condition"`
	Blocked          bool            `json:"blocked"`
}

// RawFacility is an upstream shelter or hospital record
type RawFacility struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Capacity       int     `json:"capacity"`
	Occupancy      int     `json:"occupancy,omitempty"`
	HasFood        bool    `json:"has_food"`
	HasWater       bool    `json:"has_water"`
	HasMedical     bool    `json:"has_medical"`
	EmergencyReady bool    `json:"emergency_ready"`
}

// ParseHazardZones converts raw hazard records into typed zones,
// skipping items with unparsable geometry or unknown severity
func ParseHazardZones(raw []RawHazardZone) []models.HazardZone {
	zones := make([]models.HazardZone, 0, len(raw))

	for _, r := range raw {
		geom, err := parseGeometry(r.Geometry, r.GeometryWKT)
		if err != nil {
			log.Printf("Warning: hazard zone %s rejected: %v", r.ID, err)
			continue
		}

		sev := models.Severity(strings.ToLower(r.Severity))
		if !sev.Valid() {
			log.Printf("Warning: hazard zone %s rejected: unknown severity %q", r.ID, r.Severity)
			continue
		}

		status := models.ZoneStatus(strings.ToLower(r.Status))
		switch status {
		case models.StatusActive, models.StatusMonitoring, models.StatusResolved:
		case "":
			status = models.StatusActive
		default:
			log.Printf("Warning: hazard zone %s has unknown status %q, treating as active", r.ID, r.Status)
			status = models.StatusActive
		}

		zones = append(zones, models.HazardZone{
			ID:                 r.ID,
			HazardType:         r.HazardType,
			Name:               r.Name,
			Geometry:           geom,
			Severity:           sev,
			Status:             status,
			AffectedPopulation: r.AffectedPopulation,
			ReportedAt:         r.ReportedAt,
		})
	}

	if len(zones) < len(raw) {
		log.Printf("Parsed hazard zones: %d of %d accepted", len(zones), len(raw))
	}
	return zones
}

// ParseRoadSegments converts raw road records into typed segments,
// skipping items whose geometry is not a usable polyline
func ParseRoadSegments(raw []RawRoadSegment) []models.RoadSegment {
	segments := make([]models.RoadSegment, 0, len(raw))

	for _, r := range raw {
		geom, err := parseGeometry(r.Geometry, r.GeometryWKT)
		if err != nil {
			log.Printf("Warning: road segment %s rejected: %v", r.ID, err)
			continue
		}

		line, ok := geom.(orb.LineString)
		if !ok {
			log.Printf("Warning: road segment %s rejected: geometry is %T, want LineString", r.ID, geom)
			continue
		}
		if len(line) < 2 {
			log.Printf("Warning: road segment %s rejected: degenerate polyline", r.ID)
			continue
		}
		if !coordsInRange(line) {
			log.Printf("Warning: road segment %s rejected: coordinates out of range", r.ID)
			continue
		}

		segments = append(segments, models.RoadSegment{
			ID:           r.ID,
			Name:         r.Name,
			Geometry:     line,
			LengthMeters: r.BaseLengthMeters,
			RoadClass:    r.RoadClass,
			Condition:    r.Condition,
			Blocked:      r.Blocked,
		})
	}

	if len(segments) < len(raw) {
		log.Printf("Parsed road segments: %d of %d accepted", len(segments), len(raw))
	}
	return segments
}

// ParseFacilities converts raw facility records into typed entities,
// skipping items with out-of-range coordinates or unknown kinds
func ParseFacilities(raw []RawFacility) []models.Facility {
	facilities := make([]models.Facility, 0, len(raw))

	for _, r := range raw {
		if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
			log.Printf("Warning: facility %s rejected: coordinates out of range", r.ID)
			continue
		}
		if r.Lat == 0 && r.Lon == 0 {
			log.Printf("Warning: facility %s has null island coordinates, skipping", r.ID)
			continue
		}

		kind := models.FacilityKind(strings.ToLower(r.Kind))
		if kind != models.FacilityShelter && kind != models.FacilityHospital {
			log.Printf("Warning: facility %s rejected: unknown kind %q", r.ID, r.Kind)
			continue
		}

		facilities = append(facilities, models.Facility{
			ID:             r.ID,
			Kind:           kind,
			Name:           r.Name,
			Location:       orb.Point{r.Lon, r.Lat},
			Capacity:       r.Capacity,
			Occupancy:      r.Occupancy,
			HasFood:        r.HasFood,
			HasWater:       r.HasWater,
			HasMedical:     r.HasMedical,
			EmergencyReady: r.EmergencyReady,
		})
	}

	if len(facilities) < len(raw) {
		log.Printf("Parsed facilities: %d of %d accepted", len(facilities), len(raw))
	}
	return facilities
}

// parseGeometry decodes a geometry from GeoJSON or WKT
func parseGeometry(geoJSON json.RawMessage, wktStr string) (orb.Geometry, error) {
	if len(geoJSON) > 0 {
		g, err := geojson.UnmarshalGeometry(geoJSON)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON geometry: %w", err)
		}
		return g.Geometry(), nil
	}

	if wktStr != "" {
		g, err := wkt.Unmarshal(wktStr)
		if err != nil {
			return nil, fmt.Errorf("invalid WKT geometry: %w", err)
		}
		return g, nil
	}

	return nil, fmt.Errorf("missing geometry")
}

func coordsInRange(line orb.LineString) bool {
	for _, p := range line {
		if p[0] < -180 || p[0] > 180 || p[1] < -90 || p[1] > 90 {
			return false
		}
	}
	return true
}
