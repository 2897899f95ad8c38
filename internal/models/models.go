package models

import (
	"time"

	"github.com/paulmach/orb"
)

// Severity classifies how dangerous a hazard zone is, ordered low to critical
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of a severity (low=0 .. critical=3)
// Unknown severities rank below low so malformed feeds never inflate risk.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the severity is one of the known levels
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// ZoneStatus represents the lifecycle state of a hazard zone
type ZoneStatus string

const (
	StatusActive     ZoneStatus = "active"
	StatusMonitoring ZoneStatus = "monitoring"
	StatusResolved   ZoneStatus = "resolved"
)

// RiskLevel is the hazard exposure classification for a point or segment
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "none"
	}
}

// RiskFromSeverity maps a zone severity to the risk level it imposes
func RiskFromSeverity(s Severity) RiskLevel {
	switch s {
	case SeverityLow:
		return RiskLow
	case SeverityMedium:
		return RiskMedium
	case SeverityHigh:
		return RiskHigh
	case SeverityCritical:
		return RiskCritical
	default:
		return RiskNone
	}
}

// HazardZone represents a disaster zone or track with a severity level
// Geometry is a polygon for area hazards (floods) or a linestring for
// tracks (cyclone paths). Zones are replaced wholesale on each refresh,
// never mutated in place.
type HazardZone struct {
	ID                 string
	HazardType         string // flood, cyclone, earthquake, fire
	Name               string
	Geometry           orb.Geometry
	Severity           Severity
	Status             ZoneStatus
	AffectedPopulation int
	ReportedAt         time.Time
}

// Active reports whether the zone still contributes danger
func (z HazardZone) Active() bool {
	return z.Status != StatusResolved
}

// RoadSegment is one traversable piece of the road network
// Immutable once loaded into a snapshot.
type RoadSegment struct {
	ID           string
	Name         string
	Geometry     orb.LineString
	LengthMeters float64
	RoadClass    string // highway, primary, secondary, residential
	Condition    string // good, moderate, poor, impassable
	Blocked      bool
}

// FacilityKind distinguishes shelters from hospitals
type FacilityKind string

const (
	FacilityShelter  FacilityKind = "shelter"
	FacilityHospital FacilityKind = "hospital"
)

// Facility is an evacuation destination (shelter or hospital)
type Facility struct {
	ID             string       `json:"id"`
	Kind           FacilityKind `json:"kind"`
	Name           string       `json:"name"`
	Location       orb.Point    `json:"location"` // lon, lat
	Capacity       int          `json:"capacity"`
	Occupancy      int          `json:"occupancy"` // shelters only
	HasFood        bool         `json:"has_food"`
	HasWater       bool         `json:"has_water"`
	HasMedical     bool         `json:"has_medical"`
	EmergencyReady bool         `json:"emergency_ready"`
}

// OccupancyRatio returns occupancy/capacity clamped to [0,1]
// Facilities without a known capacity rank as full so they sort last.
func (f Facility) OccupancyRatio() float64 {
	if f.Capacity <= 0 {
		return 1
	}
	r := float64(f.Occupancy) / float64(f.Capacity)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// RouteResult is a computed evacuation route
type RouteResult struct {
	Points               []orb.Point  `json:"-"`
	Coordinates          [][2]float64 `json:"coordinates"` // [lat, lon] pairs
	TotalDistanceKm      float64      `json:"total_distance_km"`
	SafetyScore          float64      `json:"safety_score"`
	EstimatedTimeMinutes float64      `json:"estimated_time_minutes"`
	Hops                 int          `json:"hops"`
}

// RankedFacility is one entry of a hazard-aware nearest-facility ranking
type RankedFacility struct {
	Facility     Facility `json:"facility"`
	DistanceKm   float64  `json:"distance_km"`
	InDangerZone bool     `json:"in_danger_zone"`
}

// ImpactSummary aggregates what a hazard snapshot touches
type ImpactSummary struct {
	ActiveZones        int      `json:"active_zones"`
	AffectedPopulation int      `json:"affected_population"`
	AffectedFacilities int      `json:"affected_facilities"`
	AffectedRoadsKm    float64  `json:"affected_roads_km"`
	BlockedSegments    int      `json:"blocked_segments"`
	Assessment         Severity `json:"assessment"`
}

// CapacitySummary aggregates shelter capacity across a snapshot
type CapacitySummary struct {
	TotalShelters       int     `json:"total_shelters"`
	TotalCapacity       int     `json:"total_capacity"`
	CurrentOccupancy    int     `json:"current_occupancy"`
	AvailableCapacity   int     `json:"available_capacity"`
	OccupancyRate       float64 `json:"occupancy_rate"`
	SheltersAtCapacity  int     `json:"shelters_at_capacity"`
	SheltersWithMedical int     `json:"shelters_with_medical"`
}
