package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evacnet/evac_core/internal/ingest"
	"github.com/evacnet/evac_core/internal/models"
)

// Store reads the hazard, road and facility feed tables from PostGIS.
// Geometry comes back as GeoJSON (ST_AsGeoJSON) and goes through the
// ingest boundary like any other upstream feed, so malformed rows are
// skipped individually rather than failing a load.
type Store struct {
	db *pgxpool.Pool
}

// New creates a feed store backed by a connection pool
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FeedData is one consistent read of all three feed tables
type FeedData struct {
	Zones      []models.HazardZone
	Segments   []models.RoadSegment
	Facilities []models.Facility
}

// LoadAll reads every feed table. Per-table errors abort the load (the
// previous snapshot keeps serving); per-row errors only skip the row.
func (s *Store) LoadAll(ctx context.Context) (*FeedData, error) {
	started := time.Now()

	zones, err := s.LoadHazardZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load hazard zones: %w", err)
	}

	segments, err := s.LoadRoadSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load road segments: %w", err)
	}

	facilities, err := s.LoadFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load facilities: %w", err)
	}

	log.Printf("Loaded feed data in %v (%d zones, %d segments, %d facilities)",
		time.Since(started), len(zones), len(segments), len(facilities))

	return &FeedData{Zones: zones, Segments: segments, Facilities: facilities}, nil
}

// LoadHazardZones reads active and recently resolved hazard zones
func (s *Store) LoadHazardZones(ctx context.Context) ([]models.HazardZone, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, hazard_type, name, ST_AsGeoJSON(geom), severity, status,
		       COALESCE(affected_population, 0), reported_at
		FROM hazard_zone
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []ingest.RawHazardZone
	for rows.Next() {
		var r ingest.RawHazardZone
		var geomJSON string
		if err := rows.Scan(&r.ID, &r.HazardType, &r.Name, &geomJSON,
			&r.Severity, &r.Status, &r.AffectedPopulation, &r.ReportedAt); err != nil {
			log.Printf("Warning: failed to scan hazard zone: %v", err)
			continue
		}
		r.Geometry = json.RawMessage(geomJSON)
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ingest.ParseHazardZones(raw), nil
}

// LoadRoadSegments reads the road network
func (s *Store) LoadRoadSegments(ctx context.Context) ([]models.RoadSegment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(name, ''), ST_AsGeoJSON(geom),
		       COALESCE(length_meters, 0), COALESCE(road_class, ''),
		       COALESCE(condition, ''), COALESCE(is_blocked, false)
		FROM road_segment
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []ingest.RawRoadSegment
	for rows.Next() {
		var r ingest.RawRoadSegment
		var geomJSON string
		if err := rows.Scan(&r.ID, &r.Name, &geomJSON, &r.BaseLengthMeters,
			&r.RoadClass, &r.Condition, &r.Blocked); err != nil {
			log.Printf("Warning: failed to scan road segment: %v", err)
			continue
		}
		r.Geometry = json.RawMessage(geomJSON)
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ingest.ParseRoadSegments(raw), nil
}

// LoadFacilities reads shelters and hospitals
func (s *Store) LoadFacilities(ctx context.Context) ([]models.Facility, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, name, ST_Y(geom::geometry), ST_X(geom::geometry),
		       COALESCE(capacity, 0), COALESCE(occupancy, 0),
		       COALESCE(has_food, false), COALESCE(has_water, false),
		       COALESCE(has_medical, false), COALESCE(emergency_ready, false)
		FROM facility
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []ingest.RawFacility
	for rows.Next() {
		var r ingest.RawFacility
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.Lat, &r.Lon,
			&r.Capacity, &r.Occupancy, &r.HasFood, &r.HasWater,
			&r.HasMedical, &r.EmergencyReady); err != nil {
			log.Printf("Warning: failed to scan facility: %v", err)
			continue
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ingest.ParseFacilities(raw), nil
}
