package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"github.com/evacnet/evac_core/internal/db"
	"github.com/evacnet/evac_core/internal/ingest"
)

func main() {
	// Command-line flags
	hazardsPath := flag.String("hazards", "", "Path to hazard zones JSON file")
	roadsPath := flag.String("roads", "", "Path to road segments JSON file")
	facilitiesPath := flag.String("facilities", "", "Path to facilities JSON file")
	truncate := flag.Bool("truncate", false, "Truncate each target table before loading")

	flag.Parse()

	if *hazardsPath == "" && *roadsPath == "" && *facilitiesPath == "" {
		fmt.Println("Usage: evacnet-load [--hazards=<path.json>] [--roads=<path.json>] [--facilities=<path.json>] [--truncate]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Println("Starting feed load...")

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	startTime := time.Now()

	if *hazardsPath != "" {
		if err := loadHazards(ctx, pool, *hazardsPath, *truncate); err != nil {
			log.Fatalf("Hazard load failed: %v", err)
		}
	}

	if *roadsPath != "" {
		if err := loadRoads(ctx, pool, *roadsPath, *truncate); err != nil {
			log.Fatalf("Road load failed: %v", err)
		}
	}

	if *facilitiesPath != "" {
		if err := loadFacilities(ctx, pool, *facilitiesPath, *truncate); err != nil {
			log.Fatalf("Facility load failed: %v", err)
		}
	}

	log.Printf("Load completed in %s", time.Since(startTime))
}

func readRecords[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

func loadHazards(ctx context.Context, pool *pgxpool.Pool, path string, truncate bool) error {
	raw, err := readRecords[ingest.RawHazardZone](path)
	if err != nil {
		return err
	}

	zones := ingest.ParseHazardZones(raw)
	log.Printf("Parsed %d/%d hazard zones from %s", len(zones), len(raw), path)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE hazard_zone"); err != nil {
			return fmt.Errorf("failed to truncate hazard_zone: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, z := range zones {
		geom, err := json.Marshal(geojson.NewGeometry(z.Geometry))
		if err != nil {
			return fmt.Errorf("failed to encode geometry for zone %s: %w", z.ID, err)
		}

		batch.Queue(`
			INSERT INTO hazard_zone (id, hazard_type, name, geom, severity, status, affected_population, reported_at)
			VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET hazard_type = EXCLUDED.hazard_type,
			    name = EXCLUDED.name,
			    geom = EXCLUDED.geom,
			    severity = EXCLUDED.severity,
			    status = EXCLUDED.status,
			    affected_population = EXCLUDED.affected_population,
			    reported_at = EXCLUDED.reported_at
		`, z.ID, z.HazardType, z.Name, string(geom), string(z.Severity), string(z.Status), z.AffectedPopulation, z.ReportedAt)
	}

	if err := flushBatch(ctx, tx, batch, "hazard zone"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Imported %d hazard zones", len(zones))
	return nil
}

func loadRoads(ctx context.Context, pool *pgxpool.Pool, path string, truncate bool) error {
	raw, err := readRecords[ingest.RawRoadSegment](path)
	if err != nil {
		return err
	}

	segments := ingest.ParseRoadSegments(raw)
	log.Printf("Parsed %d/%d road segments from %s", len(segments), len(raw), path)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE road_segment"); err != nil {
			return fmt.Errorf("failed to truncate road_segment: %w", err)
		}
	}

	batch := &pgx.Batch{}
	count := 0
	for _, s := range segments {
		geom, err := json.Marshal(geojson.NewGeometry(s.Geometry))
		if err != nil {
			return fmt.Errorf("failed to encode geometry for segment %s: %w", s.ID, err)
		}

		batch.Queue(`
			INSERT INTO road_segment (id, name, geom, length_meters, road_class, condition, blocked)
			VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326), $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    geom = EXCLUDED.geom,
			    length_meters = EXCLUDED.length_meters,
			    road_class = EXCLUDED.road_class,
			    condition = EXCLUDED.condition,
			    blocked = EXCLUDED.blocked
		`, s.ID, s.Name, string(geom), s.LengthMeters, s.RoadClass, s.Condition, s.Blocked)

		count++
		if batch.Len() >= 1000 {
			if err := flushBatch(ctx, tx, batch, "road segment"); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}

	if err := flushBatch(ctx, tx, batch, "road segment"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Imported %d road segments", count)
	return nil
}

func loadFacilities(ctx context.Context, pool *pgxpool.Pool, path string, truncate bool) error {
	raw, err := readRecords[ingest.RawFacility](path)
	if err != nil {
		return err
	}

	facilities := ingest.ParseFacilities(raw)
	log.Printf("Parsed %d/%d facilities from %s", len(facilities), len(raw), path)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE facility"); err != nil {
			return fmt.Errorf("failed to truncate facility: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, f := range facilities {
		batch.Queue(`
			INSERT INTO facility (id, kind, name, geom, capacity, occupancy, has_food, has_water, has_medical, emergency_ready)
			VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326), $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE
			SET kind = EXCLUDED.kind,
			    name = EXCLUDED.name,
			    geom = EXCLUDED.geom,
			    capacity = EXCLUDED.capacity,
			    occupancy = EXCLUDED.occupancy,
			    has_food = EXCLUDED.has_food,
			    has_water = EXCLUDED.has_water,
			    has_medical = EXCLUDED.has_medical,
			    emergency_ready = EXCLUDED.emergency_ready
		`, f.ID, string(f.Kind), f.Name, f.Location[0], f.Location[1], f.Capacity, f.Occupancy,
			f.HasFood, f.HasWater, f.HasMedical, f.EmergencyReady)
	}

	if err := flushBatch(ctx, tx, batch, "facility"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Imported %d facilities", len(facilities))
	return nil
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert %s %d: %w", what, i, err)
		}
	}
	return nil
}
