package api

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/evacnet/evac_core/internal/cache"
	"github.com/evacnet/evac_core/internal/db"
	"github.com/evacnet/evac_core/internal/snapshot"
)

// HazardLayer handles the /v1/layers/hazards endpoint: the active
// hazard zones as a GeoJSON FeatureCollection, cached per snapshot.
func (h *Handlers) HazardLayer(c *fiber.Ctx) error {
	return h.serveLayer(c, "hazards", buildHazardLayer)
}

// FacilityLayer handles the /v1/layers/facilities endpoint
func (h *Handlers) FacilityLayer(c *fiber.Ctx) error {
	return h.serveLayer(c, "facilities", buildFacilityLayer)
}

func (h *Handlers) serveLayer(c *fiber.Ctx, name string, build func(*snapshot.Snapshot) *geojson.FeatureCollection) error {
	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	ctx := c.Context()
	key := cache.LayerKey(name, snap.ID.String())
	lockKey := cache.LockKey(key)

	if payload, err := cache.GetLayer(ctx, key); err == nil && payload != nil {
		c.Set("Content-Type", "application/geo+json")
		return c.Send(payload)
	} else if err != nil {
		log.Printf("Warning: layer cache lookup failed for %s: %v", key, err)
	}

	// Only one request builds a given layer; the rest wait for it.
	acquired, err := cache.AcquireLock(ctx, lockKey, 5*time.Second)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		payload, err := cache.WaitForLayer(ctx, key, 3*time.Second)
		if err == nil && payload != nil {
			c.Set("Content-Type", "application/geo+json")
			return c.Send(payload)
		}
		// If waiting failed, build anyway
	}

	defer func() {
		if acquired {
			cache.ReleaseLock(ctx, lockKey)
		}
	}()

	fc := build(snap)
	payload, err := fc.MarshalJSON()
	if err != nil {
		log.Printf("Layer marshal error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}

	if err := cache.SetLayer(ctx, key, payload, h.Server.LayerCacheTTL); err != nil {
		log.Printf("Warning: failed to cache layer %s: %v", key, err)
	}

	c.Set("Content-Type", "application/geo+json")
	return c.Send(payload)
}

func buildHazardLayer(snap *snapshot.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range snap.Hazards.Zones() {
		f := geojson.NewFeature(z.Geometry)
		f.ID = z.ID
		f.Properties = geojson.Properties{
			"hazard_type":         z.HazardType,
			"name":                z.Name,
			"severity":            string(z.Severity),
			"status":              string(z.Status),
			"affected_population": z.AffectedPopulation,
			"reported_at":         z.ReportedAt,
		}
		fc.Append(f)
	}
	return fc
}

func buildFacilityLayer(snap *snapshot.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, fac := range snap.Facilities {
		f := geojson.NewFeature(fac.Location)
		f.ID = fac.ID
		f.Properties = geojson.Properties{
			"kind":            string(fac.Kind),
			"name":            fac.Name,
			"capacity":        fac.Capacity,
			"occupancy":       fac.Occupancy,
			"has_food":        fac.HasFood,
			"has_water":       fac.HasWater,
			"has_medical":     fac.HasMedical,
			"emergency_ready": fac.EmergencyReady,
		}
		fc.Append(f)
	}
	return fc
}

// Health handles the /health endpoint
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbErr := db.HealthCheck(ctx)
	dbStatus := "ok"
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisErr := cache.HealthCheck(ctx)
	redisStatus := "ok"
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	snapStatus := "ok"
	snap := h.Snapshots.Current()
	if snap == nil {
		snapStatus = "no snapshot published"
	} else if snap.Stale(h.Snapshots.StalenessThreshold()) {
		snapStatus = "stale"
	}

	status := "healthy"
	httpStatus := 200
	if dbErr != nil || redisErr != nil || snap == nil {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"snapshot": snapStatus,
		},
	})
}
