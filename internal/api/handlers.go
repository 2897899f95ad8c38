package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/evacnet/evac_core/internal/config"
	"github.com/evacnet/evac_core/internal/facility"
	"github.com/evacnet/evac_core/internal/hazard"
	"github.com/evacnet/evac_core/internal/models"
	"github.com/evacnet/evac_core/internal/routing"
	"github.com/evacnet/evac_core/internal/snapshot"
)

// Handlers serves the evacuation API against the current snapshot.
type Handlers struct {
	Snapshots *snapshot.Store
	Risk      config.RiskConfig
	Server    config.ServerConfig
}

func New(snapshots *snapshot.Store, risk config.RiskConfig, server config.ServerConfig) *Handlers {
	return &Handlers{Snapshots: snapshots, Risk: risk, Server: server}
}

// snapshotMeta is attached to every snapshot-backed response so clients
// can tell which data generation answered them.
type snapshotMeta struct {
	SnapshotID string    `json:"snapshot_id"`
	BuiltAt    time.Time `json:"built_at"`
	Stale      bool      `json:"stale"`
}

func (h *Handlers) meta(snap *snapshot.Snapshot) snapshotMeta {
	return snapshotMeta{
		SnapshotID: snap.ID.String(),
		BuiltAt:    snap.BuiltAt,
		Stale:      snap.Stale(h.Snapshots.StalenessThreshold()),
	}
}

// currentSnapshot fetches the published snapshot or fails the request
// with 503 when no snapshot has been built yet.
func (h *Handlers) currentSnapshot(c *fiber.Ctx) (*snapshot.Snapshot, error) {
	snap := h.Snapshots.Current()
	if snap == nil {
		return nil, c.Status(503).JSON(fiber.Map{
			"error": "no snapshot available yet, feed not loaded",
		})
	}
	return snap, nil
}

func routeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, routing.ErrUnreachable):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, routing.ErrCancelled):
		return c.Status(408).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
}

// SafeRoute handles the /v1/routes/safe-route endpoint
func (h *Handlers) SafeRoute(c *fiber.Ctx) error {
	start, end, err := parseEndpoints(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	route, err := routing.FindSafeRoute(c.Context(), snap.Graph, h.Risk, start, end)
	if err != nil {
		return routeError(c, err)
	}

	return c.JSON(fiber.Map{
		"route":    route,
		"snapshot": h.meta(snap),
	})
}

// AlternativeRoutes handles the /v1/routes/alternatives endpoint
func (h *Handlers) AlternativeRoutes(c *fiber.Ctx) error {
	start, end, err := parseEndpoints(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	k := 3
	if kStr := c.Query("k"); kStr != "" {
		k, err = strconv.Atoi(kStr)
		if err != nil || k < 1 || k > 5 {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid k (must be between 1 and 5)",
			})
		}
	}

	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	routes, err := routing.FindAlternativeRoutes(c.Context(), snap.Graph, h.Risk, start, end, k)
	if err != nil {
		return routeError(c, err)
	}
	if len(routes) == 0 {
		return c.Status(404).JSON(fiber.Map{
			"error": "no reachable route between the specified locations",
		})
	}

	return c.JSON(fiber.Map{
		"routes":   routes,
		"count":    len(routes),
		"snapshot": h.meta(snap),
	})
}

// Distance handles the /v1/routes/distance endpoint: straight-line
// haversine distance, no network involved.
func (h *Handlers) Distance(c *fiber.Ctx) error {
	start, end, err := parseEndpoints(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	meters := geo.DistanceHaversine(start, end)
	return c.JSON(fiber.Map{
		"distance_km":     meters / 1000,
		"distance_meters": meters,
	})
}

// NearestFacilities handles the /v1/facilities/nearest endpoint
func (h *Handlers) NearestFacilities(c *fiber.Ctx) error {
	loc, err := parseLatLon(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	limit := 5
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 50 {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid limit (must be between 1 and 50)",
			})
		}
	}

	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	candidates := snap.Facilities
	if kind := c.Query("kind"); kind != "" {
		candidates = filterByKind(candidates, kind)
	}

	ranked := facility.Nearest(loc, candidates, snap.Hazards, h.Risk, limit)
	return c.JSON(fiber.Map{
		"facilities": ranked,
		"count":      len(ranked),
		"snapshot":   h.meta(snap),
	})
}

// FacilityCapacity handles the /v1/facilities/capacity endpoint
func (h *Handlers) FacilityCapacity(c *fiber.Ctx) error {
	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	return c.JSON(fiber.Map{
		"capacity": facility.Summarize(snap.Facilities),
		"snapshot": h.meta(snap),
	})
}

// HazardImpact handles the /v1/hazards/impact endpoint
func (h *Handlers) HazardImpact(c *fiber.Ctx) error {
	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	impact := hazard.AnalyzeImpact(snap.Hazards, snap.Facilities, snap.Segments)
	return c.JSON(fiber.Map{
		"impact":   impact,
		"snapshot": h.meta(snap),
	})
}

// HazardCheck handles the /v1/hazards/check endpoint: risk level at a
// single point.
func (h *Handlers) HazardCheck(c *fiber.Ctx) error {
	loc, err := parseLatLon(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	snap, ferr := h.currentSnapshot(c)
	if snap == nil {
		return ferr
	}

	risk := snap.Hazards.RiskAt(loc)
	return c.JSON(fiber.Map{
		"risk_level": risk.String(),
		"in_danger":  risk.String() != "none",
		"snapshot":   h.meta(snap),
	})
}

func filterByKind(facilities []models.Facility, kind string) []models.Facility {
	want := models.FacilityKind(strings.ToLower(kind))
	var out []models.Facility
	for _, f := range facilities {
		if f.Kind == want {
			out = append(out, f)
		}
	}
	return out
}

// parseEndpoints parses the from/to query parameters into points.
func parseEndpoints(c *fiber.Ctx) (start, end orb.Point, err error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		return orb.Point{}, orb.Point{}, fmt.Errorf("missing required parameters: from and to")
	}

	fromLat, fromLon, err := parseCoordinates(fromStr)
	if err != nil {
		return orb.Point{}, orb.Point{}, fmt.Errorf("invalid 'from' coordinates: %w", err)
	}

	toLat, toLon, err := parseCoordinates(toStr)
	if err != nil {
		return orb.Point{}, orb.Point{}, fmt.Errorf("invalid 'to' coordinates: %w", err)
	}

	return orb.Point{fromLon, fromLat}, orb.Point{toLon, toLat}, nil
}

// parseLatLon parses lat/lon query parameters into a point.
func parseLatLon(c *fiber.Ctx) (orb.Point, error) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if latStr == "" || lonStr == "" {
		return orb.Point{}, fmt.Errorf("missing required parameters: lat and lon")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("invalid latitude")
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return orb.Point{}, fmt.Errorf("invalid longitude")
	}

	return orb.Point{lon, lat}, nil
}

// parseCoordinates parses "lat,lon" string into floats
func parseCoordinates(coordStr string) (lat, lon float64, err error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected format: lat,lon")
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}

	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude must be between -180 and 180")
	}

	return lat, lon, nil
}
