package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evacnet/evac_core/internal/models"
)

// RiskConfig holds the severity lookup tables driving hazard buffering and
// edge weighting. The tables ship with defaults but are meant to be tuned
// per deployment via a YAML file rather than edited in code.
type RiskConfig struct {
	// BufferMeters maps zone severity to the radius of its danger buffer.
	// Must be non-negative and non-decreasing with severity rank.
	BufferMeters map[models.Severity]float64 `yaml:"buffer_meters"`

	// RiskMultipliers maps the risk level touching an edge to the factor
	// applied on top of its base length. Critical is treated as blocked.
	RiskMultipliers map[models.RiskLevel]float64 `yaml:"-"`

	// MaxSnapDistanceMeters bounds how far a query point may be from the
	// nearest graph node before the route is unreachable.
	MaxSnapDistanceMeters float64 `yaml:"max_snap_distance_meters"`

	// MaxFacilityRadiusKm bounds the nearest-facility search.
	MaxFacilityRadiusKm float64 `yaml:"max_facility_radius_km"`

	// EvacSpeedKmh converts route distance into an estimated duration.
	EvacSpeedKmh float64 `yaml:"evac_speed_kmh"`

	// AlternativePenaltyFactor re-weights edges of already-found routes
	// when searching for alternatives.
	AlternativePenaltyFactor float64 `yaml:"alternative_penalty_factor"`

	// MinRouteDivergence is the minimum share of edges an alternative
	// route must not share with any previously returned route.
	MinRouteDivergence float64 `yaml:"min_route_divergence"`
}

// riskConfigFile is the YAML shape of a risk table override file
type riskConfigFile struct {
	BufferMeters map[string]float64 `yaml:"buffer_meters"`
	Multipliers  map[string]float64 `yaml:"risk_multipliers"`

	MaxSnapDistanceMeters    float64 `yaml:"max_snap_distance_meters"`
	MaxFacilityRadiusKm      float64 `yaml:"max_facility_radius_km"`
	EvacSpeedKmh             float64 `yaml:"evac_speed_kmh"`
	AlternativePenaltyFactor float64 `yaml:"alternative_penalty_factor"`
	MinRouteDivergence       float64 `yaml:"min_route_divergence"`
}

// DefaultRiskConfig returns the built-in severity tables
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		BufferMeters: map[models.Severity]float64{
			models.SeverityLow:      250,
			models.SeverityMedium:   750,
			models.SeverityHigh:     1500,
			models.SeverityCritical: 3000,
		},
		RiskMultipliers: map[models.RiskLevel]float64{
			models.RiskNone:     0,
			models.RiskLow:      0.5,
			models.RiskMedium:   2,
			models.RiskHigh:     10,
			models.RiskCritical: math.Inf(1),
		},
		MaxSnapDistanceMeters:    500,
		MaxFacilityRadiusKm:      50,
		EvacSpeedKmh:             30,
		AlternativePenaltyFactor: 1.6,
		MinRouteDivergence:       0.3,
	}
}

// LoadRiskConfig reads a YAML risk table file and overlays it on the
// defaults. A missing file is not an error; malformed tables are.
func LoadRiskConfig(path string) (RiskConfig, error) {
	cfg := DefaultRiskConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read risk config: %w", err)
	}

	var file riskConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse risk config: %w", err)
	}

	for name, radius := range file.BufferMeters {
		sev := models.Severity(name)
		if !sev.Valid() {
			return cfg, fmt.Errorf("unknown severity %q in buffer table", name)
		}
		cfg.BufferMeters[sev] = radius
	}
	for name, mult := range file.Multipliers {
		sev := models.Severity(name)
		if !sev.Valid() {
			return cfg, fmt.Errorf("unknown severity %q in multiplier table", name)
		}
		cfg.RiskMultipliers[models.RiskFromSeverity(sev)] = mult
	}

	if file.MaxSnapDistanceMeters > 0 {
		cfg.MaxSnapDistanceMeters = file.MaxSnapDistanceMeters
	}
	if file.MaxFacilityRadiusKm > 0 {
		cfg.MaxFacilityRadiusKm = file.MaxFacilityRadiusKm
	}
	if file.EvacSpeedKmh > 0 {
		cfg.EvacSpeedKmh = file.EvacSpeedKmh
	}
	if file.AlternativePenaltyFactor > 1 {
		cfg.AlternativePenaltyFactor = file.AlternativePenaltyFactor
	}
	if file.MinRouteDivergence > 0 && file.MinRouteDivergence <= 1 {
		cfg.MinRouteDivergence = file.MinRouteDivergence
	}

	return cfg, cfg.Validate()
}

// Validate enforces the buffer table invariants: non-negative radii,
// monotonic in severity rank.
func (c RiskConfig) Validate() error {
	order := []models.Severity{
		models.SeverityLow,
		models.SeverityMedium,
		models.SeverityHigh,
		models.SeverityCritical,
	}

	prev := 0.0
	for _, sev := range order {
		radius, ok := c.BufferMeters[sev]
		if !ok {
			return fmt.Errorf("buffer table missing severity %q", sev)
		}
		if radius < 0 {
			return fmt.Errorf("buffer radius for %q is negative", sev)
		}
		if radius < prev {
			return fmt.Errorf("buffer radius for %q breaks severity monotonicity", sev)
		}
		prev = radius
	}

	prevMult := 0.0
	for _, level := range []models.RiskLevel{models.RiskNone, models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical} {
		mult, ok := c.RiskMultipliers[level]
		if !ok {
			return fmt.Errorf("multiplier table missing level %q", level)
		}
		if mult < prevMult {
			return fmt.Errorf("multiplier for %q breaks monotonicity", level)
		}
		prevMult = mult
	}

	return nil
}

// ServerConfig holds service-level settings loaded from the environment
type ServerConfig struct {
	Port               string
	RiskConfigPath     string
	RefreshInterval    time.Duration
	StalenessThreshold time.Duration
	LayerCacheTTL      time.Duration
}

// LoadServerConfigFromEnv loads server configuration from environment variables
func LoadServerConfigFromEnv() ServerConfig {
	refresh, err := time.ParseDuration(getEnv("SNAPSHOT_REFRESH_INTERVAL", "60s"))
	if err != nil {
		refresh = 60 * time.Second
	}
	stale, err := time.ParseDuration(getEnv("SNAPSHOT_STALE_AFTER", "5m"))
	if err != nil {
		stale = 5 * time.Minute
	}
	layerTTL, err := time.ParseDuration(getEnv("LAYER_CACHE_TTL", "5m"))
	if err != nil {
		layerTTL = 5 * time.Minute
	}

	return ServerConfig{
		Port:               getEnv("API_PORT", "8080"),
		RiskConfigPath:     getEnv("RISK_CONFIG_PATH", ""),
		RefreshInterval:    refresh,
		StalenessThreshold: stale,
		LayerCacheTTL:      layerTTL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
