package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evacnet/evac_core/internal/models"
)

func TestDefaultRiskConfig(t *testing.T) {
	cfg := DefaultRiskConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 250.0, cfg.BufferMeters[models.SeverityLow])
	assert.Equal(t, 750.0, cfg.BufferMeters[models.SeverityMedium])
	assert.Equal(t, 1500.0, cfg.BufferMeters[models.SeverityHigh])
	assert.Equal(t, 3000.0, cfg.BufferMeters[models.SeverityCritical])

	assert.Equal(t, 0.0, cfg.RiskMultipliers[models.RiskNone])
	assert.Equal(t, 0.5, cfg.RiskMultipliers[models.RiskLow])
	assert.Equal(t, 2.0, cfg.RiskMultipliers[models.RiskMedium])
	assert.Equal(t, 10.0, cfg.RiskMultipliers[models.RiskHigh])
	assert.True(t, math.IsInf(cfg.RiskMultipliers[models.RiskCritical], 1))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*RiskConfig)
		wantErr bool
	}{
		{
			name:    "Defaults are valid",
			modify:  func(c *RiskConfig) {},
			wantErr: false,
		},
		{
			name: "Negative buffer radius",
			modify: func(c *RiskConfig) {
				c.BufferMeters[models.SeverityLow] = -1
			},
			wantErr: true,
		},
		{
			name: "Buffer breaks monotonicity",
			modify: func(c *RiskConfig) {
				c.BufferMeters[models.SeverityHigh] = 100
			},
			wantErr: true,
		},
		{
			name: "Missing severity",
			modify: func(c *RiskConfig) {
				delete(c.BufferMeters, models.SeverityMedium)
			},
			wantErr: true,
		},
		{
			name: "Multiplier breaks monotonicity",
			modify: func(c *RiskConfig) {
				c.RiskMultipliers[models.RiskHigh] = 1
			},
			wantErr: true,
		},
		{
			name: "Equal adjacent radii allowed",
			modify: func(c *RiskConfig) {
				c.BufferMeters[models.SeverityMedium] = 250
				c.BufferMeters[models.SeverityHigh] = 250
				c.BufferMeters[models.SeverityCritical] = 250
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRiskConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadRiskConfig(t *testing.T) {
	t.Run("Missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRiskConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultRiskConfig().BufferMeters, cfg.BufferMeters)
	})

	t.Run("Empty path returns defaults", func(t *testing.T) {
		cfg, err := LoadRiskConfig("")
		require.NoError(t, err)
		assert.Equal(t, 500.0, cfg.MaxSnapDistanceMeters)
	})

	t.Run("Overlay replaces only given entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.yaml")
		content := `
buffer_meters:
  low: 300
  critical: 5000
risk_multipliers:
  medium: 3
evac_speed_kmh: 20
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadRiskConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 300.0, cfg.BufferMeters[models.SeverityLow])
		assert.Equal(t, 750.0, cfg.BufferMeters[models.SeverityMedium])
		assert.Equal(t, 5000.0, cfg.BufferMeters[models.SeverityCritical])
		assert.Equal(t, 3.0, cfg.RiskMultipliers[models.RiskMedium])
		assert.Equal(t, 20.0, cfg.EvacSpeedKmh)
	})

	t.Run("Unknown severity rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.yaml")
		require.NoError(t, os.WriteFile(path, []byte("buffer_meters:\n  extreme: 9000\n"), 0o644))

		_, err := LoadRiskConfig(path)
		assert.Error(t, err)
	})

	t.Run("Overlay breaking monotonicity rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.yaml")
		require.NoError(t, os.WriteFile(path, []byte("buffer_meters:\n  critical: 100\n"), 0o644))

		_, err := LoadRiskConfig(path)
		assert.Error(t, err)
	})

	t.Run("Malformed YAML rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "risk.yaml")
		require.NoError(t, os.WriteFile(path, []byte("buffer_meters: [not, a, map\n"), 0o644))

		_, err := LoadRiskConfig(path)
		assert.Error(t, err)
	})
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("SNAPSHOT_REFRESH_INTERVAL", "30s")
	t.Setenv("SNAPSHOT_STALE_AFTER", "not-a-duration")

	cfg := LoadServerConfigFromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "30s", cfg.RefreshInterval.String())
	assert.Equal(t, "5m0s", cfg.StalenessThreshold.String())
}
