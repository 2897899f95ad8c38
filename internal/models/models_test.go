package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity(t *testing.T) {
	assert.True(t, SeverityLow.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("extreme").Valid())
	assert.False(t, Severity("").Valid())

	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
}

func TestRiskFromSeverity(t *testing.T) {
	tests := []struct {
		severity Severity
		expected RiskLevel
	}{
		{SeverityLow, RiskLow},
		{SeverityMedium, RiskMedium},
		{SeverityHigh, RiskHigh},
		{SeverityCritical, RiskCritical},
		{Severity("bogus"), RiskNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskFromSeverity(tt.severity))
		})
	}
}

func TestZoneActive(t *testing.T) {
	assert.True(t, HazardZone{Status: StatusActive}.Active())
	assert.True(t, HazardZone{Status: StatusMonitoring}.Active())
	assert.False(t, HazardZone{Status: StatusResolved}.Active())
}

func TestOccupancyRatio(t *testing.T) {
	tests := []struct {
		name     string
		facility Facility
		expected float64
	}{
		{"Half full", Facility{Capacity: 100, Occupancy: 50}, 0.5},
		{"Empty", Facility{Capacity: 100, Occupancy: 0}, 0},
		{"Overfull clamps to one", Facility{Capacity: 100, Occupancy: 150}, 1},
		{"Unknown capacity counts as full", Facility{Capacity: 0, Occupancy: 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.facility.OccupancyRatio())
		})
	}
}
