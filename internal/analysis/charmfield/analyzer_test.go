package charmfield

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

func testConfig() config.CharmConfig {
	return config.CharmConfig{
		DecayRate:            5.0,
		HighThreshold:        100.0,
		AccelThreshold:       0.5,
		MaxDecayAcceleration: 3.0,
		DefaultDaysToExpiry:  5.0,
	}
}

func snapshot(contracts []models.OptionContract) *models.ChainSnapshot {
	return &models.ChainSnapshot{
		Symbol:    "BTCUSDT",
		Contracts: contracts,
		SpotPrice: 100.0,
	}
}

func dealer(netCharm float64) *models.DealerSignResult {
	return &models.DealerSignResult{NetDealerCharm: netCharm}
}

func TestAnalyzeEmptyChain(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(snapshot(nil), dealer(0))

	assert.Equal(t, 0.0, result.Exposure)
	assert.Equal(t, models.RegimeNeutral, result.SubRegime)
	assert.InDelta(t, 1.0/math.Sqrt(5.0), result.DecayAcceleration, 1e-9)
}

func TestDecayAcceleration(t *testing.T) {
	tests := []struct {
		name   string
		avgDTE float64
		want   float64
	}{
		{"far_expiry", 25.0, 0.2},
		{"near_expiry", 4.0, 0.5},
		{"capped_at_max", 0.01, 3.0},
		{"zero_dte_capped", 0.0, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(testConfig())

			assert.InDelta(t, tt.want, analyzer.decayAcceleration(tt.avgDTE), 1e-9)
		})
	}
}

func TestAnalyzePressureScaledByAcceleration(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(snapshot([]models.OptionContract{
		{Strike: 105, Type: models.OptionCall, Charm: 0.2, OpenInterest: 100, DaysToExpiry: 4},
	}), dealer(50))

	// DTE=4 дает ускорение 0.5, вес exp(-5*5/100)
	want := 0.2 * 100 * math.Exp(-5.0*5.0/100.0) * 0.5
	assert.InDelta(t, want, result.PressureUp, 1e-9)
	assert.Equal(t, 0.0, result.PressureDown)
	assert.InDelta(t, 0.5, result.DecayAcceleration, 1e-9)
}

func TestAnalyzeMissingDTEFallsBackToDefault(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(snapshot([]models.OptionContract{
		{Strike: 100, Type: models.OptionPut, Charm: 0.1, OpenInterest: 10},
	}), dealer(0))

	assert.InDelta(t, 1.0/math.Sqrt(5.0), result.DecayAcceleration, 1e-9)
}

func TestClassifyOrderedRules(t *testing.T) {
	tests := []struct {
		name     string
		netCharm float64
		dte      float64
		want     string
	}{
		// Высокая экспозиция и быстрый распад: магнит экспирации
		{"expiration_magnet", 500.0, 2.0, models.CharmExpirationMagnet},
		{"charm_drift", 500.0, 25.0, models.CharmDrift},
		{"neutral", 5.0, 2.0, models.RegimeNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(testConfig())

			result := analyzer.Analyze(snapshot([]models.OptionContract{
				{Strike: 100, Type: models.OptionCall, Charm: 0.1, OpenInterest: 10, DaysToExpiry: tt.dte},
			}), dealer(tt.netCharm))

			assert.Equal(t, tt.want, result.SubRegime)
		})
	}
}
