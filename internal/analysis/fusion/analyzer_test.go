package fusion

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

func testConfig() config.FusionConfig {
	return config.FusionConfig{
		EnergyBlendWeight:     0.4,
		StabilityBlendWeight:  0.3,
		JumpBlendWeight:       0.2,
		VolatilityBlendWeight: 0.1,
		StabilityDecay:        0.3,
		StabilityThreshold:    0.5,
		VovPenaltyThreshold:   1.0,
		VovPenaltyCoef:        0.5,
		MinVolatilityPenalty:  0.3,
	}
}

func timeframe(name string, netPressure, avgEnergy, stability float64) *models.TimeframeResult {
	up, down := netPressure, 0.0
	if netPressure < 0 {
		up, down = 0.0, -netPressure
	}
	return &models.TimeframeResult{
		Timeframe: name,
		Elasticity: &models.ElasticityResult{
			Elasticity: 1.0,
		},
		Energy: &models.MovementEnergyResult{
			PressureUp:   up,
			PressureDown: down,
			EnergyUp:     avgEnergy,
			EnergyDown:   avgEnergy,
		},
		Regime: &models.RegimeResult{
			PrimaryRegime:    models.RegimeNeutral,
			JumpRiskRegime:   models.JumpRiskContinuous,
			RegimeStability:  stability,
			RegimeConfidence: 0.5,
		},
		VolOfVol: 0.5,
	}
}

func TestAnalyzeEmptyInputIsError(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result, err := analyzer.Analyze(nil)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestWeightsSumToOne(t *testing.T) {
	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("timeframes_%d", k), func(t *testing.T) {
			analyzer := NewAnalyzer(testConfig())

			var results []*models.TimeframeResult
			for i := 0; i < k; i++ {
				results = append(results, timeframe(fmt.Sprintf("tf%d", i),
					float64(i+1)*10, float64(i+1), 0.8))
			}

			fused, err := analyzer.Analyze(results)
			require.NoError(t, err)

			sum := 0.0
			for _, w := range fused.Weights {
				assert.GreaterOrEqual(t, w, 0.0)
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestSingleTimeframeGetsFullWeight(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	fused, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 100, 5, 0.8),
	})
	require.NoError(t, err)

	require.Len(t, fused.Weights, 1)
	assert.InDelta(t, 1.0, fused.Weights[0], 1e-9)
	assert.Equal(t, []string{"intraday"}, fused.Timeframes)
}

func TestEnergyInverseFavorsCheapMovement(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	// Первый таймфрейм вдесятеро дешевле по энергии
	fused, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 10, 1, 0.8),
		timeframe("weekly", 10, 10, 0.8),
	})
	require.NoError(t, err)

	assert.Greater(t, fused.Weights[0], fused.Weights[1])
}

func TestHighJumpShiftsWeightToShortTimeframes(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	base := []*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.8),
		timeframe("weekly", 10, 5, 0.8),
		timeframe("monthly", 10, 5, 0.8),
	}
	jumpy := []*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.8),
		timeframe("weekly", 10, 5, 0.8),
		timeframe("monthly", 10, 5, 0.8),
	}
	jumpy[1].Regime.JumpRiskRegime = models.JumpRiskHigh

	calm, err := analyzer.Analyze(base)
	require.NoError(t, err)
	stressed, err := analyzer.Analyze(jumpy)
	require.NoError(t, err)

	assert.Greater(t, stressed.Weights[0], calm.Weights[0])
	assert.Less(t, stressed.Weights[2], calm.Weights[2])
}

func TestLowStabilityShiftsWeightToShortTimeframes(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	stable, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.9),
		timeframe("weekly", 10, 5, 0.9),
	})
	require.NoError(t, err)
	unstable, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.1),
		timeframe("weekly", 10, 5, 0.1),
	})
	require.NoError(t, err)

	assert.Greater(t, unstable.Weights[0], stable.Weights[0])
}

func TestVolatilityPenaltySparesShortestTimeframe(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	results := []*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.8),
		timeframe("weekly", 10, 5, 0.8),
	}
	results[1].VolOfVol = 2.5

	fused, err := analyzer.Analyze(results)
	require.NoError(t, err)

	assert.Greater(t, fused.Weights[0], fused.Weights[1])
}

func TestRealizedMoveScore(t *testing.T) {
	tests := []struct {
		name      string
		pressures []float64
		want      float64
		exact     bool
	}{
		{"unanimous_up", []float64{10, 20, 30}, 1.0, true},
		{"unanimous_down", []float64{-10, -20, -30}, 1.0, true},
		// Разногласие с большим разбросом относительно среднего
		{"disagreement_clamped", []float64{100, -100}, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(testConfig())

			var results []*models.TimeframeResult
			for i, p := range tt.pressures {
				results = append(results, timeframe(fmt.Sprintf("tf%d", i), p, 5, 0.8))
			}

			fused, err := analyzer.Analyze(results)
			require.NoError(t, err)

			if tt.exact {
				assert.InDelta(t, tt.want, fused.RealizedMoveScore, 1e-9)
			}
			assert.GreaterOrEqual(t, fused.RealizedMoveScore, 0.0)
			assert.LessOrEqual(t, fused.RealizedMoveScore, 1.0)
		})
	}
}

func TestAdaptiveConfidenceBounds(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	single, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.8),
	})
	require.NoError(t, err)
	multi, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 10, 5, 0.8),
		timeframe("weekly", 10, 5, 0.8),
		timeframe("monthly", 10, 5, 0.8),
	})
	require.NoError(t, err)

	// Один таймфрейм: энтропийный член равен нулю,
	// остаются 0.4*уверенность + 0.4*согласие
	assert.InDelta(t, 0.4*0.5+0.4*1.0, single.AdaptiveConfidence, 1e-9)
	assert.GreaterOrEqual(t, multi.AdaptiveConfidence, 0.0)
	assert.LessOrEqual(t, multi.AdaptiveConfidence, 1.0)
	assert.Greater(t, multi.AdaptiveConfidence, single.AdaptiveConfidence)
}

func TestPrimaryRegimeFromHeaviestTimeframe(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	results := []*models.TimeframeResult{
		timeframe("intraday", 10, 1, 0.8),
		timeframe("weekly", 10, 50, 0.8),
	}
	results[0].Regime.PrimaryRegime = models.GammaShortSqueeze

	fused, err := analyzer.Analyze(results)
	require.NoError(t, err)

	// Дешевый по энергии короткий таймфрейм доминирует по весу
	assert.Equal(t, models.GammaShortSqueeze, fused.PrimaryRegime)
}

func TestFusedScalarsAreWeightedSums(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	fused, err := analyzer.Analyze([]*models.TimeframeResult{
		timeframe("intraday", 100, 5, 0.8),
		timeframe("weekly", -40, 5, 0.8),
	})
	require.NoError(t, err)

	w := fused.Weights
	assert.InDelta(t, w[0]*100, fused.FusedPressureUp, 1e-9)
	assert.InDelta(t, w[1]*40, fused.FusedPressureDown, 1e-9)
	assert.InDelta(t, fused.FusedPressureUp-fused.FusedPressureDown, fused.FusedNetPressure, 1e-9)
	assert.InDelta(t, 1.0, fused.FusedElasticity, 1e-9)
}
