package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

func testConfig() config.EnergyConfig {
	return config.EnergyConfig{
		ImbalanceWeight:         0.6,
		InverseElasticityWeight: 0.4,
		DestabilizingBoost:      1.5,
	}
}

func field(up, down float64) *models.GreekFieldResult {
	return &models.GreekFieldResult{
		SubRegime:    models.RegimeNeutral,
		PressureUp:   up,
		PressureDown: down,
	}
}

func elasticity(up, down float64) *models.ElasticityResult {
	return &models.ElasticityResult{
		Elasticity:     (up + down) / 2.0,
		ElasticityUp:   up,
		ElasticityDown: down,
	}
}

func TestAnalyzeEnergyIsPressureOverElasticity(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(field(100, 50), field(20, 10), field(0, 0), elasticity(2.0, 1.0))

	assert.InDelta(t, 120.0/2.0, result.EnergyUp, 1e-6)
	assert.InDelta(t, 60.0/1.0, result.EnergyDown, 1e-6)
	assert.InDelta(t, 0.0, result.NetEnergy, 1e-6)
	assert.InDelta(t, 60.0, result.BarrierStrength, 1e-6)
}

func TestAnalyzeCharmContributesOneSided(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	// Чистый чарм-дрейф вниз: в давление вверх он не попадает
	result := analyzer.Analyze(field(0, 0), field(0, 0), field(10, -40), elasticity(1.0, 1.0))

	assert.Equal(t, 0.0, result.PressureUp)
	assert.InDelta(t, 30.0, result.PressureDown, 1e-9)
}

func TestAnalyzeBarrierIsStrongerWall(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(field(10, 200), field(0, 0), field(0, 0), elasticity(1.0, 1.0))

	assert.InDelta(t, result.EnergyDown, result.BarrierStrength, 1e-6)
	assert.Greater(t, result.BarrierStrength, result.EnergyUp)
}

func TestAccelerationLikelihood(t *testing.T) {
	tests := []struct {
		name        string
		up, down    float64
		elast       *models.ElasticityResult
		gammaRegime string
		want        float64
	}{
		// Баланс давления: остается только фактор обратной эластичности
		{"balanced", 100, 100, elasticity(1.0, 1.0), models.RegimeNeutral, 0.4 * 0.5},
		// Полный дисбаланс при жестком рынке
		{"one_sided", 100, 0, elasticity(3.0, 3.0), models.RegimeNeutral, 0.6 + 0.4*0.25},
		// Сквиз применяет буст до ограничения
		{"squeeze_boost", 100, 100, elasticity(1.0, 1.0), models.GammaShortSqueeze, 0.2 * 1.5},
		{"boost_then_clamp", 100, 0, elasticity(0.05, 0.05), models.GammaLowExpansion, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(testConfig())
			gamma := field(tt.up, tt.down)
			gamma.SubRegime = tt.gammaRegime

			result := analyzer.Analyze(gamma, field(0, 0), field(0, 0), tt.elast)

			assert.InDelta(t, tt.want, result.AccelerationLikelihood, 1e-6)
			assert.GreaterOrEqual(t, result.AccelerationLikelihood, 0.0)
			assert.LessOrEqual(t, result.AccelerationLikelihood, 1.0)
		})
	}
}

func TestAnalyzeZeroInputsStayFinite(t *testing.T) {
	analyzer := NewAnalyzer(testConfig())

	result := analyzer.Analyze(field(0, 0), field(0, 0), field(0, 0), elasticity(0, 0))

	assert.Equal(t, 0.0, result.EnergyUp)
	assert.Equal(t, 0.0, result.EnergyDown)
	assert.Equal(t, 0.0, result.BarrierStrength)
	assert.GreaterOrEqual(t, result.AccelerationLikelihood, 0.0)
	assert.LessOrEqual(t, result.AccelerationLikelihood, 1.0)
}
