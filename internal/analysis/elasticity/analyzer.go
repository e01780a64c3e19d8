package elasticity

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer вычисляет эластичность — моделируемую жесткость рынка к
// движению цены. Контракт: эластичность всегда строго положительна,
// ограничение снизу применяется явно, а не предполагается.
type Analyzer struct {
	config config.ElasticityConfig
}

// NewAnalyzer создает новый калькулятор эластичности
func NewAnalyzer(cfg config.ElasticityConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze комбинирует три поля греков, концентрацию открытого
// интереса и коэффициент фрикции ликвидности в один положительный
// скаляр жесткости с направленными вариантами вверх/вниз
func (a *Analyzer) Analyze(
	snapshot *models.ChainSnapshot,
	dealer *models.DealerSignResult,
	gamma, vanna, charm *models.GreekFieldResult,
) *models.ElasticityResult {
	result := &models.ElasticityResult{}

	// Длинная гамма дилеров повышает сопротивление; короткая,
	// дестабилизирующая — снижает его, компонента инвертируется
	result.GammaComponent = 1.0 + math.Abs(gamma.Exposure)*a.config.GammaScale
	if dealer.DealerSign < 0 {
		result.GammaComponent = 1.0 / result.GammaComponent
	}

	// Модификаторы ванны и чарма всегда >= 1: напрямую они
	// эластичность не дестабилизируют
	volSensitivity := 1.0 + snapshot.VIX*a.config.VIXCoef
	result.VannaModifier = 1.0 + math.Abs(vanna.Exposure)*a.config.VannaScale*volSensitivity
	result.CharmModifier = 1.0 + math.Abs(charm.Exposure)*a.config.CharmScale*charm.DecayAcceleration

	// Концентрация OI по Херфиндалю: чем концентрированнее интерес,
	// тем выше локальное сопротивление
	result.OIDensityModifier = 1.0 + herfindahl(snapshot.Contracts)*a.config.OIDensityScale

	illiquidity := snapshot.LiquidityLambda
	if illiquidity < 0 {
		illiquidity = 0
	}
	result.LiquidityFriction = 1.0 + illiquidity*a.config.LiquidityScale

	elasticity := a.config.Base *
		result.GammaComponent *
		result.VannaModifier *
		result.CharmModifier *
		result.OIDensityModifier *
		result.LiquidityFriction
	result.Elasticity = a.floor(elasticity)

	upMagnitude := math.Abs(gamma.PressureUp) + math.Abs(vanna.PressureUp) + math.Abs(charm.PressureUp)
	downMagnitude := math.Abs(gamma.PressureDown) + math.Abs(vanna.PressureDown) + math.Abs(charm.PressureDown)

	result.ElasticityUp = a.floor(result.Elasticity * (1.0 + upMagnitude*a.config.DirectionalScale))
	result.ElasticityDown = a.floor(result.Elasticity * (1.0 + downMagnitude*a.config.DirectionalScale))
	result.AsymmetryRatio = result.ElasticityUp / result.ElasticityDown

	return result
}

// floor ограничивает эластичность снизу малой положительной
// константой: физическая жесткость не бывает нулевой или
// отрицательной. NaN и Inf сюда не проходят.
func (a *Analyzer) floor(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < a.config.Floor {
		return a.config.Floor
	}
	return value
}

// herfindahl вычисляет индекс концентрации открытого интереса:
// сумму квадратов долей OI по контрактам
func herfindahl(contracts []models.OptionContract) float64 {
	var totalOI float64
	for _, c := range contracts {
		if c.OpenInterest > 0 {
			totalOI += c.OpenInterest
		}
	}
	if totalOI <= 0 {
		return 0
	}

	var index float64
	for _, c := range contracts {
		if c.OpenInterest <= 0 {
			continue
		}
		share := c.OpenInterest / totalOI
		index += share * share
	}
	return index
}
