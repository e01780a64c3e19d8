package energy

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// epsilon защищает деления от почти нулевых знаменателей, чтобы
// NaN/Inf не уходили ниже по конвейеру
const epsilon = 1e-9

// Analyzer переводит направленное давление и эластичность в оценку
// энергии, необходимой для движения цены в каждую сторону
type Analyzer struct {
	config config.EnergyConfig
}

// NewAnalyzer создает новый калькулятор энергии движения
func NewAnalyzer(cfg config.EnergyConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze вычисляет энергию движения по направлениям, асимметрию и
// вероятность ускорения
func (a *Analyzer) Analyze(
	gamma, vanna, charm *models.GreekFieldResult,
	elast *models.ElasticityResult,
) *models.MovementEnergyResult {
	result := &models.MovementEnergyResult{}

	// Чарм дает односторонний вклад: чистый дрейф толкает только в
	// сторону своего знака
	charmNet := charm.PressureUp + charm.PressureDown

	result.PressureUp = math.Abs(gamma.PressureUp) + math.Abs(vanna.PressureUp) + math.Max(0, charmNet)
	result.PressureDown = math.Abs(gamma.PressureDown) + math.Abs(vanna.PressureDown) + math.Max(0, -charmNet)

	// Энергия движения: давление, деленное на жесткость
	result.EnergyUp = result.PressureUp / (elast.ElasticityUp + epsilon)
	result.EnergyDown = result.PressureDown / (elast.ElasticityDown + epsilon)
	result.NetEnergy = result.EnergyUp - result.EnergyDown
	result.EnergyAsymmetry = result.EnergyUp / (result.EnergyDown + epsilon)

	// Барьер — более сильная из направленных энергетических стен
	result.BarrierStrength = math.Max(result.EnergyUp, result.EnergyDown)

	result.AccelerationLikelihood = a.accelerationLikelihood(
		result.PressureUp, result.PressureDown, elast, gamma.SubRegime)

	return result
}

// accelerationLikelihood комбинирует нормированный дисбаланс давления
// с фактором обратной эластичности. Буст дестабилизирующего
// гамма-режима применяется к сырому значению до финального
// ограничения в [0, 1] — порядок операций здесь существенен.
func (a *Analyzer) accelerationLikelihood(
	pressureUp, pressureDown float64,
	elast *models.ElasticityResult,
	gammaRegime string,
) float64 {
	imbalance := math.Abs(pressureUp-pressureDown) / (pressureUp + pressureDown + epsilon)

	avgElasticity := (elast.ElasticityUp + elast.ElasticityDown) / 2.0
	inverseElasticity := 1.0 / (1.0 + avgElasticity)

	raw := a.config.ImbalanceWeight*imbalance + a.config.InverseElasticityWeight*inverseElasticity

	if gammaRegime == models.GammaShortSqueeze || gammaRegime == models.GammaLowExpansion {
		raw *= a.config.DestabilizingBoost
	}

	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}
