package fusion

import (
	"fmt"
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// epsilon защищает деления от почти нулевых знаменателей
const epsilon = 1e-9

// Analyzer сливает результаты нескольких таймфреймов в одно
// представление: четыре независимые весовые эвристики смешиваются
// настроенной выпуклой комбинацией
type Analyzer struct {
	config config.FusionConfig
}

// NewAnalyzer создает новый слиятель таймфреймов
func NewAnalyzer(cfg config.FusionConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze сливает упорядоченные от короткого к длинному таймфрейму
// результаты. Пустой вход — ошибка вызывающей стороны.
func (a *Analyzer) Analyze(results []*models.TimeframeResult) (*models.FusedResult, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("слияние требует хотя бы один таймфрейм")
	}

	energyWeights := a.energyAwareWeights(results)
	stabilityWeights := a.stabilityDecayWeights(results)
	jumpWeights := a.jumpDecayWeights(results)
	volatilityWeights := a.volatilityPenaltyWeights(results)

	weights := make([]float64, len(results))
	for i := range results {
		weights[i] = a.config.EnergyBlendWeight*energyWeights[i] +
			a.config.StabilityBlendWeight*stabilityWeights[i] +
			a.config.JumpBlendWeight*jumpWeights[i] +
			a.config.VolatilityBlendWeight*volatilityWeights[i]
	}
	normalize(weights)

	fused := &models.FusedResult{
		Timeframes: make([]string, len(results)),
		Weights:    weights,
	}

	maxWeight := -1.0
	for i, r := range results {
		fused.Timeframes[i] = r.Timeframe
		fused.FusedPressureUp += weights[i] * r.Energy.PressureUp
		fused.FusedPressureDown += weights[i] * r.Energy.PressureDown
		fused.FusedElasticity += weights[i] * r.Elasticity.Elasticity
		fused.FusedEnergy += weights[i] * (r.Energy.EnergyUp + r.Energy.EnergyDown) / 2.0

		if weights[i] > maxWeight {
			maxWeight = weights[i]
			fused.PrimaryRegime = r.Regime.PrimaryRegime
		}
	}
	fused.FusedNetPressure = fused.FusedPressureUp - fused.FusedPressureDown

	fused.RealizedMoveScore = a.realizedMoveScore(results)
	fused.AdaptiveConfidence = a.adaptiveConfidence(results, weights, fused.RealizedMoveScore)

	return fused, nil
}

// energyAwareWeights взвешивает таймфреймы обратно их средней
// энергии движения: дешевое движение — больший вес
func (a *Analyzer) energyAwareWeights(results []*models.TimeframeResult) []float64 {
	weights := make([]float64, len(results))
	for i, r := range results {
		avgEnergy := (r.Energy.EnergyUp + r.Energy.EnergyDown) / 2.0
		weights[i] = 1.0 / (avgEnergy + epsilon)
	}
	normalize(weights)
	return weights
}

// stabilityDecayWeights при низкой общей стабильности режима
// экспоненциально смещает вес к коротким таймфреймам, иначе
// распределяет равномерно
func (a *Analyzer) stabilityDecayWeights(results []*models.TimeframeResult) []float64 {
	var stabilitySum float64
	for _, r := range results {
		stabilitySum += r.Regime.RegimeStability
	}
	avgStability := stabilitySum / float64(len(results))

	weights := make([]float64, len(results))
	if avgStability < a.config.StabilityThreshold {
		for i := range results {
			weights[i] = math.Pow(1.0-a.config.StabilityDecay, float64(i))
		}
	} else {
		for i := range results {
			weights[i] = 1.0
		}
	}
	normalize(weights)
	return weights
}

// jumpDecayWeights при высоком риске скачка последовательно
// ополовинивает вес каждого более длинного таймфрейма, иначе
// распределяет равномерно
func (a *Analyzer) jumpDecayWeights(results []*models.TimeframeResult) []float64 {
	highJump := false
	for _, r := range results {
		if r.Regime.JumpRiskRegime == models.JumpRiskHigh {
			highJump = true
			break
		}
	}

	weights := make([]float64, len(results))
	for i := range results {
		if highJump {
			weights[i] = math.Pow(0.5, float64(i))
		} else {
			weights[i] = 1.0
		}
	}
	normalize(weights)
	return weights
}

// volatilityPenaltyWeights при волатильной волатильности штрафует
// все таймфреймы кроме самого короткого множителем из [min, 1]
func (a *Analyzer) volatilityPenaltyWeights(results []*models.TimeframeResult) []float64 {
	maxVov := 0.0
	for _, r := range results {
		if r.VolOfVol > maxVov {
			maxVov = r.VolOfVol
		}
	}

	weights := make([]float64, len(results))
	for i := range results {
		weights[i] = 1.0
	}

	if maxVov > a.config.VovPenaltyThreshold {
		penalty := 1.0 - (maxVov-a.config.VovPenaltyThreshold)*a.config.VovPenaltyCoef
		if penalty < a.config.MinVolatilityPenalty {
			penalty = a.config.MinVolatilityPenalty
		}
		for i := 1; i < len(weights); i++ {
			weights[i] *= penalty
		}
	}
	normalize(weights)
	return weights
}

// realizedMoveScore оценивает согласие направлений между
// таймфреймами: единица при единогласном знаке чистого давления,
// иначе 1 - stdev/|mean| с ограничением в [0, 1]
func (a *Analyzer) realizedMoveScore(results []*models.TimeframeResult) float64 {
	pressures := make([]float64, len(results))
	positive, negative := 0, 0
	for i, r := range results {
		pressures[i] = r.Energy.PressureUp - r.Energy.PressureDown
		if pressures[i] > 0 {
			positive++
		} else if pressures[i] < 0 {
			negative++
		}
	}

	if positive == len(pressures) || negative == len(pressures) {
		return 1.0
	}

	mean := 0.0
	for _, p := range pressures {
		mean += p
	}
	mean /= float64(len(pressures))

	variance := 0.0
	for _, p := range pressures {
		variance += (p - mean) * (p - mean)
	}
	stdev := math.Sqrt(variance / float64(len(pressures)))

	score := 1.0 - stdev/(math.Abs(mean)+epsilon)
	return clamp01(score)
}

// adaptiveConfidence комбинирует слитую уверенность режима, счет
// согласия направлений и нормированную энтропию распределения весов
func (a *Analyzer) adaptiveConfidence(results []*models.TimeframeResult, weights []float64, realizedMove float64) float64 {
	fusedConfidence := 0.0
	for i, r := range results {
		fusedConfidence += weights[i] * r.Regime.RegimeConfidence
	}

	// Для единственного таймфрейма максимальная энтропия ln(1)=0,
	// энтропийный член определяется нулем
	entropyNorm := 0.0
	if len(weights) > 1 {
		entropy := 0.0
		for _, w := range weights {
			if w > 0 {
				entropy -= w * math.Log(w)
			}
		}
		entropyNorm = entropy / math.Log(float64(len(weights)))
	}

	return clamp01(0.4*fusedConfidence + 0.4*realizedMove + 0.2*entropyNorm)
}

// normalize приводит вектор весов к единичной сумме; вырожденный
// вектор становится равномерным
func normalize(weights []float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		uniform := 1.0 / float64(len(weights))
		for i := range weights {
			weights[i] = uniform
		}
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}

func clamp01(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
