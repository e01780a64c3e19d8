package vannafield

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer строит ванна-поле давления: чувствительность дельты к
// волатильности, взвешенная по удаленности страйка и открытому
// интересу
type Analyzer struct {
	config config.VannaConfig
}

// NewAnalyzer создает новый построитель ванна-поля
func NewAnalyzer(cfg config.VannaConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze строит ванна-поле по снимку цепочки и оценке дилерского
// знака. Пустая цепочка дает нейтральное поле.
func (a *Analyzer) Analyze(snapshot *models.ChainSnapshot, dealer *models.DealerSignResult) *models.GreekFieldResult {
	result := &models.GreekFieldResult{
		SubRegime:     models.RegimeNeutral,
		ShockAbsorber: 1.0,
	}

	if len(snapshot.Contracts) == 0 || snapshot.SpotPrice <= 0 {
		return result
	}

	spot := snapshot.SpotPrice
	var pressureUp, pressureDown float64

	for _, c := range snapshot.Contracts {
		weight := decayWeight(c.Strike, spot, a.config.DecayRate)
		contribution := c.Vanna * c.OpenInterest * weight

		if c.Strike > spot {
			pressureUp += contribution
		} else {
			pressureDown += contribution
		}
	}

	// Амортизатор: при волатильной волатильности доверие к ванна-сигналу
	// снижается, давление демпфируется
	absorber := a.shockAbsorber(snapshot.VolOfVol)
	pressureUp *= absorber
	pressureDown *= absorber

	result.Exposure = dealer.NetDealerVanna
	result.PressureUp = pressureUp
	result.PressureDown = pressureDown
	result.ShockAbsorber = absorber
	result.SubRegime = a.classify(math.Abs(result.Exposure), snapshot.VIX)

	return result
}

// shockAbsorber вычисляет демпфирующий множитель 1/(1+k·(vov-порог))
// при превышении порога волатильности волатильности
func (a *Analyzer) shockAbsorber(volOfVol float64) float64 {
	if volOfVol <= a.config.VovThreshold {
		return 1.0
	}
	return 1.0 / (1.0 + a.config.ShockAbsorberCoef*(volOfVol-a.config.VovThreshold))
}

// classify выбирает суб-режим упорядоченной цепочкой правил; верхняя
// корзина дополнительно делится по уровню VIX
func (a *Analyzer) classify(magnitude, vix float64) string {
	switch {
	case magnitude > a.config.HighThreshold && vix > a.config.VIXSplit:
		return models.VannaHighHighVol
	case magnitude > a.config.HighThreshold:
		return models.VannaHighLowVol
	case magnitude < a.config.LowThreshold:
		return models.VannaLowStable
	default:
		return models.RegimeNeutral
	}
}

// decayWeight вычисляет вес затухания по удаленности страйка от спота
func decayWeight(strike, spot, rate float64) float64 {
	return math.Exp(-rate * math.Abs(strike-spot) / spot)
}
