package charmfield

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer строит чарм-поле давления: дрейф дельты во времени,
// усиленный ускорением распада около экспирации
type Analyzer struct {
	config config.CharmConfig
}

// NewAnalyzer создает новый построитель чарм-поля
func NewAnalyzer(cfg config.CharmConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze строит чарм-поле по снимку цепочки и оценке дилерского
// знака. Пустая цепочка дает нейтральное поле.
func (a *Analyzer) Analyze(snapshot *models.ChainSnapshot, dealer *models.DealerSignResult) *models.GreekFieldResult {
	result := &models.GreekFieldResult{
		SubRegime:         models.RegimeNeutral,
		DecayAcceleration: a.decayAcceleration(a.config.DefaultDaysToExpiry),
	}

	if len(snapshot.Contracts) == 0 || snapshot.SpotPrice <= 0 {
		return result
	}

	spot := snapshot.SpotPrice
	var pressureUp, pressureDown float64
	var dteSum float64

	for _, c := range snapshot.Contracts {
		weight := decayWeight(c.Strike, spot, a.config.DecayRate)
		contribution := c.Charm * c.OpenInterest * weight

		if c.Strike > spot {
			pressureUp += contribution
		} else {
			pressureDown += contribution
		}

		dteSum += c.DaysToExpiry
	}

	avgDTE := dteSum / float64(len(snapshot.Contracts))
	if avgDTE <= 0 {
		avgDTE = a.config.DefaultDaysToExpiry
	}

	// Гамма и чарм взрываются при приближении экспирации: давление
	// усиливается фактором 1/sqrt(DTE), ограниченным сверху
	accel := a.decayAcceleration(avgDTE)
	pressureUp *= accel
	pressureDown *= accel

	result.Exposure = dealer.NetDealerCharm
	result.PressureUp = pressureUp
	result.PressureDown = pressureDown
	result.DecayAcceleration = accel
	result.SubRegime = a.classify(math.Abs(result.Exposure), accel)

	return result
}

// decayAcceleration вычисляет фактор ускорения распада 1/sqrt(DTE),
// ограниченный настроенным максимумом около экспирации
func (a *Analyzer) decayAcceleration(avgDTE float64) float64 {
	if avgDTE <= 0 {
		return a.config.MaxDecayAcceleration
	}
	accel := 1.0 / math.Sqrt(avgDTE)
	if accel > a.config.MaxDecayAcceleration {
		accel = a.config.MaxDecayAcceleration
	}
	return accel
}

// classify выбирает суб-режим упорядоченной цепочкой правил
func (a *Analyzer) classify(magnitude, accel float64) string {
	switch {
	case magnitude > a.config.HighThreshold && accel > a.config.AccelThreshold:
		return models.CharmExpirationMagnet
	case magnitude > a.config.HighThreshold:
		return models.CharmDrift
	default:
		return models.RegimeNeutral
	}
}

// decayWeight вычисляет вес затухания по удаленности страйка от спота
func decayWeight(strike, spot, rate float64) float64 {
	return math.Exp(-rate * math.Abs(strike-spot) / spot)
}
