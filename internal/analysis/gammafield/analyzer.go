package gammafield

import (
	"math"
	"sort"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer строит гамма-поле давления вокруг спота: взвешенная по
// удаленности страйка долларовая гамма агрегируется в давление
// сверху и снизу от цены
type Analyzer struct {
	config config.GammaConfig
}

// NewAnalyzer создает новый построитель гамма-поля
func NewAnalyzer(cfg config.GammaConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze строит гамма-поле по снимку цепочки и оценке дилерского
// знака. Пустая цепочка дает нейтральное поле.
func (a *Analyzer) Analyze(snapshot *models.ChainSnapshot, dealer *models.DealerSignResult) *models.GreekFieldResult {
	result := &models.GreekFieldResult{
		SubRegime: models.RegimeNeutral,
	}

	if len(snapshot.Contracts) == 0 || snapshot.SpotPrice <= 0 {
		return result
	}

	spot := snapshot.SpotPrice
	weighted := make(map[float64]float64)
	var pressureUp, pressureDown float64

	for _, c := range snapshot.Contracts {
		weight := decayWeight(c.Strike, spot, a.config.DecayRate)
		// Умножение на спот переводит гамму в долларовую
		contribution := c.Gamma * c.OpenInterest * spot * weight

		if c.Strike > spot {
			pressureUp += contribution
		} else {
			pressureDown += contribution
		}

		weighted[c.Strike] += contribution
	}

	// Короткая гамма дилеров дестабилизирует: хеджирование ускоряет
	// движение вместо сопротивления, поэтому давление меняет знак
	if dealer.DealerSign < 0 {
		pressureUp = -pressureUp
		pressureDown = -pressureDown
	}

	result.Exposure = dealer.NetDealerGamma * spot
	result.PressureUp = pressureUp
	result.PressureDown = pressureDown
	result.SubRegime = a.classify(dealer.DealerSign, math.Abs(result.Exposure))
	result.PinZones = a.detectPinZones(snapshot.Contracts, spot)
	result.StrikeGamma = sortedStrikeWeights(weighted)

	return result
}

// classify выбирает суб-режим упорядоченной цепочкой правил,
// срабатывает первое совпадение
func (a *Analyzer) classify(sign, magnitude float64) string {
	switch {
	case sign < -0.5 && magnitude > a.config.SqueezeThreshold:
		return models.GammaShortSqueeze
	case sign > 0.5 && magnitude > a.config.SqueezeThreshold:
		return models.GammaLongCompression
	case magnitude < a.config.PinThreshold:
		return models.GammaLowExpansion
	default:
		return models.RegimeNeutral
	}
}

// detectPinZones группирует страйки с открытым интересом выше порога
// в непрерывные диапазоны; зона разрывается, когда промежуток между
// соседними подходящими страйками превышает настроенную долю спота
func (a *Analyzer) detectPinZones(contracts []models.OptionContract, spot float64) []models.PinZone {
	oiByStrike := make(map[float64]float64)
	for _, c := range contracts {
		oiByStrike[c.Strike] += c.OpenInterest
	}

	var qualifying []float64
	for strike, oi := range oiByStrike {
		if oi > a.config.PinOIThreshold {
			qualifying = append(qualifying, strike)
		}
	}
	if len(qualifying) == 0 {
		return nil
	}
	sort.Float64s(qualifying)

	maxGap := a.config.PinGapPct * spot
	var zones []models.PinZone
	zone := models.PinZone{Low: qualifying[0], High: qualifying[0]}

	for _, strike := range qualifying[1:] {
		if strike-zone.High > maxGap {
			zones = append(zones, zone)
			zone = models.PinZone{Low: strike, High: strike}
			continue
		}
		zone.High = strike
	}
	zones = append(zones, zone)

	return zones
}

// sortedStrikeWeights переводит карту страйк → взвешенная гамма в
// отсортированные параллельные массивы для векторной обработки ниже
// по конвейеру
func sortedStrikeWeights(weighted map[float64]float64) models.StrikeWeights {
	strikes := make([]float64, 0, len(weighted))
	for strike := range weighted {
		strikes = append(strikes, strike)
	}
	sort.Float64s(strikes)

	values := make([]float64, len(strikes))
	for i, strike := range strikes {
		values[i] = weighted[strike]
	}

	return models.StrikeWeights{Strikes: strikes, Values: values}
}

// decayWeight вычисляет вес затухания по удаленности страйка от спота
func decayWeight(strike, spot, rate float64) float64 {
	return math.Exp(-rate * math.Abs(strike-spot) / spot)
}
