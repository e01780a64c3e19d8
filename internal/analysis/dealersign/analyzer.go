package dealersign

import (
	"math"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Analyzer оценивает знак и величину чистой дилерской экспозиции
// по грекам. Дилеры моделируются как чистые продавцы розничного
// опционного потока, поэтому взвешенные по OI суммы греков берутся
// с обратным знаком.
type Analyzer struct {
	config config.DealerSignConfig
}

// NewAnalyzer создает новый оценщик дилерской экспозиции
func NewAnalyzer(cfg config.DealerSignConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze оценивает дилерскую экспозицию по снимку цепочки.
// Пустая или неполная цепочка дает нулевой результат с нулевой
// уверенностью — частичные рыночные данные штатная ситуация,
// а не исключение.
func (a *Analyzer) Analyze(snapshot *models.ChainSnapshot) *models.DealerSignResult {
	result := &models.DealerSignResult{
		OIWeightedStrikeCenter: snapshot.SpotPrice,
	}

	if len(snapshot.Contracts) == 0 {
		return result
	}

	var callGamma, callVanna, callCharm float64
	var putGamma, putVanna, putCharm float64
	var totalOI, strikeOISum float64
	strikes := make(map[float64]struct{})

	for _, c := range snapshot.Contracts {
		oi := c.OpenInterest
		if oi < 0 {
			oi = 0
		}

		switch c.Type {
		case models.OptionCall:
			callGamma += c.Gamma * oi
			callVanna += c.Vanna * oi
			callCharm += c.Charm * oi
		case models.OptionPut:
			putGamma += c.Gamma * oi
			putVanna += c.Vanna * oi
			putCharm += c.Charm * oi
		default:
			// Контракт без типа пропускается, а не угадывается
			continue
		}

		totalOI += oi
		strikeOISum += c.Strike * oi
		strikes[c.Strike] = struct{}{}
	}

	// Дилерская сторона — зеркало розничной
	result.NetDealerGamma = -(callGamma + putGamma)
	result.NetDealerVanna = -(callVanna + putVanna)
	result.NetDealerCharm = -(callCharm + putCharm)

	if totalOI > 0 {
		result.OIWeightedStrikeCenter = strikeOISum / totalOI
	}

	// Знак выставляется только при уверенной по величине экспозиции,
	// неоднозначная экспозиция трактуется как нейтральная
	if math.Abs(result.NetDealerGamma) >= a.config.GammaSignThreshold {
		result.DealerSign = result.NetDealerGamma / math.Abs(result.NetDealerGamma)
	}

	result.Confidence = a.confidence(len(strikes), totalOI)

	return result
}

// confidence масштабирует уверенность числом наблюдаемых страйков
// относительно настроенного минимума; достаточная ликвидность дает
// дополнительный буст
func (a *Analyzer) confidence(distinctStrikes int, totalOI float64) float64 {
	confidence := float64(distinctStrikes) / float64(a.config.MinStrikes)
	if confidence > 1.0 {
		confidence = 1.0
	}

	if totalOI >= a.config.LiquidityFloor {
		confidence *= a.config.LiquidityBoost
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	return confidence
}
