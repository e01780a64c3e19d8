package exchange

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/skalibog/oema/pkg/logger"
	"github.com/skalibog/oema/pkg/models"
)

// annualization число дневных свечей в году для аннуализации
// волатильности
const annualization = 365.0

// VolContext волатильностный контекст, выведенный из свечей: прокси
// VIX (реализованная волатильность в процентных пунктах) и
// волатильность волатильности
type VolContext struct {
	RealizedVol float64
	VolOfVol    float64
}

// BuildVolContext вычисляет волатильностный контекст по ценам
// закрытия дневных свечей. Требуется минимум 2·window+1 значений:
// окно для скользящей волатильности и окно поверх ее ряда.
func BuildVolContext(closes []float64, window int) (*VolContext, error) {
	if window < 2 {
		return nil, fmt.Errorf("окно волатильности должно быть не меньше 2, получено %d", window)
	}
	if len(closes) < 2*window+1 {
		return nil, fmt.Errorf("недостаточно свечей для контекста волатильности: %d, требуется %d",
			len(closes), 2*window+1)
	}

	// Логарифмические доходности
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return nil, fmt.Errorf("неположительная цена закрытия в свечах")
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	// Скользящая волатильность доходностей
	vols := talib.StdDev(returns, window, 1.0)

	// Хвост ряда без нулевого разогрева
	tail := vols[window-1:]
	if len(tail) < window {
		return nil, fmt.Errorf("недостаточно точек волатильности: %d", len(tail))
	}

	realized := tail[len(tail)-1] * math.Sqrt(annualization) * 100.0

	// Волатильность волатильности: коэффициент вариации хвоста ряда
	volOfVols := talib.StdDev(tail, window, 1.0)
	meanVol := mean(tail[len(tail)-window:])

	volOfVol := 0.0
	if meanVol > 0 {
		volOfVol = volOfVols[len(volOfVols)-1] / meanVol
	}

	return &VolContext{
		RealizedVol: realized,
		VolOfVol:    volOfVol,
	}, nil
}

// EnrichSnapshot заполняет незаполненные коллектором контекстные поля
// снимка рыночными данными: спот-цену, прокси VIX и vol-of-vol.
// Возвращает производный снимок, исходный не изменяется.
func (c *BinanceClient) EnrichSnapshot(ctx context.Context, snapshot *models.ChainSnapshot, volWindow int) (*models.ChainSnapshot, error) {
	enriched := *snapshot

	if enriched.SpotPrice <= 0 {
		price, err := c.GetSpotPrice(ctx, enriched.Symbol)
		if err != nil {
			return nil, fmt.Errorf("ошибка обогащения спот-ценой: %w", err)
		}
		enriched.SpotPrice = price
	}

	if enriched.VIX <= 0 || enriched.VolOfVol <= 0 {
		closes, err := c.GetCloses(ctx, enriched.Symbol, "1d", 2*volWindow+10)
		if err != nil {
			return nil, fmt.Errorf("ошибка обогащения свечами: %w", err)
		}

		volContext, err := BuildVolContext(closes, volWindow)
		if err != nil {
			return nil, fmt.Errorf("ошибка построения контекста волатильности: %w", err)
		}

		if enriched.VIX <= 0 {
			enriched.VIX = volContext.RealizedVol
		}
		if enriched.VolOfVol <= 0 {
			enriched.VolOfVol = volContext.VolOfVol
		}

		logger.Debug("EXCHANGE: снимок обогащен контекстом волатильности",
			zap.String("symbol", enriched.Symbol),
			zap.Float64("vix_proxy", enriched.VIX),
			zap.Float64("vol_of_vol", enriched.VolOfVol))
	}

	return &enriched, nil
}

// mean среднее значение среза
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
