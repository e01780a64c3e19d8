package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"

	"github.com/skalibog/oema/internal/config"
)

// maxAttempts число попыток запроса к бирже до возврата ошибки
const maxAttempts = 4

// BinanceClient клиент для взаимодействия с Binance: поставляет
// спот-цену базового актива и свечи для волатильностного контекста
type BinanceClient struct {
	futures *futures.Client
	spot    *binance.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	if cfg.Testnet {
		futuresClient.BaseURL = futures.BaseApiTestnetUrl
		// Для спот-клиента нужно изменить базовый URL
		spotClient.SetApiEndpoint("https://testnet.binance.vision")
	}

	return &BinanceClient{
		futures: futuresClient,
		spot:    spotClient,
	}, nil
}

// GetSpotPrice получает текущую цену базового актива
func (c *BinanceClient) GetSpotPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*binance.SymbolPrice

	err := c.withRetry(ctx, func() error {
		var err error
		prices, err = c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка получения цены: %w", err)
	}

	if len(prices) == 0 {
		return 0, fmt.Errorf("не найдены данные о цене для %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ошибка разбора цены: %w", err)
	}

	return price, nil
}

// GetCloses получает цены закрытия исторических свечей, от старых к
// новым
func (c *BinanceClient) GetCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	var klines []*futures.Kline

	err := c.withRetry(ctx, func() error {
		var err error
		klines, err = c.futures.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		value, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора цены закрытия: %w", err)
		}
		closes = append(closes, value)
	}

	return closes, nil
}

// withRetry повторяет запрос с экспоненциальной задержкой: разовые
// сбои биржевого API штатная ситуация
func (c *BinanceClient) withRetry(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    3 * time.Second,
		Jitter: true,
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}

	return err
}
