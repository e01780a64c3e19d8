package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

// Storage интерфейс для работы с хранилищем данных
type Storage interface {
	// Методы для снимков опционной цепочки
	SaveChainSnapshot(ctx context.Context, snapshot *models.ChainSnapshot) error
	GetLatestChainSnapshot(ctx context.Context, symbol string) (*models.ChainSnapshot, error)

	// Методы для слитых результатов
	SaveFusedResult(ctx context.Context, result *models.FusedResult) error
	GetFusedHistory(ctx context.Context, symbol string, limit int) ([]*models.FusedResult, error)

	Close()
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPI
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	queryAPI := client.QueryAPI(cfg.Organization)
	writeAPI := client.WriteAPI(cfg.Organization, cfg.Bucket)

	return &InfluxDBStorage{
		client:   client,
		queryAPI: queryAPI,
		writeAPI: writeAPI,
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveChainSnapshot сохраняет снимок опционной цепочки. Контракты
// сериализуются в JSON одним полем: анализ всегда читает цепочку
// целиком.
func (s *InfluxDBStorage) SaveChainSnapshot(ctx context.Context, snapshot *models.ChainSnapshot) error {
	contracts, err := json.Marshal(snapshot.Contracts)
	if err != nil {
		return fmt.Errorf("ошибка сериализации контрактов: %w", err)
	}

	point := influxdb2.NewPoint(
		"chain_snapshots",
		map[string]string{
			"symbol": snapshot.Symbol,
		},
		map[string]interface{}{
			"spot_price":         snapshot.SpotPrice,
			"vix":                snapshot.VIX,
			"vol_of_vol":         snapshot.VolOfVol,
			"liquidity_lambda":   snapshot.LiquidityLambda,
			"cross_asset_corr":   snapshot.CrossAssetCorrelation,
			"contracts":          string(contracts),
		},
		snapshot.Timestamp,
	)

	s.writeAPI.WritePoint(point)
	s.writeAPI.Flush()

	return nil
}

// GetLatestChainSnapshot получает последний снимок цепочки для символа
func (s *InfluxDBStorage) GetLatestChainSnapshot(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -1d)
			|> filter(fn: (r) => r._measurement == "chain_snapshots")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: 1)
	`, s.bucket, symbol)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса снимка цепочки: %w", err)
	}

	if result.Next() {
		record := result.Record()

		snapshot := &models.ChainSnapshot{
			Symbol:    symbol,
			Timestamp: record.Time(),
		}
		snapshot.SpotPrice, _ = record.ValueByKey("spot_price").(float64)
		snapshot.VIX, _ = record.ValueByKey("vix").(float64)
		snapshot.VolOfVol, _ = record.ValueByKey("vol_of_vol").(float64)
		snapshot.LiquidityLambda, _ = record.ValueByKey("liquidity_lambda").(float64)
		snapshot.CrossAssetCorrelation, _ = record.ValueByKey("cross_asset_corr").(float64)

		contractsStr, _ := record.ValueByKey("contracts").(string)
		if contractsStr != "" {
			if err := json.Unmarshal([]byte(contractsStr), &snapshot.Contracts); err != nil {
				return nil, fmt.Errorf("ошибка разбора контрактов: %w", err)
			}
		}

		return snapshot, nil
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return nil, fmt.Errorf("снимок цепочки для %s не найден", symbol)
}

// SaveFusedResult сохраняет слитый результат пайплайна
func (s *InfluxDBStorage) SaveFusedResult(ctx context.Context, result *models.FusedResult) error {
	weights, err := json.Marshal(result.Weights)
	if err != nil {
		return fmt.Errorf("ошибка сериализации весов: %w", err)
	}

	timestamp := result.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	point := influxdb2.NewPoint(
		"fused_results",
		map[string]string{
			"symbol": result.Symbol,
		},
		map[string]interface{}{
			"pressure_up":         result.FusedPressureUp,
			"pressure_down":       result.FusedPressureDown,
			"net_pressure":        result.FusedNetPressure,
			"elasticity":          result.FusedElasticity,
			"energy":              result.FusedEnergy,
			"primary_regime":      result.PrimaryRegime,
			"realized_move_score": result.RealizedMoveScore,
			"adaptive_confidence": result.AdaptiveConfidence,
			"weights":             string(weights),
		},
		timestamp,
	)

	s.writeAPI.WritePoint(point)
	s.writeAPI.Flush()

	return nil
}

// GetFusedHistory получает историю слитых результатов для символа
func (s *InfluxDBStorage) GetFusedHistory(ctx context.Context, symbol string, limit int) ([]*models.FusedResult, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30d)
			|> filter(fn: (r) => r._measurement == "fused_results")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории результатов: %w", err)
	}

	var history []*models.FusedResult
	for result.Next() {
		record := result.Record()

		fused := &models.FusedResult{
			Symbol:    symbol,
			Timestamp: record.Time(),
		}
		fused.FusedPressureUp, _ = record.ValueByKey("pressure_up").(float64)
		fused.FusedPressureDown, _ = record.ValueByKey("pressure_down").(float64)
		fused.FusedNetPressure, _ = record.ValueByKey("net_pressure").(float64)
		fused.FusedElasticity, _ = record.ValueByKey("elasticity").(float64)
		fused.FusedEnergy, _ = record.ValueByKey("energy").(float64)
		fused.PrimaryRegime, _ = record.ValueByKey("primary_regime").(string)
		fused.RealizedMoveScore, _ = record.ValueByKey("realized_move_score").(float64)
		fused.AdaptiveConfidence, _ = record.ValueByKey("adaptive_confidence").(float64)

		weightsStr, _ := record.ValueByKey("weights").(string)
		if weightsStr != "" {
			if err := json.Unmarshal([]byte(weightsStr), &fused.Weights); err != nil {
				return nil, fmt.Errorf("ошибка разбора весов: %w", err)
			}
		}

		history = append(history, fused)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return history, nil
}
