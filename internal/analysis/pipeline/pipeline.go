package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/oema/internal/analysis/charmfield"
	"github.com/skalibog/oema/internal/analysis/dealersign"
	"github.com/skalibog/oema/internal/analysis/elasticity"
	"github.com/skalibog/oema/internal/analysis/energy"
	"github.com/skalibog/oema/internal/analysis/fusion"
	"github.com/skalibog/oema/internal/analysis/gammafield"
	"github.com/skalibog/oema/internal/analysis/regime"
	"github.com/skalibog/oema/internal/analysis/vannafield"
	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/internal/storage"
	"github.com/skalibog/oema/pkg/logger"
	"github.com/skalibog/oema/pkg/models"
)

// Pipeline объединяет шесть стадий анализа: оценка дилерского знака →
// поля греков → эластичность → энергия движения → режим → слияние
// таймфреймов
type Pipeline struct {
	config     config.AnalysisConfig
	timeframes []config.TimeframeConfig
	storage    storage.Storage

	dealerAnal *dealersign.Analyzer
	gammaAnal  *gammafield.Analyzer
	vannaAnal  *vannafield.Analyzer
	charmAnal  *charmfield.Analyzer
	elastAnal  *elasticity.Analyzer
	energyAnal *energy.Analyzer
	regimeAnal *regime.Analyzer
	fusionAnal *fusion.Analyzer
}

// NewPipeline создает новый пайплайн. Таймфреймы перечисляются от
// короткого к длинному, этот порядок важен для эвристик слияния.
// Хранилище может быть nil: тогда результаты не персистятся.
func NewPipeline(cfg config.AnalysisConfig, timeframes []config.TimeframeConfig, store storage.Storage) *Pipeline {
	return &Pipeline{
		config:     cfg,
		timeframes: timeframes,
		storage:    store,
		dealerAnal: dealersign.NewAnalyzer(cfg.DealerSign),
		gammaAnal:  gammafield.NewAnalyzer(cfg.Gamma),
		vannaAnal:  vannafield.NewAnalyzer(cfg.Vanna),
		charmAnal:  charmfield.NewAnalyzer(cfg.Charm),
		elastAnal:  elasticity.NewAnalyzer(cfg.Elasticity),
		energyAnal: energy.NewAnalyzer(cfg.Energy),
		regimeAnal: regime.NewAnalyzer(cfg.Regime),
		fusionAnal: fusion.NewAnalyzer(cfg.Fusion),
	}
}

// Evaluate прогоняет один снимок через шесть стадий для одного
// таймфрейма. Чистая функция: снимок и конфигурация только читаются.
func (p *Pipeline) Evaluate(snapshot *models.ChainSnapshot, tf config.TimeframeConfig) *models.TimeframeResult {
	filtered := filterByHorizon(snapshot, tf.MaxDaysToExpiry)

	dealer := p.dealerAnal.Analyze(filtered)
	gamma := p.gammaAnal.Analyze(filtered, dealer)
	vanna := p.vannaAnal.Analyze(filtered, dealer)
	charm := p.charmAnal.Analyze(filtered, dealer)
	elast := p.elastAnal.Analyze(filtered, dealer, gamma, vanna, charm)
	moveEnergy := p.energyAnal.Analyze(gamma, vanna, charm, elast)
	marketRegime := p.regimeAnal.Analyze(filtered, dealer, gamma, vanna, charm, elast, moveEnergy)

	logger.Debug("PIPELINE: таймфрейм оценен",
		zap.String("symbol", snapshot.Symbol),
		zap.String("timeframe", tf.Name),
		zap.String("regime", marketRegime.PrimaryRegime),
		zap.Float64("elasticity", elast.Elasticity),
		zap.Float64("net_energy", moveEnergy.NetEnergy))

	return &models.TimeframeResult{
		Timeframe:  tf.Name,
		VolOfVol:   filtered.VolOfVol,
		DealerSign: dealer,
		Gamma:      gamma,
		Vanna:      vanna,
		Charm:      charm,
		Elasticity: elast,
		Energy:     moveEnergy,
		Regime:     marketRegime,
	}
}

// EvaluateAll оценивает снимок по всем таймфреймам параллельно и
// сливает результаты. Сохранение слитого результата в хранилище не
// прерывает оценку при ошибке.
func (p *Pipeline) EvaluateAll(ctx context.Context, snapshot *models.ChainSnapshot) (*models.PipelineResult, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("нет снимка цепочки для оценки")
	}

	results := make([]*models.TimeframeResult, len(p.timeframes))
	var wg sync.WaitGroup

	for i, tf := range p.timeframes {
		wg.Add(1)
		go func(idx int, tf config.TimeframeConfig) {
			defer wg.Done()
			results[idx] = p.Evaluate(snapshot, tf)
		}(i, tf)
	}
	wg.Wait()

	fused, err := p.fusionAnal.Analyze(results)
	if err != nil {
		return nil, fmt.Errorf("ошибка слияния таймфреймов: %w", err)
	}
	fused.Symbol = snapshot.Symbol
	fused.Timestamp = snapshot.Timestamp
	if fused.Timestamp.IsZero() {
		fused.Timestamp = time.Now()
	}

	result := &models.PipelineResult{
		Symbol:     snapshot.Symbol,
		Timestamp:  fused.Timestamp,
		Timeframes: results,
		Fused:      fused,
	}

	if p.storage != nil {
		if err := p.storage.SaveFusedResult(ctx, fused); err != nil {
			logger.Warn("Предупреждение: не удалось сохранить слитый результат",
				zap.String("symbol", snapshot.Symbol), zap.Error(err))
		}
	}

	return result, nil
}

// EvaluateSymbols оценивает снимки нескольких символов параллельно;
// ошибка одного символа не прерывает остальные
func (p *Pipeline) EvaluateSymbols(ctx context.Context, snapshots []*models.ChainSnapshot) map[string]*models.PipelineResult {
	results := make(map[string]*models.PipelineResult)
	var wg sync.WaitGroup
	var mutex sync.Mutex

	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		wg.Add(1)
		go func(snap *models.ChainSnapshot) {
			defer wg.Done()

			result, err := p.EvaluateAll(ctx, snap)
			if err != nil {
				logger.Warn("Предупреждение: оценка символа недоступна",
					zap.String("symbol", snap.Symbol), zap.Error(err))
				return
			}

			mutex.Lock()
			results[snap.Symbol] = result
			mutex.Unlock()
		}(snapshot)
	}

	wg.Wait()
	return results
}

// filterByHorizon возвращает производный снимок, цепочка которого
// ограничена горизонтом экспирации таймфрейма. Исходный снимок не
// изменяется.
func filterByHorizon(snapshot *models.ChainSnapshot, maxDTE float64) *models.ChainSnapshot {
	filtered := *snapshot
	contracts := make([]models.OptionContract, 0, len(snapshot.Contracts))
	for _, c := range snapshot.Contracts {
		if c.DaysToExpiry <= maxDTE {
			contracts = append(contracts, c)
		}
	}
	filtered.Contracts = contracts
	return &filtered
}
