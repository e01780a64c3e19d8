package pipeline

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/pkg/models"
)

func testTimeframes() []config.TimeframeConfig {
	return []config.TimeframeConfig{
		{Name: "intraday", MaxDaysToExpiry: 2},
		{Name: "weekly", MaxDaysToExpiry: 7},
		{Name: "monthly", MaxDaysToExpiry: 30},
	}
}

func testSnapshot() *models.ChainSnapshot {
	return &models.ChainSnapshot{
		Symbol:    "BTCUSDT",
		SpotPrice: 100.0,
		VIX:       22.0,
		VolOfVol:  0.6,
		Timestamp: time.Unix(1700000000, 0),
		Contracts: []models.OptionContract{
			{Strike: 95, Type: models.OptionPut, Gamma: 0.02, Vanna: 0.3, Charm: -0.1, OpenInterest: 400, DaysToExpiry: 1},
			{Strike: 105, Type: models.OptionCall, Gamma: 0.03, Vanna: -0.2, Charm: 0.2, OpenInterest: 600, DaysToExpiry: 5},
			{Strike: 110, Type: models.OptionCall, Gamma: 0.01, Vanna: 0.1, Charm: 0.1, OpenInterest: 200, DaysToExpiry: 20},
		},
	}
}

func TestEvaluateFiltersChainByHorizon(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)
	snapshot := testSnapshot()

	intraday := pipe.Evaluate(snapshot, testTimeframes()[0])
	monthly := pipe.Evaluate(snapshot, testTimeframes()[2])

	// Внутридневной горизонт видит один контракт, месячный — все три:
	// уверенность оценки знака растет с числом страйков
	assert.Less(t, intraday.DealerSign.Confidence, monthly.DealerSign.Confidence)
	// Исходный снимок не изменяется
	assert.Len(t, snapshot.Contracts, 3)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)
	snapshot := testSnapshot()

	first := pipe.Evaluate(snapshot, testTimeframes()[1])
	second := pipe.Evaluate(snapshot, testTimeframes()[1])

	assert.True(t, reflect.DeepEqual(first, second))
}

func TestEvaluateAllOrdersTimeframes(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)

	result, err := pipe.EvaluateAll(context.Background(), testSnapshot())
	require.NoError(t, err)

	require.Len(t, result.Timeframes, 3)
	assert.Equal(t, "intraday", result.Timeframes[0].Timeframe)
	assert.Equal(t, "weekly", result.Timeframes[1].Timeframe)
	assert.Equal(t, "monthly", result.Timeframes[2].Timeframe)
	assert.Equal(t, []string{"intraday", "weekly", "monthly"}, result.Fused.Timeframes)
	assert.Equal(t, "BTCUSDT", result.Fused.Symbol)
	assert.Equal(t, time.Unix(1700000000, 0), result.Fused.Timestamp)
}

func TestEvaluateAllNilSnapshotIsError(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)

	result, err := pipe.EvaluateAll(context.Background(), nil)

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestEvaluateAllEmptyChainIsNeutral(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)

	result, err := pipe.EvaluateAll(context.Background(), &models.ChainSnapshot{
		Symbol:    "ETHUSDT",
		SpotPrice: 100.0,
	})
	require.NoError(t, err)

	for _, tf := range result.Timeframes {
		assert.Equal(t, models.RegimeNeutral, tf.Regime.PrimaryRegime)
		assert.Equal(t, 0.0, tf.Energy.BarrierStrength)
	}
	assert.Equal(t, models.RegimeNeutral, result.Fused.PrimaryRegime)
	assert.False(t, result.Fused.Timestamp.IsZero())
}

func TestEvaluateSymbols(t *testing.T) {
	pipe := NewPipeline(config.DefaultAnalysis(), testTimeframes(), nil)
	second := testSnapshot()
	second.Symbol = "ETHUSDT"

	results := pipe.EvaluateSymbols(context.Background(), []*models.ChainSnapshot{
		testSnapshot(),
		second,
		nil, // пустой снимок пропускается, остальные оцениваются
	})

	require.Len(t, results, 2)
	assert.Contains(t, results, "BTCUSDT")
	assert.Contains(t, results, "ETHUSDT")
}
