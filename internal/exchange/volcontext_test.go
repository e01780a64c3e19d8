package exchange

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVolContextWindowTooSmall(t *testing.T) {
	_, err := BuildVolContext([]float64{100, 101, 102}, 1)

	assert.Error(t, err)
}

func TestBuildVolContextInsufficientData(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100
	}

	_, err := BuildVolContext(closes, 20)

	assert.Error(t, err)
}

func TestBuildVolContextNonPositivePrice(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	closes[25] = 0

	_, err := BuildVolContext(closes, 5)

	assert.Error(t, err)
}

func TestBuildVolContextConstantSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}

	volContext, err := BuildVolContext(closes, 5)
	require.NoError(t, err)

	// Постоянная цена: нулевые доходности, нулевая волатильность
	assert.Equal(t, 0.0, volContext.RealizedVol)
	assert.Equal(t, 0.0, volContext.VolOfVol)
}

func TestBuildVolContextNoisySeriesIsFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 100)
	price := 100.0
	for i := range closes {
		price *= 1.0 + rng.NormFloat64()*0.02
		closes[i] = price
	}

	volContext, err := BuildVolContext(closes, 20)
	require.NoError(t, err)

	assert.Greater(t, volContext.RealizedVol, 0.0)
	assert.False(t, math.IsNaN(volContext.RealizedVol))
	assert.GreaterOrEqual(t, volContext.VolOfVol, 0.0)
	assert.False(t, math.IsNaN(volContext.VolOfVol))
}

func TestBuildVolContextScalesWithVolatility(t *testing.T) {
	quiet := make([]float64, 100)
	loud := make([]float64, 100)
	quietPrice, loudPrice := 100.0, 100.0
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		shock := rng.NormFloat64()
		quietPrice *= 1.0 + shock*0.005
		loudPrice *= 1.0 + shock*0.05
		quiet[i] = quietPrice
		loud[i] = loudPrice
	}

	quietContext, err := BuildVolContext(quiet, 20)
	require.NoError(t, err)
	loudContext, err := BuildVolContext(loud, 20)
	require.NoError(t, err)

	assert.Greater(t, loudContext.RealizedVol, quietContext.RealizedVol)
}
