package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMAInsufficientData(t *testing.T) {
	assert.Zero(t, EMA(nil, 20))
	assert.Zero(t, EMA([]float64{1, 2, 3}, 20))
	assert.Zero(t, EMA([]float64{1, 2, 3}, 0))
}

func TestEMAOfConstantSeriesIsTheConstant(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 42
	}
	assert.InDelta(t, 42, EMA(series, 20), 1e-9)
}

func TestEMAExactPeriodEqualsSMA(t *testing.T) {
	// With exactly period values the EMA is just the seeding SMA.
	assert.InDelta(t, 2.5, EMA([]float64{1, 2, 3, 4}, 4), 1e-9)
}

func TestEMATracksRecentValues(t *testing.T) {
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = float64(i)
	}
	short := EMA(rising, 10)
	long := EMA(rising, 30)
	assert.Greater(t, short, long, "shorter period follows the trend more closely")
	assert.Less(t, short, rising[len(rising)-1])
}

func TestRSIInsufficientData(t *testing.T) {
	assert.Zero(t, RSI([]float64{1, 2, 3}, 14))
	assert.Zero(t, RSI(nil, 14))
}

func TestRSIExtremes(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(i + 1)
		falling[i] = float64(30 - i)
	}
	assert.Equal(t, 100.0, RSI(rising, 14), "all gains pins RSI at 100")
	assert.InDelta(t, 0.0, RSI(falling, 14), 1e-9, "all losses pins RSI at 0")
}

func TestRSIBalancedSeriesSitsAtMidpoint(t *testing.T) {
	// Alternating equal up and down moves keep gains and losses equal.
	series := make([]float64, 31)
	for i := range series {
		if i%2 == 0 {
			series[i] = 100
		} else {
			series[i] = 101
		}
	}
	rsi := RSI(series, 14)
	assert.InDelta(t, 50, rsi, 5)
}
