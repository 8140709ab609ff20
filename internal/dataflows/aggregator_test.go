package dataflows

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalforge/internal/models"
)

type stubTrending struct{ err error }

func (s *stubTrending) Name() string { return "trending-api" }
func (s *stubTrending) GetTrending(context.Context) ([]models.TrendingToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.TrendingToken{{Symbol: "SOL", Name: "Solana", Rank: 1}}, nil
}

type stubMovers struct{ err error }

func (s *stubMovers) Name() string { return "dex-api" }
func (s *stubMovers) GetTopMovers(context.Context) ([]models.MoverToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.MoverToken{{Symbol: "WIF", Chain: "solana", Change24h: 31.2}}, nil
}

type stubGlobal struct{ err error }

func (s *stubGlobal) Name() string { return "global-api" }
func (s *stubGlobal) GetGlobal(context.Context) (*models.GlobalContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.GlobalContext{TotalMarketCapUSD: 2.4e12, BTCDominancePct: 52}, nil
}

type stubCandles struct {
	err    error
	closes []float64
}

func (s *stubCandles) Name() string { return "exchange" }
func (s *stubCandles) GetOHLCV(_ context.Context, _ string, _ string, _ int) ([]models.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	candles := make([]models.Candle, len(s.closes))
	base := time.Now().Add(-time.Duration(len(s.closes)) * time.Hour)
	for i, c := range s.closes {
		px := decimal.NewFromFloat(c)
		candles[i] = models.Candle{OpenTime: base.Add(time.Duration(i) * time.Hour), Open: px, High: px, Low: px, Close: px, Volume: decimal.NewFromInt(1)}
	}
	return candles, nil
}

type stubQuote struct {
	price float64
	err   error
}

func (s *stubQuote) Name() string { return "yahoo" }
func (s *stubQuote) GetQuote(string) (float64, error) {
	return s.price, s.err
}

func closesRange(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func TestCollectMergesAllProviders(t *testing.T) {
	a := NewAggregator(zerolog.Nop(),
		&stubTrending{}, &stubMovers{}, &stubGlobal{},
		&stubCandles{closes: closesRange(100, 60_000)},
		&stubQuote{price: 60_150},
		"BTC")

	snap := a.Collect(context.Background())

	require.False(t, snap.Empty())
	assert.Nil(t, snap.Failures)
	assert.Len(t, snap.Trending, 1)
	assert.Len(t, snap.Movers, 1)
	require.NotNil(t, snap.Global)

	require.NotNil(t, snap.Reference)
	assert.Equal(t, "BTC", snap.Reference.Symbol)
	assert.Equal(t, 60_099.0, snap.Reference.LastClose)
	assert.Equal(t, 60_150.0, snap.Reference.YahooQuote)
	// Monotonically rising closes: RSI pinned at 100, EMAs below the last close.
	assert.Equal(t, 100.0, snap.Reference.RSI14)
	assert.Greater(t, snap.Reference.EMA20, snap.Reference.EMA50)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollectIsolatesProviderFailures(t *testing.T) {
	a := NewAggregator(zerolog.Nop(),
		&stubTrending{err: fmt.Errorf("rate limited")},
		&stubMovers{}, &stubGlobal{},
		&stubCandles{closes: closesRange(100, 100)},
		nil,
		"BTC")

	snap := a.Collect(context.Background())

	assert.False(t, snap.Empty())
	assert.Empty(t, snap.Trending)
	assert.Len(t, snap.Movers, 1)
	require.Contains(t, snap.Failures, "trending-api")
	assert.Contains(t, snap.Failures["trending-api"], "rate limited")
}

func TestCollectWithEveryProviderDown(t *testing.T) {
	boom := fmt.Errorf("down")
	a := NewAggregator(zerolog.Nop(),
		&stubTrending{err: boom}, &stubMovers{err: boom}, &stubGlobal{err: boom},
		&stubCandles{err: boom}, nil, "BTC")

	snap := a.Collect(context.Background())

	assert.True(t, snap.Empty())
	assert.Len(t, snap.Failures, 4)
}

func TestCollectTreatsEmptyCandleHistoryAsFailure(t *testing.T) {
	a := NewAggregator(zerolog.Nop(),
		&stubTrending{}, &stubMovers{}, &stubGlobal{},
		&stubCandles{closes: nil}, nil, "BTC")

	snap := a.Collect(context.Background())

	assert.Nil(t, snap.Reference)
	require.Contains(t, snap.Failures, "exchange")
	assert.Contains(t, snap.Failures["exchange"], "no candles")
}

func TestYahooCrossCheckFailureIsNonFatal(t *testing.T) {
	a := NewAggregator(zerolog.Nop(),
		&stubTrending{}, &stubMovers{}, &stubGlobal{},
		&stubCandles{closes: closesRange(100, 100)},
		&stubQuote{err: fmt.Errorf("unavailable")},
		"BTC")

	snap := a.Collect(context.Background())

	require.NotNil(t, snap.Reference)
	assert.Zero(t, snap.Reference.YahooQuote)
	assert.Nil(t, snap.Failures)
}
