package dataflows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signalforge/internal/indicator"
	"signalforge/internal/models"
)

// Narrow source contracts so the aggregator (and tests) never depend on
// concrete providers.
type (
	TrendingSource interface {
		Name() string
		GetTrending(ctx context.Context) ([]models.TrendingToken, error)
	}
	MoversSource interface {
		Name() string
		GetTopMovers(ctx context.Context) ([]models.MoverToken, error)
	}
	GlobalSource interface {
		Name() string
		GetGlobal(ctx context.Context) (*models.GlobalContext, error)
	}
	CandleSource interface {
		Name() string
		GetOHLCV(ctx context.Context, symbol, interval string, lookback int) ([]models.Candle, error)
	}
	QuoteSource interface {
		Name() string
		GetQuote(symbol string) (float64, error)
	}
)

const (
	providerTimeout   = 15 * time.Second
	referenceInterval = "1h"
	referenceLookback = 100
)

// Aggregator fans out to every provider concurrently and joins the results
// into one immutable snapshot. A failed provider leaves its section empty
// and a note in Failures; no error crosses this boundary and nothing is
// retried here, since a stale section beats a blocked run.
type Aggregator struct {
	trending  TrendingSource
	movers    MoversSource
	global    GlobalSource
	candles   CandleSource
	quotes    QuoteSource // optional cross-check, may be nil
	reference string
	log       zerolog.Logger
}

func NewAggregator(log zerolog.Logger, trending TrendingSource, movers MoversSource, global GlobalSource, candles CandleSource, quotes QuoteSource, referenceSymbol string) *Aggregator {
	return &Aggregator{
		trending:  trending,
		movers:    movers,
		global:    global,
		candles:   candles,
		quotes:    quotes,
		reference: referenceSymbol,
		log:       log,
	}
}

func (a *Aggregator) Collect(ctx context.Context) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		CollectedAt: time.Now().UTC(),
		Failures:    make(map[string]string),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fail := func(provider string, err error) {
		a.log.Warn().Str("provider", provider).Err(err).Msg("provider failed, continuing without it")
		mu.Lock()
		snap.Failures[provider] = err.Error()
		mu.Unlock()
	}

	wg.Add(4)

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()
		trending, err := a.trending.GetTrending(cctx)
		if err != nil {
			fail(a.trending.Name(), err)
			return
		}
		snap.Trending = trending
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()
		movers, err := a.movers.GetTopMovers(cctx)
		if err != nil {
			fail(a.movers.Name(), err)
			return
		}
		snap.Movers = movers
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()
		global, err := a.global.GetGlobal(cctx)
		if err != nil {
			fail(a.global.Name(), err)
			return
		}
		snap.Global = global
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, providerTimeout)
		defer cancel()
		bundle, err := a.collectReference(cctx)
		if err != nil {
			fail(a.candles.Name(), err)
			return
		}
		snap.Reference = bundle
	}()

	wg.Wait()
	if len(snap.Failures) == 0 {
		snap.Failures = nil
	}
	return snap
}

// collectReference builds the technical-indicator bundle for the reference
// asset from exchange OHLCV, with an optional Yahoo cross-check quote.
func (a *Aggregator) collectReference(ctx context.Context) (*models.IndicatorBundle, error) {
	candles, err := a.candles.GetOHLCV(ctx, a.reference, referenceInterval, referenceLookback)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", a.reference)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	bundle := &models.IndicatorBundle{
		Symbol:    a.reference,
		LastClose: closes[len(closes)-1],
		RSI14:     indicator.RSI(closes, 14),
		EMA20:     indicator.EMA(closes, 20),
		EMA50:     indicator.EMA(closes, 50),
		Interval:  referenceInterval,
	}

	if a.quotes != nil {
		if price, err := a.quotes.GetQuote(a.reference); err == nil {
			bundle.YahooQuote = price
		} else {
			a.log.Debug().Err(err).Msg("yahoo cross-check unavailable")
		}
	}
	return bundle, nil
}
