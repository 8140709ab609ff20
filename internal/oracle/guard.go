package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"signalforge/internal/models"
)

// Deviation ceilings between a proposed price and the reference quote.
// Market orders execute immediately so they must track the live price
// tightly; limit orders state a target price and tolerate more drift.
const (
	MaxDeviationMarketPct = 5.0
	MaxDeviationLimitPct  = 15.0
)

// PriceSource yields a live quote for a symbol. Sources are queried in
// fallback order; the first successful quote wins.
type PriceSource interface {
	Name() string
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// PriceVerdict is the oracle's judgement on one proposed price.
type PriceVerdict struct {
	Valid          bool    `json:"valid"`
	ReferencePrice float64 `json:"reference_price"`
	DeviationPct   float64 `json:"deviation_pct"`
	Provider       string  `json:"provider,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Guard cross-checks agent-proposed prices against independent providers.
type Guard struct {
	sources []PriceSource
	log     zerolog.Logger
}

func NewGuard(log zerolog.Logger, sources ...PriceSource) *Guard {
	return &Guard{sources: sources, log: log}
}

// ReferencePrice walks the fallback chain and returns the first quote, or
// 0 and false when no provider answers.
func (g *Guard) ReferencePrice(ctx context.Context, symbol string) (float64, string, bool) {
	for _, src := range g.sources {
		price, err := src.GetPrice(ctx, symbol)
		if err != nil || price <= 0 {
			g.log.Debug().Str("provider", src.Name()).Str("symbol", symbol).Err(err).Msg("price source unavailable")
			continue
		}
		return price, src.Name(), true
	}
	return 0, "", false
}

// ValidatePrice checks an agent-proposed price against the reference chain.
// Fails closed: with no reference price available the verdict is invalid,
// never trusting an unverifiable price.
func (g *Guard) ValidatePrice(ctx context.Context, symbol string, proposed float64, kind models.OrderKind) PriceVerdict {
	if proposed <= 0 {
		return PriceVerdict{Reason: "proposed price is not a positive number"}
	}

	reference, provider, ok := g.ReferencePrice(ctx, symbol)
	if !ok {
		return PriceVerdict{Reason: fmt.Sprintf("no reference price available for %s", symbol)}
	}

	deviation := math.Abs(proposed-reference) / reference * 100
	verdict := PriceVerdict{
		ReferencePrice: reference,
		DeviationPct:   deviation,
		Provider:       provider,
	}

	limit := MaxDeviationLimitPct
	if kind == models.OrderMarket {
		limit = MaxDeviationMarketPct
	}
	if deviation > limit {
		verdict.Reason = fmt.Sprintf(
			"proposed price %.6g deviates %.2f%% from %s reference %.6g (max %.0f%% for %s orders)",
			proposed, deviation, provider, reference, limit, kind)
		return verdict
	}

	verdict.Valid = true
	return verdict
}
