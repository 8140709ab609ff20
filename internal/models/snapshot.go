package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar.
type Candle struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// TrendingToken is one entry from a trending/search provider.
type TrendingToken struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Rank       int     `json:"rank"`
	PriceUSD   float64 `json:"price_usd"`
	Change24h  float64 `json:"change_24h"`
	MarketCap  float64 `json:"market_cap"`
	CoinID     string  `json:"coin_id,omitempty"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	ScoreDelta float64 `json:"score_delta,omitempty"`
}

// MoverToken is one entry from a gainers/top-movers provider. DEX-listed
// tokens carry a chain and pair address in addition to the symbol.
type MoverToken struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Chain        string  `json:"chain,omitempty"`
	Address      string  `json:"address,omitempty"`
	PriceUSD     float64 `json:"price_usd"`
	Change24h    float64 `json:"change_24h"`
	VolumeUSD    float64 `json:"volume_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`
}

// GlobalContext summarizes overall market conditions.
type GlobalContext struct {
	TotalMarketCapUSD float64 `json:"total_market_cap_usd"`
	TotalVolumeUSD    float64 `json:"total_volume_usd"`
	BTCDominancePct   float64 `json:"btc_dominance_pct"`
	MarketCapChange24 float64 `json:"market_cap_change_24h"`
}

// IndicatorBundle is the composite technical picture for the reference
// asset. Nil on the snapshot when the reference feeds were unavailable.
type IndicatorBundle struct {
	Symbol     string  `json:"symbol"`
	LastClose  float64 `json:"last_close"`
	RSI14      float64 `json:"rsi_14"`
	EMA20      float64 `json:"ema_20"`
	EMA50      float64 `json:"ema_50"`
	YahooQuote float64 `json:"yahoo_quote,omitempty"`
	Interval   string  `json:"interval"`
}

// MarketSnapshot is the consolidated market picture built once at the start
// of a pipeline run. It is never mutated after collection; failed providers
// leave their section empty and a note in Failures.
type MarketSnapshot struct {
	CollectedAt time.Time         `json:"collected_at"`
	Trending    []TrendingToken   `json:"trending"`
	Movers      []MoverToken      `json:"movers"`
	Global      *GlobalContext    `json:"global,omitempty"`
	Reference   *IndicatorBundle  `json:"reference,omitempty"`
	Failures    map[string]string `json:"failures,omitempty"`
}

// Empty reports whether no provider contributed any data.
func (s *MarketSnapshot) Empty() bool {
	return len(s.Trending) == 0 && len(s.Movers) == 0 && s.Global == nil && s.Reference == nil
}
