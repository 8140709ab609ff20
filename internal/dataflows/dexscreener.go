package dataflows

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"signalforge/internal/models"
)

// Pairs below this liquidity are too thin to signal on.
const minPairLiquidityUSD = 50_000

// DexScreenerClient serves DEX top movers and a tertiary price feed for
// chain-address tokens that never reach centralized exchanges.
type DexScreenerClient struct {
	client *resty.Client
}

func NewDexScreenerClient(baseURL string) *DexScreenerClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("Accept", "application/json")
	return &DexScreenerClient{client: client}
}

func (c *DexScreenerClient) Name() string { return "dexscreener" }

type dexPair struct {
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type dexSearchResponse struct {
	Pairs []dexPair `json:"pairs"`
}

func (c *DexScreenerClient) search(ctx context.Context, query string) ([]dexPair, error) {
	var out dexSearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&out).
		Get("/latest/dex/search")
	if err != nil {
		return nil, fmt.Errorf("dexscreener search %q: %w", query, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dexscreener search %q: status %s", query, resp.Status())
	}
	return out.Pairs, nil
}

// GetTopMovers returns the liquid pairs with the largest 24h move.
func (c *DexScreenerClient) GetTopMovers(ctx context.Context) ([]models.MoverToken, error) {
	pairs, err := c.search(ctx, "USDC")
	if err != nil {
		return nil, err
	}

	liquid := pairs[:0]
	for _, p := range pairs {
		if p.Liquidity.USD >= minPairLiquidityUSD {
			liquid = append(liquid, p)
		}
	}
	sort.Slice(liquid, func(i, j int) bool {
		return liquid[i].PriceChange.H24 > liquid[j].PriceChange.H24
	})
	if len(liquid) > 10 {
		liquid = liquid[:10]
	}

	movers := make([]models.MoverToken, 0, len(liquid))
	for _, p := range liquid {
		price, _ := strconv.ParseFloat(p.PriceUSD, 64)
		movers = append(movers, models.MoverToken{
			Symbol:       strings.ToUpper(p.BaseToken.Symbol),
			Name:         p.BaseToken.Name,
			Chain:        p.ChainID,
			Address:      p.BaseToken.Address,
			PriceUSD:     price,
			Change24h:    p.PriceChange.H24,
			VolumeUSD:    p.Volume.H24,
			LiquidityUSD: p.Liquidity.USD,
		})
	}
	return movers, nil
}

// GetPrice resolves a symbol through pair search, preferring the deepest
// pool so thin listings cannot skew the quote.
func (c *DexScreenerClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	pairs, err := c.search(ctx, symbol)
	if err != nil {
		return 0, err
	}

	var best *dexPair
	for i := range pairs {
		p := &pairs[i]
		if !strings.EqualFold(p.BaseToken.Symbol, symbol) {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	if best == nil {
		return 0, fmt.Errorf("dexscreener has no pair for %s", symbol)
	}
	price, err := strconv.ParseFloat(best.PriceUSD, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("dexscreener price for %s is unusable: %q", symbol, best.PriceUSD)
	}
	return price, nil
}
