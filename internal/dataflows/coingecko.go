package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"signalforge/internal/models"
)

// CoinGeckoClient serves trending tokens, global market context and a
// secondary price feed.
type CoinGeckoClient struct {
	client *resty.Client
}

func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("Accept", "application/json")
	return &CoinGeckoClient{client: client}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Symbol        string `json:"symbol"`
			Name          string `json:"name"`
			MarketCapRank int    `json:"market_cap_rank"`
			Thumb         string `json:"thumb"`
			Data          struct {
				Price             float64            `json:"price"`
				PriceChangePct24h map[string]float64 `json:"price_change_percentage_24h"`
				MarketCap         string             `json:"market_cap"`
			} `json:"data"`
		} `json:"item"`
	} `json:"coins"`
}

func (c *CoinGeckoClient) GetTrending(ctx context.Context) ([]models.TrendingToken, error) {
	var out trendingResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get("/search/trending")
	if err != nil {
		return nil, fmt.Errorf("coingecko trending: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko trending: status %s", resp.Status())
	}

	tokens := make([]models.TrendingToken, 0, len(out.Coins))
	for i, coin := range out.Coins {
		item := coin.Item
		tokens = append(tokens, models.TrendingToken{
			Symbol:    strings.ToUpper(item.Symbol),
			Name:      item.Name,
			Rank:      i + 1,
			PriceUSD:  item.Data.Price,
			Change24h: item.Data.PriceChangePct24h["usd"],
			CoinID:    item.ID,
			Thumbnail: item.Thumb,
		})
	}
	return tokens, nil
}

type globalResponse struct {
	Data struct {
		TotalMarketCap      map[string]float64 `json:"total_market_cap"`
		TotalVolume         map[string]float64 `json:"total_volume"`
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		MarketCapChange24h  float64            `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

func (c *CoinGeckoClient) GetGlobal(ctx context.Context) (*models.GlobalContext, error) {
	var out globalResponse
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get("/global")
	if err != nil {
		return nil, fmt.Errorf("coingecko global: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko global: status %s", resp.Status())
	}
	return &models.GlobalContext{
		TotalMarketCapUSD: out.Data.TotalMarketCap["usd"],
		TotalVolumeUSD:    out.Data.TotalVolume["usd"],
		BTCDominancePct:   out.Data.MarketCapPercentage["btc"],
		MarketCapChange24: out.Data.MarketCapChange24h,
	}, nil
}

// coinIDs maps major symbols to CoinGecko ids. Anything not listed falls
// back to the lowercased symbol, which matches for many smaller listings.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"AVAX": "avalanche-2",
	"LINK": "chainlink",
	"DOT":  "polkadot",
}

func (c *CoinGeckoClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		id = strings.ToLower(symbol)
	}

	var out map[string]map[string]float64
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", id).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&out).
		Get("/simple/price")
	if err != nil {
		return 0, fmt.Errorf("coingecko price for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("coingecko price for %s: status %s", symbol, resp.Status())
	}
	price := out[id]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("coingecko returned no usd price for %s", symbol)
	}
	return price, nil
}
