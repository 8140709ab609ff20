package dataflows

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"signalforge/internal/models"
)

// BinanceClient is the primary exchange feed: live prices and OHLCV.
type BinanceClient struct {
	client  *binance.Client
	limiter *rate.Limiter
}

func NewBinanceClient(apiKey, secret string) *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient(apiKey, secret),
		// 10 req/s with a burst of 20 keeps well under exchange limits.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *BinanceClient) Name() string { return "binance" }

func (c *BinanceClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	prices, err := c.client.NewListPricesService().Symbol(usdtPair(symbol)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance returned no price for %s", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse binance price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

func (c *BinanceClient) GetOHLCV(ctx context.Context, symbol, interval string, lookback int) ([]models.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	klines, err := c.client.NewKlinesService().
		Symbol(usdtPair(symbol)).
		Interval(interval).
		Limit(lookback).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines for %s: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		open, err1 := decimal.NewFromString(k.Open)
		high, err2 := decimal.NewFromString(k.High)
		low, err3 := decimal.NewFromString(k.Low)
		closeP, err4 := decimal.NewFromString(k.Close)
		volume, err5 := decimal.NewFromString(k.Volume)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closeP,
			Volume:   volume,
		})
	}
	return candles, nil
}

func usdtPair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, "USDT") {
		return s
	}
	return s + "USDT"
}
