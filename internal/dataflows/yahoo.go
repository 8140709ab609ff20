package dataflows

import (
	"fmt"
	"strings"

	"github.com/piquette/finance-go/quote"
)

// YahooClient cross-checks the reference asset against Yahoo Finance.
type YahooClient struct{}

func NewYahooClient() *YahooClient { return &YahooClient{} }

func (c *YahooClient) Name() string { return "yahoo" }

// GetQuote returns the regular-market price for a crypto symbol via the
// Yahoo "-USD" ticker convention.
func (c *YahooClient) GetQuote(symbol string) (float64, error) {
	ticker := strings.ToUpper(strings.TrimSpace(symbol)) + "-USD"
	q, err := quote.Get(ticker)
	if err != nil {
		return 0, fmt.Errorf("yahoo quote for %s: %w", ticker, err)
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("yahoo returned no price for %s", ticker)
	}
	return q.RegularMarketPrice, nil
}
