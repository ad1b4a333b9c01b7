package main

import (
	"fmt"

	tradingprovider "github.com/rxtech-lab/argo-ladder/internal/trading/provider"
	"github.com/rxtech-lab/argo-ladder/pkg/marketdata"
)

type MarketProvider = string

const (
	MarketProviderBinance        MarketProvider = "binance"
	MarketProviderBinanceTestnet MarketProvider = "binance-testnet"
)

// newFetcher returns the bar source for provider. Public kline endpoints
// need no credentials.
func newFetcher(provider MarketProvider) (marketdata.RangeFetcher, error) {
	switch provider {
	case MarketProviderBinance:
		return tradingprovider.NewBinanceBarFeed(tradingprovider.BinanceProviderConfig{}), nil
	case MarketProviderBinanceTestnet:
		return tradingprovider.NewBinanceBarFeed(tradingprovider.BinanceProviderConfig{UseTestnet: true}), nil
	default:
		return nil, fmt.Errorf("unsupported market provider: %s", provider)
	}
}
