package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/trading"
	tradingprovider "github.com/rxtech-lab/argo-ladder/internal/trading/provider"
)

// Environment variables read when no provider config file is given.
const (
	envBinanceAPIKey    = "BINANCE_API_KEY"
	envBinanceSecretKey = "BINANCE_SECRET_KEY"
	envRedisPassword    = "REDIS_PASSWORD"
)

// providerConfigJSON returns the provider configuration as JSON. A config file
// wins; otherwise paper starts with initialCapital and Binance reads its keys
// from the environment.
func providerConfigJSON(provider tradingprovider.ProviderType, path string, initialCapital float64) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read provider config: %w", err)
		}

		return string(data), nil
	}

	var config any

	switch provider {
	case tradingprovider.ProviderPaper:
		config = tradingprovider.PaperProviderConfig{Cash: initialCapital}
	case tradingprovider.ProviderBinancePaper, tradingprovider.ProviderBinanceLive:
		config = tradingprovider.BinanceProviderConfig{
			ApiKey:    os.Getenv(envBinanceAPIKey),
			SecretKey: os.Getenv(envBinanceSecretKey),
		}
	default:
		return "", fmt.Errorf("unsupported trading provider: %s", provider)
	}

	data, err := json.Marshal(config)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// barFeedConfig picks the Binance endpoint the bars come from. Paper trading
// reads public mainnet klines; the testnet provider reads testnet klines.
func barFeedConfig(provider tradingprovider.ProviderType, parsed any) tradingprovider.BinanceProviderConfig {
	var config tradingprovider.BinanceProviderConfig
	if cfg, ok := parsed.(*tradingprovider.BinanceProviderConfig); ok {
		config = *cfg
	}

	config.UseTestnet = provider == tradingprovider.ProviderBinancePaper

	return config
}

// snapshotStore returns a Redis store when redisAddr is set and a file store otherwise.
func snapshotStore(ctx context.Context, redisAddr string, redisDB int, dir string) (risk.SnapshotStore, func() error, error) {
	if redisAddr == "" {
		return risk.NewFileSnapshotStore(dir), func() error { return nil }, nil
	}

	store, err := risk.NewRedisSnapshotStore(ctx, risk.RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv(envRedisPassword),
		DB:       redisDB,
	})
	if err != nil {
		return nil, nil, err
	}

	return store, store.Close, nil
}

// paperState reports the paper balance after a step so fills can be checked by hand.
func paperState(gateway trading.Gateway) (float64, int, bool) {
	paper, ok := gateway.(*trading.PaperGateway)
	if !ok {
		return 0, 0, false
	}

	return paper.Cash(), len(paper.Fills()), true
}
