package tradingprovider

import (
	"fmt"

	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/trading"
	"github.com/rxtech-lab/argo-ladder/pkg/utils"
)

type ProviderType string

const (
	ProviderPaper        ProviderType = "paper"
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
)

type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPaper: {
		Name:           string(ProviderPaper),
		DisplayName:    "Paper",
		Description:    "Local simulated fills at the decision price",
		IsPaperTrading: true,
	},
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for paper trading cryptocurrency without real funds",
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds cryptocurrency trading",
		IsPaperTrading: false,
	},
}

func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	return providers
}

// GetProviderInfo returns metadata for a specific trading provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, fmt.Errorf("unsupported trading provider: %s", providerName)
	}

	return info, nil
}

// GetProviderConfigSchema returns the JSON schema for a provider's configuration.
func GetProviderConfigSchema(providerName string) (string, error) {
	switch ProviderType(providerName) {
	case ProviderPaper:
		return utils.GetSchemaFromConfig(PaperProviderConfig{})
	case ProviderBinancePaper, ProviderBinanceLive:
		return utils.GetSchemaFromConfig(BinanceProviderConfig{})
	default:
		return "", fmt.Errorf("unsupported trading provider: %s", providerName)
	}
}

// ParseProviderConfig parses a JSON configuration string for the given provider.
func ParseProviderConfig(providerName string, jsonConfig string) (any, error) {
	switch ProviderType(providerName) {
	case ProviderPaper:
		return parseProviderConfig[PaperProviderConfig]("paper", jsonConfig)
	case ProviderBinancePaper, ProviderBinanceLive:
		return parseBinanceConfig(jsonConfig)
	default:
		return nil, fmt.Errorf("unsupported trading provider: %s", providerName)
	}
}

// NewGateway creates an order gateway for the provider type.
func NewGateway(providerType ProviderType, config any, log *logger.Logger) (trading.Gateway, error) {
	switch providerType {
	case ProviderPaper:
		cfg, ok := config.(*PaperProviderConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for paper provider")
		}

		fees := commission_fee.GetCommissionFeeHandler(cfg.Broker, cfg.FeeRate)

		return trading.NewPaperGateway(fees, cfg.Slippage, cfg.Cash), nil

	case ProviderBinancePaper:
		cfg, ok := config.(*BinanceProviderConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for binance paper provider")
		}

		testnet := *cfg
		testnet.UseTestnet = true

		return newGatewayFromBinanceConfig(testnet, log)

	case ProviderBinanceLive:
		cfg, ok := config.(*BinanceProviderConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for binance live provider")
		}

		live := *cfg
		live.UseTestnet = false

		return newGatewayFromBinanceConfig(live, log)

	default:
		return nil, fmt.Errorf("unsupported trading provider: %s", providerType)
	}
}

func newGatewayFromBinanceConfig(config BinanceProviderConfig, log *logger.Logger) (trading.Gateway, error) {
	gateway, err := NewBinanceGateway(config, log)
	if err != nil {
		return nil, err
	}

	return gateway, nil
}
