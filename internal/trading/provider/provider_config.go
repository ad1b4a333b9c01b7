package tradingprovider

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// DefaultQuoteAsset is the asset opening buys are paid with.
const DefaultQuoteAsset = "USDT"

var validate = validator.New()

// BinanceProviderConfig configures the Binance gateway and bar feed. The feed
// only reads BaseURL and UseTestnet.
type BinanceProviderConfig struct {
	ApiKey           string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey        string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	BaseURL          string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Overrides the REST endpoint"`
	UseTestnet       bool   `json:"useTestnet,omitempty" yaml:"use_testnet" jsonschema:"title=Use Testnet,description=Route requests to the Binance spot testnet"`
	QuoteAsset       string `json:"quoteAsset,omitempty" yaml:"quote_asset" jsonschema:"title=Quote Asset,description=Asset used to pay for buys,default=USDT"`
	DecimalPrecision int    `json:"decimalPrecision,omitempty" yaml:"decimal_precision" jsonschema:"title=Decimal Precision,description=Quantity precision,default=8" validate:"gte=0,lte=16"`
}

func (c *BinanceProviderConfig) Validate() error {
	return validateProviderConfig("binance", c)
}

// PaperProviderConfig configures the local paper gateway.
type PaperProviderConfig struct {
	Broker   commission_fee.Broker `json:"broker" yaml:"broker" jsonschema:"title=Broker,description=Commission model,default=zero_commission"`
	FeeRate  float64               `json:"feeRate,omitempty" yaml:"fee_rate" jsonschema:"title=Fee Rate,description=Rate for the percentage broker" validate:"gte=0"`
	Slippage float64               `json:"slippage,omitempty" yaml:"slippage" jsonschema:"title=Slippage,description=Fraction of price lost on every fill" validate:"gte=0,lt=1"`
	Cash     float64               `json:"cash" yaml:"cash" jsonschema:"title=Cash,description=Starting paper balance" validate:"gte=0"`
}

func (c *PaperProviderConfig) Validate() error {
	return validateProviderConfig("paper", c)
}

func validateProviderConfig(provider string, config any) error {
	if err := validate.Struct(config); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid %s provider config", provider)
	}

	return nil
}

// parseProviderConfig decodes and validates a JSON provider config.
func parseProviderConfig[T any, PT interface {
	*T
	Validate() error
}](provider string, jsonConfig string) (PT, error) {
	config := PT(new(T))
	if err := json.Unmarshal([]byte(jsonConfig), config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to parse %s config", provider)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func parseBinanceConfig(jsonConfig string) (*BinanceProviderConfig, error) {
	return parseProviderConfig[BinanceProviderConfig]("binance", jsonConfig)
}
