package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/indicator"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/signal"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mode selects the simulator.
type Mode string

const (
	// ModeLadder runs the risk manager with the TP1/TP2/runner ladder.
	ModeLadder Mode = "ladder"
	// ModeFast runs one long position at a time with a single stop and target.
	ModeFast Mode = "fast"
)

type IndicatorConfig struct {
	// Compute fills RSI and WaveTrend values missing from the feed.
	Compute          bool `yaml:"compute" json:"compute" jsonschema:"title=Compute Indicators,default=true"`
	indicator.Config `yaml:",inline"`
}

// FastConfig configures the single-position variant.
type FastConfig struct {
	StopLoss   float64 `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss Fraction,default=0.03" validate:"gt=0,lt=1"`
	TakeProfit float64 `yaml:"take_profit" json:"take_profit" jsonschema:"title=Take Profit Fraction,default=0.06" validate:"gt=0"`
	// MaxBarsInTrade closes the position after this many bars. Zero disables it.
	MaxBarsInTrade int `yaml:"max_bars_in_trade" json:"max_bars_in_trade" jsonschema:"title=Max Bars In Trade,default=100" validate:"gte=0"`
	// PositionFraction is the share of cash committed on entry.
	PositionFraction float64               `yaml:"position_fraction" json:"position_fraction" jsonschema:"title=Position Fraction,default=0.01" validate:"gt=0,lte=1"`
	Broker           commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker,default=percentage" validate:"oneof=interactive_broker zero_commission percentage"`
	FeeRate          float64               `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,default=0.0004" validate:"gte=0,lt=1"`
	ExitOnCrossDown  bool                  `yaml:"exit_on_cross_down" json:"exit_on_cross_down" jsonschema:"title=Exit On Oscillator Cross Down,default=true"`
}

type BacktestEngineV1Config struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the backtest,minimum=0" validate:"gt=0"`
	Symbol         string                     `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Used when the bar file has no symbol column"`
	Mode           Mode                       `yaml:"mode" json:"mode" jsonschema:"title=Mode,enum=ladder,enum=fast,default=ladder" validate:"oneof=ladder fast"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	// Broker prices closing fills in ladder mode.
	Broker     commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model for ladder mode" validate:"oneof=interactive_broker zero_commission percentage"`
	FeeRate    float64               `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Rate of the percentage broker" validate:"gte=0,lt=1"`
	Indicators IndicatorConfig       `yaml:"indicators" json:"indicators"`
	Signal     signal.Config         `yaml:"signal" json:"signal"`
	Strategy   strategy.Config       `yaml:"strategy" json:"strategy"`
	Risk       risk.Config           `yaml:"risk" json:"risk"`
	Fast       FastConfig            `yaml:"fast" json:"fast"`
}

// UnmarshalYAML starts from EmptyConfig so omitted keys keep their defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	defaults := EmptyConfig()

	config := struct {
		InitialCapital float64               `yaml:"initial_capital"`
		Symbol         string                `yaml:"symbol"`
		Mode           Mode                  `yaml:"mode"`
		StartTime      *time.Time            `yaml:"start_time"`
		EndTime        *time.Time            `yaml:"end_time"`
		Broker         commission_fee.Broker `yaml:"broker"`
		FeeRate        float64               `yaml:"fee_rate"`
		Indicators     IndicatorConfig       `yaml:"indicators"`
		Signal         signal.Config         `yaml:"signal"`
		Strategy       strategy.Config       `yaml:"strategy"`
		Risk           risk.Config           `yaml:"risk"`
		Fast           FastConfig            `yaml:"fast"`
	}{
		InitialCapital: defaults.InitialCapital,
		Mode:           defaults.Mode,
		Broker:         defaults.Broker,
		FeeRate:        defaults.FeeRate,
		Indicators:     defaults.Indicators,
		Signal:         defaults.Signal,
		Strategy:       defaults.Strategy,
		Risk:           defaults.Risk,
		Fast:           defaults.Fast,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.Symbol = config.Symbol
	c.Mode = config.Mode
	c.Broker = config.Broker
	c.FeeRate = config.FeeRate
	c.Indicators = config.Indicators
	c.Signal = config.Signal
	c.Strategy = config.Strategy
	c.Risk = config.Risk
	c.Fast = config.Fast
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	if c.Strategy.Symbol == "" {
		c.Strategy.Symbol = c.Symbol
	}

	return nil
}

// Validate checks every section and the time range.
func (c BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest configuration", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeBacktestConfigError, "end_time is before start_time")
	}

	if err := c.Signal.Validate(); err != nil {
		return err
	}

	if c.Mode == ModeLadder {
		return c.Risk.Validate()
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if strings.Contains(t.String(), "risk.StopLossType") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{
						risk.StopLossTypePercentage,
						risk.StopLossTypeATR,
						risk.StopLossTypeSupportResistance,
						risk.StopLossTypeVolatility,
					},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time, mode Mode) BacktestEngineV1Config {
	config := EmptyConfig()
	config.InitialCapital = 10000
	config.Mode = mode
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 10000,
		Mode:           ModeLadder,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
		Broker:         commission_fee.BrokerZero,
		FeeRate:        commission_fee.DefaultPercentageRate,
		Indicators: IndicatorConfig{
			Compute: true,
			Config:  indicator.DefaultConfig(),
		},
		Signal:   signal.DefaultConfig(),
		Strategy: strategy.DefaultConfig(),
		Risk:     risk.DefaultConfig(),
		Fast:     DefaultFastConfig(),
	}
}

// DefaultFastConfig returns a 3% stop, 6% target, 100 bar limit and a 0.04% fee.
func DefaultFastConfig() FastConfig {
	return FastConfig{
		StopLoss:         0.03,
		TakeProfit:       0.06,
		MaxBarsInTrade:   100,
		PositionFraction: 0.01,
		Broker:           commission_fee.BrokerPercentage,
		FeeRate:          commission_fee.DefaultPercentageRate,
		ExitOnCrossDown:  true,
	}
}
