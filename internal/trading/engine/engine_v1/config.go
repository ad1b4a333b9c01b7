package engine_v1

import (
	"github.com/go-playground/validator/v10"
	backtest "github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/signal"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LiveEngineV1Config configures the live step. The indicator, signal,
// strategy and risk sections share their shape with the backtest config so
// one file can drive both.
type LiveEngineV1Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Capital of a fresh state when no snapshot exists" validate:"gt=0"`
	Symbol         string  `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol" validate:"required"`
	// SnapshotKey names the persisted state. Defaults to Symbol.
	SnapshotKey string `yaml:"snapshot_key" json:"snapshot_key" jsonschema:"title=Snapshot Key"`
	// Interval and HistoryBars tell the feed which bars to fetch for a step.
	Interval    string                   `yaml:"interval" json:"interval" jsonschema:"title=Bar Interval,default=1h" validate:"required"`
	HistoryBars int                      `yaml:"history_bars" json:"history_bars" jsonschema:"title=History Bars,default=200" validate:"gte=2"`
	Broker      commission_fee.Broker    `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model used for realized PnL" validate:"oneof=interactive_broker zero_commission percentage"`
	FeeRate     float64                  `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate" validate:"gte=0,lt=1"`
	Indicators  backtest.IndicatorConfig `yaml:"indicators" json:"indicators"`
	Signal      signal.Config            `yaml:"signal" json:"signal"`
	Strategy    strategy.Config          `yaml:"strategy" json:"strategy"`
	Risk        risk.Config              `yaml:"risk" json:"risk"`
}

// DefaultConfig mirrors the backtest defaults with an hourly interval and 200 bars of history.
func DefaultConfig() LiveEngineV1Config {
	defaults := backtest.EmptyConfig()

	return LiveEngineV1Config{
		InitialCapital: defaults.InitialCapital,
		Interval:       "1h",
		HistoryBars:    200,
		Broker:         defaults.Broker,
		FeeRate:        defaults.FeeRate,
		Indicators:     defaults.Indicators,
		Signal:         defaults.Signal,
		Strategy:       defaults.Strategy,
		Risk:           defaults.Risk,
	}
}

// UnmarshalYAML starts from DefaultConfig so omitted keys keep their defaults.
func (c *LiveEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type plain LiveEngineV1Config

	config := plain(DefaultConfig())
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = LiveEngineV1Config(config)

	if c.Strategy.Symbol == "" {
		c.Strategy.Symbol = c.Symbol
	}

	if c.SnapshotKey == "" {
		c.SnapshotKey = c.Symbol
	}

	return nil
}

// Validate checks every section.
func (c LiveEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid live configuration", err)
	}

	if err := c.Signal.Validate(); err != nil {
		return err
	}

	return c.Risk.Validate()
}
