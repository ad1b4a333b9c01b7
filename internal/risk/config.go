package risk

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// Config holds the sizing, ladder and breaker settings of a Manager.
type Config struct {
	// RiskPerTrade is the fraction of capital risked on one position.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" jsonschema:"title=Risk Per Trade,default=0.02" validate:"gt=0,lte=1"`
	// DailyLossLimit is the fraction of the day's starting capital that trips the breaker.
	DailyLossLimit float64 `yaml:"daily_loss_limit" json:"daily_loss_limit" jsonschema:"title=Daily Loss Limit,default=0.05" validate:"gt=0,lte=1"`
	// DailyBreakerLossOnly counts only losses toward the breaker. When false,
	// a large gain trips it as well.
	DailyBreakerLossOnly   bool    `yaml:"daily_breaker_loss_only" json:"daily_breaker_loss_only" jsonschema:"title=Breaker Counts Losses Only,default=false"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions" json:"max_concurrent_positions" jsonschema:"title=Max Concurrent Positions,default=3" validate:"gte=1"`
	MaxNotionalFraction    float64 `yaml:"max_notional_fraction" json:"max_notional_fraction" jsonschema:"title=Max Notional Fraction,default=0.9" validate:"gt=0,lte=1"`
	TP1Multiplier          float64 `yaml:"tp1_multiplier" json:"tp1_multiplier" jsonschema:"title=TP1 Multiplier,default=1.5" validate:"gt=0"`
	TP2Multiplier          float64 `yaml:"tp2_multiplier" json:"tp2_multiplier" jsonschema:"title=TP2 Multiplier,default=2" validate:"gtfield=TP1Multiplier"`
	RunnerMultiplier       float64 `yaml:"runner_multiplier" json:"runner_multiplier" jsonschema:"title=Runner Multiplier,default=3" validate:"gtfield=TP2Multiplier"`
	TP1CloseFraction       float64 `yaml:"tp1_close_fraction" json:"tp1_close_fraction" jsonschema:"title=TP1 Close Fraction,default=0.5" validate:"gt=0,lt=1"`
	TP2CloseFraction       float64 `yaml:"tp2_close_fraction" json:"tp2_close_fraction" jsonschema:"title=TP2 Close Fraction,default=0.3" validate:"gt=0,lt=1"`
	// RecentBars is how many bars, ending at the entry bar, stop-loss models see.
	RecentBars int            `yaml:"recent_bars" json:"recent_bars" jsonschema:"title=Stop Loss History Window,default=50" validate:"gte=1"`
	StopLoss   StopLossConfig `yaml:"stop_loss" json:"stop_loss"`
}

// DefaultConfig returns 2% risk per trade, a 5% daily breaker, three
// concurrent positions and a 1.5/2/3 ladder with a 2% percentage stop.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:           0.02,
		DailyLossLimit:         0.05,
		MaxConcurrentPositions: 3,
		MaxNotionalFraction:    0.9,
		TP1Multiplier:          1.5,
		TP2Multiplier:          2.0,
		RunnerMultiplier:       3.0,
		TP1CloseFraction:       0.5,
		TP2CloseFraction:       0.3,
		RecentBars:             50,
		StopLoss:               DefaultStopLossConfig(StopLossTypePercentage),
	}
}

// Validate checks field ranges and the stop-loss model configuration.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk configuration", err)
	}

	model, err := NewStopLossModel(c.StopLoss)
	if err != nil {
		return err
	}

	if err := model.Validate(); err != nil {
		return err
	}

	// the model never sees more than RecentBars bars
	if model.Lookback() > c.RecentBars {
		return errors.Newf(errors.ErrCodeInvalidStopLoss,
			"%s stop loss needs %d bars but recent_bars is %d", model.Type(), model.Lookback(), c.RecentBars)
	}

	return nil
}

// Multipliers are the risk-distance multiples of the profit ladder.
type Multipliers struct {
	TP1    float64 `yaml:"tp1" json:"tp1"`
	TP2    float64 `yaml:"tp2" json:"tp2"`
	Runner float64 `yaml:"runner" json:"runner"`
}

func (c Config) multipliers() Multipliers {
	return Multipliers{TP1: c.TP1Multiplier, TP2: c.TP2Multiplier, Runner: c.RunnerMultiplier}
}
