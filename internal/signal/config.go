package signal

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// SourceType selects a signal source implementation.
type SourceType string

const (
	SourceTypePriority  SourceType = "priority"
	SourceTypeWeighted  SourceType = "weighted"
	SourceTypeConsensus SourceType = "consensus"
)

// MaskMode controls how a firing tier suppresses lower tiers.
type MaskMode string

const (
	// MaskModeDirection suppresses lower tiers only in the direction that fired.
	MaskModeDirection MaskMode = "direction"
	// MaskModeAny suppresses lower tiers in both directions whenever a higher
	// tier fired in either direction.
	MaskModeAny MaskMode = "any"
)

type Config struct {
	Source           SourceType      `yaml:"source" json:"source" jsonschema:"title=Signal Source,enum=priority,enum=weighted,enum=consensus,default=priority" validate:"omitempty,oneof=priority weighted consensus"`
	RSIBuyThreshold  float64         `yaml:"rsi_buy_threshold" json:"rsi_buy_threshold" jsonschema:"title=RSI Buy Threshold,default=53" validate:"gte=0,lte=100"`
	RSISellThreshold float64         `yaml:"rsi_sell_threshold" json:"rsi_sell_threshold" jsonschema:"title=RSI Sell Threshold,default=47" validate:"gte=0,lte=100"`
	MaskMode         MaskMode        `yaml:"mask_mode" json:"mask_mode" jsonschema:"title=Tier Mask Mode,enum=direction,enum=any,default=direction" validate:"omitempty,oneof=direction any"`
	ShowIntermediate bool            `yaml:"show_intermediate" json:"show_intermediate" jsonschema:"title=Keep Tier Series"`
	Weighted         WeightedConfig  `yaml:"weighted" json:"weighted"`
	Consensus        ConsensusConfig `yaml:"consensus" json:"consensus"`
}

type WeightedConfig struct {
	AlertWeight    float64 `yaml:"alert_weight" json:"alert_weight" jsonschema:"default=0.4" validate:"gte=0,lte=1"`
	RSIWeight      float64 `yaml:"rsi_weight" json:"rsi_weight" jsonschema:"default=0.4" validate:"gte=0,lte=1"`
	CrossWeight    float64 `yaml:"cross_weight" json:"cross_weight" jsonschema:"default=0.2" validate:"gte=0,lte=1"`
	EntryThreshold float64 `yaml:"entry_threshold" json:"entry_threshold" jsonschema:"default=0.6" validate:"gt=0,lte=1"`
}

type ConsensusConfig struct {
	Window        int     `yaml:"window" json:"window" jsonschema:"default=1" validate:"gte=0"`
	Oversold      float64 `yaml:"oversold" json:"oversold" jsonschema:"default=30" validate:"gte=0,lte=100"`
	Overbought    float64 `yaml:"overbought" json:"overbought" jsonschema:"default=70" validate:"gte=0,lte=100"`
	RequireAlert  bool    `yaml:"require_alert" json:"require_alert" jsonschema:"default=true"`
	EnableRSIGate bool    `yaml:"enable_rsi_gate" json:"enable_rsi_gate" jsonschema:"default=true"`
}

// DefaultConfig returns the prioritized source with thresholds 53/47.
func DefaultConfig() Config {
	return Config{
		Source:           SourceTypePriority,
		RSIBuyThreshold:  53,
		RSISellThreshold: 47,
		MaskMode:         MaskModeDirection,
		Weighted: WeightedConfig{
			AlertWeight:    0.4,
			RSIWeight:      0.4,
			CrossWeight:    0.2,
			EntryThreshold: 0.6,
		},
		Consensus: ConsensusConfig{
			Window:        1,
			Oversold:      30,
			Overbought:    70,
			RequireAlert:  true,
			EnableRSIGate: true,
		},
	}
}

// Validate checks ranges and, for the weighted source, that weights sum to 1.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid signal configuration", err)
	}

	if c.Source == SourceTypeWeighted {
		sum := c.Weighted.AlertWeight + c.Weighted.RSIWeight + c.Weighted.CrossWeight
		if math.Abs(sum-1) > 0.001 {
			return errors.Newf(errors.ErrCodeInvalidWeights, "signal weights must sum to 1, got %.4f", sum)
		}
	}

	return nil
}
