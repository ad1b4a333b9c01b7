package risk

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-ladder/internal/indicator"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

type StopLossType string

const (
	StopLossTypePercentage        StopLossType = "percentage"
	StopLossTypeATR               StopLossType = "atr"
	StopLossTypeSupportResistance StopLossType = "support_resistance"
	StopLossTypeVolatility        StopLossType = "volatility"
)

// Stops never sit further than this fraction of entry away from it.
const (
	minStopFraction = 0.5
	maxStopFraction = 1.5
)

type StopLossConfig struct {
	Type StopLossType `yaml:"type" json:"type" jsonschema:"title=Stop Loss Model,enum=percentage,enum=atr,enum=support_resistance,enum=volatility,default=percentage" validate:"required,oneof=percentage atr support_resistance volatility"`
	// Value is a percentage for percentage and support_resistance, a
	// multiplier for atr and volatility.
	Value    float64 `yaml:"value" json:"value" jsonschema:"title=Stop Loss Value"`
	Lookback int     `yaml:"lookback" json:"lookback" jsonschema:"title=Lookback Bars" validate:"gte=0"`
}

// StopLossRange is the accepted value range and defaults of a model.
type StopLossRange struct {
	Min             float64
	Max             float64
	Default         float64
	DefaultLookback int
}

var stopLossRanges = map[StopLossType]StopLossRange{
	StopLossTypePercentage:        {Min: 0.005, Max: 0.10, Default: 0.02},
	StopLossTypeATR:               {Min: 0.5, Max: 5.0, Default: 2.0, DefaultLookback: 14},
	StopLossTypeSupportResistance: {Min: 0.01, Max: 0.05, Default: 0.02, DefaultLookback: 20},
	StopLossTypeVolatility:        {Min: 1.0, Max: 3.0, Default: 2.0, DefaultLookback: 20},
}

// RangeFor returns the declared range of a model type.
func RangeFor(t StopLossType) (StopLossRange, bool) {
	r, ok := stopLossRanges[t]

	return r, ok
}

// DefaultStopLossConfig returns the default value and lookback for t.
func DefaultStopLossConfig(t StopLossType) StopLossConfig {
	r := stopLossRanges[t]

	return StopLossConfig{Type: t, Value: r.Default, Lookback: r.DefaultLookback}
}

// StopLossModel computes a protective stop from the entry price and the bars
// leading up to it.
type StopLossModel interface {
	Type() StopLossType
	// Validate checks the model value against its declared range.
	Validate() error
	// Lookback is the number of bars Compute needs.
	Lookback() int
	Compute(entryPrice float64, side types.Side, recent []types.Bar) (float64, error)
}

// NewStopLossModel builds the model selected by cfg. A zero value or lookback
// takes the model default.
func NewStopLossModel(cfg StopLossConfig) (StopLossModel, error) {
	r, ok := stopLossRanges[cfg.Type]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidStopLoss, "unknown stop loss type: %q", cfg.Type)
	}

	value := cfg.Value
	if value == 0 {
		value = r.Default
	}

	lookback := cfg.Lookback
	if lookback == 0 {
		lookback = r.DefaultLookback
	}

	base := bounded{kind: cfg.Type, value: value, rng: r}

	switch cfg.Type {
	case StopLossTypeATR:
		return &ATRStopLoss{bounded: base, lookback: lookback}, nil
	case StopLossTypeSupportResistance:
		return &SupportResistanceStopLoss{bounded: base, lookback: lookback}, nil
	case StopLossTypeVolatility:
		return &VolatilityStopLoss{bounded: base, lookback: lookback}, nil
	default:
		return &PercentageStopLoss{bounded: base}, nil
	}
}

type bounded struct {
	kind  StopLossType
	value float64
	rng   StopLossRange
}

func (b bounded) Type() StopLossType {
	return b.kind
}

func (b bounded) Validate() error {
	if math.IsNaN(b.value) || b.value < b.rng.Min || b.value > b.rng.Max {
		return errors.Newf(errors.ErrCodeInvalidStopLoss,
			"%s stop loss value %.4f outside [%.4f, %.4f]", b.kind, b.value, b.rng.Min, b.rng.Max)
	}

	return nil
}

// PercentageStopLoss places the stop a fixed fraction away from entry.
type PercentageStopLoss struct {
	bounded
}

func (p *PercentageStopLoss) Lookback() int {
	return 0
}

func (p *PercentageStopLoss) Compute(entryPrice float64, side types.Side, _ []types.Bar) (float64, error) {
	return finalize(entryPrice, side, entryPrice*(1-side.Sign()*p.value))
}

// ATRStopLoss places the stop a multiple of the Wilder average true range away.
type ATRStopLoss struct {
	bounded
	lookback int
}

func (a *ATRStopLoss) Lookback() int {
	return a.lookback
}

func (a *ATRStopLoss) Compute(entryPrice float64, side types.Side, recent []types.Bar) (float64, error) {
	if len(recent) < a.lookback {
		return 0, insufficient(a.kind, a.lookback, recent)
	}

	atr := indicator.ATR(indicator.Highs(recent), indicator.Lows(recent), indicator.Closes(recent), a.lookback)

	current, ok := indicator.LastDefined(atr)
	if !ok {
		return 0, insufficient(a.kind, a.lookback, recent)
	}

	return finalize(entryPrice, side, entryPrice-side.Sign()*current*a.value)
}

// SupportResistanceStopLoss anchors the stop below the recent support (long)
// or above the recent resistance (short), offset by a distance percentage.
// Levels are the min/max of the last complete window of Lookback bars ending
// at the entry bar. That equals the latest fully populated centered window,
// so no bar after entry is read.
type SupportResistanceStopLoss struct {
	bounded
	lookback int
}

func (s *SupportResistanceStopLoss) Lookback() int {
	return s.lookback
}

func (s *SupportResistanceStopLoss) Compute(entryPrice float64, side types.Side, recent []types.Bar) (float64, error) {
	if len(recent) < s.lookback {
		return 0, insufficient(s.kind, s.lookback, recent)
	}

	if side == types.SideLong {
		support, _ := indicator.LastDefined(indicator.RollingMin(indicator.Lows(recent), s.lookback))

		return finalize(entryPrice, side, support*(1-s.value))
	}

	resistance, _ := indicator.LastDefined(indicator.RollingMax(indicator.Highs(recent), s.lookback))

	return finalize(entryPrice, side, resistance*(1+s.value))
}

// VolatilityStopLoss uses the sample deviation of close-to-close returns
// scaled by the last close and a multiplier as the stop distance.
type VolatilityStopLoss struct {
	bounded
	lookback int
}

func (v *VolatilityStopLoss) Lookback() int {
	return v.lookback + 1
}

func (v *VolatilityStopLoss) Compute(entryPrice float64, side types.Side, recent []types.Bar) (float64, error) {
	if len(recent) < v.Lookback() {
		return 0, insufficient(v.kind, v.Lookback(), recent)
	}

	closes := indicator.Closes(recent)

	vol, ok := indicator.LastDefined(indicator.RollingStdDev(indicator.PctChange(closes), v.lookback))
	if !ok {
		return 0, insufficient(v.kind, v.Lookback(), recent)
	}

	distance := closes[len(closes)-1] * vol * v.value

	return finalize(entryPrice, side, entryPrice-side.Sign()*distance)
}

// finalize clamps the stop to [0.5, 1.5] x entry and rejects stops that leave
// no risk distance on the protective side of entry.
func finalize(entryPrice float64, side types.Side, stop float64) (float64, error) {
	if side == types.SideLong {
		stop = math.Max(stop, entryPrice*minStopFraction)
	} else {
		stop = math.Min(stop, entryPrice*maxStopFraction)
	}

	if math.IsNaN(stop) || (stop-entryPrice)*side.Sign() >= 0 {
		return 0, errors.Newf(errors.ErrCodeInsufficientRisk,
			"stop %.6f leaves no risk distance for %s entry at %.6f", stop, side, entryPrice)
	}

	return stop, nil
}

func insufficient(kind StopLossType, required int, recent []types.Bar) error {
	symbol := ""
	if len(recent) > 0 {
		symbol = recent[len(recent)-1].Symbol
	}

	return errors.NewInsufficientDataError(required, len(recent), symbol,
		fmt.Sprintf("%s stop loss needs %d bars, got %d", kind, required, len(recent)))
}
