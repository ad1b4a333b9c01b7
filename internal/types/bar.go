package types

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// Bar is one OHLCV sample plus the indicator values and external alert flags
// observed at its close. Missing indicator values are NaN.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time" validate:"required"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Open   float64   `yaml:"open" json:"open" csv:"open" validate:"gte=0"`
	High   float64   `yaml:"high" json:"high" csv:"high" validate:"gtefield=Low"`
	Low    float64   `yaml:"low" json:"low" csv:"low" validate:"gte=0"`
	Close  float64   `yaml:"close" json:"close" csv:"close" validate:"gt=0"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume" validate:"gte=0"`
	// RSI is the relative strength index in [0, 100].
	RSI float64 `yaml:"rsi" json:"rsi" csv:"rsi"`
	// WT1 and WT2 are the fast and signal lines of the WaveTrend oscillator.
	WT1 float64 `yaml:"wt1" json:"wt1" csv:"wt1"`
	WT2 float64 `yaml:"wt2" json:"wt2" csv:"wt2"`
	// AlertBuy and AlertSell carry external (webhook) alerts aligned to this bar.
	AlertBuy  bool `yaml:"alert_buy" json:"alert_buy" csv:"alert_buy"`
	AlertSell bool `yaml:"alert_sell" json:"alert_sell" csv:"alert_sell"`
}

// NewBar returns a bar with every indicator marked missing.
func NewBar(t time.Time, symbol string, open, high, low, close, volume float64) Bar {
	return Bar{
		Time:   t,
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
		RSI:    math.NaN(),
		WT1:    math.NaN(),
		WT2:    math.NaN(),
	}
}

// Validate checks the price fields of the bar.
func (b Bar) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidBar, "invalid bar", err)
	}

	return nil
}

// HasRSI reports whether the RSI value is present.
func (b Bar) HasRSI() bool {
	return !math.IsNaN(b.RSI)
}

// HasOscillator reports whether both WaveTrend lines are present.
func (b Bar) HasOscillator() bool {
	return !math.IsNaN(b.WT1) && !math.IsNaN(b.WT2)
}

// TypicalPrice is (high + low + close) / 3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// CrossUp reports a WaveTrend cross from at-or-below to above between prev and cur.
func CrossUp(prev, cur Bar) bool {
	if !prev.HasOscillator() || !cur.HasOscillator() {
		return false
	}

	return prev.WT1 <= prev.WT2 && cur.WT1 > cur.WT2
}

// CrossDown reports a WaveTrend cross from at-or-above to below between prev and cur.
func CrossDown(prev, cur Bar) bool {
	if !prev.HasOscillator() || !cur.HasOscillator() {
		return false
	}

	return prev.WT1 >= prev.WT2 && cur.WT1 < cur.WT2
}
