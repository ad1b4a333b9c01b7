package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// Config selects the indicator lengths used by Enrich.
type Config struct {
	RSILength     int `yaml:"rsi_length" json:"rsi_length" jsonschema:"title=RSI Length,default=14" validate:"gte=2"`
	ChannelLength int `yaml:"channel_length" json:"channel_length" jsonschema:"title=WaveTrend Channel Length,default=10" validate:"gte=1"`
	AverageLength int `yaml:"average_length" json:"average_length" jsonschema:"title=WaveTrend Average Length,default=21" validate:"gte=1"`
	// Overwrite recomputes values the feed already supplied.
	Overwrite bool `yaml:"overwrite" json:"overwrite" jsonschema:"title=Overwrite Feed Values,default=false"`
}

// DefaultConfig returns the standard lengths: RSI 14, WaveTrend 10/21.
func DefaultConfig() Config {
	return Config{
		RSILength:     DefaultRSILength,
		ChannelLength: DefaultChannelLength,
		AverageLength: DefaultAverageLength,
	}
}

// Enrich returns a copy of bars with RSI, WT1 and WT2 filled in. Values
// already present on a bar are kept unless cfg.Overwrite is set.
func Enrich(bars []types.Bar, cfg Config) []types.Bar {
	out := make([]types.Bar, len(bars))
	copy(out, bars)

	if len(bars) == 0 {
		return out
	}

	rsi := RSI(Closes(bars), cfg.RSILength)
	wt1, wt2 := WaveTrend(TypicalPrices(bars), cfg.ChannelLength, cfg.AverageLength)

	for i := range out {
		if cfg.Overwrite || math.IsNaN(out[i].RSI) {
			out[i].RSI = rsi[i]
		}

		if cfg.Overwrite || !out[i].HasOscillator() {
			out[i].WT1 = wt1[i]
			out[i].WT2 = wt2[i]
		}
	}

	return out
}

// Closes extracts the close series.
func Closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}

// Highs extracts the high series.
func Highs(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}

	return out
}

// Lows extracts the low series.
func Lows(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}

	return out
}

// TypicalPrices extracts (high + low + close) / 3 per bar.
func TypicalPrices(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.TypicalPrice()
	}

	return out
}
