package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// BarGenerator produces synthetic bar series for tests and benchmarks.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator uses a fixed seed so series are reproducible.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

type GeneratorConfig struct {
	Symbol       string
	StartTime    time.Time
	Interval     time.Duration
	Count        int
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns.
	Volatility float64
	// Trend is the total drift spread over the series.
	Trend          float64
	VolumeBase     float64
	VolumeVariance float64
	// AlertRate is the probability that a bar carries an external alert.
	// Buy and sell alerts are equally likely.
	AlertRate float64
}

func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "BTCUSDT",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Hour,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		AlertRate:      0.05,
	}
}

// Generate walks a geometric Brownian motion. Indicator values are left
// missing so callers can enrich them.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	for i := range bars {
		open := price

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := 0.0
		if config.Count > 0 {
			drift = config.Trend / float64(config.Count)
		}

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, close) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bar := types.NewBar(at, config.Symbol,
			roundToDecimals(open, 4),
			roundToDecimals(high, 4),
			roundToDecimals(low, 4),
			roundToDecimals(close, 4),
			roundToDecimals(volume, 2),
		)

		if config.AlertRate > 0 && g.rng.Float64() < config.AlertRate {
			if g.rng.Intn(2) == 0 {
				bar.AlertBuy = true
			} else {
				bar.AlertSell = true
			}
		}

		bars[i] = bar
		price = close
		at = at.Add(config.Interval)
	}

	return bars
}

// GenerateBars returns count bars of symbol with the default settings and seed 42.
func GenerateBars(symbol string, count int) []types.Bar {
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = count

	return NewBarGenerator(42).Generate(config)
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
