// Package testhelper generates synthetic bar files for end-to-end tests.
package testhelper

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/marketdata/writer"
)

// SimulationPattern defines the type of price simulation pattern
type SimulationPattern string

const (
	// PatternIncreasing simulates a continuously increasing price trend
	PatternIncreasing SimulationPattern = "increasing"
	// PatternDecreasing simulates a continuously decreasing price trend
	PatternDecreasing SimulationPattern = "decreasing"
	// PatternVolatile simulates a volatile price with maximum drawdown constraint
	PatternVolatile SimulationPattern = "volatile"
)

const (
	// DefaultMinimumPrice is the price floor.
	DefaultMinimumPrice = 0.01
	// DefaultBaseVolume is the base volume of a generated bar.
	DefaultBaseVolume = 1000000.0

	increasingNoiseBias = 0.3
	decreasingNoiseBias = 0.7
	volatileUpwardBias  = 0.45
)

// MockDataConfig holds the configuration for generating bars.
type MockDataConfig struct {
	Symbol    string
	StartTime time.Time
	Interval  time.Duration
	// NumDataPoints is the number of bars to generate.
	NumDataPoints int
	Pattern       SimulationPattern
	InitialPrice  float64
	// MaxDrawdownPercent caps the fall from the running peak (volatile only).
	MaxDrawdownPercent float64
	// VolatilityPercent is the base size of a move, in percent of price.
	VolatilityPercent float64
	// TrendStrength is the drift per bar for the trending patterns.
	TrendStrength float64
	// AlertEvery sets AlertBuy on every n-th bar. Zero disables alerts.
	AlertEvery int
	// Seed makes runs reproducible. Zero uses the current time.
	Seed int64
}

// MockDataGenerator generates bars for e2e testing.
type MockDataGenerator struct {
	config MockDataConfig
	rng    *rand.Rand
}

// NewMockDataGenerator creates a new MockDataGenerator with the given configuration
func NewMockDataGenerator(config MockDataConfig) *MockDataGenerator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if config.InitialPrice <= 0 {
		config.InitialPrice = 100.0
	}

	if config.TrendStrength <= 0 {
		config.TrendStrength = 0.01
	}

	if config.VolatilityPercent <= 0 {
		config.VolatilityPercent = 2.0
	}

	if config.MaxDrawdownPercent <= 0 {
		config.MaxDrawdownPercent = 10.0
	}

	return &MockDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate returns NumDataPoints bars with valid OHLC relationships.
func (g *MockDataGenerator) Generate() ([]types.Bar, error) {
	if g.config.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	if g.config.StartTime.IsZero() {
		return nil, fmt.Errorf("start time is required")
	}

	if g.config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}

	if g.config.NumDataPoints <= 0 {
		return nil, fmt.Errorf("number of data points must be positive")
	}

	bars := make([]types.Bar, g.config.NumDataPoints)
	currentPrice := g.config.InitialPrice
	peakPrice := currentPrice
	currentTime := g.config.StartTime

	for i := range bars {
		var priceChange float64

		switch g.config.Pattern {
		case PatternIncreasing:
			priceChange = g.trendChange(currentPrice, 1, increasingNoiseBias)
		case PatternDecreasing:
			priceChange = g.trendChange(currentPrice, -1, decreasingNoiseBias)
		case PatternVolatile:
			priceChange = g.volatileChange(currentPrice, peakPrice)
		default:
			return nil, fmt.Errorf("unknown pattern: %s", g.config.Pattern)
		}

		newPrice := math.Max(currentPrice+priceChange, DefaultMinimumPrice)

		open, closePrice := currentPrice, newPrice
		spread := math.Max(open, closePrice) * (g.config.VolatilityPercent / 100.0) * 0.5
		high := math.Max(open, closePrice) + g.rng.Float64()*spread
		low := math.Max(math.Min(open, closePrice)-g.rng.Float64()*spread, DefaultMinimumPrice)
		volume := DefaultBaseVolume * (0.5 + g.rng.Float64())

		bars[i] = types.NewBar(currentTime, g.config.Symbol, open, high, low, closePrice, volume)
		if g.config.AlertEvery > 0 && i > 0 && i%g.config.AlertEvery == 0 {
			bars[i].AlertBuy = true
		}

		currentPrice = newPrice
		currentTime = currentTime.Add(g.config.Interval)
		peakPrice = math.Max(peakPrice, currentPrice)
	}

	return bars, nil
}

// trendChange drifts by TrendStrength in direction with noise skewed by bias.
func (g *MockDataGenerator) trendChange(currentPrice float64, direction float64, bias float64) float64 {
	trend := direction * currentPrice * g.config.TrendStrength
	noise := currentPrice * (g.config.VolatilityPercent / 100.0) * (g.rng.Float64() - bias)

	return trend + noise
}

// volatileChange moves randomly with a slight upward bias and never below the drawdown floor.
func (g *MockDataGenerator) volatileChange(currentPrice, peakPrice float64) float64 {
	change := currentPrice * (g.config.VolatilityPercent / 100.0) * (g.rng.Float64() - volatileUpwardBias)

	floor := peakPrice * (1 - g.config.MaxDrawdownPercent/100.0)
	if currentPrice+change < floor {
		newPrice := floor + g.rng.Float64()*(g.config.VolatilityPercent/100.0)*currentPrice
		change = newPrice - currentPrice
	}

	return change
}

// WriteBars writes bars to outputPath through the DuckDB bar writer.
func WriteBars(bars []types.Bar, outputPath string) error {
	if len(bars) == 0 {
		return fmt.Errorf("no data to write")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	barWriter := writer.NewDuckDBWriter(outputPath)
	if err := barWriter.Initialize(); err != nil {
		return err
	}
	defer barWriter.Close()

	for _, bar := range bars {
		if err := barWriter.Write(bar); err != nil {
			return err
		}
	}

	_, err := barWriter.Finalize()

	return err
}

// GenerateAndWrite generates bars with config and writes them to outputPath.
func GenerateAndWrite(config MockDataConfig, outputPath string) ([]types.Bar, error) {
	bars, err := NewMockDataGenerator(config).Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mock data: %w", err)
	}

	return bars, WriteBars(bars, outputPath)
}
