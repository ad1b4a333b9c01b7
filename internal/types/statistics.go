package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all closing trades, partial closes included.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of trades with positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of trades with negative pnl.
	NumberOfLosingTrades int     `yaml:"number_of_losing_trades"`
	WinRate              float64 `yaml:"win_rate"`
	// Gross profit divided by gross loss. Zero when there are no losses.
	ProfitFactor float64 `yaml:"profit_factor"`
	// Largest peak-to-trough decline of the equity curve as a fraction.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Annualized with sqrt(252) over per-bar equity returns.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
}

type TradePnl struct {
	RealizedPnL   float64 `yaml:"realized_pnl"`
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	TotalPnL      float64 `yaml:"total_pnl"`
	AverageTrade  float64 `yaml:"average_trade"`
	MaximumLoss   float64 `yaml:"maximum_loss"`
	MaximumProfit float64 `yaml:"maximum_profit"`
	// TotalReturn is (final equity - initial capital) / initial capital.
	TotalReturn float64 `yaml:"total_return"`
}

type SignalCounts struct {
	Buy       int `yaml:"buy"`
	Sell      int `yaml:"sell"`
	Conflicts int `yaml:"conflicts"`
}

type TradeStats struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp      time.Time          `yaml:"timestamp" json:"timestamp"`
	Symbol         string             `yaml:"symbol"`
	Mode           string             `yaml:"mode"`
	InitialCapital float64            `yaml:"initial_capital"`
	FinalCapital   float64            `yaml:"final_capital"`
	FinalEquity    float64            `yaml:"final_equity"`
	TradeResult    TradeResult        `yaml:"trade_result"`
	TradePnl       TradePnl           `yaml:"trade_pnl"`
	TotalFees      float64            `yaml:"total_fees"`
	ExitReasons    map[ExitReason]int `yaml:"exit_reasons"`
	Signals        SignalCounts       `yaml:"signals"`
	// BreakerDays counts days whose summary had the daily breaker triggered.
	BreakerDays int `yaml:"breaker_days"`
	// Average bars between entry and exit.
	AverageBarsHeld float64 `yaml:"average_bars_held"`
	TradesFilePath  string  `yaml:"trades_file_path" json:"trades_file_path"`
	EquityFilePath  string  `yaml:"equity_file_path" json:"equity_file_path"`
	DailyFilePath   string  `yaml:"daily_file_path" json:"daily_file_path"`
	DataPath        string  `yaml:"data_path" json:"data_path"`
}

func WriteTradeStats(path string, stats []TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}

// ReadTradeStats loads stats previously written by WriteTradeStats.
func ReadTradeStats(path string) ([]TradeStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trade stats file: %w", err)
	}

	var stats []TradeStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade stats: %w", err)
	}

	return stats, nil
}
