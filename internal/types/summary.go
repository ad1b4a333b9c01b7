package types

import "time"

// DailySummary is a snapshot of account state taken at a day boundary or on demand.
type DailySummary struct {
	Date              string  `yaml:"date" json:"date" csv:"date"`
	Capital           float64 `yaml:"capital" json:"capital" csv:"capital"`
	DailyStartCapital float64 `yaml:"daily_start_capital" json:"daily_start_capital" csv:"daily_start_capital"`
	DailyPnL          float64 `yaml:"daily_pnl" json:"daily_pnl" csv:"daily_pnl"`
	// DailyPnLPct and TotalPnLPct are fractions, 0.01 == 1%.
	DailyPnLPct      float64 `yaml:"daily_pnl_pct" json:"daily_pnl_pct" csv:"daily_pnl_pct"`
	TotalPnLPct      float64 `yaml:"total_pnl_pct" json:"total_pnl_pct" csv:"total_pnl_pct"`
	ActivePositions  int     `yaml:"active_positions" json:"active_positions" csv:"active_positions"`
	DailyTradesCount int     `yaml:"daily_trades_count" json:"daily_trades_count" csv:"daily_trades_count"`
	BreakerTriggered bool    `yaml:"breaker_triggered" json:"breaker_triggered" csv:"breaker_triggered"`
}

// EquityPoint is the marked account value after processing one bar.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Index  int       `yaml:"index" json:"index" csv:"index"`
	Equity float64   `yaml:"equity" json:"equity" csv:"equity"`
}
