package types

import (
	"time"
)

type ExitReason string

const (
	ExitReasonStopLoss    ExitReason = "STOP_LOSS"
	ExitReasonTP1         ExitReason = "TP1"
	ExitReasonTP2         ExitReason = "TP2"
	ExitReasonRunner      ExitReason = "RUNNER"
	ExitReasonTrendExit   ExitReason = "TREND_EXIT"
	ExitReasonMaxDuration ExitReason = "MAX_DURATION"
	// ExitReasonTakeProfit is the single target of the fast variant.
	ExitReasonTakeProfit ExitReason = "TAKE_PROFIT"
)

// Trade is a realized closing event for part or all of a position. Trades
// are appended to the log and never modified afterwards.
type Trade struct {
	PositionID int     `yaml:"position_id" json:"position_id" csv:"position_id"`
	Symbol     string  `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       Side    `yaml:"side" json:"side" csv:"side"`
	EntryPrice float64 `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64 `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	// Quantity is the closed lot, not the position size.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// PnL is net of Fee.
	PnL        float64    `yaml:"pnl" json:"pnl" csv:"pnl"`
	Fee        float64    `yaml:"fee" json:"fee" csv:"fee"`
	Reason     ExitReason `yaml:"reason" json:"reason" csv:"reason"`
	EntryTime  time.Time  `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime   time.Time  `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	EntryIndex int        `yaml:"entry_index" json:"entry_index" csv:"entry_index"`
	ExitIndex  int        `yaml:"exit_index" json:"exit_index" csv:"exit_index"`
}

// IsWin reports a strictly positive PnL.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// HoldingTime is the wall-clock duration between entry and exit.
func (t Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// BarsHeld is the number of bars between entry and exit.
func (t Trade) BarsHeld() int {
	return t.ExitIndex - t.EntryIndex
}
