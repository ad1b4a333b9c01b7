package engine

import (
	"math"

	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/shopspring/decimal"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// ComputeStatistics summarizes a run. File paths, run id and timestamp are
// left for the caller.
func ComputeStatistics(result RunResult) types.TradeStats {
	stats := types.TradeStats{
		Symbol:         result.Symbol,
		Mode:           string(result.Mode),
		InitialCapital: result.InitialCapital,
		FinalCapital:   result.FinalCapital,
		FinalEquity:    result.FinalEquity,
		ExitReasons:    make(map[types.ExitReason]int),
		Signals:        result.Signals,
	}

	var (
		realized    = decimal.Zero
		fees        = decimal.Zero
		grossProfit float64
		grossLoss   float64
		barsHeld    int
		maximumLoss float64
		maximumGain float64
	)

	for _, trade := range result.Trades {
		realized = realized.Add(decimal.NewFromFloat(trade.PnL))
		fees = fees.Add(decimal.NewFromFloat(trade.Fee))
		barsHeld += trade.BarsHeld()
		stats.ExitReasons[trade.Reason]++

		switch {
		case trade.PnL > 0:
			stats.TradeResult.NumberOfWinningTrades++
			grossProfit += trade.PnL
		case trade.PnL < 0:
			stats.TradeResult.NumberOfLosingTrades++
			grossLoss -= trade.PnL
		}

		maximumLoss = math.Min(maximumLoss, trade.PnL)
		maximumGain = math.Max(maximumGain, trade.PnL)
	}

	count := len(result.Trades)
	stats.TradeResult.NumberOfTrades = count

	if count > 0 {
		stats.TradeResult.WinRate = float64(stats.TradeResult.NumberOfWinningTrades) / float64(count)
		stats.TradePnl.AverageTrade = realized.InexactFloat64() / float64(count)
		stats.AverageBarsHeld = float64(barsHeld) / float64(count)
	}

	if grossLoss > 0 {
		stats.TradeResult.ProfitFactor = grossProfit / grossLoss
	}

	stats.TradeResult.MaxDrawdown = MaxDrawdown(result.Equity)
	stats.TradeResult.SharpeRatio = SharpeRatio(result.Equity)

	stats.TradePnl.RealizedPnL = realized.InexactFloat64()
	stats.TradePnl.UnrealizedPnL = result.UnrealizedPnL
	stats.TradePnl.TotalPnL = realized.Add(decimal.NewFromFloat(result.UnrealizedPnL)).InexactFloat64()
	stats.TradePnl.MaximumLoss = maximumLoss
	stats.TradePnl.MaximumProfit = maximumGain
	stats.TotalFees = fees.InexactFloat64()

	if result.InitialCapital > 0 {
		stats.TradePnl.TotalReturn = (result.FinalEquity - result.InitialCapital) / result.InitialCapital
	}

	for _, day := range result.Daily {
		if day.BreakerTriggered {
			stats.BreakerDays++
		}
	}

	return stats
}

// SharpeRatio is mean over population standard deviation of per-point
// equity returns, scaled by sqrt(252). It is zero when returns do not vary.
func SharpeRatio(equity []types.EquityPoint) float64 {
	returns := make([]float64, 0, len(equity))

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}

		returns = append(returns, (equity[i].Equity-prev)/prev)
	}

	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown is the largest fall from a running peak, as a positive fraction
// of that peak.
func MaxDrawdown(equity []types.EquityPoint) float64 {
	var (
		peak    float64
		largest float64
	)

	for i, point := range equity {
		if i == 0 || point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		largest = math.Max(largest, (peak-point.Equity)/peak)
	}

	return largest
}
