package signal

import (
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// WeightedSource scores each bar as a weighted sum of alert, RSI and
// oscillator cross flags and fires when the score reaches the entry threshold.
type WeightedSource struct {
	config Config
	log    *logger.Logger
}

func NewWeightedSource(cfg Config, log *logger.Logger) *WeightedSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &WeightedSource{config: cfg, log: log}
}

func (w *WeightedSource) Name() string {
	return string(SourceTypeWeighted)
}

func (w *WeightedSource) Generate(bars []types.Bar) (types.SignalSeries, error) {
	series := types.NewSignalSeries(len(bars))
	up, down := crosses(bars)

	for i, bar := range bars {
		buyRSI := bar.HasRSI() && bar.RSI >= w.config.RSIBuyThreshold
		sellRSI := bar.HasRSI() && bar.RSI <= w.config.RSISellThreshold

		series.FinalBuy[i] = w.score(bar.AlertBuy, buyRSI, up[i]) >= w.config.Weighted.EntryThreshold
		series.FinalSell[i] = w.score(bar.AlertSell, sellRSI, down[i]) >= w.config.Weighted.EntryThreshold
	}

	logConflicts(w.log, w.Name(), series)

	return series, nil
}

// Score returns the buy and sell scores at bar i.
func (w *WeightedSource) Score(bars []types.Bar, i int) (buy, sell float64) {
	if i < 0 || i >= len(bars) {
		return 0, 0
	}

	bar := bars[i]
	up, down := false, false

	if i > 0 {
		up = types.CrossUp(bars[i-1], bar)
		down = types.CrossDown(bars[i-1], bar)
	}

	buy = w.score(bar.AlertBuy, bar.HasRSI() && bar.RSI >= w.config.RSIBuyThreshold, up)
	sell = w.score(bar.AlertSell, bar.HasRSI() && bar.RSI <= w.config.RSISellThreshold, down)

	return buy, sell
}

func (w *WeightedSource) score(alert, rsi, cross bool) float64 {
	total := 0.0

	if alert {
		total += w.config.Weighted.AlertWeight
	}

	if rsi {
		total += w.config.Weighted.RSIWeight
	}

	if cross {
		total += w.config.Weighted.CrossWeight
	}

	// absorb float error so 0.4+0.2 reaches a 0.6 threshold
	return total + 1e-9
}
