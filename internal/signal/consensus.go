package signal

import (
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// ConsensusSource fires only when an oscillator cross, an RSI extreme and an
// external alert coincide on some bar within Window bars of the current one.
// The RSI gate and the alert requirement can each be switched off.
type ConsensusSource struct {
	config Config
	log    *logger.Logger
}

func NewConsensusSource(cfg Config, log *logger.Logger) *ConsensusSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &ConsensusSource{config: cfg, log: log}
}

func (c *ConsensusSource) Name() string {
	return string(SourceTypeConsensus)
}

func (c *ConsensusSource) Generate(bars []types.Bar) (types.SignalSeries, error) {
	n := len(bars)
	series := types.NewSignalSeries(n)
	up, down := crosses(bars)
	cfg := c.config.Consensus

	buyAt := func(j int) bool {
		rsiOK := !cfg.EnableRSIGate || (bars[j].HasRSI() && bars[j].RSI < cfg.Oversold)
		alertOK := !cfg.RequireAlert || bars[j].AlertBuy

		return up[j] && rsiOK && alertOK
	}

	sellAt := func(j int) bool {
		rsiOK := !cfg.EnableRSIGate || (bars[j].HasRSI() && bars[j].RSI > cfg.Overbought)
		alertOK := !cfg.RequireAlert || bars[j].AlertSell

		return down[j] && rsiOK && alertOK
	}

	for i := 0; i < n; i++ {
		lo := max(i-cfg.Window, 0)
		hi := min(i+cfg.Window, n-1)

		for j := lo; j <= hi; j++ {
			if !series.FinalBuy[i] && buyAt(j) {
				series.FinalBuy[i] = true
			}

			if !series.FinalSell[i] && sellAt(j) {
				series.FinalSell[i] = true
			}
		}
	}

	logConflicts(c.log, c.Name(), series)

	return series, nil
}
