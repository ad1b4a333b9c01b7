package signal

import (
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// PrioritySource fires from three tiers in order: oscillator cross, external
// alert, RSI threshold. A lower tier is consulted only where the higher tiers
// are silent.
type PrioritySource struct {
	config Config
	log    *logger.Logger
}

func NewPrioritySource(cfg Config, log *logger.Logger) *PrioritySource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PrioritySource{config: cfg, log: log}
}

func (p *PrioritySource) Name() string {
	return string(SourceTypePriority)
}

func (p *PrioritySource) Generate(bars []types.Bar) (types.SignalSeries, error) {
	n := len(bars)
	series := types.NewSignalSeries(n)
	tiers := &types.TierSeries{
		Tier1Buy:  make([]bool, n),
		Tier1Sell: make([]bool, n),
		Tier2Buy:  make([]bool, n),
		Tier2Sell: make([]bool, n),
		Tier3Buy:  make([]bool, n),
		Tier3Sell: make([]bool, n),
	}

	tiers.Tier1Buy, tiers.Tier1Sell = crosses(bars)
	anyMask := p.config.MaskMode == MaskModeAny

	for i, bar := range bars {
		t1Buy, t1Sell := tiers.Tier1Buy[i], tiers.Tier1Sell[i]

		blockBuy, blockSell := t1Buy, t1Sell
		if anyMask {
			blockBuy = t1Buy || t1Sell
			blockSell = blockBuy
		}

		tiers.Tier2Buy[i] = bar.AlertBuy && !blockBuy
		tiers.Tier2Sell[i] = bar.AlertSell && !blockSell

		buy := t1Buy || tiers.Tier2Buy[i]
		sell := t1Sell || tiers.Tier2Sell[i]

		blockBuy, blockSell = buy, sell
		if anyMask {
			blockBuy = buy || sell
			blockSell = blockBuy
		}

		if bar.HasRSI() {
			tiers.Tier3Buy[i] = bar.RSI > p.config.RSIBuyThreshold && !blockBuy
			tiers.Tier3Sell[i] = bar.RSI < p.config.RSISellThreshold && !blockSell
		}

		series.FinalBuy[i] = buy || tiers.Tier3Buy[i]
		series.FinalSell[i] = sell || tiers.Tier3Sell[i]
	}

	if p.config.ShowIntermediate {
		series.Tiers = tiers
	}

	logConflicts(p.log, p.Name(), series)

	return series, nil
}
