package types

// SignalDecision is the final entry decision for one bar. Buy and sell are
// computed independently and may both be true.
type SignalDecision struct {
	FinalBuy  bool `yaml:"final_buy" json:"final_buy"`
	FinalSell bool `yaml:"final_sell" json:"final_sell"`
}

// Conflicting reports both directions firing on the same bar.
func (d SignalDecision) Conflicting() bool {
	return d.FinalBuy && d.FinalSell
}

// TierSeries holds the per-tier intermediate flags of a prioritized source.
type TierSeries struct {
	Tier1Buy  []bool `yaml:"tier1_buy" json:"tier1_buy"`
	Tier1Sell []bool `yaml:"tier1_sell" json:"tier1_sell"`
	Tier2Buy  []bool `yaml:"tier2_buy" json:"tier2_buy"`
	Tier2Sell []bool `yaml:"tier2_sell" json:"tier2_sell"`
	Tier3Buy  []bool `yaml:"tier3_buy" json:"tier3_buy"`
	Tier3Sell []bool `yaml:"tier3_sell" json:"tier3_sell"`
}

// SignalSeries is a decision per bar, index-aligned with the bar series.
type SignalSeries struct {
	FinalBuy  []bool `yaml:"final_buy" json:"final_buy"`
	FinalSell []bool `yaml:"final_sell" json:"final_sell"`
	// Tiers is set only when the source was asked for intermediates.
	Tiers *TierSeries `yaml:"tiers,omitempty" json:"tiers,omitempty"`
}

// NewSignalSeries allocates an all-false series of length n.
func NewSignalSeries(n int) SignalSeries {
	return SignalSeries{
		FinalBuy:  make([]bool, n),
		FinalSell: make([]bool, n),
	}
}

// Len is the number of bars covered.
func (s SignalSeries) Len() int {
	return len(s.FinalBuy)
}

// At returns the decision at bar i. Out-of-range indexes yield no signal.
func (s SignalSeries) At(i int) SignalDecision {
	if i < 0 || i >= len(s.FinalBuy) || i >= len(s.FinalSell) {
		return SignalDecision{}
	}

	return SignalDecision{FinalBuy: s.FinalBuy[i], FinalSell: s.FinalSell[i]}
}

// Counts returns the number of buy, sell and conflicting bars.
func (s SignalSeries) Counts() (buys, sells, conflicts int) {
	for i := range s.FinalBuy {
		d := s.At(i)
		if d.FinalBuy {
			buys++
		}

		if d.FinalSell {
			sells++
		}

		if d.Conflicting() {
			conflicts++
		}
	}

	return buys, sells, conflicts
}
