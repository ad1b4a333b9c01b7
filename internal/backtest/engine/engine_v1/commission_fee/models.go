package commission_fee

import "math"

const (
	ibPerUnit = 0.005
	ibMinimum = 1.0
)

// PerUnitCommissionFee charges a flat amount per unit traded with a minimum
// per fill. Interactive Brokers' tiered US equity schedule is the canonical case.
type PerUnitCommissionFee struct {
	PerUnit float64
	Minimum float64
}

// NewInteractiveBrokerCommissionFee charges 0.005 per unit, at least 1.0 per fill.
func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &PerUnitCommissionFee{PerUnit: ibPerUnit, Minimum: ibMinimum}
}

func (c *PerUnitCommissionFee) Calculate(quantity float64, _ float64) float64 {
	return math.Max(math.Abs(quantity)*c.PerUnit, c.Minimum)
}

// NotionalCommissionFee charges a fixed fraction of |price * quantity|.
// A zero rate is the commission-free broker.
type NotionalCommissionFee struct {
	Rate float64
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &NotionalCommissionFee{Rate: rate}
}

func NewZeroCommissionFee() CommissionFee {
	return &NotionalCommissionFee{}
}

func (c *NotionalCommissionFee) Calculate(quantity float64, price float64) float64 {
	if c.Rate == 0 {
		return 0
	}

	return math.Abs(price*quantity) * c.Rate
}
