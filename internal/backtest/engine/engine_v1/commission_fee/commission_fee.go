package commission_fee

// CommissionFee prices a single fill. Models are stateless and safe to share.
type CommissionFee interface {
	// Calculate returns the fee in quote currency for filling quantity at price.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
	BrokerPercentage        Broker = "percentage"
)

// DefaultPercentageRate is the taker rate charged on notional by the percentage broker.
const DefaultPercentageRate = 0.0004

// AllBrokers lists the broker names for the config schema enum.
var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
	BrokerPercentage,
}

// GetCommissionFeeHandler returns the fee model for broker. rate is only read
// by the percentage broker, where a non-positive value means
// DefaultPercentageRate. Unknown brokers are commission free.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	if broker == BrokerInteractiveBroker {
		return NewInteractiveBrokerCommissionFee()
	}

	if broker != BrokerPercentage {
		return NewZeroCommissionFee()
	}

	if rate <= 0 {
		rate = DefaultPercentageRate
	}

	return NewPercentageCommissionFee(rate)
}
