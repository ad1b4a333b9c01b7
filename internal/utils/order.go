package utils

import (
	"math"

	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
)

// CalculateMaxQuantity returns the largest quantity whose notional plus commission fits in balance.
func CalculateMaxQuantity(balance float64, price float64, commissionFee commission_fee.CommissionFee) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	maxQty := balance / price

	// converges in a couple of steps for proportional fees
	for i := 0; i < 10; i++ {
		totalCost := maxQty*price + commissionFee.Calculate(maxQty, price)
		if totalCost <= balance {
			break
		}

		maxQty *= balance / totalCost
	}

	return maxQty
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// ClampQuantity limits an order quantity to what balance can pay for at price,
// rounded down to decimalPrecision.
func ClampQuantity(quantity float64, balance float64, price float64, commissionFee commission_fee.CommissionFee, decimalPrecision int) float64 {
	maxQty := CalculateMaxQuantity(balance, price, commissionFee)
	if quantity > maxQty {
		quantity = maxQty
	}

	return RoundToDecimalPrecision(quantity, decimalPrecision)
}
