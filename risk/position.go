// Package risk converts risk parameters into order size.
//
// The riskFraction argument of SizeFromRisk deliberately keeps two meanings:
//
//   - with a stop loss it is the fraction of capital put at risk
//     (0.01 = lose 1% of capital if the stop is hit);
//   - without a stop loss it is exposure: a fraction of capital times leverage
//     when <= 1, or a literal multiple of capital (leverage ignored) when > 1.
//
// Callers that mix both styles should be explicit about which one they mean.
package risk

import (
	"errors"
	"fmt"
	"math"
)

var ErrSizingInfeasible = errors.New("sizing infeasible")

// SizeFromRisk returns the order size for the given capital and risk fraction.
// The result never exceeds MaxSize(capital, leverage, entryEstimate).
func SizeFromRisk(capital, riskFraction, entryEstimate float64, stopLoss *float64, leverage float64) (float64, error) {
	if !finite(entryEstimate) || entryEstimate <= 0 {
		return 0, fmt.Errorf("%w: entry estimate %v", ErrSizingInfeasible, entryEstimate)
	}
	if !finite(capital) || !finite(riskFraction) {
		return 0, fmt.Errorf("%w: capital %v risk %v", ErrSizingInfeasible, capital, riskFraction)
	}
	if leverage <= 0 {
		leverage = 1
	}

	var size float64
	if stopLoss != nil {
		dist := math.Abs(entryEstimate - *stopLoss)
		if dist == 0 || !finite(dist) {
			return 0, fmt.Errorf("%w: stop distance %v", ErrSizingInfeasible, dist)
		}
		riskMoney := capital * riskFraction
		size = riskMoney / dist
	} else if riskFraction > 1 {
		size = capital * riskFraction / entryEstimate
	} else {
		size = capital * riskFraction * leverage / entryEstimate
	}

	size = math.Min(size, MaxSize(capital, leverage, entryEstimate))
	if !finite(size) || size <= 0 {
		return 0, fmt.Errorf("%w: size %v", ErrSizingInfeasible, size)
	}
	return size, nil
}

// MaxSize is the largest size whose notional stays within capital*leverage.
func MaxSize(capital, leverage, price float64) float64 {
	if price <= 0 || !finite(price) {
		return 0
	}
	if leverage <= 0 {
		leverage = 1
	}
	return capital * leverage / price
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
