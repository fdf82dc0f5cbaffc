package sim

import (
	"math"

	"github.com/rustyeddy/barsim/market"
)

// ApplySlippage moves price against the trader: buys fill higher, sells
// lower. The percentage is applied first, then ticks*tickSize. A non-finite
// price is returned unchanged.
func ApplySlippage(price float64, side market.Side, pct, ticks, tickSize float64) float64 {
	if !finite(price) {
		return price
	}

	p := price
	if pct != 0 {
		if side == market.Buy {
			p *= 1 + math.Abs(pct)
		} else {
			p *= 1 - math.Abs(pct)
		}
	}
	if ticks != 0 && tickSize != 0 {
		move := math.Abs(ticks) * math.Abs(tickSize)
		if side == market.Buy {
			p += move
		} else {
			p -= move
		}
	}
	return p
}

// ComputeFee is the non-negative commission charged on notional.
func ComputeFee(notional, feeRate float64) float64 {
	return math.Abs(notional) * math.Abs(feeRate)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
