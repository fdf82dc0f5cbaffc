package sim

import "github.com/rustyeddy/barsim/market"

// checkExit tests the pending exit levels against the bar's range.
// Triggers are strict: a long stops out when low < stop and takes profit
// when high > take (mirrored for shorts). If both hit in the same bar the
// stop wins, the pessimistic assumption.
func checkExit(p Position, b market.Bar) (price float64, reason ExitReason, hit bool) {
	switch p.Direction() {
	case Long:
		if hitStopLoss(p, b) {
			return *p.StopLoss, StopLoss, true
		}
		if hitTakeProfit(p, b) {
			return *p.TakeProfit, TakeProfit, true
		}
	case Short:
		if hitStopLoss(p, b) {
			return *p.StopLoss, StopLoss, true
		}
		if hitTakeProfit(p, b) {
			return *p.TakeProfit, TakeProfit, true
		}
	}
	return 0, "", false
}

func hitStopLoss(p Position, b market.Bar) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Size > 0 {
		return b.Low < *p.StopLoss
	}
	return b.High > *p.StopLoss
}

func hitTakeProfit(p Position, b market.Bar) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Size > 0 {
		return b.High > *p.TakeProfit
	}
	return b.Low < *p.TakeProfit
}
