package risk

import "time"

// Policy holds the limits a planned trade is reviewed against. A zero limit
// is not checked.
type Policy struct {
	MaxRiskPct  float64 // 0.02
	MinRR       float64 // 1.5
	RequireStop bool
}

func DefaultPolicy() Policy {
	return Policy{MaxRiskPct: 0.02, MinRR: 1.5}
}

// TradeIntent is a signal priced at the close of its bar.
type TradeIntent struct {
	Time      time.Time
	Direction float64 // +1 long, -1 short

	// Exactly one of Units and RiskFraction is set.
	Units        float64
	RiskFraction float64

	Entry      float64
	Stop       *float64
	TakeProfit *float64

	// Equity before the signal executes.
	Equity float64
}
