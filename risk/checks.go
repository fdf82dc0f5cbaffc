package risk

import (
	"fmt"
	"math"
)

type Violation struct {
	Code string
	Msg  string
}

func (v Violation) String() string { return v.Code + ": " + v.Msg }

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate reviews intent against p. Risk is only known when a stop is
// set; with a risk fraction and a stop the fraction is the planned risk.
func Evaluate(p Policy, intent TradeIntent) Decision {
	d := Decision{Allowed: true}

	if intent.Entry <= 0 || math.IsNaN(intent.Entry) || math.IsInf(intent.Entry, 0) {
		d.add("NO_ENTRY", fmt.Sprintf("entry %v is not a positive price", intent.Entry))
		return d
	}
	dir := 1.0
	if intent.Direction < 0 {
		dir = -1
	}

	if intent.Stop == nil {
		if p.RequireStop {
			d.add("NO_STOP", "stop loss is not set")
		}
	} else if dir*(*intent.Stop-intent.Entry) >= 0 {
		d.add("STOP_WRONG_SIDE",
			fmt.Sprintf("stop %g is not beyond entry %g", *intent.Stop, intent.Entry))
	}
	if intent.TakeProfit != nil && dir*(*intent.TakeProfit-intent.Entry) <= 0 {
		d.add("TP_WRONG_SIDE",
			fmt.Sprintf("take profit %g is not beyond entry %g", *intent.TakeProfit, intent.Entry))
	}

	if intent.Stop != nil {
		switch {
		case intent.Units != 0:
			d.PlannedRisk = PlannedRisk(intent.Units, intent.Entry, *intent.Stop)
			d.PlannedRiskPct = RiskPct(d.PlannedRisk, intent.Equity)
		case intent.RiskFraction > 0:
			d.PlannedRiskPct = intent.RiskFraction
			d.PlannedRisk = intent.RiskFraction * intent.Equity
		}
		if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
			d.add("RISK_TOO_HIGH",
				fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
					100*d.PlannedRiskPct, 100*p.MaxRiskPct))
		}

		if intent.TakeProfit != nil {
			d.PlannedRR = RR(intent.Entry, *intent.Stop, *intent.TakeProfit)
			if p.MinRR > 0 && d.PlannedRR < p.MinRR {
				d.add("RR_TOO_LOW",
					fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
			}
		}
	}

	return d
}
