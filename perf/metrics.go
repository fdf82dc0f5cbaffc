// Package perf turns the rows and trades of a simulation into summary
// statistics. Metrics that cannot be computed for the input are reported
// as undefined instead of being replaced with a number.
package perf

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rustyeddy/barsim/sim"
)

const DefaultAnnualDays = 365

type Options struct {
	// AnnualDays is the day count of a year used for CAGR and for
	// annualising per-bar statistics. Zero means DefaultAnnualDays.
	AnnualDays float64
}

type Metrics struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Bars  int       `json:"bars"`

	StartEquity float64 `json:"start_equity"`
	FinalEquity float64 `json:"final_equity"`
	NetProfit   float64 `json:"net_profit"`

	TotalReturn Value   `json:"total_return"`
	CAGR        Value   `json:"cagr"`
	MaxDrawdown Value   `json:"max_drawdown"` // most negative equity/peak - 1
	Volatility  Value   `json:"volatility"`
	Sharpe      Value   `json:"sharpe"`
	Sortino     Value   `json:"sortino"`
	BarsPerYear Value   `json:"bars_per_year"`
	Exposure    float64 `json:"exposure"` // fraction of bars holding a position

	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor Value   `json:"profit_factor"`
	AvgTrade     Value   `json:"avg_trade"`
	AvgWin       Value   `json:"avg_win"`
	AvgLoss      Value   `json:"avg_loss"`
	BestTrade    Value   `json:"best_trade"`
	WorstTrade   Value   `json:"worst_trade"`
	Fees         float64 `json:"fees"`
}

// NamedValue is one labelled, formatted metric.
type NamedValue struct {
	Name  string
	Value string
}

// Named lists the metrics in the order reports print them.
func (m Metrics) Named() []NamedValue {
	money := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	itoa := strconv.Itoa
	return []NamedValue{
		{"Start Equity", money(m.StartEquity)},
		{"Final Equity", money(m.FinalEquity)},
		{"Net Profit", money(m.NetProfit)},
		{"Total Return", m.TotalReturn.Pct()},
		{"CAGR", m.CAGR.Pct()},
		{"Max Drawdown", m.MaxDrawdown.Pct()},
		{"Volatility", m.Volatility.Pct()},
		{"Sharpe", m.Sharpe.String()},
		{"Sortino", m.Sortino.String()},
		{"Exposure", Def(m.Exposure).Pct()},
		{"Trades", itoa(m.Trades)},
		{"Wins", itoa(m.Wins)},
		{"Losses", itoa(m.Losses)},
		{"Win Rate", Def(m.WinRate).Pct()},
		{"Profit Factor", m.ProfitFactor.String()},
		{"Avg Trade", m.AvgTrade.String()},
		{"Avg Win", m.AvgWin.String()},
		{"Avg Loss", m.AvgLoss.String()},
		{"Best Trade", m.BestTrade.String()},
		{"Worst Trade", m.WorstTrade.String()},
		{"Fees", money(m.Fees)},
	}
}

// Evaluate computes Metrics from the output of sim.Run.
func Evaluate(rows []sim.OutputRow, trades []sim.Trade, opts Options) Metrics {
	days := opts.AnnualDays
	if days <= 0 {
		days = DefaultAnnualDays
	}

	var m Metrics
	evaluateTrades(&m, trades)
	if len(rows) == 0 {
		return m
	}

	first, last := rows[0], rows[len(rows)-1]
	m.Start, m.End, m.Bars = first.Time, last.Time, len(rows)
	m.StartEquity = first.Equity
	m.FinalEquity = last.Equity
	m.NetProfit = m.FinalEquity - m.StartEquity

	if m.StartEquity != 0 {
		m.TotalReturn = Def(m.FinalEquity/m.StartEquity - 1)
	}

	years := last.Time.Sub(first.Time).Hours() / 24 / days
	if years > 0 && m.StartEquity > 0 && m.FinalEquity/m.StartEquity > 0 {
		m.CAGR = Def(math.Pow(m.FinalEquity/m.StartEquity, 1/years) - 1)
	}

	equity := sim.EquityCurve(rows)
	m.MaxDrawdown = maxDrawdown(equity)

	inMarket := 0
	for _, r := range rows {
		if r.PositionSize != 0 {
			inMarket++
		}
	}
	m.Exposure = float64(inMarket) / float64(len(rows))

	m.BarsPerYear = barsPerYear(rows, days)
	returns := barReturns(equity)
	if !m.BarsPerYear.Defined || len(returns) < 2 {
		return m
	}
	scale := math.Sqrt(m.BarsPerYear.V)

	mean, sd := meanStd(returns)
	m.Volatility = Def(sd * scale)
	if !zero(sd, mean) {
		m.Sharpe = Def(mean / sd * scale)
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) >= 2 {
		_, dsd := meanStd(downside)
		if !zero(dsd, mean) {
			m.Sortino = Def(mean / dsd * scale)
		}
	}
	return m
}

func evaluateTrades(m *Metrics, trades []sim.Trade) {
	m.Trades = len(trades)
	if len(trades) == 0 {
		return
	}

	var sum, won, lost float64
	best, worst := math.Inf(-1), math.Inf(1)
	for _, t := range trades {
		sum += t.NetPnL
		m.Fees += t.Fees()
		switch {
		case t.Win():
			m.Wins++
			won += t.NetPnL
		case t.NetPnL < 0:
			m.Losses++
			lost += t.NetPnL
		}
		best = math.Max(best, t.NetPnL)
		worst = math.Min(worst, t.NetPnL)
	}

	m.WinRate = float64(m.Wins) / float64(m.Trades)
	m.AvgTrade = Def(sum / float64(m.Trades))
	m.BestTrade = Def(best)
	m.WorstTrade = Def(worst)
	if m.Wins > 0 {
		m.AvgWin = Def(won / float64(m.Wins))
	}
	if m.Losses > 0 {
		m.AvgLoss = Def(lost / float64(m.Losses))
		m.ProfitFactor = Def(won / math.Abs(lost))
	}
}

func maxDrawdown(equity []float64) Value {
	peak := math.Inf(-1)
	dd := Undefined
	for _, e := range equity {
		peak = math.Max(peak, e)
		if peak <= 0 {
			continue
		}
		v := e/peak - 1
		if !dd.Defined || v < dd.V {
			dd = Def(v)
		}
	}
	return dd
}

// barsPerYear infers the bar frequency from the median spacing of rows.
func barsPerYear(rows []sim.OutputRow, annualDays float64) Value {
	if len(rows) < 2 {
		return Undefined
	}
	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		gaps = append(gaps, rows[i].Time.Sub(rows[i-1].Time).Seconds())
	}
	sort.Float64s(gaps)
	med := gaps[len(gaps)/2]
	if len(gaps)%2 == 0 {
		med = (gaps[len(gaps)/2-1] + gaps[len(gaps)/2]) / 2
	}
	if med <= 0 {
		return Undefined
	}
	return Def(annualDays * 24 * 60 * 60 / med)
}

// barReturns are the simple returns between consecutive equities. Steps
// from a non-positive equity are skipped.
func barReturns(equity []float64) []float64 {
	out := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev <= 0 {
			continue
		}
		out = append(out, equity[i]/prev-1)
	}
	return out
}

// meanStd returns the mean and the sample standard deviation of xs.
func meanStd(xs []float64) (mean, sd float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

// zero reports whether sd is rounding noise next to mean.
func zero(sd, mean float64) bool {
	return sd <= 1e-12*math.Max(1, math.Abs(mean))
}
