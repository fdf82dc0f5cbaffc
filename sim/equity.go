package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/barsim/market"
)

var ErrEquityMismatch = errors.New("equity mismatch")

// EquityCurve projects the equity column of rows.
func EquityCurve(rows []OutputRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Equity
	}
	return out
}

// CheckEquity verifies that rows line up with series one to one and that
// every row's equity equals cash plus position value at the bar close
// (or the last finite close before it), within tol.
func CheckEquity(series *market.Series, rows []OutputRow, tol float64) error {
	if series == nil {
		return fmt.Errorf("%w: nil series", ErrEquityMismatch)
	}
	if series.Len() != len(rows) {
		return fmt.Errorf("%w: %d bars, %d rows", ErrEquityMismatch, series.Len(), len(rows))
	}

	mark := math.NaN()
	for i, r := range rows {
		b := series.At(i)
		if !r.Time.Equal(b.Time) {
			return fmt.Errorf("%w: row %d at %s, bar at %s", ErrEquityMismatch, i, r.Time, b.Time)
		}
		if finite(b.Close) {
			mark = b.Close
		}
		if r.Cash < -tol {
			return fmt.Errorf("%w: row %d negative cash %v", ErrEquityMismatch, i, r.Cash)
		}

		want := r.Cash
		if finite(mark) {
			want += r.PositionSize * mark
		}
		if diff := math.Abs(r.Equity - want); diff > tol*math.Max(1, math.Abs(want)) {
			return fmt.Errorf("%w: row %d at %s equity %v, cash+position %v",
				ErrEquityMismatch, i, r.Time.Format("2006-01-02T15:04:05Z07:00"), r.Equity, want)
		}
	}
	return nil
}
