package sim

// grossPnL is the price P/L of closing units of a position in direction d
// at exit.
func grossPnL(d Direction, units, entry, exit float64) float64 {
	return float64(d) * units * (exit - entry)
}

// UnrealizedPL marks the whole position at price. Fees are not included.
func UnrealizedPL(p Position, price float64) float64 {
	if p.Flat() {
		return 0
	}
	return p.Size * (price - p.EntryPrice)
}
