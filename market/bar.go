package market

import (
	"errors"
	"math"
	"time"
)

var (
	ErrEmptySeries  = errors.New("empty bar series")
	ErrNonMonotonic = errors.New("bar timestamps must be strictly increasing")
	ErrInvalidBar   = errors.New("invalid bar")
)

// Bar is one OHLCV sample for a fixed interval. Time is the bar open.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether every OHLC field is finite. Invalid bars are kept in a
// Series but the simulator skips their exit and entry checks.
func (b Bar) Valid() bool {
	return finite(b.Open) && finite(b.High) && finite(b.Low) && finite(b.Close)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
