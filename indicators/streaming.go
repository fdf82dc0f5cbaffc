package indicators

import (
	"fmt"

	"github.com/rustyeddy/barsim/market"
)

// SimpleMA averages the last period closes. The window is a ring so an
// update is O(1) and allocation free after construction.
type SimpleMA struct {
	period int
	window []float64
	next   int
	filled int
	sum    float64
}

func NewMA(period int) *SimpleMA {
	m := &SimpleMA{period: period}
	if period > 0 {
		m.window = make([]float64, period)
	}
	return m
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }

func (m *SimpleMA) Reset() {
	clear(m.window)
	m.next, m.filled, m.sum = 0, 0, 0
}

func (m *SimpleMA) Update(b market.Bar) {
	if m.period <= 0 {
		return
	}
	if m.filled == m.period {
		m.sum -= m.window[m.next]
	} else {
		m.filled++
	}
	m.window[m.next] = b.Close
	m.sum += b.Close
	m.next = (m.next + 1) % m.period
}

func (m *SimpleMA) Ready() bool { return m.period > 0 && m.filled == m.period }

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(m.period)
}

// ExponentialMA is seeded with the SMA of its first period closes, then
// smoothed with 2/(period+1).
type ExponentialMA struct {
	period int
	alpha  float64
	value  float64
	seen   int
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{period: period, alpha: 2 / float64(period+1)}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.value, e.seen = 0, 0
}

func (e *ExponentialMA) Update(b market.Bar) {
	if e.period <= 0 {
		return
	}
	switch {
	case e.seen < e.period-1:
		e.value += b.Close
	case e.seen == e.period-1:
		e.value = (e.value + b.Close) / float64(e.period)
	default:
		e.value += e.alpha * (b.Close - e.value)
	}
	e.seen++
}

func (e *ExponentialMA) Ready() bool { return e.period > 0 && e.seen >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
