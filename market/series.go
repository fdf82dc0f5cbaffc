package market

import (
	"fmt"
	"sort"
	"time"
)

// Series is an immutable, strictly time-ordered sequence of bars.
//
// A Series owns a private copy of its bars, so it can be shared read-only
// between any number of concurrent simulations.
type Series struct {
	bars  []Bar
	index map[int64]int // unix nanos -> position

	malformed int
}

// NewSeries validates bars and builds a Series. Gaps between timestamps are
// tolerated; duplicates and out-of-order bars are not.
func NewSeries(bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	s := &Series{
		bars:  make([]Bar, len(bars)),
		index: make(map[int64]int, len(bars)),
	}
	copy(s.bars, bars)

	for i, b := range s.bars {
		if b.Time.IsZero() {
			return nil, fmt.Errorf("%w: bar %d has zero timestamp", ErrInvalidBar, i)
		}
		if !finite(b.Volume) || b.Volume < 0 {
			return nil, fmt.Errorf("%w: bar %d (%s) volume %v", ErrInvalidBar, i, b.Time.Format(time.RFC3339), b.Volume)
		}
		if i > 0 && !b.Time.After(s.bars[i-1].Time) {
			return nil, fmt.Errorf("%w: bar %d at %s follows %s", ErrNonMonotonic, i,
				b.Time.Format(time.RFC3339Nano), s.bars[i-1].Time.Format(time.RFC3339Nano))
		}
		if !b.Valid() {
			s.malformed++
		}
		s.index[b.Time.UnixNano()] = i
	}

	return s, nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// At returns the bar at position i.
func (s *Series) At(i int) Bar { return s.bars[i] }

// Bars returns a copy of the underlying bars.
func (s *Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Index returns the position of the bar stamped t.
func (s *Series) Index(t time.Time) (int, bool) {
	i, ok := s.index[t.UnixNano()]
	return i, ok
}

func (s *Series) First() Bar { return s.bars[0] }
func (s *Series) Last() Bar  { return s.bars[len(s.bars)-1] }

// Malformed is the number of bars with a non-finite OHLC value.
func (s *Series) Malformed() int { return s.malformed }

// Spacing returns the median distance between consecutive bars, or zero for
// a single-bar series.
func (s *Series) Spacing() time.Duration {
	if len(s.bars) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(s.bars)-1)
	for i := 1; i < len(s.bars); i++ {
		gaps = append(gaps, s.bars[i].Time.Sub(s.bars[i-1].Time))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	n := len(gaps)
	if n%2 == 1 {
		return gaps[n/2]
	}
	return (gaps[n/2-1] + gaps[n/2]) / 2
}
