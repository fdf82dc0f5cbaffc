package market

import (
	"fmt"
	"time"
)

// Bucket is one resampled bar. Last is the index, in the source series, of
// the last well-formed bar that went into it; the bucket is known once that
// bar has closed.
type Bucket struct {
	Bar   Bar
	Last  int
	Count int
}

// Resample aggregates well-formed bars into buckets of width tf, aligned
// with time.Truncate (UTC midnight for intraday widths, Monday for W1).
// Buckets with fewer than minValid bars are dropped.
// Malformed source bars are ignored.
func Resample(s *Series, tf time.Duration, minValid int) ([]Bucket, error) {
	if s == nil || s.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if tf <= 0 {
		return nil, fmt.Errorf("resample: invalid timeframe %s", tf)
	}
	// never allow 0, it would keep empty buckets
	if minValid < 1 {
		minValid = 1
	}

	var (
		out []Bucket
		cur Bucket
		key time.Time
		set bool
	)
	flush := func() {
		if set && cur.Count >= minValid {
			out = append(out, cur)
		}
	}

	for i, b := range s.bars {
		if !b.Valid() {
			continue
		}
		start := b.Time.Truncate(tf)
		if !set || !start.Equal(key) {
			flush()
			key, set = start, true
			cur = Bucket{
				Bar: Bar{Time: start, Open: b.Open, High: b.High, Low: b.Low},
			}
		}
		if b.High > cur.Bar.High {
			cur.Bar.High = b.High
		}
		if b.Low < cur.Bar.Low {
			cur.Bar.Low = b.Low
		}
		cur.Bar.Close = b.Close
		cur.Bar.Volume += b.Volume
		cur.Last = i
		cur.Count++
	}
	flush()

	return out, nil
}
