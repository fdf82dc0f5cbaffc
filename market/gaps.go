package market

import "time"

// Gap is a run of missing bars between two present ones.
type Gap struct {
	After   time.Time // last bar before the gap
	Missing int       // number of missing intervals
	Kind    string    // "weekend", "suspicious" or "minor"
}

type GapStats struct {
	Expected       int // bars the span would hold without gaps
	Present        int
	Missing        int
	GapCount       int
	WeekendGaps    int
	SuspiciousGaps int
	LongestGap     int
	LongestGapKind string
}

// Gaps lists the holes in the series for a nominal bar interval step. A
// step <= 0 uses Spacing.
func (s *Series) Gaps(step time.Duration) []Gap {
	if step <= 0 {
		step = s.Spacing()
	}
	if step <= 0 {
		return nil
	}

	var gaps []Gap
	for i := 1; i < len(s.bars); i++ {
		delta := s.bars[i].Time.Sub(s.bars[i-1].Time)
		missing := int(delta/step) - 1
		if missing < 1 {
			continue
		}
		gaps = append(gaps, Gap{
			After:   s.bars[i-1].Time,
			Missing: missing,
			Kind:    classifyGap(s.bars[i-1].Time.Add(step), time.Duration(missing)*step, step),
		})
	}
	return gaps
}

func classifyGap(start time.Time, length, step time.Duration) string {
	wd := start.UTC().Weekday()

	// Weekend-ish if gap >= 24h and starts Fri/Sat/Sun (UTC heuristic)
	if length >= 24*time.Hour {
		if wd == time.Friday || wd == time.Saturday || wd == time.Sunday {
			return "weekend"
		}
		return "suspicious"
	}

	// ten or more missing bars is worth flagging
	if length >= 10*step {
		return "suspicious"
	}
	return "minor"
}

// GapStats summarises Gaps(step).
func (s *Series) GapStats(step time.Duration) GapStats {
	st := GapStats{Present: len(s.bars), Expected: len(s.bars)}
	for _, g := range s.Gaps(step) {
		st.GapCount++
		st.Missing += g.Missing
		if g.Missing > st.LongestGap {
			st.LongestGap = g.Missing
			st.LongestGapKind = g.Kind
		}
		switch g.Kind {
		case "weekend":
			st.WeekendGaps++
		case "suspicious":
			st.SuspiciousGaps++
		}
	}
	st.Expected += st.Missing
	return st
}
