package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteBarsAt(t *testing.T, start time.Time, closes ...float64) []Bar {
	t.Helper()
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Time: start.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1}
	}
	return bars
}

func TestResample(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 6, 9, 13, 0, 0, time.UTC)
	bars := minuteBarsAt(t, start, 10, 11, 12, 13, 14, 15, 16)
	bars[3].Close = math.NaN() // 09:16 is skipped
	s, err := NewSeries(bars)
	require.NoError(t, err)

	buckets, err := Resample(s, 5*time.Minute, 1)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// 09:10 bucket: 09:13, 09:14
	assert.Equal(t, time.Date(2025, 1, 6, 9, 10, 0, 0, time.UTC), buckets[0].Bar.Time)
	assert.Equal(t, Bar{Time: buckets[0].Bar.Time, Open: 10, High: 12, Low: 9, Close: 11, Volume: 2}, buckets[0].Bar)
	assert.Equal(t, 1, buckets[0].Last)
	assert.Equal(t, 2, buckets[0].Count)

	// 09:15 bucket: 09:15, 09:17, 09:18, 09:19
	assert.Equal(t, 12.0, buckets[1].Bar.Open)
	assert.Equal(t, 16.0, buckets[1].Bar.Close)
	assert.Equal(t, 17.0, buckets[1].Bar.High)
	assert.Equal(t, 6, buckets[1].Last)
	assert.Equal(t, 4, buckets[1].Count)

	buckets, err = Resample(s, 5*time.Minute, 3)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 6, buckets[0].Last)

	_, err = Resample(s, 0, 1)
	assert.Error(t, err)
	_, err = Resample(nil, time.Minute, 1)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestTimeframes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
		name string
	}{
		{"M1", time.Minute, "M1"},
		{"m15", 15 * time.Minute, "M15"},
		{"H4", 4 * time.Hour, "H4"},
		{"D1", 24 * time.Hour, "D1"},
		{"W1", 7 * 24 * time.Hour, "W1"},
		{"90s", 90 * time.Second, "1m30s"},
		{"2h", 2 * time.Hour, "H2"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			d, err := ParseTimeframe(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)

			name, err := TimeframeString(d)
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
		})
	}

	for _, bad := range []string{"", "Q1", "-5m", "0s"} {
		_, err := ParseTimeframe(bad)
		assert.Error(t, err, bad)
	}
	_, err := TimeframeString(0)
	assert.Error(t, err)
}

func TestGaps(t *testing.T) {
	t.Parallel()

	// Friday 2025-01-03 21:00 UTC
	fri := time.Date(2025, 1, 3, 21, 0, 0, 0, time.UTC)
	bars := minuteBarsAt(t, fri, 1, 2, 3)
	// 3 missing minutes
	bars = append(bars, Bar{Time: fri.Add(6 * time.Minute), Open: 1, High: 1, Low: 1, Close: 1})
	// 20 missing minutes
	bars = append(bars, Bar{Time: fri.Add(27 * time.Minute), Open: 1, High: 1, Low: 1, Close: 1})
	// over the weekend to Sunday 22:00
	sun := time.Date(2025, 1, 5, 22, 0, 0, 0, time.UTC)
	bars = append(bars, minuteBarsAt(t, sun, 1, 2, 3, 4)...)

	s, err := NewSeries(bars)
	require.NoError(t, err)
	require.Equal(t, time.Minute, s.Spacing())

	gaps := s.Gaps(0)
	require.Len(t, gaps, 3)
	assert.Equal(t, Gap{After: fri.Add(2 * time.Minute), Missing: 3, Kind: "minor"}, gaps[0])
	assert.Equal(t, "suspicious", gaps[1].Kind)
	assert.Equal(t, 20, gaps[1].Missing)
	assert.Equal(t, "weekend", gaps[2].Kind)

	st := s.GapStats(time.Minute)
	assert.Equal(t, 3, st.GapCount)
	assert.Equal(t, 1, st.WeekendGaps)
	assert.Equal(t, 1, st.SuspiciousGaps)
	assert.Equal(t, len(bars), st.Present)
	assert.Equal(t, st.Present+st.Missing, st.Expected)
	assert.Equal(t, "weekend", st.LongestGapKind)

	one, err := NewSeries(bars[:1])
	require.NoError(t, err)
	assert.Empty(t, one.Gaps(0))
}
