package market

import (
	"fmt"
	"strings"
	"time"
)

var timeframes = map[string]time.Duration{
	"M1":  time.Minute,
	"M5":  5 * time.Minute,
	"M15": 15 * time.Minute,
	"M30": 30 * time.Minute,
	"H1":  time.Hour,
	"H4":  4 * time.Hour,
	"D1":  24 * time.Hour,
	"W1":  7 * 24 * time.Hour,
}

// ParseTimeframe accepts M1..W1 style names and Go durations ("90s", "2h").
func ParseTimeframe(tf string) (time.Duration, error) {
	tf = strings.TrimSpace(tf)
	if d, ok := timeframes[strings.ToUpper(tf)]; ok {
		return d, nil
	}
	d, err := time.ParseDuration(tf)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return d, nil
}

// TimeframeString names d the way ParseTimeframe reads it.
func TimeframeString(d time.Duration) (string, error) {
	if d <= 0 {
		return "", fmt.Errorf("invalid timeframe: %s", d)
	}
	switch {
	case d == 7*24*time.Hour:
		return "W1", nil
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("D%d", d/(24*time.Hour)), nil
	case d%time.Hour == 0:
		return fmt.Sprintf("H%d", d/time.Hour), nil
	case d%time.Minute == 0:
		return fmt.Sprintf("M%d", d/time.Minute), nil
	default:
		return d.String(), nil
	}
}
