package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Column aliases are resolved once, against the header row. Nothing probes
// field names after ingestion.
var barColumns = map[string][]string{
	"time":   {"time", "timestamp", "open_time", "date", "datetime"},
	"open":   {"open", "o"},
	"high":   {"high", "h"},
	"low":    {"low", "l"},
	"close":  {"close", "c"},
	"volume": {"volume", "vol", "v"},
}

var signalColumns = map[string][]string{
	"time":          {"time", "timestamp", "open_time"},
	"side":          {"side", "signal_side"},
	"size":          {"size", "units"},
	"risk_fraction": {"risk_fraction", "risk_pct"},
	"take_profit":   {"take_profit", "tp_price", "tp"},
	"stop_loss":     {"stop_loss", "sl_price", "sl"},
	"note":          {"note"},
}

type header map[string]int

func resolveHeader(row []string, aliases map[string][]string, required ...string) (header, error) {
	pos := map[string]int{}
	for i, name := range row {
		pos[strings.ToLower(strings.TrimSpace(name))] = i
	}

	h := header{}
	for field, names := range aliases {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				h[field] = i
				break
			}
		}
	}
	for _, field := range required {
		if _, ok := h[field]; !ok {
			return nil, fmt.Errorf("csv header %v: missing %q column", row, field)
		}
	}
	return h, nil
}

func (h header) get(row []string, field string) string {
	i, ok := h[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadBarsCSV reads OHLCV rows. A header row is required; column order is
// free. Empty OHLC cells become NaN and mark the bar malformed.
func ReadBarsCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptySeries
	}
	if err != nil {
		return nil, err
	}
	h, err := resolveHeader(first, barColumns, "time", "open", "high", "low", "close")
	if err != nil {
		return nil, err
	}

	var bars []Bar
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		t, err := ParseTime(h.get(row, "time"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var b Bar
		b.Time = t
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
		}
		for _, fld := range fields {
			v, err := parsePrice(h.get(row, fld.name))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, fld.name, err)
			}
			*fld.dst = v
		}
		if v := h.get(row, "volume"); v != "" {
			if b.Volume, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line %d: bad volume %q: %w", line, v, err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// LoadSeries reads a bars CSV file and validates it into a Series.
func LoadSeries(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s, err := NewSeries(bars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSignalsCSV reads signal rows:
//
//	time,side,size,risk_fraction,take_profit,stop_loss[,note]
//
// Rows with an empty side are skipped. risk_fraction takes precedence over
// size; a row with neither trades one unit.
func ReadSignalsCSV(r io.Reader) ([]Signal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h, err := resolveHeader(first, signalColumns, "time", "side")
	if err != nil {
		return nil, err
	}

	var sigs []Signal
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		side := h.get(row, "side")
		if side == "" || strings.EqualFold(side, "nan") {
			continue
		}

		var s Signal
		if s.Time, err = ParseTime(h.get(row, "time")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Side, err = ParseSide(side); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		s.Size = Units(1)
		size, err := optFloat(h.get(row, "size"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad size: %w", line, err)
		}
		if size != nil {
			s.Size = Units(*size)
		}
		rf, err := optFloat(h.get(row, "risk_fraction"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad risk_fraction: %w", line, err)
		}
		if rf != nil {
			s.Size = RiskFraction(*rf)
		}

		if s.TakeProfit, err = optFloat(h.get(row, "take_profit")); err != nil {
			return nil, fmt.Errorf("line %d: bad take_profit: %w", line, err)
		}
		if s.StopLoss, err = optFloat(h.get(row, "stop_loss")); err != nil {
			return nil, fmt.Errorf("line %d: bad stop_loss: %w", line, err)
		}
		s.Note = h.get(row, "note")

		sigs = append(sigs, s)
	}
	return sigs, nil
}

// LoadSignals reads a signals CSV file into a Signals stream.
func LoadSignals(path string) (*Signals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sigs, err := ReadSignalsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ss, err := NewSignals(sigs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ss, nil
}

// WriteSignalsCSV writes sigs in the layout ReadSignalsCSV reads.
func WriteSignalsCSV(w io.Writer, sigs []Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "side", "size", "risk_fraction", "take_profit", "stop_loss", "note"}); err != nil {
		return err
	}
	for _, s := range sigs {
		var size, rf string
		switch s.Size.Kind {
		case SizeRiskFraction:
			rf = formatFloat(s.Size.Value)
		default:
			size = formatFloat(s.Size.Value)
		}
		rec := []string{
			s.Time.UTC().Format(time.RFC3339Nano),
			s.Side.String(),
			size,
			rf,
			formatOpt(s.TakeProfit),
			formatOpt(s.StopLoss),
			s.Note,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC3339 variants, "YYYY-MM-DD hh:mm:ss" (UTC) and unix
// epochs in seconds or milliseconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func parsePrice(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func optFloat(s string) (*float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
