package depth

import (
	"math"
	"slices"
	"time"
)

// ToChartPoints converts candles to epoch-second points sorted by time.
// Candles with an unparsable timestamp or a non-finite price are skipped, and
// when two candles share a timestamp the later one in the input wins.
func ToChartPoints(candles []Candle) []ChartPoint {
	byTime := make(map[int64]int, len(candles))
	out := make([]ChartPoint, 0, len(candles))
	for _, c := range candles {
		ts, ok := parseTS(c.TS)
		if !ok || !finite(c.Open, c.High, c.Low, c.Close) {
			continue
		}
		p := ChartPoint{Time: ts, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
		if i, dup := byTime[ts]; dup {
			out[i] = p
			continue
		}
		byTime[ts] = len(out)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ChartPoint) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return out
}

func parseTS(s string) (int64, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
