package depth

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts buy/sell and the bid/ask aliases some feeds use.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid", "bids":
		return Buy, true
	case "sell", "ask", "asks":
		return Sell, true
	}
	return "", false
}

type LimitLevel struct {
	Price  float64 `json:"price"`
	Side   Side    `json:"side"`
	USD    float64 `json:"usd"`
	Base   float64 `json:"base"`
	Orders float64 `json:"orders"`
	Source string  `json:"source,omitempty"`
}

// Range is the price span of the bucket a level was merged into.
type Range struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	OffsetPct float64 `json:"offsetPct"` // bucket price relative to anchor, in percent
	Index     int     `json:"index"`
}

type AggregatedLevel struct {
	LimitLevel
	Range *Range `json:"range,omitempty"`

	key string
}

// Key identifies a level for highlight purposes. Numerically equal prices
// produce the same key regardless of float formatting; a second unbucketed
// level at the same side and price gets "#<input index>" appended.
func (l AggregatedLevel) Key() string {
	if l.key != "" {
		return l.key
	}
	return priceKey(l.Side, l.Price)
}

func priceKey(side Side, price float64) string {
	return string(side) + ":" + decimal.NewFromFloat(price).String()
}

// HalfWidth returns half of the band width, or 0 when there is no band.
func (l AggregatedLevel) HalfWidth() float64 {
	if l.Range == nil {
		return 0
	}
	return (l.Range.Max - l.Range.Min) / 2
}

type Candle struct {
	TS    string  `json:"ts"` // ISO-8601
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// ChartPoint is a candle in the charting surface's native form.
type ChartPoint struct {
	Time  int64   `json:"time"` // epoch seconds
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Snapshot is one full view of the market. Each snapshot replaces the prior one.
type Snapshot struct {
	Candles     []Candle     `json:"candles"`
	LimitLevels []LimitLevel `json:"limitLevels"`
	MidPrice    *float64     `json:"midPrice"`
}
