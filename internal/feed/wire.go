package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"levelview/internal/depth"
)

// number accepts a JSON number, a numeric string or null. Anything it cannot
// parse decodes as invalid instead of failing the whole message.
type number struct {
	v   float64
	ok  bool
	set bool // key was present, even if null
}

func (n *number) UnmarshalJSON(b []byte) error {
	*n = number{set: true}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	d, err := decimal.NewFromString(string(bytes.Trim(b, `"`)))
	if err != nil {
		return nil
	}
	n.v, n.ok = d.InexactFloat64(), true
	return nil
}

func (n number) orNaN() float64 {
	if !n.ok {
		return math.NaN()
	}
	return n.v
}

func (n number) orZero() float64 {
	if !n.ok {
		return 0
	}
	return n.v
}

type wireCandle struct {
	TS    string `json:"ts"`
	Time  string `json:"time"`
	Open  number `json:"open"`
	High  number `json:"high"`
	Low   number `json:"low"`
	Close number `json:"close"`
}

type wireLevel struct {
	Price  number `json:"price"`
	Side   string `json:"side"`
	USD    number `json:"usd"`
	Base   number `json:"base"`
	Orders number `json:"orders"`
	Source string `json:"source"`
}

type wireSnapshot struct {
	Candles     []wireCandle `json:"candles"`
	LimitLevels []wireLevel  `json:"limitLevels"`
	Levels      []wireLevel  `json:"levels"` // some publishers use "levels"
	MidPrice    number       `json:"midPrice"`
}

// envelope is the {"type": ..., "data": {...}} framing used on the socket.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeSnapshot parses a snapshot, bare or wrapped in an envelope.
func DecodeSnapshot(b []byte) (depth.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		if env.Type != "" && env.Type != "snapshot" {
			return depth.Snapshot{}, fmt.Errorf("unexpected message type %q", env.Type)
		}
		b = env.Data
	}
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return depth.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if w.Candles == nil && w.LimitLevels == nil && w.Levels == nil && !w.MidPrice.set {
		return depth.Snapshot{}, errors.New("message carries no snapshot fields")
	}
	return w.toSnapshot(), nil
}

func (w wireSnapshot) toSnapshot() depth.Snapshot {
	snap := depth.Snapshot{
		Candles:     make([]depth.Candle, 0, len(w.Candles)),
		LimitLevels: make([]depth.LimitLevel, 0, len(w.LimitLevels)+len(w.Levels)),
	}
	for _, c := range w.Candles {
		ts := c.TS
		if ts == "" {
			ts = c.Time
		}
		snap.Candles = append(snap.Candles, depth.Candle{
			TS:    ts,
			Open:  c.Open.orNaN(),
			High:  c.High.orNaN(),
			Low:   c.Low.orNaN(),
			Close: c.Close.orNaN(),
		})
	}
	for _, l := range slices.Concat(w.LimitLevels, w.Levels) {
		side, _ := depth.ParseSide(l.Side)
		snap.LimitLevels = append(snap.LimitLevels, depth.LimitLevel{
			Price:  l.Price.orNaN(),
			Side:   side,
			USD:    l.USD.orZero(),
			Base:   l.Base.orZero(),
			Orders: l.Orders.orZero(),
			Source: l.Source,
		})
	}
	if w.MidPrice.ok {
		mid := w.MidPrice.v
		snap.MidPrice = &mid
	}
	return snap
}
