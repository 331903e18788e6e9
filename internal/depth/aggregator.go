package depth

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// MaxLevels bounds how many bands are handed to the renderer.
	MaxLevels = 240

	passthroughBandRatio = 0.0005
	passthroughBandFloor = 0.0001
	minStepRatio         = 1e-4
	minStep              = 1e-9
)

// Aggregate buckets raw levels into price bands according to setting.
//
// Buckets are [anchor+i*step, anchor+(i+1)*step). Sell buckets are priced at
// their upper edge and buy buckets at their lower edge; buy and sell never
// share a bucket. The result is sorted ascending by price and holds at most
// MaxLevels entries, keeping the lowest prices.
//
// When anchor is not a positive finite number the first valid level price is
// used, and 1 when there is none.
func Aggregate(levels []LimitLevel, setting Setting, anchor float64) []AggregatedLevel {
	valid := normalize(levels)
	if len(valid) == 0 {
		return []AggregatedLevel{}
	}
	if !positive(anchor) {
		anchor = valid[0].Price
	}

	var out []AggregatedLevel
	if setting.Kind == KindAbs || setting.Kind == KindPct {
		out = bucketize(valid, stepFor(setting, anchor), anchor)
	} else {
		out = passthrough(valid, anchor)
	}

	slices.SortStableFunc(out, compareLevels)
	if len(out) > MaxLevels {
		out = out[:MaxLevels]
	}
	return out
}

// Step reports the bucket width Aggregate would use for setting at anchor.
// It returns 0 for the none kind.
func Step(setting Setting, anchor float64) float64 {
	if setting.Kind != KindAbs && setting.Kind != KindPct {
		return 0
	}
	if !positive(anchor) {
		anchor = 1
	}
	return stepFor(setting, anchor)
}

// PassthroughTolerance is the half-width of the synthetic band attached to
// unaggregated levels.
func PassthroughTolerance(anchor float64) float64 {
	return math.Max(anchor*passthroughBandRatio, passthroughBandFloor)
}

func stepFor(setting Setting, anchor float64) float64 {
	raw := setting.Size
	if setting.Kind == KindPct {
		raw = anchor * setting.Pct
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = 0
	}
	return math.Max(raw, math.Max(anchor*minStepRatio, minStep))
}

func passthrough(levels []LimitLevel, anchor float64) []AggregatedLevel {
	tol := PassthroughTolerance(anchor)
	out := make([]AggregatedLevel, 0, len(levels))
	seen := make(map[string]bool, len(levels))
	for i, lvl := range levels {
		// venues quoting the same price stay separately addressable
		key := priceKey(lvl.Side, lvl.Price)
		if seen[key] {
			key += "#" + strconv.Itoa(i)
		}
		seen[key] = true
		out = append(out, AggregatedLevel{
			key:        key,
			LimitLevel: lvl,
			Range: &Range{
				Min:       lvl.Price - tol,
				Max:       lvl.Price + tol,
				OffsetPct: offsetPct(lvl.Price, anchor),
				Index:     i,
			},
		})
	}
	return out
}

type bucket struct {
	level AggregatedLevel
	mixed bool // levels from more than one source
}

func bucketize(levels []LimitLevel, step, anchor float64) []AggregatedLevel {
	buckets := make(map[string]*bucket, len(levels))
	order := make([]string, 0, len(levels))
	dAnchor := decimal.NewFromFloat(anchor)
	dStep := decimal.NewFromFloat(step)

	for _, lvl := range levels {
		// decimal keeps boundary prices in their own bucket and never overflows
		idx := decimal.NewFromFloat(lvl.Price).Sub(dAnchor).Div(dStep).Floor()
		k := string(lvl.Side) + ":" + idx.String()

		b, ok := buckets[k]
		if !ok {
			lo := dAnchor.Add(idx.Mul(dStep)).InexactFloat64()
			hi := dAnchor.Add(idx.Add(decimal.NewFromInt(1)).Mul(dStep)).InexactFloat64()
			price := lo
			if lvl.Side == Sell {
				price = hi
			}
			b = &bucket{level: AggregatedLevel{
				LimitLevel: LimitLevel{Price: price, Side: lvl.Side, Source: lvl.Source},
				Range: &Range{
					Min:       lo,
					Max:       hi,
					OffsetPct: offsetPct(price, anchor),
					Index:     clampIndex(idx),
				},
			}}
			buckets[k] = b
			order = append(order, k)
		}
		b.level.USD += lvl.USD
		b.level.Base += lvl.Base
		b.level.Orders += lvl.Orders
		if !b.mixed && b.level.Source != lvl.Source {
			b.mixed = true
			b.level.Source = ""
		}
	}

	out := make([]AggregatedLevel, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		if b.level.Price <= 0 {
			continue
		}
		out = append(out, b.level)
	}
	return out
}

// normalize drops levels without a finite positive price or a known side and
// zeroes non-finite quantities.
func normalize(levels []LimitLevel) []LimitLevel {
	out := make([]LimitLevel, 0, len(levels))
	for _, lvl := range levels {
		if !positive(lvl.Price) {
			continue
		}
		side, ok := ParseSide(string(lvl.Side))
		if !ok {
			continue
		}
		out = append(out, LimitLevel{
			Price:  lvl.Price,
			Side:   side,
			USD:    finiteOrZero(lvl.USD),
			Base:   finiteOrZero(lvl.Base),
			Orders: finiteOrZero(lvl.Orders),
			Source: lvl.Source,
		})
	}
	return out
}

var (
	maxIndex = decimal.NewFromInt(math.MaxInt32)
	minIndex = decimal.NewFromInt(math.MinInt32)
)

// clampIndex reports a bucket index for display. Buckets are keyed by the
// exact index, so clamping far-away buckets does not merge them.
func clampIndex(idx decimal.Decimal) int {
	if idx.GreaterThan(maxIndex) {
		return math.MaxInt32
	}
	if idx.LessThan(minIndex) {
		return math.MinInt32
	}
	return int(idx.IntPart())
}

func compareLevels(a, b AggregatedLevel) int {
	if c := cmp.Compare(a.Price, b.Price); c != 0 {
		return c
	}
	// buy sorts before sell at an identical price
	return cmp.Compare(a.Side, b.Side)
}

func offsetPct(price, anchor float64) float64 {
	return (price - anchor) / anchor * 100
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
