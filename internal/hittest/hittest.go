package hittest

import (
	"math"

	"levelview/internal/depth"
)

// Hover is more permissive than click to keep the hover highlight from flickering.
const (
	HoverThresholdPx = 14
	ClickThresholdPx = 10
)

// CoordinateMapper converts between prices and pixel rows on a chart's price
// axis. The bool is false when the value cannot be mapped (off-screen, chart
// not laid out yet).
type CoordinateMapper interface {
	PriceToCoordinate(price float64) (float64, bool)
	CoordinateToPrice(y float64) (float64, bool)
}

type Match struct {
	Level          depth.AggregatedLevel
	PixelDistance  float64
	PriceDistance  float64 // NaN when no pointer price was available
	PriceTolerance float64
}

// FindNearest returns the level whose price line is closest to pixelY.
// Levels the mapper cannot place are skipped. It reports false when no level
// could be mapped at all.
func FindNearest(pixelY float64, pointerPrice *float64, levels []depth.AggregatedLevel, m CoordinateMapper) (Match, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, lvl := range levels {
		y, ok := coordinate(m, lvl.Price)
		if !ok {
			continue
		}
		if d := math.Abs(y - pixelY); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Match{}, false
	}

	lvl := levels[best]
	tol := lvl.HalfWidth()
	if !(tol > 0) {
		tol = math.Max(lvl.Price*0.0005, 0.0001)
	}
	priceDist := math.NaN()
	if pointerPrice != nil && !math.IsNaN(*pointerPrice) && !math.IsInf(*pointerPrice, 0) {
		priceDist = math.Abs(*pointerPrice - lvl.Price)
	}
	return Match{Level: lvl, PixelDistance: bestDist, PriceDistance: priceDist, PriceTolerance: tol}, true
}

// Hit reports whether the match is close enough to count: within thresholdPx
// and, when the pointer price is known, within the level's price tolerance.
func (m Match) Hit(thresholdPx float64) bool {
	if m.PixelDistance > thresholdPx {
		return false
	}
	if math.IsNaN(m.PriceDistance) {
		return true
	}
	return m.PriceDistance <= m.PriceTolerance
}

// Probe maps pixelY to a price and returns the nearest level if it is a hit.
func Probe(pixelY float64, levels []depth.AggregatedLevel, m CoordinateMapper, thresholdPx float64) (Match, bool) {
	var pointerPrice *float64
	if p, ok := price(m, pixelY); ok {
		pointerPrice = &p
	}
	match, ok := FindNearest(pixelY, pointerPrice, levels, m)
	if !ok || !match.Hit(thresholdPx) {
		return Match{}, false
	}
	return match, true
}

// Chart libraries return garbage or blow up mid-resize; treat that as unmapped.
func coordinate(m CoordinateMapper, p float64) (y float64, ok bool) {
	defer func() {
		if recover() != nil {
			y, ok = 0, false
		}
	}()
	y, ok = m.PriceToCoordinate(p)
	if ok && (math.IsNaN(y) || math.IsInf(y, 0)) {
		return 0, false
	}
	return y, ok
}

func price(m CoordinateMapper, y float64) (p float64, ok bool) {
	defer func() {
		if recover() != nil {
			p, ok = 0, false
		}
	}()
	p, ok = m.CoordinateToPrice(y)
	if ok && (math.IsNaN(p) || math.IsInf(p, 0)) {
		return 0, false
	}
	return p, ok
}
