package chart

import (
	"errors"
	"math"
	"slices"

	"levelview/internal/depth"
)

var ErrClosed = errors.New("chart surface closed")

const fitPadding = 0.05

// LinearScale is a Surface for a chart rendered elsewhere (the browser). It
// mirrors the client's viewport so price and pixel conversions match what the
// user sees, and records price lines so they can be shipped to the client.
type LinearScale struct {
	width, height float64
	min, max      float64

	series []depth.ChartPoint
	lines  map[PriceLine]PriceLineOptions
	nextID PriceLine
	fits   int
	closed bool
}

func NewLinearScale(width, height float64) *LinearScale {
	return &LinearScale{width: width, height: height, lines: map[PriceLine]PriceLineOptions{}}
}

// SetVisibleRange sets the price shown at the bottom and top edges.
func (s *LinearScale) SetVisibleRange(lo, hi float64) {
	s.min, s.max = lo, hi
}

func (s *LinearScale) VisibleRange() (float64, float64) { return s.min, s.max }
func (s *LinearScale) Size() (float64, float64)         { return s.width, s.height }

// Fits counts Fit calls; clients re-fit their time axis when it changes.
func (s *LinearScale) Fits() int { return s.fits }

func (s *LinearScale) ready() bool {
	return !s.closed && s.height > 0 && s.max > s.min &&
		!math.IsInf(s.max-s.min, 0) && !math.IsNaN(s.max-s.min)
}

func (s *LinearScale) PriceToCoordinate(price float64) (float64, bool) {
	if !s.ready() || price < s.min || price > s.max {
		return 0, false
	}
	return (s.max - price) / (s.max - s.min) * s.height, true
}

func (s *LinearScale) CoordinateToPrice(y float64) (float64, bool) {
	if !s.ready() || y < 0 || y > s.height {
		return 0, false
	}
	return s.max - y/s.height*(s.max-s.min), true
}

func (s *LinearScale) SetSeries(points []depth.ChartPoint) {
	s.series = points
}

func (s *LinearScale) Series() []depth.ChartPoint { return s.series }

func (s *LinearScale) CreatePriceLine(opts PriceLineOptions) PriceLine {
	s.nextID++
	if !s.closed {
		s.lines[s.nextID] = opts
	}
	return s.nextID
}

func (s *LinearScale) RemovePriceLine(l PriceLine) {
	delete(s.lines, l)
}

// Lines returns the drawn lines in creation order.
func (s *LinearScale) Lines() []PriceLineOptions {
	ids := make([]PriceLine, 0, len(s.lines))
	for id := range s.lines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]PriceLineOptions, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.lines[id])
	}
	return out
}

func (s *LinearScale) Resize(width, height float64) {
	s.width, s.height = width, height
}

// Fit sets the visible range to cover the candles and price lines with a
// small margin. It leaves the range alone when there is nothing to show.
func (s *LinearScale) Fit() {
	if s.closed {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range s.series {
		lo, hi = math.Min(lo, p.Low), math.Max(hi, p.High)
	}
	for _, l := range s.lines {
		lo, hi = math.Min(lo, l.Price), math.Max(hi, l.Price)
	}
	s.fits++
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return
	}
	pad := (hi - lo) * fitPadding
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*fitPadding, 1e-9)
	}
	s.min, s.max = lo-pad, hi+pad
}

func (s *LinearScale) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.lines = map[PriceLine]PriceLineOptions{}
	s.series = nil
	return nil
}
