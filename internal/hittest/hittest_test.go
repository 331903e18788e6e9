package hittest

import (
	"math"
	"testing"

	"levelview/internal/depth"
)

// fakeMapper places prices on a linear axis: y = (top - price) * pxPerUnit.
// Prices listed in hidden are reported as unmappable; prices in boom panic.
type fakeMapper struct {
	top       float64
	pxPerUnit float64
	hidden    map[float64]bool
	boom      map[float64]bool
	nan       map[float64]bool
}

func (f fakeMapper) PriceToCoordinate(p float64) (float64, bool) {
	if f.boom[p] {
		panic("chart disposed")
	}
	if f.nan[p] {
		return math.NaN(), true
	}
	if f.hidden[p] {
		return 0, false
	}
	return (f.top - p) * f.pxPerUnit, true
}

func (f fakeMapper) CoordinateToPrice(y float64) (float64, bool) {
	return f.top - y/f.pxPerUnit, true
}

func band(price, min, max float64) depth.AggregatedLevel {
	return depth.AggregatedLevel{
		LimitLevel: depth.LimitLevel{Price: price, Side: depth.Buy},
		Range:      &depth.Range{Min: min, Max: max},
	}
}

func TestHoverScenario(t *testing.T) {
	// 100 px per price unit; level 100 sits at y=1000.
	m := fakeMapper{top: 110, pxPerUnit: 100}
	levels := []depth.AggregatedLevel{band(100, 99.95, 100.05), band(105, 104.95, 105.05)}
	pointer := 100.02

	match, ok := FindNearest(995, &pointer, levels, m)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if match.Level.Price != 100 || math.Abs(match.PixelDistance-5) > 1e-9 {
		t.Fatalf("nearest %+v", match)
	}
	if math.Abs(match.PriceTolerance-0.05) > 1e-9 {
		t.Fatalf("tolerance got %v want 0.05", match.PriceTolerance)
	}
	if !match.Hit(HoverThresholdPx) {
		t.Fatal("5px away should be a hover hit")
	}

	far, ok := FindNearest(1020, &pointer, levels, m)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if far.Hit(HoverThresholdPx) {
		t.Fatal("20px away must not hit")
	}
}

func TestClickStricterThanHover(t *testing.T) {
	m := fakeMapper{top: 110, pxPerUnit: 100}
	levels := []depth.AggregatedLevel{band(100, 99.8, 100.2)}
	match, _ := FindNearest(1012, nil, levels, m)
	if !match.Hit(HoverThresholdPx) {
		t.Fatal("12px should pass hover")
	}
	if match.Hit(ClickThresholdPx) {
		t.Fatal("12px should fail click")
	}
}

func TestPriceToleranceGate(t *testing.T) {
	m := fakeMapper{top: 110, pxPerUnit: 100}
	levels := []depth.AggregatedLevel{band(100, 99.99, 100.01)}
	pointer := 100.05
	match, ok := FindNearest(1000, &pointer, levels, m)
	if !ok {
		t.Fatal("expected candidate")
	}
	if match.Hit(HoverThresholdPx) {
		t.Fatal("pointer price outside tolerance must not hit even at 0px")
	}
}

func TestDefaultToleranceWithoutRange(t *testing.T) {
	m := fakeMapper{top: 110, pxPerUnit: 100}
	levels := []depth.AggregatedLevel{{LimitLevel: depth.LimitLevel{Price: 100, Side: depth.Sell}}}
	match, ok := FindNearest(1000, nil, levels, m)
	if !ok || math.Abs(match.PriceTolerance-0.05) > 1e-12 {
		t.Fatalf("tolerance %+v", match)
	}
	if !math.IsNaN(match.PriceDistance) {
		t.Fatal("price distance should be NaN without a pointer price")
	}
}

func TestUnmappableLevelsSkipped(t *testing.T) {
	m := fakeMapper{
		top: 110, pxPerUnit: 100,
		hidden: map[float64]bool{100: true},
		boom:   map[float64]bool{101: true},
		nan:    map[float64]bool{102: true},
	}
	levels := []depth.AggregatedLevel{band(100, 99.9, 100.1), band(101, 100.9, 101.1), band(102, 101.9, 102.1), band(90, 89.9, 90.1)}
	match, ok := FindNearest(1000, nil, levels, m)
	if !ok {
		t.Fatal("90 is still mappable")
	}
	if match.Level.Price != 90 {
		t.Fatalf("matched unmappable level %v", match.Level.Price)
	}

	_, ok = FindNearest(1000, nil, levels[:3], m)
	if ok {
		t.Fatal("no mappable levels should mean no match")
	}
	if _, ok := FindNearest(0, nil, nil, m); ok {
		t.Fatal("empty levels should mean no match")
	}
}

func TestProbe(t *testing.T) {
	m := fakeMapper{top: 110, pxPerUnit: 100}
	levels := []depth.AggregatedLevel{band(100, 99.95, 100.05), band(100.5, 100.45, 100.55)}
	got, ok := Probe(997, levels, m, HoverThresholdPx)
	if !ok || got.Level.Price != 100 {
		t.Fatalf("probe got %+v %v", got, ok)
	}
	if _, ok := Probe(970, levels, m, HoverThresholdPx); ok {
		t.Fatal("between lines, over 14px from both, should miss")
	}
}
