package chart

import "levelview/internal/depth"

const (
	BuyColor       = "#22c55e"
	SellColor      = "#ef4444"
	HighlightColor = "#facc15"
)

// Overlay owns the price lines drawn for one set of aggregated levels.
type Overlay struct {
	surface Surface
	lines   []PriceLine
}

func NewOverlay(s Surface) *Overlay {
	return &Overlay{surface: s}
}

// Rebuild removes every line it drew before and draws one per level. The
// level whose key equals active is drawn solid, wider and in the highlight color.
func (o *Overlay) Rebuild(levels []depth.AggregatedLevel, active string, decimals int32) {
	o.Clear()
	o.lines = make([]PriceLine, 0, len(levels))
	for _, lvl := range levels {
		opts := PriceLineOptions{
			Price: lvl.Price,
			Color: BuyColor,
			Style: Dashed,
			Width: 1,
			Title: depth.FormatLabel(lvl, decimals),
			Key:   lvl.Key(),
		}
		if lvl.Side == depth.Sell {
			opts.Color = SellColor
		}
		if opts.Key == active {
			opts.Color = HighlightColor
			opts.Style = Solid
			opts.Width = 2
		}
		o.lines = append(o.lines, o.surface.CreatePriceLine(opts))
	}
}

func (o *Overlay) Clear() {
	for _, l := range o.lines {
		o.surface.RemovePriceLine(l)
	}
	o.lines = nil
}

func (o *Overlay) Len() int { return len(o.lines) }
