package session

import (
	"levelview/internal/chart"
	"levelview/internal/depth"
	"levelview/internal/state"
)

type ActiveView struct {
	Key   string                `json:"key"`
	Level depth.AggregatedLevel `json:"level"`
	At    state.Point           `json:"at"`
}

type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	PriceMin float64 `json:"priceMin"`
	PriceMax float64 `json:"priceMax"`
	Fits     int     `json:"fits"`
}

// View is everything the browser needs to render the chart overlay.
type View struct {
	SessionID string                   `json:"sessionId"`
	Setting   depth.Setting            `json:"setting"`
	Anchor    float64                  `json:"anchor"`
	Phase     string                   `json:"phase"`
	Levels    []depth.AggregatedLevel  `json:"levels"`
	Active    *ActiveView              `json:"active,omitempty"`
	Lines     []chart.PriceLineOptions `json:"lines,omitempty"`
	Candles   []depth.ChartPoint       `json:"candles,omitempty"`
	Viewport  *Viewport                `json:"viewport,omitempty"`

	HoverThresholdPx float64 `json:"hoverThresholdPx"`
	ClickThresholdPx float64 `json:"clickThresholdPx"`
}

// View snapshots the session. Candles are included only when withCandles is
// set, since they only change with a new snapshot.
func (s *Session) View(withCandles bool) View {
	v := View{
		SessionID:        s.id,
		Setting:          s.setting,
		Anchor:           s.anchor,
		Phase:            s.hl.Phase().String(),
		Levels:           s.levels,
		HoverThresholdPx: s.opts.HoverThresholdPx,
		ClickThresholdPx: s.opts.ClickThresholdPx,
	}
	if v.Levels == nil {
		v.Levels = []depth.AggregatedLevel{}
	}
	if lvl, at, ok := s.Active(); ok {
		v.Active = &ActiveView{Key: lvl.Key(), Level: lvl, At: at}
	}
	if withCandles {
		v.Candles = s.points
	}
	if ls, ok := s.handle.Surface.(*chart.LinearScale); ok {
		v.Lines = ls.Lines()
		w, h := ls.Size()
		lo, hi := ls.VisibleRange()
		v.Viewport = &Viewport{Width: w, Height: h, PriceMin: lo, PriceMax: hi, Fits: ls.Fits()}
	}
	return v
}
