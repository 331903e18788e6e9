package session

import (
	"levelview/internal/chart"
	"levelview/internal/depth"
	"levelview/internal/hittest"
	"levelview/internal/state"
)

type Options struct {
	HoverThresholdPx float64
	ClickThresholdPx float64
}

func DefaultOptions() Options {
	return Options{HoverThresholdPx: hittest.HoverThresholdPx, ClickThresholdPx: hittest.ClickThresholdPx}
}

// Session drives one chart: it re-aggregates when the snapshot or setting
// changes, runs hit tests for pointer input and keeps the overlay in sync.
// A Session must only be used from one goroutine.
type Session struct {
	id     string
	handle *chart.Handle
	opts   Options

	setting depth.Setting
	snap    depth.Snapshot
	version uint64

	// memo of the last aggregation
	builtVersion uint64
	builtSetting depth.Setting
	built        bool

	anchor float64
	levels []depth.AggregatedLevel
	index  map[string]int
	points []depth.ChartPoint

	hl state.Highlight
}

func New(id string, h *chart.Handle, setting depth.Setting, opts Options) *Session {
	if opts.HoverThresholdPx <= 0 {
		opts.HoverThresholdPx = hittest.HoverThresholdPx
	}
	if opts.ClickThresholdPx <= 0 {
		opts.ClickThresholdPx = hittest.ClickThresholdPx
	}
	return &Session{id: id, handle: h, opts: opts, setting: setting, anchor: 1, index: map[string]int{}}
}

func (s *Session) ID() string { return s.id }

// Close tears down the overlay and the chart surface.
func (s *Session) Close() error { return s.handle.Close() }

// Apply replaces the market snapshot. It returns true when the aggregated
// levels were rebuilt.
func (s *Session) Apply(snap depth.Snapshot) bool {
	s.snap = snap
	s.version++
	s.points = depth.ToChartPoints(snap.Candles)
	s.handle.Surface.SetSeries(s.points)
	rebuilt := s.recompute()
	if s.version == 1 {
		s.handle.Surface.Fit()
	}
	return rebuilt
}

// SetSetting changes the aggregation. Setting the current value is a no-op.
func (s *Session) SetSetting(v depth.Setting) bool {
	s.setting = v
	return s.recompute()
}

func (s *Session) Setting() depth.Setting { return s.setting }

func (s *Session) recompute() bool {
	if s.built && s.builtVersion == s.version && s.builtSetting == s.setting {
		return false
	}
	s.anchor = depth.AnchorPrice(s.snap.MidPrice, s.snap.Candles, s.snap.LimitLevels)
	s.levels = depth.Aggregate(s.snap.LimitLevels, s.setting, s.anchor)
	s.index = make(map[string]int, len(s.levels))
	for i, l := range s.levels {
		s.index[l.Key()] = i
	}
	s.built, s.builtVersion, s.builtSetting = true, s.version, s.setting

	s.hl.Prune(func(k string) bool { _, ok := s.index[k]; return ok })
	s.redraw()
	return true
}

func (s *Session) redraw() {
	key, _, _ := s.hl.Active()
	s.handle.Overlay.Rebuild(s.levels, key, depth.PriceDecimals(s.anchor))
}

// track runs fn and redraws when the highlighted key changed. It reports
// whether the key or its anchor position changed.
func (s *Session) track(fn func()) bool {
	beforeKey, beforePos, _ := s.hl.Active()
	fn()
	afterKey, afterPos, _ := s.hl.Active()
	if afterKey != beforeKey {
		s.redraw()
		return true
	}
	return afterPos != beforePos
}

func (s *Session) probe(y, threshold float64) string {
	m, ok := hittest.Probe(y, s.levels, s.handle.Surface, threshold)
	if !ok {
		return ""
	}
	return m.Level.Key()
}

func (s *Session) PointerMove(x, y float64) bool {
	return s.track(func() {
		s.hl.Move(s.probe(y, s.opts.HoverThresholdPx), state.Point{X: x, Y: y})
	})
}

func (s *Session) PointerLeave() bool {
	return s.track(s.hl.Leave)
}

func (s *Session) Click(x, y float64) bool {
	return s.track(func() {
		s.hl.Click(s.probe(y, s.opts.ClickThresholdPx), state.Point{X: x, Y: y})
	})
}

// KeyDown handles keyboard input; only Escape does anything.
func (s *Session) KeyDown(key string) bool {
	if key != "Escape" && key != "Esc" {
		return false
	}
	return s.track(s.hl.Escape)
}

// Resize updates the chart dimensions and re-fits the view. Hit testing is
// not involved.
func (s *Session) Resize(width, height float64) {
	s.handle.Surface.Resize(width, height)
	s.handle.Surface.Fit()
}

// Reset clears hover and pin and asks the chart to re-fit.
func (s *Session) Reset() {
	s.track(s.hl.Reset)
	s.handle.Surface.Fit()
}

func (s *Session) Levels() []depth.AggregatedLevel { return s.levels }
func (s *Session) Anchor() float64                 { return s.anchor }
func (s *Session) Phase() state.Phase              { return s.hl.Phase() }

// Active returns the highlighted level and its tooltip anchor.
func (s *Session) Active() (depth.AggregatedLevel, state.Point, bool) {
	key, pos, ok := s.hl.Active()
	if !ok {
		return depth.AggregatedLevel{}, state.Point{}, false
	}
	i, ok := s.index[key]
	if !ok {
		return depth.AggregatedLevel{}, state.Point{}, false
	}
	return s.levels[i], pos, true
}
