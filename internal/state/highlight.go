package state

type Phase int

const (
	Idle Phase = iota
	Hovering
	Pinned
)

func (p Phase) String() string {
	switch p {
	case Hovering:
		return "hovering"
	case Pinned:
		return "pinned"
	}
	return "idle"
}

// Point is a pointer position in chart pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Highlight tracks which level is hovered or pinned on one chart. A pinned
// level keeps the highlight while the pointer hovers other levels.
//
// Highlight is not safe for concurrent use; it belongs to the goroutine that
// delivers the chart's input events.
type Highlight struct {
	hoverKey string
	pointer  *Point
	pinKey   string
	pinPos   Point
}

func (h *Highlight) Phase() Phase {
	switch {
	case h.pinKey != "":
		return Pinned
	case h.hoverKey != "":
		return Hovering
	}
	return Idle
}

// Move records a pointer move. key is the level under the pointer, or "" on a miss.
func (h *Highlight) Move(key string, pos Point) {
	if key == "" {
		h.hoverKey = ""
		if h.pinKey == "" {
			h.pointer = nil
		}
		return
	}
	h.hoverKey = key
	h.pointer = &pos
}

// Leave handles the pointer leaving the chart.
func (h *Highlight) Leave() { h.Move("", Point{}) }

// Click pins key, unpins when key is already pinned, and dismisses the pin
// when the click hit nothing (key == "").
func (h *Highlight) Click(key string, pos Point) {
	if key == "" || key == h.pinKey {
		h.Reset()
		return
	}
	h.pinKey = key
	h.pinPos = pos
}

// Escape clears the pin and any hover.
func (h *Highlight) Escape() { h.Reset() }

func (h *Highlight) Reset() {
	*h = Highlight{}
}

// Active returns the highlighted key and where to anchor its tooltip.
func (h *Highlight) Active() (string, Point, bool) {
	if h.pinKey != "" {
		return h.pinKey, h.pinPos, true
	}
	if h.hoverKey != "" && h.pointer != nil {
		return h.hoverKey, *h.pointer, true
	}
	return "", Point{}, false
}

func (h *Highlight) Pointer() (Point, bool) {
	if h.pointer == nil {
		return Point{}, false
	}
	return *h.pointer, true
}

// Prune forgets keys that are no longer present after re-aggregation.
func (h *Highlight) Prune(valid func(key string) bool) {
	if h.pinKey != "" && !valid(h.pinKey) {
		h.clearPin()
	}
	if h.hoverKey != "" && !valid(h.hoverKey) {
		h.hoverKey = ""
		h.pointer = nil
	}
}

func (h *Highlight) clearPin() {
	h.pinKey = ""
	h.pinPos = Point{}
}
