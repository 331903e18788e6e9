package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"levelview/internal/config"
	"levelview/internal/depth"
	"levelview/internal/state"
)

func newTestServer(t *testing.T) (*HTTPServer, *httptest.Server) {
	t.Helper()
	cfg, err := config.Parse([]byte("port: 8087\n"))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewHTTPServer(cfg, state.NewState(depth.None()), logger)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func sample() depth.Snapshot {
	mid := 100.0
	return depth.Snapshot{
		MidPrice: &mid,
		Candles:  []depth.Candle{{TS: "2024-05-01T00:00:00Z", Open: 99, High: 101, Low: 98, Close: 100}},
		LimitLevels: []depth.LimitLevel{
			{Price: 100, Side: depth.Buy, USD: 500},
			{Price: 100.4, Side: depth.Buy, USD: 300},
			{Price: 101.3, Side: depth.Sell, USD: 200},
		},
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t)
	s.st.SetConnected(true)
	var body struct {
		OK        bool `json:"ok"`
		Connected bool `json:"connected"`
	}
	if code := getJSON(t, ts.URL+"/api/health", &body); code != 200 || !body.OK || !body.Connected {
		t.Fatalf("health %d %+v", code, body)
	}
}

func TestLevelsQuery(t *testing.T) {
	s, ts := newTestServer(t)
	s.BroadcastSnapshot(sample())

	var body struct {
		Seq    uint64                  `json:"seq"`
		Anchor float64                 `json:"anchor"`
		Step   float64                 `json:"step"`
		Levels []depth.AggregatedLevel `json:"levels"`
	}
	if code := getJSON(t, ts.URL+"/api/levels?kind=abs&value=1", &body); code != 200 {
		t.Fatalf("status %d", code)
	}
	if body.Seq != 1 || body.Anchor != 100 || body.Step != 1 || len(body.Levels) != 2 {
		t.Fatalf("levels %+v", body)
	}
	if body.Levels[0].USD != 800 {
		t.Fatalf("buy bucket %+v", body.Levels[0])
	}

	if code := getJSON(t, ts.URL+"/api/levels?kind=log", &body); code != http.StatusBadRequest {
		t.Fatalf("unknown kind got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/levels?kind=abs&value=x", &body); code != http.StatusBadRequest {
		t.Fatalf("bad value got %d", code)
	}
}

func TestAggregationPost(t *testing.T) {
	s, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/aggregation", "application/json", strings.NewReader(`{"kind":"pct","value":0.001}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := s.st.Setting(); got.Kind != depth.KindPct || got.Pct != 0.001 {
		t.Fatalf("setting %+v", got)
	}

	resp, err = http.Post(ts.URL+"/api/aggregation", "application/json", strings.NewReader(`{"kind":"abs","value":-1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative size got %d", resp.StatusCode)
	}
}

type viewMsg struct {
	SessionID string                  `json:"sessionId"`
	Phase     string                  `json:"phase"`
	Levels    []depth.AggregatedLevel `json:"levels"`
	Active    *struct {
		Key string `json:"key"`
	} `json:"active"`
	Lines []struct {
		Key   string `json:"key"`
		Width int    `json:"width"`
	} `json:"lines"`
}

// readType reads messages until one of type want arrives.
func readType(t *testing.T, c *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var m struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := c.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if m.Type == want {
			return m.Data
		}
	}
}

func readView(t *testing.T, c *websocket.Conn) viewMsg {
	t.Helper()
	var v viewMsg
	if err := json.Unmarshal(readType(t, c, "view"), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func send(t *testing.T, c *websocket.Conn, typ string, data any) {
	t.Helper()
	if err := c.WriteJSON(map[string]any{"type": typ, "data": data}); err != nil {
		t.Fatal(err)
	}
}

func TestWSSessionFlow(t *testing.T) {
	s, ts := newTestServer(t)
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var hello struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(readType(t, c, "hello"), &hello); err != nil || hello.SessionID == "" {
		t.Fatalf("hello %+v %v", hello, err)
	}

	s.BroadcastSnapshot(sample())
	v := readView(t, c)
	if v.SessionID != hello.SessionID || len(v.Levels) != 3 || v.Phase != "idle" {
		t.Fatalf("first view %+v", v)
	}

	// 90..110 over 400px puts 100 at y=200; the none band is 0.05 wide, about 1px
	send(t, c, "viewport", map[string]float64{"width": 800, "height": 400, "priceMin": 90, "priceMax": 110})
	readView(t, c)

	send(t, c, "pointermove", map[string]float64{"x": 10, "y": 200.5})
	v = readView(t, c)
	if v.Phase != "hovering" || v.Active == nil || v.Active.Key != "buy:100" {
		t.Fatalf("hover view %+v", v)
	}
	highlighted := 0
	for _, l := range v.Lines {
		if l.Width == 2 {
			highlighted++
		}
	}
	if highlighted != 1 {
		t.Fatalf("want one highlighted line, got %d", highlighted)
	}

	send(t, c, "click", map[string]float64{"x": 10, "y": 200})
	if v = readView(t, c); v.Phase != "pinned" {
		t.Fatalf("click view %+v", v)
	}

	send(t, c, "keydown", map[string]string{"key": "Escape"})
	if v = readView(t, c); v.Phase != "idle" || v.Active != nil {
		t.Fatalf("escape view %+v", v)
	}

	send(t, c, "aggregation", map[string]any{"kind": "abs", "value": 1})
	if v = readView(t, c); len(v.Levels) != 2 {
		t.Fatalf("aggregated view %+v", v.Levels)
	}

	send(t, c, "aggregation", map[string]any{"kind": "abs", "value": -1})
	readType(t, c, "error")

	if n := s.st.Sessions(); n != 1 {
		t.Fatalf("sessions %d", n)
	}
}

func TestQueueDropsOnlyPointerMoves(t *testing.T) {
	c := &client{cmds: make(chan inbound, 1)}
	c.queue(inbound{Type: "pointermove"})
	c.queue(inbound{Type: "pointermove"}) // full, dropped

	done := make(chan struct{})
	go func() {
		c.queue(inbound{Type: "click"})
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("click must wait for room instead of being dropped")
	case <-time.After(50 * time.Millisecond):
	}

	if got := <-c.cmds; got.Type != "pointermove" {
		t.Fatalf("first queued %s", got.Type)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("click never queued")
	}
	if got := <-c.cmds; got.Type != "click" {
		t.Fatalf("second queued %s", got.Type)
	}
}
