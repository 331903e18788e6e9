package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"levelview/internal/chart"
	"levelview/internal/depth"
	"levelview/internal/session"
)

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	wake       chan struct{}
	logger     *slog.Logger
}

// client is one browser chart. Its session is only touched by runSession.
type client struct {
	hub     *hub
	conn    *websocket.Conn
	send    chan []byte
	bcast   chan []byte
	wake    chan struct{}
	cmds    chan inbound
	done    chan struct{}
	sess    *session.Session
	scale   *chart.LinearScale
	lastSeq uint64
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 1024),
		wake:       make(chan struct{}, 1),
		logger:     logger,
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			delete(h.clients, c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.bcast <- msg:
				default:
					// slow client; it will catch up with the next view
				}
			}
		case <-h.wake:
			for c := range h.clients {
				select {
				case c.wake <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (h *hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast queue full, dropping message")
	}
}

func (h *hub) wakeAll() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  10 * time.Second,
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	CheckOrigin:       func(r *http.Request) bool { return true }, // local SPA
	EnableCompression: true,
}

func (s *HTTPServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("ws upgrade", slog.String("err", err.Error()))
		return
	}

	scale := chart.NewLinearScale(0, 0)
	h, err := chart.Open(func() (chart.Surface, error) { return scale, nil })
	if err != nil {
		s.log.Error("open chart", slog.String("err", err.Error()))
		_ = conn.Close()
		return
	}
	c := &client{
		hub:   s.hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		bcast: make(chan []byte, 64),
		wake:  make(chan struct{}, 1),
		cmds:  make(chan inbound, 64),
		done:  make(chan struct{}),
		sess:  session.New(uuid.NewString(), h, s.st.Setting(), s.opts),
		scale: scale,
	}
	s.hub.register <- c
	s.st.SessionOpened()
	s.log.Info("chart session opened", slog.String("session", c.sess.ID()))
	go c.writePump()
	go c.readPump()
	go s.runSession(c)
}

// runSession owns the client's chart session until the socket goes away.
func (s *HTTPServer) runSession(c *client) {
	defer func() {
		c.hub.unregister <- c
		s.st.SessionClosed()
		if err := c.sess.Close(); err != nil {
			s.log.Warn("close chart", slog.String("session", c.sess.ID()), slog.String("err", err.Error()))
		}
		close(c.done)
		s.log.Info("chart session closed", slog.String("session", c.sess.ID()))
	}()

	c.enqueue(marshalWS("hello", map[string]any{"sessionId": c.sess.ID()}))
	s.applyLatest(c)

	for {
		select {
		case cmd, ok := <-c.cmds:
			if !ok {
				return
			}
			if send := s.handleCommand(c, cmd); send {
				c.enqueue(marshalWS("view", c.sess.View(false)))
			}
		case <-c.wake:
			s.applyLatest(c)
		case msg := <-c.bcast:
			c.enqueue(msg)
		}
	}
}

// applyLatest feeds the newest snapshot to the session if it has not seen it.
func (s *HTTPServer) applyLatest(c *client) {
	snap, seq := s.st.Snapshot()
	if seq == 0 || seq == c.lastSeq {
		return
	}
	c.lastSeq = seq
	c.sess.Apply(snap)
	c.enqueue(marshalWS("view", c.sess.View(true)))
}

type pointerCmd struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type viewportCmd struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	PriceMin float64 `json:"priceMin"`
	PriceMax float64 `json:"priceMax"`
}

type keyCmd struct {
	Key string `json:"key"`
}

// handleCommand applies one client command and reports whether the view changed.
func (s *HTTPServer) handleCommand(c *client, cmd inbound) bool {
	switch cmd.Type {
	case "pointermove":
		var p pointerCmd
		if !c.decode(cmd, &p) {
			return false
		}
		return c.sess.PointerMove(p.X, p.Y)
	case "pointerleave":
		return c.sess.PointerLeave()
	case "click":
		var p pointerCmd
		if !c.decode(cmd, &p) {
			return false
		}
		return c.sess.Click(p.X, p.Y)
	case "keydown":
		var k keyCmd
		if !c.decode(cmd, &k) {
			return false
		}
		return c.sess.KeyDown(k.Key)
	case "viewport":
		var v viewportCmd
		if !c.decode(cmd, &v) {
			return false
		}
		if w, h := c.scale.Size(); w != v.Width || h != v.Height {
			c.sess.Resize(v.Width, v.Height)
		}
		// the browser owns pan and zoom, so its range wins over the fit
		if v.PriceMax > v.PriceMin {
			c.scale.SetVisibleRange(v.PriceMin, v.PriceMax)
		}
		return true
	case "aggregation":
		var req aggregationReq
		if !c.decode(cmd, &req) {
			return false
		}
		setting, err := depth.ParseSetting(req.Kind, req.Value)
		if err != nil {
			c.enqueue(marshalWS("error", map[string]string{"message": err.Error()}))
			return false
		}
		c.sess.SetSetting(setting)
		return true
	case "reset":
		c.sess.Reset()
		return true
	}
	c.enqueue(marshalWS("error", map[string]string{"message": "unknown command " + cmd.Type}))
	return false
}

func (c *client) decode(cmd inbound, v any) bool {
	if err := json.Unmarshal(cmd.Data, v); err != nil {
		c.enqueue(marshalWS("error", map[string]string{"message": "bad " + cmd.Type + " payload"}))
		return false
	}
	return true
}

func (c *client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Warn("ws client send buffer full", slog.String("session", c.sess.ID()))
	}
}

func (c *client) readPump() {
	defer func() {
		close(c.cmds)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		var cmd inbound
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		c.queue(cmd)
	}
}

// queue hands cmd to the session goroutine. Only pointer moves may be dropped
// under backpressure since the next move supersedes them.
func (c *client) queue(cmd inbound) {
	if cmd.Type != "pointermove" {
		c.cmds <- cmd
		return
	}
	select {
	case c.cmds <- cmd:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(25 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func marshalWS(t string, v any) []byte {
	b, _ := json.Marshal(wsMessage{Type: t, Data: v})
	return b
}
