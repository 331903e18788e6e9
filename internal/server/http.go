package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"levelview/internal/config"
	"levelview/internal/depth"
	"levelview/internal/session"
	"levelview/internal/state"
)

type HTTPServer struct {
	cfg  config.Config
	st   *state.State
	opts session.Options
	hub  *hub
	log  *slog.Logger
	mux  *http.ServeMux
}

func NewHTTPServer(cfg config.Config, st *state.State, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:  cfg,
		st:   st,
		opts: session.Options{HoverThresholdPx: cfg.HoverThresholdPx, ClickThresholdPx: cfg.ClickThresholdPx},
		hub:  newHub(logger),
		log:  logger,
		mux:  http.NewServeMux(),
	}
	s.routes()
	go s.hub.run()
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- broadcasts ----------

func (s *HTTPServer) BroadcastStatus() {
	s.hub.publish(marshalWS("status", map[string]any{
		"connected": s.st.Connected(),
		"sessions":  s.st.Sessions(),
	}))
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.publish(marshalWS("error", map[string]string{"message": msg}))
}

// BroadcastSnapshot stores snap as the latest snapshot and wakes every
// session so it re-aggregates.
func (s *HTTPServer) BroadcastSnapshot(snap depth.Snapshot) {
	s.st.SetSnapshot(snap)
	s.hub.wakeAll()
}

// --------- routes ----------

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("/ws", s.serveWS)

	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	s.mux.HandleFunc("/api/levels", s.apiLevels)
	s.mux.HandleFunc("/api/aggregation", s.apiAggregation)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.st.Connected(),
		"sessions":  s.st.Sessions(),
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"maxLevels":          depth.MaxLevels,
		"hoverThresholdPx":   s.opts.HoverThresholdPx,
		"clickThresholdPx":   s.opts.ClickThresholdPx,
		"defaultAggregation": s.st.Setting(),
		"feedWS":             s.cfg.Feed.WSURL,
		"feedSnapshot":       s.cfg.Feed.SnapshotURL,
	})
}

// GET /api/levels?kind=abs&value=0.5
func (s *HTTPServer) apiLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	setting := s.st.Setting()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		var value float64
		if raw := r.URL.Query().Get("value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				http.Error(w, "value must be a number", http.StatusBadRequest)
				return
			}
			value = v
		}
		parsed, err := depth.ParseSetting(kind, value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		setting = parsed
	}

	snap, seq := s.st.Snapshot()
	anchor := depth.AnchorPrice(snap.MidPrice, snap.Candles, snap.LimitLevels)
	writeJSON(w, map[string]any{
		"seq":     seq,
		"setting": setting,
		"anchor":  anchor,
		"step":    depth.Step(setting, anchor),
		"levels":  depth.Aggregate(snap.LimitLevels, setting, anchor),
	})
}

// POST /api/aggregation { "kind": "none"|"abs"|"pct", "value": 0.5 }
func (s *HTTPServer) apiAggregation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req aggregationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	setting, err := depth.ParseSetting(strings.TrimSpace(req.Kind), req.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.st.SetSetting(setting)
	s.log.Info("default aggregation changed", slog.String("setting", setting.String()))
	writeJSON(w, map[string]any{"ok": true, "setting": setting})
}

type aggregationReq struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
