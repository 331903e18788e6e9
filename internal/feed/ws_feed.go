package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"levelview/internal/depth"
)

// WSFeed streams snapshots from the upstream WebSocket. On every (re)connect
// it first seeds from the REST client, when one is configured, so consumers
// are not left waiting for the next push.
type WSFeed struct {
	pipe

	client   *Client
	wsURL    string
	coalesce time.Duration
	log      *slog.Logger
	dialer   websocket.Dialer
}

func NewWSFeed(client *Client, wsURL string, coalesce time.Duration, logger *slog.Logger) *WSFeed {
	f := &WSFeed{
		client:   client,
		wsURL:    wsURL,
		coalesce: coalesce,
		log:      logger,
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	f.init()
	return f
}

func (f *WSFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	ctx, ok := f.start(ctx)
	if !ok {
		return
	}
	defer f.stopped()

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		if f.client != nil {
			if snap, err := f.client.FetchSnapshot(ctx); err != nil {
				f.emitErr(fmt.Errorf("seed snapshot: %w", err))
			} else {
				f.publish(snap)
			}
		}

		ws, _, err := f.dialer.DialContext(ctx, f.wsURL, nil)
		if err != nil {
			f.connected.Store(false)
			onStatus(false)
			f.emitErr(fmt.Errorf("ws open: %w", err))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		f.connected.Store(true)
		onStatus(true)
		backoff = time.Second
		f.log.Info("upstream feed connected", slog.String("url", f.wsURL))

		if err := f.readLoop(ctx, ws); err != nil {
			f.emitErr(err)
		}
		f.connected.Store(false)
		onStatus(false)
	}
}

// readLoop forwards snapshots until the socket fails or ctx ends. Snapshots
// arriving faster than the coalesce window are collapsed into the latest one.
func (f *WSFeed) readLoop(ctx context.Context, ws *websocket.Conn) error {
	ws.SetReadLimit(8 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	msgs := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		defer close(msgs)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				readErr <- fmt.Errorf("ws read: %w", err)
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
			msgs <- data
		}
	}()
	defer func() {
		_ = ws.Close()
		for range msgs {
		}
	}()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()

	var pending *depth.Snapshot
	var last time.Time
	flush := time.NewTimer(time.Hour)
	flush.Stop()
	defer flush.Stop()
	flushArmed := false

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			return nil
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return fmt.Errorf("ws ping: %w", err)
			}
		case data, ok := <-msgs:
			if !ok {
				return <-readErr
			}
			snap, err := DecodeSnapshot(data)
			if err != nil {
				// acks and heartbeats are not snapshots
				f.log.Debug("skipping upstream message", slog.String("err", err.Error()))
				continue
			}
			if wait := f.coalesce - time.Since(last); wait > 0 {
				pending = &snap
				if !flushArmed {
					flush.Reset(wait)
					flushArmed = true
				}
				continue
			}
			pending = nil
			last = time.Now()
			f.publish(snap)
		case <-flush.C:
			flushArmed = false
			if pending != nil {
				last = time.Now()
				f.publish(*pending)
				pending = nil
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
