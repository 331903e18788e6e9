package feed

import (
	"context"
	"log/slog"
	"time"
)

// PollFeed fetches a snapshot from the REST endpoint on a fixed interval. It
// is used when the upstream has no push channel.
type PollFeed struct {
	pipe

	client   *Client
	interval time.Duration
	log      *slog.Logger
}

func NewPollFeed(client *Client, interval time.Duration, logger *slog.Logger) *PollFeed {
	if interval <= 0 {
		interval = time.Second
	}
	f := &PollFeed{client: client, interval: interval, log: logger}
	f.init()
	return f
}

func (f *PollFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	ctx, ok := f.start(ctx)
	if !ok {
		return
	}
	defer f.stopped()

	t := time.NewTicker(f.interval)
	defer t.Stop()
	for {
		snap, err := f.client.FetchSnapshot(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			if f.connected.Swap(false) {
				onStatus(false)
			}
			f.emitErr(err)
		case err == nil:
			if !f.connected.Swap(true) {
				onStatus(true)
				f.log.Info("upstream snapshot endpoint reachable", slog.String("url", f.client.SnapshotURL()))
			}
			f.publish(snap)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
