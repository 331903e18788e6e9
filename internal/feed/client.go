package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"levelview/internal/depth"
)

// Client reads full snapshots from the upstream REST endpoint.
type Client struct {
	snapshotURL string
	httpc       *http.Client
	logger      *slog.Logger
}

func NewClient(snapshotURL string, logger *slog.Logger) *Client {
	return &Client{
		snapshotURL: snapshotURL,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

func (c *Client) FetchSnapshot(ctx context.Context) (depth.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
	if err != nil {
		return depth.Snapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return depth.Snapshot{}, fmt.Errorf("upstream unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return depth.Snapshot{}, fmt.Errorf("snapshot status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return depth.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(b)
	if err != nil {
		return depth.Snapshot{}, err
	}
	c.logger.Debug("fetched snapshot",
		slog.Int("levels", len(snap.LimitLevels)),
		slog.Int("candles", len(snap.Candles)),
	)
	return snap, nil
}

func (c *Client) SnapshotURL() string { return c.snapshotURL }
