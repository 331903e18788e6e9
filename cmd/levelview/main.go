package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"levelview/internal/config"
	"levelview/internal/feed"
	"levelview/internal/server"
	"levelview/internal/state"
)

func main() {
	_ = godotenv.Load() // .env is optional

	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)

	setting, _ := cfg.Setting() // validated by Load
	logger.Info("levelview starting",
		slog.Int("port", cfg.Port),
		slog.String("aggregation", setting.String()),
		slog.String("feed_ws", cfg.Feed.WSURL),
		slog.String("feed_snapshot", cfg.Feed.SnapshotURL),
	)

	st := state.NewState(setting)
	src := newFeed(cfg.Feed, logger)
	srv := server.NewHTTPServer(cfg, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		src.Run(ctx, func(connected bool) {
			st.SetConnected(connected)
			srv.BroadcastStatus()
		})
		return nil
	})

	// feed -> state -> sessions
	g.Go(func() error {
		for {
			select {
			case snap, ok := <-src.Updates():
				if !ok {
					return nil
				}
				srv.BroadcastSnapshot(snap)
			case err := <-src.Errors():
				if err != nil {
					logger.Error("snapshot feed error", slog.String("err", err.Error()))
					srv.BroadcastError(err.Error())
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		shCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shCtx)
		src.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("exit", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("bye")
}

// newFeed prefers the push channel and falls back to polling the REST
// snapshot endpoint.
func newFeed(fc config.FeedConfig, logger *slog.Logger) feed.SnapshotFeed {
	var client *feed.Client
	if fc.SnapshotURL != "" {
		client = feed.NewClient(fc.SnapshotURL, logger)
	}
	if fc.WSURL != "" {
		return feed.NewWSFeed(client, fc.WSURL, time.Duration(fc.CoalesceMS)*time.Millisecond, logger)
	}
	return feed.NewPollFeed(client, time.Duration(fc.PollMS)*time.Millisecond, logger)
}
