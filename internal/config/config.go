package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"levelview/internal/depth"
	"levelview/internal/hittest"
)

type FeedConfig struct {
	SnapshotURL string `yaml:"snapshot_url"`
	WSURL       string `yaml:"ws_url"`
	CoalesceMS  int    `yaml:"coalesce_ms"`
	PollMS      int    `yaml:"poll_ms"`
}

type AggregationConfig struct {
	Kind  string  `yaml:"kind"`
	Value float64 `yaml:"value"`
}

type Config struct {
	Port             int               `yaml:"port"`
	LogLevel         string            `yaml:"log_level"`
	Feed             FeedConfig        `yaml:"feed"`
	Aggregation      AggregationConfig `yaml:"aggregation"`
	MaxLevels        int               `yaml:"max_levels"`
	HoverThresholdPx float64           `yaml:"hover_threshold_px"`
	ClickThresholdPx float64           `yaml:"click_threshold_px"`
}

func defaults() Config {
	return Config{
		Port:     8087,
		LogLevel: "info",
		Feed: FeedConfig{
			SnapshotURL: "http://127.0.0.1:9000/api/orderbook/snapshot",
			WSURL:       "ws://127.0.0.1:9000/ws/orderbook",
			CoalesceMS:  50,
			PollMS:      1000,
		},
		Aggregation:      AggregationConfig{Kind: "none"},
		MaxLevels:        depth.MaxLevels,
		HoverThresholdPx: hittest.HoverThresholdPx,
		ClickThresholdPx: hittest.ClickThresholdPx,
	}
}

// Path returns the config file location, honoring LEVELVIEW_CONFIG.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("LEVELVIEW_CONFIG")); p != "" {
		return p
	}
	return "config.yaml"
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, errors.New("invalid port")
	}
	if cfg.MaxLevels != depth.MaxLevels {
		return cfg, fmt.Errorf("max_levels must be %d", depth.MaxLevels)
	}
	if _, err := cfg.Setting(); err != nil {
		return cfg, fmt.Errorf("aggregation: %w", err)
	}
	if cfg.ClickThresholdPx <= 0 || cfg.HoverThresholdPx <= 0 {
		return cfg, errors.New("hit thresholds must be > 0")
	}
	if cfg.ClickThresholdPx > cfg.HoverThresholdPx {
		return cfg, errors.New("click_threshold_px must not exceed hover_threshold_px")
	}
	if cfg.Feed.CoalesceMS < 0 {
		return cfg, errors.New("feed.coalesce_ms must be >= 0")
	}
	if cfg.Feed.WSURL == "" && cfg.Feed.PollMS <= 0 {
		return cfg, errors.New("feed.poll_ms must be > 0 when polling")
	}
	if cfg.Feed.WSURL == "" && cfg.Feed.SnapshotURL == "" {
		return cfg, errors.New("feed needs ws_url or snapshot_url")
	}
	return cfg, nil
}

// Setting returns the default aggregation as a depth.Setting.
func (c Config) Setting() (depth.Setting, error) {
	return depth.ParseSetting(c.Aggregation.Kind, c.Aggregation.Value)
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
