package config

import (
	"os"
	"path/filepath"
	"testing"

	"levelview/internal/depth"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("port: 9001\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9001 || cfg.MaxLevels != 240 || cfg.HoverThresholdPx != 14 || cfg.ClickThresholdPx != 10 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	s, err := cfg.Setting()
	if err != nil || s.Kind != depth.KindNone {
		t.Fatalf("default setting %+v %v", s, err)
	}
}

func TestParseAggregation(t *testing.T) {
	cfg, err := Parse([]byte("aggregation:\n  kind: pct\n  value: 0.001\n"))
	if err != nil {
		t.Fatal(err)
	}
	s, _ := cfg.Setting()
	if s.Kind != depth.KindPct || s.Pct != 0.001 {
		t.Fatalf("setting %+v", s)
	}
	if _, err := Parse([]byte("aggregation:\n  kind: log\n")); err == nil {
		t.Fatal("unknown kind must fail")
	}
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"port":       "port: 0\n",
		"max levels": "max_levels: 100\n",
		"thresholds": "hover_threshold_px: 5\nclick_threshold_px: 10\n",
		"feed":       "feed:\n  ws_url: \"\"\n  snapshot_url: \"\"\n",
		"yaml":       "port: [\n",
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadAndPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "levelview.yaml")
	if err := os.WriteFile(p, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEVELVIEW_CONFIG", p)
	if Path() != p {
		t.Fatalf("path got %s", Path())
	}
	cfg, err := Load(Path())
	if err != nil || cfg.LogLevel != "debug" {
		t.Fatalf("load %+v %v", cfg, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing file must fail")
	}
}
