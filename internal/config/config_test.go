package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.SheetPath != "hand_movement_times.xlsx" {
		t.Errorf("SheetPath = %q", cfg.SheetPath)
	}
	if cfg.HistoryPath != "finger_data.npy" {
		t.Errorf("HistoryPath = %q", cfg.HistoryPath)
	}
}

func TestValidate_Clamps(t *testing.T) {
	cfg := &Config{
		CameraID:        -1,
		MaxHands:        0,
		MinConfidence:   1.5,
		MinTrackingConf: -0.2,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.CameraID != 0 {
		t.Errorf("CameraID = %d, want 0", cfg.CameraID)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.MaxHands != 2 {
		t.Errorf("MaxHands = %d, want 2", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.5 || cfg.MinTrackingConf != 0.5 {
		t.Errorf("confidences = %v/%v, want 0.5/0.5", cfg.MinConfidence, cfg.MinTrackingConf)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad hook timeout", func(c *Config) { c.HookTimeout = "soon" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHookTimeoutDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HookTimeout = "250ms"
	if got := cfg.HookTimeoutDuration(); got != 250*time.Millisecond {
		t.Errorf("HookTimeoutDuration() = %v", got)
	}

	cfg.HookTimeout = "-1s"
	if got := cfg.HookTimeoutDuration(); got != 5*time.Second {
		t.Errorf("negative timeout should fall back to 5s, got %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxHands != 2 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if cfg == nil || cfg.MaxHands != 2 {
		t.Errorf("expected defaults alongside error, got %+v", cfg)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.CameraID = 1
	cfg.HTTPAddr = "127.0.0.1:8080"
	cfg.HookDir = "/opt/hooks"
	cfg.Headless = true
	cfg.LogFormat = "json"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HANDTIMER_HTTP_ADDR":      ":9090",
		"HANDTIMER_MAX_HANDS":      "4",
		"HANDTIMER_MIN_CONFIDENCE": "0.7",
		"HANDTIMER_HEADLESS":       "true",
		"HANDTIMER_MOCK_DETECTOR":  "1",
		"HANDTIMER_MODEL_PATH":     "models/hand.task",
		"HANDTIMER_UNRELATED":      "ignored",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MaxHands != 4 {
		t.Errorf("MaxHands = %d", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v", cfg.MinConfidence)
	}
	if !cfg.Headless {
		t.Error("Headless should be true")
	}
	if !cfg.MockDetector || cfg.ModelPath != "models/hand.task" {
		t.Errorf("detector overrides not applied: mock=%v model=%q", cfg.MockDetector, cfg.ModelPath)
	}
	if cfg.SheetPath != "hand_movement_times.xlsx" {
		t.Errorf("unset fields should keep defaults, SheetPath = %q", cfg.SheetPath)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "HANDTIMER_WIDTH" {
			return "wide", true
		}
		return "", false
	}
	if err := DefaultConfig().ApplyEnv(lookup); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HANDTIMER_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HANDTIMER_TEST_DOTENV", "")
	os.Unsetenv("HANDTIMER_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("HANDTIMER_TEST_DOTENV"); got != "from-file" {
		t.Errorf("HANDTIMER_TEST_DOTENV = %q, want from-file", got)
	}
}
