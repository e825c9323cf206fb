// Package config holds the runtime configuration of the timer. Values are
// loaded from a JSON file, then HANDTIMER_* environment variables (optionally
// from a .env file), then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "HANDTIMER_"

// Config holds runtime configuration for capture, detection, sinks and the
// optional outer surfaces.
type Config struct {
	// Capture
	CameraID int    `json:"camera_id"`
	Source   string `json:"source"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	// Detection
	MaxHands        int     `json:"max_hands"`
	MinConfidence   float64 `json:"min_confidence"`
	MinTrackingConf float64 `json:"min_tracking_confidence"`
	ScriptPath      string  `json:"script_path"`
	ModelPath       string  `json:"model_path"`

	// MockDetector replaces MediaPipe with a detector that never sees a hand.
	MockDetector bool `json:"mock_detector"`

	// Sinks
	SheetPath   string `json:"sheet_path"`
	HistoryPath string `json:"history_path"`
	DBPath      string `json:"db_path"`
	HookDir     string `json:"hook_dir"`
	HookTimeout string `json:"hook_timeout"`

	// Surfaces
	HTTPAddr string `json:"http_addr"`
	Headless bool   `json:"headless"`
	Tray     bool   `json:"tray"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		CameraID:        0,
		Width:           640,
		Height:          480,
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		SheetPath:       "hand_movement_times.xlsx",
		HistoryPath:     "finger_data.npy",
		DBPath:          "handtimer.db",
		HookTimeout:     "5s",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Validate clamps values to safe ranges and rejects ones that cannot be repaired.
func (c *Config) Validate() error {
	if c.CameraID < 0 {
		c.CameraID = 0
	}
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.MaxHands <= 0 {
		c.MaxHands = 2
	}
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		c.MinConfidence = 0.5
	}
	if c.MinTrackingConf <= 0 || c.MinTrackingConf > 1 {
		c.MinTrackingConf = 0.5
	}
	if c.SheetPath == "" {
		c.SheetPath = "hand_movement_times.xlsx"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "finger_data.npy"
	}
	if c.HookTimeout == "" {
		c.HookTimeout = "5s"
	}
	if _, err := time.ParseDuration(c.HookTimeout); err != nil {
		return fmt.Errorf("hook_timeout: %w", err)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	case "":
		c.LogFormat = "text"
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	return nil
}

// HookTimeoutDuration returns the parsed hook timeout, falling back to 5s.
func (c *Config) HookTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HookTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Load reads configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are not an error.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from HANDTIMER_* variables, e.g.
// HANDTIMER_HTTP_ADDR or HANDTIMER_MAX_HANDS. Names follow the JSON keys.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"source":       &c.Source,
		"script_path":  &c.ScriptPath,
		"model_path":   &c.ModelPath,
		"sheet_path":   &c.SheetPath,
		"history_path": &c.HistoryPath,
		"db_path":      &c.DBPath,
		"hook_dir":     &c.HookDir,
		"hook_timeout": &c.HookTimeout,
		"http_addr":    &c.HTTPAddr,
		"log_level":    &c.LogLevel,
		"log_format":   &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(envName(key)); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"camera_id": &c.CameraID,
		"width":     &c.Width,
		"height":    &c.Height,
		"max_hands": &c.MaxHands,
	}
	for key, dst := range ints {
		if v, ok := lookup(envName(key)); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", envName(key), err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"min_confidence":          &c.MinConfidence,
		"min_tracking_confidence": &c.MinTrackingConf,
	}
	for key, dst := range floats {
		if v, ok := lookup(envName(key)); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", envName(key), err)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"headless":      &c.Headless,
		"tray":          &c.Tray,
		"mock_detector": &c.MockDetector,
	}
	for key, dst := range bools {
		if v, ok := lookup(envName(key)); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", envName(key), err)
			}
			*dst = b
		}
	}

	return c.Validate()
}

func envName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}
