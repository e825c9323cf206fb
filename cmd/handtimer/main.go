package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/handtimer/internal/app"
	"github.com/ayusman/handtimer/internal/capture"
	"github.com/ayusman/handtimer/internal/config"
	"github.com/ayusman/handtimer/internal/detector"
	"github.com/ayusman/handtimer/internal/hook"
	"github.com/ayusman/handtimer/internal/server"
	"github.com/ayusman/handtimer/internal/store"
	"github.com/ayusman/handtimer/internal/timer"
	"github.com/ayusman/handtimer/internal/tray"
)

// WindowTitle is the title of the preview window.
const WindowTitle = "Hand Tracking"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to JSON config file")
	camera := flag.Int("camera", -1, "camera device index (overrides config)")
	source := flag.String("source", "", "video file or stream URL instead of a camera")
	headless := flag.Bool("headless", false, "run without a preview window")
	httpAddr := flag.String("http", "", "serve the HTTP API on this address, e.g. :8080")
	withTray := flag.Bool("tray", false, "show a system tray icon (requires -headless)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	mock := flag.Bool("mock", false, "run without MediaPipe; no hands are ever detected")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "handtimer: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "handtimer: config: %v\n", err)
		return 1
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		fmt.Fprintf(os.Stderr, "handtimer: env: %v\n", err)
		return 1
	}

	// Flags override file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.CameraID = *camera
		case "source":
			cfg.Source = *source
		case "headless":
			cfg.Headless = *headless
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "tray":
			cfg.Tray = *withTray
		case "log-level":
			cfg.LogLevel = *logLevel
		case "mock":
			cfg.MockDetector = *mock
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "handtimer: config: %v\n", err)
		return 1
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := NewLogger(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.DBPath != "" {
		st, err = store.New(cfg.DBPath)
		if err != nil {
			logger.Error("open session store", "path", cfg.DBPath, "error", err)
			return 1
		}
		defer st.Close()
	}

	var hooks *hook.Manager
	if cfg.HookDir != "" {
		hooks = hook.NewManager(cfg.HookDir, logger)
		if err := hooks.Discover(); err != nil {
			logger.Warn("hook discovery failed", "dir", cfg.HookDir, "error", err)
		}
		logger.Info("hooks loaded", "count", len(hooks.List()))
	}

	cam := capture.NewCameraWithConfig(capture.Config{
		DeviceID: cfg.CameraID,
		Source:   cfg.Source,
		Width:    cfg.Width,
		Height:   cfg.Height,
	})

	det, err := newDetector(cfg, logger)
	if err != nil {
		logger.Error("hand detector unavailable; install scripts/requirements.txt or pass -mock", "error", err)
		return 1
	}

	if cfg.Tray && !cfg.Headless {
		logger.Warn("tray needs the main thread and is disabled while the preview window is shown; use -headless")
		cfg.Tray = false
	}
	var display capture.Display
	if cfg.Headless {
		display = capture.NewNullDisplay()
	} else {
		display = capture.NewWindowDisplay(WindowTitle)
	}

	sourceName := cfg.Source
	if sourceName == "" {
		sourceName = fmt.Sprintf("camera %d", cfg.CameraID)
	}

	a := app.New(app.Config{
		Camera:      cam,
		Detector:    det,
		Display:     display,
		Source:      sourceName,
		SheetPath:   cfg.SheetPath,
		HistoryPath: cfg.HistoryPath,
		MaxHands:    cfg.MaxHands,
		Store:       st,
		Hooks:       hooks,
		HookTimeout: cfg.HookTimeoutDuration(),
		Logger:      logger,
	})

	if cfg.HTTPAddr != "" {
		frames := server.NewFrameBuffer()
		hub := server.NewHub(a.SessionID(), logger)
		a.AddSink(hub)
		a.SetFrameSink(frames)

		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Frames:    frames,
			Hub:       hub,
			Session:   a.SessionID,
			Logger:    logger,
		})
		go func() {
			if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
				logger.Error("http server failed", "addr", cfg.HTTPAddr, "error", err)
			}
		}()
	}

	if !cfg.Tray {
		return runLoop(ctx, a, logger)
	}

	// The tray owns the main goroutine; the loop runs beside it.
	t := tray.New()
	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
		logger.Info("timing toggled", "enabled", enabled)
	})
	t.OnQuit(stop)
	if cfg.HTTPAddr != "" {
		t.OnDashboard(func() { openBrowser(dashboardURL(cfg.HTTPAddr), logger) })
	}

	var count int
	a.AddSink(app.EventSinkFunc(func(ev timer.Event) {
		switch ev.Kind {
		case timer.EventStarted:
			t.SetState(true, 0)
		case timer.EventStopped:
			count++
			t.SetState(false, 0)
			t.SetLast(ev.Record.Duration, count)
		}
	}))

	code := make(chan int, 1)
	go func() {
		code <- runLoop(ctx, a, logger)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-code
}

func runLoop(ctx context.Context, a *app.App, logger *slog.Logger) int {
	start := time.Now()
	if err := a.Run(ctx); err != nil {
		logger.Error("cannot start capture", "error", err)
		return 1
	}
	logger.Info("done", "elapsed", time.Since(start).Round(time.Millisecond), "movements", len(a.Movements()))
	return 0
}

// newDetector starts and checks the MediaPipe landmark service. The mock
// detector is only used when explicitly configured.
func newDetector(cfg *config.Config, logger *slog.Logger) (detector.Detector, error) {
	if cfg.MockDetector {
		logger.Warn("mock detector selected, no hands will be detected")
		return detector.NewMockDetector(), nil
	}

	mp, err := detector.NewMediaPipeDetector(detectorConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := mp.Start(); err != nil {
		return nil, err
	}
	logger.Info("using MediaPipe hand detection")
	return mp, nil
}

func detectorConfig(cfg *config.Config) detector.Config {
	dcfg := detector.DefaultConfig()
	dcfg.MaxHands = cfg.MaxHands
	dcfg.MinConfidence = cfg.MinConfidence
	dcfg.MinTrackingConf = cfg.MinTrackingConf
	dcfg.ScriptPath = cfg.ScriptPath
	dcfg.ModelPath = cfg.ModelPath
	return dcfg
}

// findWebDir searches for the dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handtimer/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handtimer", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("open browser", "url", url, "error", err)
	}
}
