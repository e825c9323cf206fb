// Package app runs the zone-crossing timer: it owns the capture, detection,
// timer, annotation and sink pipeline for one session.
package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/handtimer/internal/annotate"
	"github.com/ayusman/handtimer/internal/capture"
	"github.com/ayusman/handtimer/internal/detector"
	"github.com/ayusman/handtimer/internal/export"
	"github.com/ayusman/handtimer/internal/hook"
	"github.com/ayusman/handtimer/internal/store"
	"github.com/ayusman/handtimer/internal/timer"
)

// EventSink receives every timer transition of the session.
type EventSink interface {
	Publish(ev timer.Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(ev timer.Event)

// Publish calls f(ev).
func (f EventSinkFunc) Publish(ev timer.Event) { f(ev) }

// FrameSink receives every annotated frame.
type FrameSink interface {
	Publish(frame *gocv.Mat) error
}

// Config holds the collaborators and sink paths of the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	// Display defaults to a headless NullDisplay.
	Display capture.Display
	// Source describes the capture source for the session record.
	Source string

	SheetPath   string
	HistoryPath string
	MaxHands    int

	// Optional sinks
	Store       *store.Store
	Hooks       *hook.Manager
	HookTimeout time.Duration

	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

// App is the single owner of the session state. Run must be called from one
// goroutine; SetEnabled and the read accessors are safe from any goroutine.
type App struct {
	config    Config
	sessionID string
	camera    capture.Camera
	detector  detector.Detector
	display   capture.Display
	timer     *timer.Timer
	movements *export.MovementLog
	history   *export.FrameHistory
	overlay   *annotate.ZoneOverlay
	hooks     *hook.Dispatcher
	sinks     []EventSink
	frameSink FrameSink
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.RWMutex
	enabled bool
	frames  int
}

// New creates an App for one session with the given configuration.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	display := config.Display
	if display == nil {
		display = capture.NewNullDisplay()
	}
	if config.SheetPath == "" {
		config.SheetPath = export.DefaultSheetPath
	}
	if config.HistoryPath == "" {
		config.HistoryPath = export.DefaultHistoryPath
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = 5 * time.Second
	}

	a := &App{
		config:    config,
		sessionID: uuid.New().String(),
		camera:    config.Camera,
		detector:  config.Detector,
		display:   display,
		timer:     timer.New(timer.WithClock(now), timer.WithLogger(logger)),
		movements: export.NewMovementLog(config.SheetPath),
		history:   export.NewFrameHistory(config.MaxHands),
		now:       now,
		logger:    logger,
		enabled:   true,
	}
	a.logger = a.logger.With("session", a.sessionID)

	if config.Hooks != nil {
		a.hooks = hook.NewDispatcher(config.Hooks, hook.NewExecutor(config.HookTimeout), a.sessionID, a.logger)
	}

	return a
}

// SessionID returns the ID of this run.
func (a *App) SessionID() string {
	return a.sessionID
}

// AddSink registers an additional event sink. Call before Run.
func (a *App) AddSink(s EventSink) {
	a.sinks = append(a.sinks, s)
}

// SetFrameSink registers the sink for annotated frames. Call before Run.
func (a *App) SetFrameSink(s FrameSink) {
	a.frameSink = s
}

// SetEnabled pauses or resumes timing. Frames are still captured,
// annotated and recorded while paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether timing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Frames returns the number of frames processed so far.
func (a *App) Frames() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Movements returns the completed movements of the session.
func (a *App) Movements() []timer.Record {
	return a.movements.Records()
}

// History returns the frame history. It must not be read while Run is active.
func (a *App) History() *export.FrameHistory {
	return a.history
}

// Timer returns the session timer. It must not be used while Run is active.
func (a *App) Timer() *timer.Timer {
	return a.timer
}

// status summarizes the timer for the on-frame status line.
func (a *App) status(now time.Time) annotate.Status {
	s := annotate.Status{Count: a.movements.Len()}
	if start, ok := a.timer.StartedAt(); ok {
		s.Armed = true
		s.Elapsed = now.Sub(start).Seconds()
	}
	if last, ok := a.movements.Last(); ok {
		s.LastDuration = last.Seconds()
	}
	return s
}
