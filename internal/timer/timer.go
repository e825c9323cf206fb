// Package timer measures how long a hand takes to cross from the start zone
// to the end zone of the frame.
package timer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/handtimer/internal/detector"
)

// Zone thresholds as fractions of frame width.
const (
	// StartZoneMaxX is the right edge of the start zone. A right thumb left
	// of it arms the timer.
	StartZoneMaxX = 0.25
	// EndZoneMinX is the left edge of the end zone. A left thumb right of it
	// stops the timer.
	EndZoneMinX = 0.8
)

// State is the timer's position in the Idle/Armed cycle.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Record is one completed start-to-stop interval.
type Record struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Seconds returns the duration in seconds.
func (r Record) Seconds() float64 {
	return r.Duration.Seconds()
}

// EventKind identifies a timer transition.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventStopped EventKind = "stopped"
)

// Event describes a transition produced by Observe.
// Record is set only for EventStopped.
type Event struct {
	Kind   EventKind
	At     time.Time
	Hand   string
	Record *Record
}

// Timer is the zone-crossing state machine. It is not safe for concurrent
// use; the owning loop serializes all calls.
type Timer struct {
	state  State
	start  time.Time
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock overrides the wall clock used by Observe.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithLogger sets the logger used for transition messages.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Timer) { t.logger = logger }
}

// New returns an idle Timer.
func New(opts ...Option) *Timer {
	t := &Timer{state: Idle, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state.
func (t *Timer) State() State {
	return t.state
}

// StartedAt returns the arming time and whether the timer is armed.
func (t *Timer) StartedAt() (time.Time, bool) {
	return t.start, t.state == Armed
}

// Start arms the timer at now. It reports false if the timer was already
// armed, in which case the original start time is kept.
func (t *Timer) Start(now time.Time) bool {
	if t.state == Armed {
		return false
	}
	t.state = Armed
	t.start = now
	return true
}

// Stop completes the in-flight measurement at now and returns its record.
// It reports false, with no record, if the timer was idle.
func (t *Timer) Stop(now time.Time) (Record, bool) {
	if t.state != Armed {
		return Record{}, false
	}
	rec := Record{Start: t.start, End: now, Duration: now.Sub(t.start)}
	t.state = Idle
	t.start = time.Time{}
	return rec, true
}

// Reset discards any in-flight measurement.
func (t *Timer) Reset() {
	t.state = Idle
	t.start = time.Time{}
}

// IsStartTrigger reports whether a thumb landmark of a hand with the given
// label lies in the start zone.
func IsStartTrigger(label string, thumb detector.Point3D) bool {
	return label == detector.Right && thumb.X < StartZoneMaxX
}

// IsStopTrigger reports whether a thumb landmark of a hand with the given
// label lies in the end zone.
func IsStopTrigger(label string, thumb detector.Point3D) bool {
	return label == detector.Left && thumb.X > EndZoneMinX
}

// Observe evaluates one frame's hands, in the order given, against the
// trigger zones and returns the transitions that occurred. For each hand the
// start scan over its thumb landmarks runs before the stop scan. A frame
// fires at most one start and at most one stop. The clock is read at most
// once per call, so all transitions of a frame share a timestamp.
func (t *Timer) Observe(hands []detector.HandLandmarks) []Event {
	var events []Event
	var started, stopped bool
	var frameTime time.Time
	frameNow := func() time.Time {
		if frameTime.IsZero() {
			frameTime = t.now()
		}
		return frameTime
	}
	for i := range hands {
		hand := &hands[i]
		thumb := hand.Thumb()

		for _, p := range thumb {
			if started || t.state == Armed || !IsStartTrigger(hand.Handedness, p) {
				continue
			}
			at := frameNow()
			if t.Start(at) {
				started = true
				t.logger.Info("timer started", "hand", hand.Handedness, "thumb_x", p.X)
				events = append(events, Event{Kind: EventStarted, At: at, Hand: hand.Handedness})
			}
		}

		for _, p := range thumb {
			if stopped || t.state != Armed || !IsStopTrigger(hand.Handedness, p) {
				continue
			}
			at := frameNow()
			if rec, ok := t.Stop(at); ok {
				stopped = true
				t.logger.Info("timer stopped", "hand", hand.Handedness, "thumb_x", p.X, "duration", rec.Duration)
				events = append(events, Event{Kind: EventStopped, At: at, Hand: hand.Handedness, Record: &rec})
			}
		}
	}
	return events
}
