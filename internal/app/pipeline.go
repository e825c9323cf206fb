package app

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtimer/internal/annotate"
	"github.com/ayusman/handtimer/internal/store"
	"github.com/ayusman/handtimer/internal/timer"
)

// Run opens the capture source and processes frames until the source ends,
// the display requests quit or ctx is cancelled. On every exit path after a
// successful open it flushes the frame history and closes the session.
//
// Per frame:
// 1. Read a frame; a read failure ends the session
// 2. Detect hands; a detector error counts as no hands
// 3. Record the frame's digit groups in the history
// 4. Feed the hands to the timer and fan transitions out to the sinks
// 5. Draw skeletons, status and the zone overlay
// 6. Show and publish the annotated frame, then poll for quit
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open capture %s: %w", a.config.Source, err)
	}
	a.logger.Info("capture opened", "source", a.config.Source)

	a.beginSession()
	defer a.finish()

	for {
		if err := ctx.Err(); err != nil {
			a.logger.Info("stopping", "reason", err)
			return nil
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.logger.Info("capture ended", "reason", err)
			return nil
		}

		a.processFrame(ctx, frame)
		frame.Close()

		if a.display.QuitRequested() {
			a.logger.Info("stopping", "reason", "quit key")
			return nil
		}
	}
}

// processFrame runs one frame through detection, timing and annotation.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat) {
	hands, err := a.detector.Detect(frame)
	if err != nil {
		a.logger.Warn("hand detection failed", "error", err)
		hands = nil
	}

	a.mu.Lock()
	a.frames++
	a.mu.Unlock()

	a.history.Append(hands)

	if a.IsEnabled() {
		for _, ev := range a.timer.Observe(hands) {
			a.handleEvent(ctx, ev)
		}
	}

	if a.overlay == nil {
		a.overlay = annotate.NewZoneOverlayFor(frame)
	}
	annotate.DrawHands(frame, hands)
	annotate.DrawStatus(frame, a.status(a.now()))
	a.overlay.Apply(frame)

	a.display.Show(frame)
	if a.frameSink != nil {
		if err := a.frameSink.Publish(frame); err != nil {
			a.logger.Debug("frame publish failed", "error", err)
		}
	}
}

// handleEvent delivers a timer transition to every sink. Sink failures are
// logged and never stop the loop.
func (a *App) handleEvent(ctx context.Context, ev timer.Event) {
	if ev.Kind == timer.EventStopped && ev.Record != nil {
		rec := *ev.Record
		if err := a.movements.Append(rec); err != nil {
			a.logger.Error("write movement sheet", "path", a.movements.Path(), "error", err)
		}
		if a.config.Store != nil {
			m := store.NewMovement(a.sessionID, rec.Start, rec.End)
			if err := a.config.Store.Movements().Create(m); err != nil {
				a.logger.Error("store movement", "error", err)
			}
		}
	}

	if a.hooks != nil {
		// Hooks outlive a cancelled loop so the last movement still reaches them.
		a.hooks.Dispatch(context.WithoutCancel(ctx), ev)
	}
	for _, s := range a.sinks {
		s.Publish(ev)
	}
}

func (a *App) beginSession() {
	if a.config.Store == nil {
		return
	}
	sess := &store.Session{ID: a.sessionID, Source: a.config.Source, StartedAt: a.now()}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		a.logger.Error("create session", "error", err)
	}
}

// finish flushes the frame history, closes the session and releases the
// pipeline resources.
func (a *App) finish() {
	if err := a.history.Save(a.config.HistoryPath); err != nil {
		a.logger.Error("write frame history", "path", a.config.HistoryPath, "error", err)
	} else {
		a.logger.Info("frame history written", "path", a.config.HistoryPath, "frames", a.history.Len())
	}

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().End(a.sessionID, a.now(), a.Frames()); err != nil {
			a.logger.Error("close session", "error", err)
		}
	}

	if a.hooks != nil {
		a.hooks.Wait()
	}

	if a.overlay != nil {
		a.overlay.Close()
	}
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("close capture", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("close detector", "error", err)
	}
	if err := a.display.Close(); err != nil {
		a.logger.Warn("close display", "error", err)
	}

	a.logger.Info("session finished", "frames", a.Frames(), "movements", a.movements.Len())
}
