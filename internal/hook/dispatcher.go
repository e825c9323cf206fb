package hook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/handtimer/internal/timer"
)

// Dispatcher fans timer events out to the subscribed hooks. Hooks run in
// their own goroutines so a slow hook never stalls frame processing.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	session  string
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher tagging every request with session.
func NewDispatcher(manager *Manager, executor *Executor, session string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		session:  session,
		logger:   logger,
	}
}

// NewRequest converts a timer event into a hook request.
func NewRequest(ev timer.Event, session string) *Request {
	req := &Request{
		Event:   string(ev.Kind),
		Session: session,
		Hand:    ev.Hand,
		Record:  Record{Start: unixSeconds(ev.At)},
	}
	if ev.Record != nil {
		req.Record = Record{
			Start:    unixSeconds(ev.Record.Start),
			End:      unixSeconds(ev.Record.End),
			Duration: ev.Record.Seconds(),
		}
	}
	return req
}

// Dispatch starts every hook subscribed to ev and returns immediately.
// It reports how many hooks were started.
func (d *Dispatcher) Dispatch(ctx context.Context, ev timer.Event) int {
	hooks := d.manager.For(string(ev.Kind))
	for _, h := range hooks {
		req := NewRequest(ev, d.session)
		d.wg.Add(1)
		go func(h *Hook, req *Request) {
			defer d.wg.Done()
			d.run(ctx, h, req)
		}(h, req)
	}
	return len(hooks)
}

func (d *Dispatcher) run(ctx context.Context, h *Hook, req *Request) {
	resp, err := d.executor.Execute(ctx, h, req)
	if err != nil {
		d.logger.Error("hook failed", "hook", h.Manifest.Name, "event", req.Event, "error", err)
		return
	}
	if !resp.Success {
		d.logger.Warn("hook reported failure", "hook", h.Manifest.Name, "event", req.Event, "error", resp.Error)
		return
	}
	d.logger.Debug("hook done", "hook", h.Manifest.Name, "event", req.Event)
}

// Wait blocks until all dispatched hooks have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
