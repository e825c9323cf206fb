// Package tray provides a system tray interface showing the timer state and
// the last measured movement.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuState  *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a new Tray instance with timing enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when timing is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback called when the dashboard menu item is clicked.
// Without one the menu item is not shown.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("handtimer")
	systray.SetTooltip("Hand movement timer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume timing")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem(StateTitle(false, 0), "Timer state")
	t.menuState.Disable()
	t.menuLast = systray.AddMenuItem(LastTitle(0, 0), "Last measured movement")
	t.menuLast.Disable()
	systray.AddSeparator()

	dashboard := t.onDashboard
	t.mu.Unlock()

	var dashboardCh chan struct{}
	if dashboard != nil {
		dashboardCh = systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser").ClickedCh
		systray.AddSeparator()
	}

	menuQuit := systray.AddMenuItem("Quit", "Quit handtimer")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-dashboardCh:
				dashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Timing"
	}
	return "○ Paused"
}

// StateTitle renders the timer state line.
func StateTitle(armed bool, elapsed time.Duration) string {
	if !armed {
		return "State: idle"
	}
	return fmt.Sprintf("State: timing (%.1fs)", elapsed.Seconds())
}

// LastTitle renders the last movement line.
func LastTitle(last time.Duration, count int) string {
	if count == 0 {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %.2fs (n=%d)", last.Seconds(), count)
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetState updates the timer state line.
func (t *Tray) SetState(armed bool, elapsed time.Duration) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuState != nil {
		t.menuState.SetTitle(StateTitle(armed, elapsed))
	}
}

// SetLast updates the last movement line.
func (t *Tray) SetLast(last time.Duration, count int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		t.menuLast.SetTitle(LastTitle(last, count))
	}
}

// IsEnabled returns whether timing is enabled.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
