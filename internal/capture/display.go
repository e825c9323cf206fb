package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// QuitKey is the key that ends the session from the display window.
const QuitKey = 'q'

// Display presents annotated frames and reports a user quit request.
type Display interface {
	Show(frame *gocv.Mat)
	// QuitRequested polls for the quit key without blocking.
	QuitRequested() bool
	Close() error
}

// WindowDisplay shows frames in an OpenCV HighGUI window.
// It must be used from the goroutine that created it.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window with the given title.
func NewWindowDisplay(title string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

// Show renders a frame.
func (d *WindowDisplay) Show(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	d.window.IMShow(*frame)
}

// QuitRequested waits 1ms for a key press and reports whether it was the quit key.
func (d *WindowDisplay) QuitRequested() bool {
	return d.window.WaitKey(1)&0xFF == QuitKey
}

// Close destroys the window.
func (d *WindowDisplay) Close() error {
	return d.window.Close()
}

// NullDisplay discards frames. Quit is requested through RequestQuit,
// which may be called from any goroutine.
type NullDisplay struct {
	mu    sync.Mutex
	quit  bool
	shown int
}

// NewNullDisplay creates a headless display.
func NewNullDisplay() *NullDisplay {
	return &NullDisplay{}
}

// Show counts the frame and drops it.
func (d *NullDisplay) Show(frame *gocv.Mat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown++
}

// Shown returns the number of frames passed to Show.
func (d *NullDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// RequestQuit makes the next QuitRequested call return true.
func (d *NullDisplay) RequestQuit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quit = true
}

// QuitRequested reports whether RequestQuit has been called.
func (d *NullDisplay) QuitRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

// Close is a no-op.
func (d *NullDisplay) Close() error {
	return nil
}
