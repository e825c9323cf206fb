package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed set of hands or a scripted per-frame sequence.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	calls    int
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence scripts the hands returned by successive Detect calls.
// Once the sequence is exhausted Detect returns no hands.
func (m *MockDetector) SetSequence(frames [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if call >= len(m.sequence) {
			return nil, nil
		}
		return m.sequence[call], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// HandAt returns a synthetic open hand with the given label whose thumb
// landmarks all sit at horizontal position thumbX. The remaining landmarks
// are laid out to the side of the thumb away from the frame edge.
func HandAt(label string, thumbX float64) HandLandmarks {
	hand := HandLandmarks{
		Handedness: label,
		Score:      0.95,
	}

	// Fingers extend toward the frame centre.
	dir := 1.0
	if thumbX > 0.5 {
		dir = -1.0
	}

	hand.Points[Wrist] = Point3D{X: thumbX + dir*0.02, Y: 0.80}
	for i, idx := range DigitIndices(Thumb) {
		hand.Points[idx] = Point3D{X: thumbX, Y: 0.75 - float64(i)*0.05}
	}
	for d, digit := range Digits[1:] {
		x := thumbX + dir*(0.04+float64(d)*0.03)
		for i, idx := range DigitIndices(digit) {
			hand.Points[idx] = Point3D{X: x, Y: 0.70 - float64(i)*0.06, Z: -0.01 * float64(i)}
		}
	}

	return hand
}
