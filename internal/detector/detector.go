package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark sources.
type Detector interface {
	// Detect analyzes a video frame and returns the detected hands in model
	// output order. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of the landmark service script.
	ScriptPath string

	// ModelPath is the MediaPipe hand_landmarker.task bundle. Empty lets
	// the service use its default next to the script.
	ModelPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
