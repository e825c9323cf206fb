package export

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/handtimer/internal/detector"
)

// DefaultHistoryPath is where the frame history is written at shutdown.
const DefaultHistoryPath = "finger_data.npy"

// SlotWidth is the number of columns per hand slot: a label code followed
// by x and y of the 20 digit landmarks in Thumb, Index, Middle, Ring, Pinky order.
const SlotWidth = 1 + detector.NumDigits*detector.PointsPerDigit*2

// Label codes stored in the first column of a hand slot.
const (
	LabelLeft  = 0
	LabelRight = 1
	LabelOther = -1
)

// ErrEmptyHistory is returned by Matrix when no frames were recorded.
var ErrEmptyHistory = errors.New("frame history is empty")

// HandEntry is one hand of one frame: its label and digit groups.
type HandEntry struct {
	Label  string
	Digits detector.DigitGroups
}

// FrameHistory accumulates the per-frame hand entries of a session in memory.
// It is owned by the processing loop and not safe for concurrent use.
type FrameHistory struct {
	maxHands int
	frames   [][]HandEntry
}

// NewFrameHistory creates an empty history with room for maxHands per frame in the saved array.
func NewFrameHistory(maxHands int) *FrameHistory {
	if maxHands <= 0 {
		maxHands = 2
	}
	return &FrameHistory{maxHands: maxHands}
}

// Append records one processed frame. A frame with no hands is still an entry.
func (h *FrameHistory) Append(hands []detector.HandLandmarks) {
	entries := make([]HandEntry, len(hands))
	for i := range hands {
		entries[i] = HandEntry{
			Label:  hands[i].Handedness,
			Digits: hands[i].Digits(),
		}
	}
	h.frames = append(h.frames, entries)
}

// Len returns the number of recorded frames.
func (h *FrameHistory) Len() int {
	return len(h.frames)
}

// Frames returns the recorded frames.
func (h *FrameHistory) Frames() [][]HandEntry {
	return h.frames
}

// MaxHands returns the number of hand slots per saved row.
func (h *FrameHistory) MaxHands() int {
	return h.maxHands
}

func labelCode(label string) float64 {
	switch label {
	case detector.Left:
		return LabelLeft
	case detector.Right:
		return LabelRight
	}
	return LabelOther
}

func labelName(code float64) string {
	switch code {
	case LabelLeft:
		return detector.Left
	case LabelRight:
		return detector.Right
	}
	return ""
}

// Matrix lays the history out as a frames x (maxHands*SlotWidth) matrix.
// Unused hand slots are NaN; hands beyond maxHands are dropped.
func (h *FrameHistory) Matrix() (*mat.Dense, error) {
	if len(h.frames) == 0 {
		return nil, ErrEmptyHistory
	}

	cols := h.maxHands * SlotWidth
	data := make([]float64, len(h.frames)*cols)
	for i := range data {
		data[i] = math.NaN()
	}

	for r, frame := range h.frames {
		row := data[r*cols : (r+1)*cols]
		for s, entry := range frame {
			if s >= h.maxHands {
				break
			}
			slot := row[s*SlotWidth : (s+1)*SlotWidth]
			slot[0] = labelCode(entry.Label)
			c := 1
			for _, d := range detector.Digits {
				points := entry.Digits[d]
				for k := 0; k < detector.PointsPerDigit; k++ {
					if k < len(points) {
						slot[c], slot[c+1] = points[k].X, points[k].Y
					}
					c += 2
				}
			}
		}
	}

	return mat.NewDense(len(h.frames), cols, data), nil
}

// Save writes the history to path as a 2-D float64 NPY array. A session
// without frames is written as an empty 1-D array, as numpy saves an empty list.
func (h *FrameHistory) Save(path string) error {
	var data interface{} = []float64{}
	if len(h.frames) > 0 {
		m, err := h.Matrix()
		if err != nil {
			return err
		}
		data = m
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	if err := npyio.Write(f, data); err != nil {
		f.Close()
		return fmt.Errorf("write history: %w", err)
	}
	return f.Close()
}

// ReadHistory decodes a file written by Save. Landmark Z is not stored and
// reads back as zero.
func ReadHistory(path string, maxHands int) ([][]HandEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read history header: %w", err)
	}
	if slices.Contains(r.Header.Descr.Shape, 0) {
		return [][]HandEntry{}, nil
	}

	var m mat.Dense
	if err := r.Read(&m); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	rows, cols := m.Dims()
	if cols != maxHands*SlotWidth {
		return nil, fmt.Errorf("history has %d columns, want %d for %d hands", cols, maxHands*SlotWidth, maxHands)
	}

	frames := make([][]HandEntry, rows)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		entries := []HandEntry{}
		for s := 0; s < maxHands; s++ {
			slot := row[s*SlotWidth : (s+1)*SlotWidth]
			if math.IsNaN(slot[0]) {
				continue
			}
			entry := HandEntry{Label: labelName(slot[0]), Digits: make(detector.DigitGroups, detector.NumDigits)}
			c := 1
			for _, d := range detector.Digits {
				points := make([]detector.Point3D, 0, detector.PointsPerDigit)
				for k := 0; k < detector.PointsPerDigit; k++ {
					if !math.IsNaN(slot[c]) {
						points = append(points, detector.Point3D{X: slot[c], Y: slot[c+1]})
					}
					c += 2
				}
				entry.Digits[d] = points
			}
			entries = append(entries, entry)
		}
		frames[r] = entries
	}
	return frames, nil
}
