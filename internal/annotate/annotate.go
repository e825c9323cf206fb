// Package annotate draws the zone overlay, hand skeletons and status text
// onto captured frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handtimer/internal/detector"
)

// Overlay geometry as fractions of the frame.
const (
	StartLineX = 0.2
	EndLineX   = 0.8
	LabelY     = 0.1
	// LabelMargin is the gap in pixels between a hand and its handedness label.
	LabelMargin = 10
)

var (
	startColor      = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	endColor        = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	handednessColor = color.RGBA{R: 54, G: 205, B: 88, A: 0}
	connectionColor = color.RGBA{R: 224, G: 224, B: 224, A: 0}
	landmarkColor   = color.RGBA{R: 255, G: 48, B: 48, A: 0}
	statusColor     = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// ZoneOverlay is the static start/end zone image composited onto every frame.
type ZoneOverlay struct {
	mat    gocv.Mat
	width  int
	height int
}

// NewZoneOverlay renders the zone lines and labels for frames of the given
// size and type. Call it once per session and Close it when done.
func NewZoneOverlay(width, height int, mt gocv.MatType) *ZoneOverlay {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, mt)

	startX := int(StartLineX * float64(width))
	endX := int(EndLineX * float64(width))
	labelY := int(LabelY * float64(height))

	gocv.Line(&mat, image.Pt(startX, 0), image.Pt(startX, height), startColor, 5)
	gocv.Line(&mat, image.Pt(endX, 0), image.Pt(endX, height), endColor, 5)
	gocv.PutText(&mat, "START ZONE", image.Pt(5, labelY), gocv.FontHersheySimplex, 0.6, startColor, 2)
	gocv.PutText(&mat, "END ZONE", image.Pt(endX+5, labelY), gocv.FontHersheySimplex, 0.7, endColor, 2)

	return &ZoneOverlay{mat: mat, width: width, height: height}
}

// NewZoneOverlayFor sizes the overlay from a sample frame.
func NewZoneOverlayFor(frame *gocv.Mat) *ZoneOverlay {
	return NewZoneOverlay(frame.Cols(), frame.Rows(), frame.Type())
}

// Size returns the overlay width and height in pixels.
func (o *ZoneOverlay) Size() (int, int) {
	return o.width, o.height
}

// Mat exposes the overlay image.
func (o *ZoneOverlay) Mat() *gocv.Mat {
	return &o.mat
}

// Apply adds the overlay onto frame in place. Frames whose size differs
// from the overlay are left unchanged.
func (o *ZoneOverlay) Apply(frame *gocv.Mat) {
	if frame.Cols() != o.width || frame.Rows() != o.height || frame.Type() != o.mat.Type() {
		return
	}
	gocv.AddWeighted(*frame, 1, o.mat, 1, 0, frame)
}

// Close releases the overlay image.
func (o *ZoneOverlay) Close() error {
	return o.mat.Close()
}

// ToPixel converts a normalized landmark to pixel coordinates.
func ToPixel(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

// LabelOrigin returns where a hand's handedness label is drawn: above the
// top-left corner of its bounding box.
func LabelOrigin(hand *detector.HandLandmarks, width, height int) image.Point {
	minX, minY := hand.MinXY()
	return image.Pt(int(minX*float64(width)), int(minY*float64(height))-LabelMargin)
}

// DrawHand draws the skeleton, landmark dots and handedness label of one hand.
func DrawHand(frame *gocv.Mat, hand *detector.HandLandmarks) {
	width, height := frame.Cols(), frame.Rows()

	for _, c := range detector.HandConnections {
		from := ToPixel(hand.Points[c.From], width, height)
		to := ToPixel(hand.Points[c.To], width, height)
		gocv.Line(frame, from, to, connectionColor, 2)
	}
	for _, p := range hand.Points {
		gocv.Circle(frame, ToPixel(p, width, height), 3, landmarkColor, -1)
	}

	gocv.PutTextWithParams(frame, hand.Handedness, LabelOrigin(hand, width, height),
		gocv.FontHersheyDuplex, 1, handednessColor, 1, gocv.LineAA, false)
}

// DrawHands draws every detected hand.
func DrawHands(frame *gocv.Mat, hands []detector.HandLandmarks) {
	for i := range hands {
		DrawHand(frame, &hands[i])
	}
}

// Status is the timer summary shown in the bottom-left corner.
type Status struct {
	Armed        bool
	Elapsed      float64
	LastDuration float64
	Count        int
}

// String renders the status line.
func (s Status) String() string {
	state := "IDLE"
	if s.Armed {
		state = fmt.Sprintf("TIMING %.1fs", s.Elapsed)
	}
	if s.Count == 0 {
		return state
	}
	return fmt.Sprintf("%s | last %.2fs | n=%d", state, s.LastDuration, s.Count)
}

// DrawStatus writes the status line.
func DrawStatus(frame *gocv.Mat, s Status) {
	origin := image.Pt(5, frame.Rows()-LabelMargin)
	gocv.PutText(frame, s.String(), origin, gocv.FontHersheySimplex, 0.6, statusColor, 2)
}
