package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

const epsilon = 1e-9

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()

		mock.SetHands([]HandLandmarks{HandAt(Right, 0.2), HandAt(Left, 0.9)})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("plays back scripted sequence", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetSequence([][]HandLandmarks{
			{HandAt(Right, 0.1)},
			nil,
			{HandAt(Left, 0.9), HandAt(Right, 0.5)},
		})

		wantCounts := []int{1, 0, 2, 0, 0}
		for i, want := range wantCounts {
			hands, err := mock.Detect(nil)
			if err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
			if len(hands) != want {
				t.Errorf("call %d: expected %d hands, got %d", i, want, len(hands))
			}
		}

		if mock.Calls() != len(wantCounts) {
			t.Errorf("expected %d calls, got %d", len(wantCounts), mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestHandAt(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		thumbX float64
	}{
		{"right hand in start zone", Right, 0.20},
		{"left hand in end zone", Left, 0.85},
		{"hand at centre", Right, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := HandAt(tt.label, tt.thumbX)

			if hand.Handedness != tt.label {
				t.Errorf("expected handedness %s, got %s", tt.label, hand.Handedness)
			}
			for _, p := range hand.Thumb() {
				if math.Abs(p.X-tt.thumbX) > epsilon {
					t.Errorf("expected thumb x %f, got %f", tt.thumbX, p.X)
				}
			}
			for _, p := range hand.Points {
				if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
					t.Errorf("landmark %+v outside normalized frame", p)
				}
			}
		})
	}
}

func TestHandLandmarks_MinXY(t *testing.T) {
	hand := HandAt(Right, 0.3)
	hand.Points[PinkyTip] = Point3D{X: 0.05, Y: 0.9}
	hand.Points[MiddleTip] = Point3D{X: 0.6, Y: 0.02}

	minX, minY := hand.MinXY()

	if math.Abs(minX-0.05) > epsilon {
		t.Errorf("expected min x 0.05, got %f", minX)
	}
	if math.Abs(minY-0.02) > epsilon {
		t.Errorf("expected min y 0.02, got %f", minY)
	}
}

func TestHandConnections(t *testing.T) {
	if len(HandConnections) != 21 {
		t.Errorf("expected 21 connections, got %d", len(HandConnections))
	}
	for _, c := range HandConnections {
		if c.From < 0 || c.From >= NumLandmarks || c.To < 0 || c.To >= NumLandmarks {
			t.Errorf("connection %+v references invalid landmark", c)
		}
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("keeps service hand order", func(t *testing.T) {
		line := []byte(`{"hands":[` +
			`{"points":[{"x":0.1,"y":0.2,"z":0.0},{"x":0.15,"y":0.25,"z":-0.01}],"handedness":"Left","score":0.91},` +
			`{"points":[{"x":0.7,"y":0.5,"z":0.0}],"handedness":"Right","score":0.88}]}` + "\n")

		hands, err := parseResponse(line)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		if hands[0].Handedness != Left || hands[1].Handedness != Right {
			t.Errorf("unexpected order: %s, %s", hands[0].Handedness, hands[1].Handedness)
		}
		if hands[0].Points[ThumbCMC].X != 0.15 {
			t.Errorf("expected thumb CMC x 0.15, got %f", hands[0].Points[ThumbCMC].X)
		}
		if hands[1].Score != 0.88 {
			t.Errorf("expected score 0.88, got %f", hands[1].Score)
		}
	})

	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}`))
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"error":"model missing"}`)); err == nil {
			t.Error("expected error for service error response")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if len(out) != 4+len(payload) {
		t.Fatalf("expected %d bytes, got %d", 4+len(payload), len(out))
	}
	if n := binary.BigEndian.Uint32(out[:4]); int(n) != len(payload) {
		t.Errorf("expected length prefix %d, got %d", len(payload), n)
	}
	if !bytes.Equal(out[4:], payload) {
		t.Error("payload mismatch")
	}
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = "/nonexistent/" + ServiceScript

	if _, err := NewMediaPipeDetector(cfg, nil); err == nil {
		t.Error("expected error for missing service script")
	}
}

func TestEncodeFrame_KeepsBGR(t *testing.T) {
	// Pure blue in BGR order.
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := encodeFrame(&frame)
	if err != nil {
		t.Fatalf("encodeFrame() error = %v", err)
	}

	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode() error = %v", err)
	}
	defer decoded.Close()

	v := decoded.GetVecbAt(16, 16)
	if v[0] < 200 || v[2] > 50 {
		t.Errorf("expected blue to stay in channel 0, got B=%d G=%d R=%d", v[0], v[1], v[2])
	}
}

func TestServiceArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHands = 3
	cfg.MinConfidence = 0.7

	args := serviceArgs(cfg)
	want := []string{
		"--max-hands", "3",
		"--min-detection-confidence", "0.7",
		"--min-tracking-confidence", "0.5",
	}
	if !slices.Equal(args, want) {
		t.Errorf("serviceArgs() = %v, want %v", args, want)
	}

	cfg.ModelPath = "models/hand_landmarker.task"
	args = serviceArgs(cfg)
	if got := args[len(args)-2:]; got[0] != "--model" || got[1] != cfg.ModelPath {
		t.Errorf("expected trailing --model flag, got %v", got)
	}
}

func TestServiceScript_Contract(t *testing.T) {
	path := findServiceScript()
	if path == "" {
		t.Fatalf("%s not found from the package directory", ServiceScript)
	}
	if filepath.Base(path) != ServiceScript {
		t.Errorf("found %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)

	cfg := DefaultConfig()
	cfg.ModelPath = "x"
	for _, arg := range serviceArgs(cfg) {
		if strings.HasPrefix(arg, "--") && !strings.Contains(script, `"`+arg+`"`) {
			t.Errorf("service does not accept %s", arg)
		}
	}
	for _, field := range []string{`"hands"`, `"points"`, `"handedness"`, `"score"`, `"error"`, "category_name", "COLOR_BGR2RGB"} {
		if !strings.Contains(script, field) {
			t.Errorf("service does not reference %s", field)
		}
	}
}
