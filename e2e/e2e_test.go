package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handtimer/internal/app"
	"github.com/ayusman/handtimer/internal/capture"
	"github.com/ayusman/handtimer/internal/detector"
	"github.com/ayusman/handtimer/internal/export"
	"github.com/ayusman/handtimer/internal/hook"
	"github.com/ayusman/handtimer/internal/server"
	"github.com/ayusman/handtimer/internal/store"
)

// script plays a start, stop, start, stop sequence with idle frames between.
func script() [][]detector.HandLandmarks {
	r := detector.HandAt(detector.Right, 0.1)
	l := detector.HandAt(detector.Left, 0.9)
	return [][]detector.HandLandmarks{
		nil,
		{r},
		nil,
		{l},
		nil,
		{r, l},
		{l},
	}
}

func writeHook(t *testing.T, dir, out string) {
	t.Helper()

	hookDir := filepath.Join(dir, "record")
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"record","executable":"run.sh","events":["stopped"]}`
	if err := os.WriteFile(filepath.Join(hookDir, hook.ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	body := "#!/bin/sh\nprintf '%s\\n' \"$(cat)\" >> " + out + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestE2E_CompleteSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("hook script needs a POSIX shell")
	}

	tmpDir := t.TempDir()
	sheetPath := filepath.Join(tmpDir, export.DefaultSheetPath)
	historyPath := filepath.Join(tmpDir, export.DefaultHistoryPath)
	hookOut := filepath.Join(tmpDir, "hook.log")

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hookDir := filepath.Join(tmpDir, "hooks")
	writeHook(t, hookDir, hookOut)
	hooks := hook.NewManager(hookDir, nil)
	if err := hooks.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	seq := script()
	mats := capture.BlankFrames(len(seq), 320, 240)
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	mockDetector := detector.NewMockDetector()
	mockDetector.SetSequence(seq)

	application := app.New(app.Config{
		Camera:      capture.NewMockCamera(mats, false),
		Detector:    mockDetector,
		Source:      "e2e",
		SheetPath:   sheetPath,
		HistoryPath: historyPath,
		MaxHands:    2,
		Store:       s,
		Hooks:       hooks,
		HookTimeout: 5 * time.Second,
	})

	frames := server.NewFrameBuffer()
	hub := server.NewHub(application.SessionID(), nil)
	application.AddSink(hub)
	application.SetFrameSink(frames)

	srv := server.New(server.Config{
		Store:   s,
		Frames:  frames,
		Hub:     hub,
		Session: application.SessionID,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()
	for deadline := time.Now().Add(2 * time.Second); hub.Clients() == 0; {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Run("Run", func(t *testing.T) {
		if err := application.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if n := len(application.Movements()); n != 2 {
			t.Fatalf("expected 2 movements, got %d", n)
		}
	})

	t.Run("LiveEvents", func(t *testing.T) {
		var kinds []string
		for i := 0; i < 4; i++ {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var msg server.EventMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			kinds = append(kinds, msg.Type)
		}
		want := "started,stopped,started,stopped"
		if got := strings.Join(kinds, ","); got != want {
			t.Errorf("events = %s, want %s", got, want)
		}
	})

	t.Run("Files", func(t *testing.T) {
		rows, err := export.ReadSheet(sheetPath)
		if err != nil {
			t.Fatalf("ReadSheet() error = %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("expected 2 sheet rows, got %d", len(rows))
		}

		history, err := export.ReadHistory(historyPath, 2)
		if err != nil {
			t.Fatalf("ReadHistory() error = %v", err)
		}
		if len(history) != len(seq) {
			t.Errorf("expected %d history frames, got %d", len(seq), len(history))
		}
	})

	t.Run("Hooks", func(t *testing.T) {
		data, err := os.ReadFile(hookOut)
		if err != nil {
			t.Fatalf("hook never ran: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 hook invocations, got %d", len(lines))
		}
		var req hook.Request
		if err := json.Unmarshal([]byte(lines[0]), &req); err != nil {
			t.Fatalf("parse hook request: %v", err)
		}
		if req.Event != hook.EventStopped || req.Session != application.SessionID() {
			t.Errorf("unexpected hook request %+v", req)
		}
	})

	t.Run("API", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/movements")
		if err != nil {
			t.Fatalf("GET /api/movements error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var body struct {
			Session   string `json:"session"`
			Movements []struct {
				Duration float64 `json:"duration"`
			} `json:"movements"`
			Summary struct {
				Count int `json:"count"`
			} `json:"summary"`
		}
		json.NewDecoder(resp.Body).Decode(&body)

		if body.Session != application.SessionID() || body.Summary.Count != 2 {
			t.Errorf("unexpected movements response %+v", body)
		}
		for i, m := range body.Movements {
			if m.Duration < 0 {
				t.Errorf("movement %d has negative duration %v", i, m.Duration)
			}
		}

		if _, seq := frames.Latest(); seq != uint64(len(script())) {
			t.Errorf("expected %d published frames, got %d", len(script()), seq)
		}
	})
}
