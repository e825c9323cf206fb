// Package main provides a desktop notification hook.
// It announces each completed movement via osascript on macOS and
// notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/ayusman/handtimer/internal/hook"
)

// settings is the hook's manifest config.
type settings struct {
	// MinDuration suppresses notifications for shorter movements.
	MinDuration float64 `json:"min_duration"`
	Title       string  `json:"title"`
}

func main() {
	resp := handle(os.Stdin, notify)
	json.NewEncoder(os.Stdout).Encode(resp)
}

// handle decodes a request from r and sends at most one notification.
func handle(r io.Reader, send func(title, body string) error) hook.Response {
	var req hook.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return hook.Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	cfg := settings{Title: "Hand timer"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return hook.Response{Error: fmt.Sprintf("invalid config: %v", err)}
		}
	}

	body, ok := message(req, cfg)
	if !ok {
		return hook.Response{Success: true}
	}
	if err := send(cfg.Title, body); err != nil {
		return hook.Response{Error: fmt.Sprintf("notify failed: %v", err)}
	}
	return hook.Response{Success: true}
}

// message renders the notification text for req. It reports false when
// nothing should be shown.
func message(req hook.Request, cfg settings) (string, bool) {
	switch req.Event {
	case hook.EventStarted:
		return fmt.Sprintf("Timer started by %s hand", req.Hand), true
	case hook.EventStopped:
		if req.Record.Duration < cfg.MinDuration {
			return "", false
		}
		return "Movement took " + strconv.FormatFloat(req.Record.Duration, 'f', 2, 64) + "s", true
	}
	return "", false
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", title, body)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
