// Package hook runs external executables when the timer starts or completes
// a movement.
package hook

import (
	"encoding/json"
	"slices"
)

// Event names sent to hooks.
const (
	EventStarted = "started"
	EventStopped = "stopped"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook's metadata and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Record is the movement payload of a request. Times are Unix seconds.
type Record struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Event   string          `json:"event"`
	Session string          `json:"session,omitempty"`
	Hand    string          `json:"hand,omitempty"`
	Record  Record          `json:"record"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the hook subscribes to event. A manifest without
// events only receives completed movements.
func (h *Hook) Wants(event string) bool {
	if len(h.Manifest.Events) == 0 {
		return event == EventStopped
	}
	return slices.Contains(h.Manifest.Events, event)
}
