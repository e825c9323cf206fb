package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/ayusman/handtimer/internal/hook"
)

func TestHandle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sendErr  error
		wantSent string
		wantOK   bool
	}{
		{
			name:     "stopped above threshold",
			input:    `{"event":"stopped","record":{"start":1,"end":3.5,"duration":2.5},"config":{"min_duration":1}}`,
			wantSent: "Movement took 2.50s",
			wantOK:   true,
		},
		{
			name:   "stopped below threshold",
			input:  `{"event":"stopped","record":{"start":1,"end":1.2,"duration":0.2},"config":{"min_duration":1}}`,
			wantOK: true,
		},
		{
			name:     "started",
			input:    `{"event":"started","hand":"Right","record":{"start":1}}`,
			wantSent: "Timer started by Right hand",
			wantOK:   true,
		},
		{
			name:   "unknown event",
			input:  `{"event":"paused"}`,
			wantOK: true,
		},
		{
			name:   "bad json",
			input:  `{`,
			wantOK: false,
		},
		{
			name:   "bad config",
			input:  `{"event":"stopped","config":{"min_duration":"x"}}`,
			wantOK: false,
		},
		{
			name:     "send fails",
			input:    `{"event":"stopped","record":{"duration":3}}`,
			sendErr:  errors.New("no display"),
			wantSent: "Movement took 3.00s",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent string
			resp := handle(strings.NewReader(tt.input), func(title, body string) error {
				if title == "" {
					t.Error("expected a title")
				}
				sent = body
				return tt.sendErr
			})

			if resp.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v (error %q)", resp.Success, tt.wantOK, resp.Error)
			}
			if sent != tt.wantSent {
				t.Errorf("sent %q, want %q", sent, tt.wantSent)
			}
		})
	}
}

func TestMessage_DefaultThreshold(t *testing.T) {
	req := hook.Request{Event: hook.EventStopped, Record: hook.Record{Duration: 0}}
	if _, ok := message(req, settings{}); !ok {
		t.Error("zero-length movement should notify when no threshold is set")
	}
}
