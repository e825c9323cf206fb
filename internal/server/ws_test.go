package server

import (
	"testing"
	"time"

	"github.com/ayusman/handtimer/internal/timer"
)

func TestHub_PublishDoesNotBlockOnStalledClient(t *testing.T) {
	hub := NewHub("s1", nil)

	// No writer drains this client, as with a peer that stopped reading.
	stalled := &client{remote: "stalled", send: make(chan []byte, sendBuffer)}
	healthy := &client{remote: "healthy", send: make(chan []byte, 4*sendBuffer)}
	hub.clients[stalled] = struct{}{}
	hub.clients[healthy] = struct{}{}

	ev := timer.Event{Kind: timer.EventStarted, At: time.Unix(1, 0), Hand: "Right"}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*sendBuffer; i++ {
			hub.Publish(ev)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled client")
	}

	if n := hub.Clients(); n != 1 {
		t.Fatalf("expected only the healthy client to remain, got %d clients", n)
	}
	if _, ok := hub.clients[healthy]; !ok {
		t.Error("healthy client was dropped")
	}
	if got := len(healthy.send); got != 2*sendBuffer {
		t.Errorf("healthy client queued %d messages, want %d", got, 2*sendBuffer)
	}

	// The stalled client's queue is closed so its writer would exit.
	for range stalled.send {
	}
}

func TestHub_RemoveIsIdempotent(t *testing.T) {
	hub := NewHub("s1", nil)
	c := &client{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	hub.remove(c)
	hub.remove(c)

	if hub.Clients() != 0 {
		t.Errorf("expected no clients, got %d", hub.Clients())
	}
}
