package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Mock client
	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}

	// Test registration
	hub.register <- client
	// Allow the hub to process the register message
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 1 {
		t.Fatalf("Expected 1 client after registration, got %d", len(hub.clients))
	}

	// Test broadcast
	message := []byte("hello")
	hub.broadcast <- message

	select {
	case received := <-client.send:
		if string(received) != "hello" {
			t.Errorf("Client received wrong message: got %s, want %s", received, message)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive broadcast message in time")
	}

	// Test unregistration
	hub.unregister <- client
	// Allow the hub to process the unregister message
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 0 {
		t.Fatalf("Expected 0 clients after unregistration, got %d", len(hub.clients))
	}
}

func TestHubBroadcastJSON(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}
	hub.register <- client

	hub.BroadcastJSON(map[string]string{"investigation_id": "inv-1"})

	select {
	case received := <-client.send:
		var payload map[string]string
		if err := json.Unmarshal(received, &payload); err != nil {
			t.Fatalf("Broadcast payload is not valid JSON: %v", err)
		}
		if payload["investigation_id"] != "inv-1" {
			t.Errorf("Unexpected payload: %s", received)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive JSON broadcast in time")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// A client whose send buffer is already full.
	client := &Client{
		hub:  hub,
		send: make(chan []byte),
	}
	hub.register <- client

	hub.broadcast <- []byte("one")
	time.Sleep(10 * time.Millisecond)

	if len(hub.clients) != 0 {
		t.Fatalf("Expected the slow client to be dropped, still have %d clients", len(hub.clients))
	}
}
