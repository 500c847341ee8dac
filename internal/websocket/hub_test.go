package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 8)}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient()
	hub.register <- client

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHubBroadcastReload(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient()
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.BroadcastReload("cafebabe")

	select {
	case payload := <-client.send:
		var msg map[string]string
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, TypeReload, msg["type"])
		assert.Equal(t, "cafebabe", msg["fingerprint"])
	case <-time.After(time.Second):
		t.Fatal("no reload broadcast received")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	slow := &Client{send: make(chan []byte)} // unbuffered, never read
	hub.register <- slow
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.BroadcastReload("1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestConcurrentSendAndDrop(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	// A nearly-full client whose read goroutine keeps queueing
	// responses while the hub drops it for being slow. The guarded
	// send must never panic on the closed channel.
	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			client.sendError("busy")
		}
	}()

	for i := 0; i < 200; i++ {
		hub.BroadcastReload("fp")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent sends did not finish")
	}
}

func TestDetachAfterStop(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Stop()

	done := make(chan struct{})
	go func() {
		client.detach()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after hub stop")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	client := newTestClient()
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Stop()

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed on hub stop")
	}
}
