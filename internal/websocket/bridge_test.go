package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storytovideo/companion/internal/model"
)

func setupBridge(t *testing.T) (*EventBridge, *Client, *Client) {
	t.Helper()

	hub := NewHub()
	go hub.Run()

	p1Client := &Client{ID: "c1", ProjectID: "p1", Send: make(chan []byte, 16)}
	p2Client := &Client{ID: "c2", ProjectID: "p2", Send: make(chan []byte, 16)}
	hub.Register(p1Client)
	hub.Register(p2Client)

	return NewEventBridge(hub), p1Client, p2Client
}

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", string(data))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridge_RoutesByProject(t *testing.T) {
	bridge, p1Client, p2Client := setupBridge(t)

	bridge.StoryboardReady(&model.Project{ID: "p1", Title: "A Brave Tale"})

	msg := receive(t, p1Client)
	assert.Equal(t, model.WSMessageTypeStoryboardReady, msg["type"])
	project, ok := msg["project"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "A Brave Tale", project["title"])

	assertSilent(t, p2Client)
}

func TestBridge_ImageAndVideoMessages(t *testing.T) {
	bridge, p1Client, _ := setupBridge(t)

	bridge.ImageReady("p1", "s1", "http://gw/img/s1.png?v=1")
	msg := receive(t, p1Client)
	assert.Equal(t, model.WSMessageTypeImageReady, msg["type"])
	assert.Equal(t, "s1", msg["shotId"])
	assert.Equal(t, "http://gw/img/s1.png?v=1", msg["imageUrl"])

	bridge.VideoReady("p1", "http://gw/v/p1.mp4")
	msg = receive(t, p1Client)
	assert.Equal(t, model.WSMessageTypeVideoReady, msg["type"])
	assert.Equal(t, "http://gw/v/p1.mp4", msg["videoUrl"])

	bridge.CompilationProgress("p1", 42)
	msg = receive(t, p1Client)
	assert.Equal(t, model.WSMessageTypeProgress, msg["type"])
	assert.Equal(t, float64(42), msg["progress"])
}

func TestBridge_FailureBroadcastsToAll(t *testing.T) {
	bridge, p1Client, p2Client := setupBridge(t)

	bridge.GenerationFailed("gateway unreachable")

	for _, c := range []*Client{p1Client, p2Client} {
		msg := receive(t, c)
		assert.Equal(t, model.WSMessageTypeError, msg["type"])
		assert.Equal(t, "gateway unreachable", msg["error"])
	}
}
