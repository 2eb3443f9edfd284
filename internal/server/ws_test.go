package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-ai/appforge/internal/event"
)

func TestWSHub_DispatchFiltersBySession(t *testing.T) {
	hub := newWSHub()

	id1, ch1 := hub.subscribe("agent-1")
	defer hub.unsubscribe("agent-1", id1)
	id2, ch2 := hub.subscribe("agent-2")
	defer hub.unsubscribe("agent-2", id2)

	hub.dispatch(event.Event{
		Type: event.BlueprintChunk,
		Data: event.BlueprintChunkData{SessionID: "agent-1", Chunk: "hello"},
	})

	select {
	case e := <-ch1:
		assert.Equal(t, event.BlueprintChunk, e.Type)
	default:
		t.Fatal("subscriber for agent-1 received nothing")
	}
	assert.Empty(t, ch2)
}

func TestWSHub_DropsWhenSubscriberFull(t *testing.T) {
	hub := newWSHub()

	id, ch := hub.subscribe("agent-1")
	defer hub.unsubscribe("agent-1", id)

	for i := 0; i < wsSubscriberBuffer+5; i++ {
		hub.dispatch(event.Event{
			Type: event.BlueprintChunk,
			Data: event.BlueprintChunkData{SessionID: "agent-1", Chunk: "x"},
		})
	}
	assert.Len(t, ch, wsSubscriberBuffer)
}

func TestWSHub_IgnoresEventsWithoutSession(t *testing.T) {
	hub := newWSHub()

	id, ch := hub.subscribe("agent-1")
	defer hub.unsubscribe("agent-1", id)

	hub.dispatch(event.Event{Type: event.SessionCreated, Data: "not a typed payload"})
	assert.Empty(t, ch)
}

func TestAgentWebsocket_RelaysSessionEvents(t *testing.T) {
	f := newFixture(t)
	agentID := createAgent(t, f)

	ts := httptest.NewServer(f.server.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/agent/" + agentID + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The handler subscribes after the handshake completes.
	require.Eventually(t, func() bool {
		f.server.hub.mu.Lock()
		defer f.server.hub.mu.Unlock()
		return len(f.server.hub.subs[agentID]) > 0
	}, time.Second, 10*time.Millisecond)

	f.server.hub.dispatch(event.Event{
		Type: event.BlueprintChunk,
		Data: event.BlueprintChunkData{SessionID: agentID, Chunk: "Scaffolding index.html"},
	})

	var received map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &received))
	assert.Equal(t, string(event.BlueprintChunk), received["type"])
}

func TestAgentWebsocket_UnknownAgent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/agent/agent-missing/ws", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
