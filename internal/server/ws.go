package server

import (
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/logging"
)

// wsSubscriberBuffer is the per-connection event buffer. A subscriber
// that falls behind has events dropped rather than blocking publishers.
const wsSubscriberBuffer = 32

// wsHub fans session-scoped bus events out to websocket subscribers.
type wsHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan event.Event
}

func newWSHub() *wsHub {
	return &wsHub{subs: make(map[string]map[uint64]chan event.Event)}
}

func (h *wsHub) subscribe(sessionID string) (uint64, chan event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan event.Event, wsSubscriberBuffer)
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[uint64]chan event.Event)
	}
	h.subs[sessionID][id] = ch
	return id, ch
}

func (h *wsHub) unsubscribe(sessionID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sessionID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

// dispatch routes a bus event to the subscribers of its session. Events
// without a session id are not relayed.
func (h *wsHub) dispatch(e event.Event) {
	sessionID := e.SessionID()
	if sessionID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- e:
		default:
			log := logging.Component("ws")
			log.Warn().
				Str("session_id", sessionID).
				Str("event_type", string(e.Type)).
				Msg("websocket event dropped: subscriber full")
		}
	}
}

// agentWebsocket handles GET /agent/{agentID}/ws: a realtime relay of
// the session's events.
func (s *Server) agentWebsocket(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	log := logging.Component("ws")

	if _, err := s.sessions.Get(r.Context(), agentID); err != nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", agentID).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session stream ended")

	id, events := s.hub.subscribe(agentID)
	defer s.hub.unsubscribe(agentID, id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			if err := wsjson.Write(ctx, conn, e); err != nil {
				log.Debug().Err(err).Str("session_id", agentID).Msg("websocket write failed")
				return
			}
		}
	}
}
