package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

// NewSessionID generates a session identity.
func NewSessionID() string {
	return "agent-" + ulid.Make().String()
}

// Service owns persisted sessions and their conversation histories.
// Histories are append-only; callers must serialize turns against the
// same session, since the service does not lock across a
// read-process-append cycle.
type Service struct {
	storage *storage.Storage
	bus     *event.Bus
}

// NewService creates a session service.
func NewService(store *storage.Storage, bus *event.Bus) *Service {
	return &Service{storage: store, bus: bus}
}

// Create persists a new session and publishes session.created. The
// session's identity and derived fields are assigned by the caller.
func (s *Service) Create(ctx context.Context, session *types.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id required")
	}
	if session.Time.Created == 0 {
		session.Time.Created = time.Now().UnixMilli()
	}

	if err := s.storage.Put(ctx, []string{"session", session.ID}, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.SessionCreated,
			Data: event.SessionCreatedData{Session: session},
		})
	}
	return nil
}

// Get retrieves a session by id.
func (s *Service) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	var session types.Session
	if err := s.storage.Get(ctx, []string{"session", sessionID}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns the sessions owned by a user, or every session when
// userID is empty. Order follows the storage key order, which is
// creation order for ULID-derived ids.
func (s *Service) List(ctx context.Context, userID string) ([]*types.Session, error) {
	var sessions []*types.Session
	err := s.storage.Scan(ctx, []string{"session"}, func(key string, data json.RawMessage) error {
		var session types.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		if userID == "" || session.UserID == userID {
			sessions = append(sessions, &session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update persists a modified session, stamping its update time.
func (s *Service) Update(ctx context.Context, session *types.Session) error {
	now := time.Now().UnixMilli()
	session.Time.Updated = &now
	if err := s.storage.Put(ctx, []string{"session", session.ID}, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AppendMessages persists new history entries for a session and
// publishes message.created for each. Messages must carry ids assigned
// by the turn processor.
func (s *Service) AppendMessages(ctx context.Context, sessionID string, msgs []types.ConversationMessage) error {
	for i := range msgs {
		msg := msgs[i]
		if msg.ID == "" {
			return fmt.Errorf("message without correlation id")
		}
		if err := s.storage.Put(ctx, []string{"message", sessionID, msg.ID}, &msg); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}
		if s.bus != nil {
			s.bus.Publish(event.Event{
				Type: event.MessageCreated,
				Data: event.MessageCreatedData{SessionID: sessionID, Message: &msg},
			})
		}
	}
	return nil
}

// GetMessages returns a session's history in correlation-id order,
// which for ULID ids is creation order.
func (s *Service) GetMessages(ctx context.Context, sessionID string) ([]types.ConversationMessage, error) {
	var msgs []types.ConversationMessage
	err := s.storage.Scan(ctx, []string{"message", sessionID}, func(key string, data json.RawMessage) error {
		var msg types.ConversationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
