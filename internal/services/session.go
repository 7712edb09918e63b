package services

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// SessionManager is the conversation state store: one resumable step cursor
// plus collected field values per active user. In-memory by design; a lost
// session just means the user restarts the dialogue. Safe for concurrent
// calls from different users.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	log      zerolog.Logger
}

// NewSessionManager creates an empty session store.
func NewSessionManager(log zerolog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*models.Session),
		log:      log.With().Str("component", "sessions").Logger(),
	}
}

// Get returns a snapshot of the user's session, if any. Mutations go through
// SetStep/SetField so callers never share the stored map.
func (sm *SessionManager) Get(userID string) (*models.Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[userID]
	if !exists {
		return nil, false
	}
	return snapshot(session), true
}

// SetStep moves the user's cursor, creating the session on first use.
func (sm *SessionManager) SetStep(userID, flow, step string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[userID]
	if !exists {
		session = &models.Session{UserID: userID, Fields: make(map[string]string)}
		sm.sessions[userID] = session
	}
	session.Flow = flow
	session.Step = step
	sm.log.Debug().Str("user", userID).Str("flow", flow).Str("step", step).Msg("step set")
}

// SetField stores one collected value. No-op when the session is gone,
// which can only happen after a concurrent reset.
func (sm *SessionManager) SetField(userID, key, value string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[userID]
	if !exists {
		return
	}
	session.Fields[key] = value
}

// Fields returns a copy of the collected field values.
func (sm *SessionManager) Fields(userID string) map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[userID]
	if !exists {
		return nil
	}
	out := make(map[string]string, len(session.Fields))
	for k, v := range session.Fields {
		out[k] = v
	}
	return out
}

// Clear drops the session and everything collected in it. Used on dialogue
// completion and on reset; a mid-dialogue reset discards all partial fields
// atomically so no partial entity can ever be committed.
func (sm *SessionManager) Clear(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, userID)
}

func snapshot(s *models.Session) *models.Session {
	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	return &models.Session{UserID: s.UserID, Flow: s.Flow, Step: s.Step, Fields: fields}
}
