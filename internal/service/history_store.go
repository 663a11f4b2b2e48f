package service

import (
	"errors"
	"sync"

	"rafpad/internal/domain"
)

const DefaultMaxHistory = 10

var ErrHistoryStoreClosed = errors.New("history store closed")

// HistoryStore guarda en memoria el historial acotado de cada sesión.
// No sobrevive a reinicios del proceso.
type HistoryStore struct {
	mu       sync.Mutex
	sessions map[string][]domain.ChatMessage
	max      int
	closed   bool
}

func NewHistoryStore(max int) *HistoryStore {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &HistoryStore{
		sessions: make(map[string][]domain.ChatMessage),
		max:      max,
	}
}

// MaxMessages devuelve el tope de mensajes por sesión.
func (s *HistoryStore) MaxMessages() int {
	return s.max
}

// Append agrega los mensajes y recorta desde la cola en una sola operación (FIFO).
func (s *HistoryStore) Append(sessionID string, msgs ...domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrHistoryStoreClosed
	}

	current := s.sessions[sessionID]
	next := make([]domain.ChatMessage, 0, len(current)+len(msgs))
	next = append(next, current...)
	next = append(next, msgs...)
	if len(next) > s.max {
		next = next[len(next)-s.max:]
	}
	s.sessions[sessionID] = next
	return nil
}

// Messages devuelve una copia del historial; sesión desconocida => slice vacío, sin crearla.
func (s *HistoryStore) Messages(sessionID string) []domain.ChatMessage {
	return s.Recent(sessionID, 0)
}

// Recent devuelve como mucho los últimos n mensajes (n <= 0 => todos).
func (s *HistoryStore) Recent(sessionID string, n int) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.sessions[sessionID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Clear elimina el historial de la sesión. Idempotente.
func (s *HistoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Sessions devuelve cuántas sesiones tienen historial.
func (s *HistoryStore) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close descarta todo el historial; los Append posteriores fallan con ErrHistoryStoreClosed.
func (s *HistoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sessions = make(map[string][]domain.ChatMessage)
}

// sessionLocks serializa los turnos de una misma sesión sin bloquear a las demás.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(sessionID string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
