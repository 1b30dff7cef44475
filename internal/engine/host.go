package engine

import (
	"context"
	"sync"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/store"
)

// Host is the registry of live sessions, keyed by session ID. Each
// session gets its own TickerScheduler, released when the session is
// removed.
type Host struct {
	questions QuestionSource
	kv        store.KV
	recorder  Recorder
	budget    func(domain.Level) int

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHost(questions QuestionSource, kv store.KV, recorder Recorder, budget func(domain.Level) int) *Host {
	return &Host{
		questions: questions,
		kv:        kv,
		recorder:  recorder,
		budget:    budget,
		sessions:  make(map[string]*Session),
	}
}

// Open creates and starts a session for the given selection.
func (h *Host) Open(ctx context.Context, params Params) (*Session, error) {
	session := New(params, Deps{
		Questions: h.questions,
		Store:     h.kv,
		Recorder:  h.recorder,
		Scheduler: NewTickerScheduler(),
		Budget:    h.budget,
	})
	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.sessions[session.ID()] = session
	h.mu.Unlock()
	return session, nil
}

// Get looks up a live session by ID.
func (h *Host) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	session, ok := h.sessions[id]
	return session, ok
}

// Remove drops a session from the registry and stops its scheduler.
func (h *Host) Remove(id string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok {
		session.Close()
	}
}
