package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meikuraledutech/canvas"
)

// DefaultMaxPending caps sessions held for canvases that are not in the store yet.
const DefaultMaxPending = 256

// Manager keeps one Session per canvas id, loading each lazily from the Store.
type Manager struct {
	store canvas.Store
	opts  canvas.Options
	log   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	// pending lists, oldest first, ids whose session has never been persisted.
	maxPending int
	pending    []string
}

// NewManager creates a Manager. opts is the template for every session's
// Controller; its callbacks are replaced per session.
func NewManager(store canvas.Store, opts canvas.Options, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:      store,
		opts:       opts,
		log:        log,
		sessions:   make(map[string]*Session),
		maxPending: DefaultMaxPending,
	}
}

// Store returns the backing store.
func (m *Manager) Store() canvas.Store { return m.store }

// Get returns the session for canvasID. A canvas that does not exist yet
// starts empty and is persisted on its first change. At most maxPending such
// sessions are held; the oldest is dropped when the cap is exceeded.
func (m *Manager) Get(ctx context.Context, canvasID string) (*Session, error) {
	if s, ok := m.lookup(canvasID); ok {
		return s, nil
	}

	c, err := m.store.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("session: load canvas %s: %w", canvasID, err)
	}
	stored := c != nil
	if !stored {
		c = &canvas.Canvas{ID: canvasID, Nodes: []canvas.Node{}, Viewport: canvas.DefaultViewport()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// another request may have loaded it meanwhile
	if s, ok := m.sessions[canvasID]; ok {
		return s, nil
	}
	s := newSession(c, m.store, m.opts, m.log)
	s.persisted.Store(stored)
	m.sessions[canvasID] = s
	activeSessions.Inc()
	if !stored {
		m.pending = append(m.pending, canvasID)
		m.trimPendingLocked()
	}
	m.log.Debug("session loaded", "canvas", canvasID, "nodes", len(c.Nodes), "stored", stored)
	return s, nil
}

// View returns the state of canvasID without holding a session for it.
func (m *Manager) View(ctx context.Context, canvasID string) (State, error) {
	if s, ok := m.lookup(canvasID); ok {
		return s.State(), nil
	}
	c, err := m.store.GetCanvas(ctx, canvasID)
	if err != nil {
		return State{}, fmt.Errorf("session: load canvas %s: %w", canvasID, err)
	}
	if c == nil {
		return newState(canvasID, []canvas.Node{}, canvas.DefaultViewport()), nil
	}
	return newState(canvasID, c.Nodes, c.Viewport), nil
}

func (m *Manager) lookup(canvasID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[canvasID]
	return s, ok
}

// trimPendingLocked forgets persisted or deleted ids, then evicts the oldest
// unpersisted sessions beyond maxPending.
func (m *Manager) trimPendingLocked() {
	kept := m.pending[:0]
	for _, id := range m.pending {
		if s, ok := m.sessions[id]; ok && !s.persisted.Load() {
			kept = append(kept, id)
		}
	}
	m.pending = kept

	limit := max(m.maxPending, 1)
	for len(m.pending) > limit {
		id := m.pending[0]
		m.pending = m.pending[1:]
		delete(m.sessions, id)
		activeSessions.Dec()
		m.log.Debug("session evicted", "canvas", id)
	}
}

// Delete drops the session and removes the canvas from the store.
func (m *Manager) Delete(ctx context.Context, canvasID string) error {
	m.mu.Lock()
	if _, ok := m.sessions[canvasID]; ok {
		delete(m.sessions, canvasID)
		activeSessions.Dec()
	}
	m.mu.Unlock()

	return m.store.DeleteCanvas(ctx, canvasID)
}

// Reset forgets every in-memory session without touching the store.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	activeSessions.Sub(float64(len(m.sessions)))
	m.sessions = make(map[string]*Session)
	m.pending = nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
