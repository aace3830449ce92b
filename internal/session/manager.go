package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/tour-guide-service/internal/models"
	"github.com/kjstillabower/tour-guide-service/internal/observability"
)

// Manager serializes read-modify-write cycles per session id within this process.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, locks: make(map[string]*idLock)}
}

// Get returns the session for id, or a fresh empty one when none is stored.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	unlock := m.lock(id)
	defer unlock()
	return m.load(ctx, id)
}

// Update loads the session, runs fn and saves the result. fn errors abort without saving.
// Concurrent Updates for the same id run one after another.
func (m *Manager) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	unlock := m.lock(id)
	defer unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.ID = id
	s.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, s); err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("save").Inc()
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func (m *Manager) load(ctx context.Context, id string) (*models.Session, error) {
	s, found, err := m.store.Load(ctx, id)
	if err != nil {
		observability.SessionStoreErrorsTotal.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return &models.Session{ID: id}, nil
	}
	return s, nil
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &idLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
