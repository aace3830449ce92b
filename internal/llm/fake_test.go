package llm

import (
	"context"
	"errors"
	"sync"
)

// fakeBackend constructs models listed in available and fails for everything else.
type fakeBackend struct {
	mu        sync.Mutex
	available map[string]*fakeModel
	listed    []string
	listErr   error
	lookups   []string
}

func newFakeBackend(models ...*fakeModel) *fakeBackend {
	b := &fakeBackend{available: map[string]*fakeModel{}}
	for _, m := range models {
		b.available[m.name] = m
	}
	return b
}

func (b *fakeBackend) Model(_ context.Context, name string) (Model, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups = append(b.lookups, name)
	if m, ok := b.available[name]; ok {
		return m, nil
	}
	return nil, errors.New("model not found: " + name)
}

func (b *fakeBackend) ListModels(context.Context) ([]string, error) {
	return b.listed, b.listErr
}

// fakeModel replies from a script; each call consumes one entry and the last entry repeats.
type fakeModel struct {
	mu      sync.Mutex
	name    string
	replies []reply
	calls   [][]string
}

type reply struct {
	text string
	err  error
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Generate(_ context.Context, parts ...string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), parts...))
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r.text, r.err
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
