package repository

import (
	"context"
	"sync"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// Memory is an in-process Repository.
type Memory struct {
	mu    sync.RWMutex
	leads map[string]lead.Lead
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{leads: make(map[string]lead.Lead)}
}

func (m *Memory) List(_ context.Context, f Filter) ([]lead.Lead, error) {
	m.mu.RLock()
	out := make([]lead.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		if f.Match(l) {
			out = append(out, l.Clone())
		}
	}
	m.mu.RUnlock()

	sortLeads(out)
	return f.Page(out), nil
}

func (m *Memory) Get(_ context.Context, id string) (lead.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return lead.Lead{}, ErrNotFound
	}
	return l.Clone(), nil
}

func (m *Memory) Create(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[l.ID]; ok {
		return ErrExists
	}
	m.leads[l.ID] = l.Clone()
	return nil
}

func (m *Memory) Update(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[l.ID]; !ok {
		return ErrNotFound
	}
	m.leads[l.ID] = l.Clone()
	return nil
}

func (m *Memory) UpsertMany(_ context.Context, leads []lead.Lead) (inserted, updated int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range leads {
		if _, ok := m.leads[l.ID]; ok {
			updated++
		} else {
			inserted++
		}
		m.leads[l.ID] = l.Clone()
	}
	return inserted, updated, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *Memory) DeleteMany(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := m.leads[id]; ok {
			delete(m.leads, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Count(_ context.Context, f Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f.IsZero() {
		return len(m.leads), nil
	}
	n := 0
	for _, l := range m.leads {
		if f.Match(l) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
