// Package directory holds the InstallationDirectory implementations.
package directory

import (
	"context"
	"sort"
	"sync"

	"go.pilab.hu/ghlink/domain"
)

// Memory keeps links in a map guarded by a RWMutex. Stored and returned links
// are copies, so callers cannot mutate the directory behind its lock.
type Memory struct {
	mu    sync.RWMutex
	links map[string]domain.InstallationLink
}

func NewMemory() *Memory {
	return &Memory{links: make(map[string]domain.InstallationLink)}
}

func (m *Memory) Get(_ context.Context, accountID string) (*domain.InstallationLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[accountID]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}

	return &link, nil
}

func (m *Memory) Put(_ context.Context, link *domain.InstallationLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[link.AccountID] = *link

	return nil
}

// List returns links ordered by account id.
func (m *Memory) List(_ context.Context) ([]*domain.InstallationLink, error) {
	m.mu.RLock()
	out := make([]*domain.InstallationLink, 0, len(m.links))
	for _, link := range m.links {
		out = append(out, &link)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })

	return out, nil
}

var _ domain.InstallationDirectory = (*Memory)(nil)
