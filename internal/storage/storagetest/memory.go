// Package storagetest provides an in-memory record store with the same
// semantics as storage.Users, for package tests.
package storagetest

import (
	"context"
	"sync"
	"time"

	"fitdew-bot/internal/models"
	"fitdew-bot/internal/storage"
)

type Memory struct {
	mu    sync.Mutex
	users map[int64]models.User
	next  uint

	// Optional failure hooks.
	FindErr         error
	ApplyErr        error
	FindExpiringErr error
	MarkErr         func(telegramID int64) error

	MarkCalls int
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]models.User)}
}

// Put inserts or replaces a record.
func (m *Memory) Put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.next++
		u.ID = m.next
	}
	m.users[u.TelegramID] = u
}

// Get returns a copy of the stored record.
func (m *Memory) Get(telegramID int64) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	return u, ok
}

func (m *Memory) Find(_ context.Context, telegramID int64) (*models.User, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ApplyGrant(ctx context.Context, g storage.Grant) (*models.User, error) {
	if m.ApplyErr != nil {
		return nil, m.ApplyErr
	}
	m.mu.Lock()
	u, ok := m.users[g.TelegramID]
	if !ok {
		m.next++
		u = models.User{ID: m.next, TelegramID: g.TelegramID, Role: models.RoleUser, FirstName: g.FirstName}
	}
	if g.Username != "" {
		u.Username = g.Username
	}
	expiresAt := g.ExpiresAt.UTC().Truncate(time.Microsecond)
	u.TariffName = string(g.Tier)
	u.TariffExpiresAt = &expiresAt
	u.TariffRemindedFor = nil
	if g.Mode.Valid() {
		u.TrainingMode = string(g.Mode)
	}
	m.users[g.TelegramID] = u
	m.mu.Unlock()

	return m.Find(ctx, g.TelegramID)
}

func (m *Memory) FindExpiring(_ context.Context, from, to time.Time) ([]models.User, error) {
	if m.FindExpiringErr != nil {
		return nil, m.FindExpiringErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.TariffExpiresAt == nil {
			continue
		}
		if u.TariffExpiresAt.After(from) && !u.TariffExpiresAt.After(to) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) MarkReminded(_ context.Context, telegramID int64, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkCalls++
	if m.MarkErr != nil {
		if err := m.MarkErr(telegramID); err != nil {
			return err
		}
	}
	u, ok := m.users[telegramID]
	if !ok || u.TariffExpiresAt == nil || !u.TariffExpiresAt.Equal(expiresAt) {
		return storage.ErrExpiryChanged
	}
	at := expiresAt
	u.TariffRemindedFor = &at
	m.users[telegramID] = u
	return nil
}
