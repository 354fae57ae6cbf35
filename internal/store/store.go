// Package store holds the locally cached user record and auth credential
// shared by every mounted view. The cache is a read-optimization: writes
// always replace the whole record with the latest authoritative server
// response, and every write is followed by a payload-free change
// notification so other views can re-read.
package store

import (
	"sync"

	"betting-wallet/internal/models"
)

const (
	KeyUser      = "user"
	KeyAuthToken = "auth_token"
)

type Store interface {
	// User returns a copy of the cached user record, if any.
	User() (*models.User, bool)
	// SetUser overwrites the cached record wholesale and notifies subscribers.
	SetUser(user *models.User)
	Token() (string, bool)
	SetToken(token string)
	// Clear wipes user and credential (logout) and notifies subscribers.
	Clear()
	// Subscribe returns a channel that receives a signal after every write,
	// and a cancel func that must be called when the view unmounts.
	Subscribe() (<-chan struct{}, func())
}

type Memory struct {
	mu      sync.Mutex
	user    *models.User
	token   string
	subs    map[int]chan struct{}
	nextSub int
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan struct{})}
}

func (m *Memory) User() (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, false
	}
	return cloneUser(m.user), true
}

func (m *Memory) SetUser(user *models.User) {
	m.mu.Lock()
	m.user = cloneUser(user)
	m.mu.Unlock()
	m.notify()
}

func (m *Memory) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *Memory) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	m.notify()
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
	m.notify()
}

func (m *Memory) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++

	ch := make(chan struct{}, 1)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}

// notify signals every subscriber without blocking. A subscriber that has
// not drained its previous signal still has one pending, which is enough:
// listeners re-read the whole cache, they do not count events.
func (m *Memory) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.GameHistory != nil {
		c.GameHistory = make([]models.Bet, len(u.GameHistory))
		copy(c.GameHistory, u.GameHistory)
	}
	return &c
}
