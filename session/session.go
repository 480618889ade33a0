package session

import (
	"fmt"
	"sync"

	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/models"
	"go.uber.org/zap"
)

// Identity is the authenticated principal delivered to auth-state listeners.
type Identity struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func FromUser(u models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, DisplayName: u.FullName, Role: u.Role}
}

// Manager is the session provider: it fans identity changes out to
// registered listeners. A nil identity means signed out.
type Manager struct {
	logger *zap.Logger

	mu        sync.Mutex
	listeners map[uint]map[int]func(*Identity)
	nextID    int
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		listeners: map[uint]map[int]func(*Identity){},
	}
}

// OnAuthStateChanged registers a listener for one user's auth state. The
// returned handle unsubscribes.
func (m *Manager) OnAuthStateChanged(userID uint, cb func(*Identity)) func() {
	m.mu.Lock()
	if m.listeners[userID] == nil {
		m.listeners[userID] = map[int]func(*Identity){}
	}
	id := m.nextID
	m.nextID++
	m.listeners[userID][id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners[userID], id)
		m.mu.Unlock()
	}
}

func (m *Manager) SignIn(identity Identity) {
	m.notify(identity.ID, &identity)
}

// SignOut notifies the user's listeners with a nil identity and clears the
// persisted landing-page flag.
func (m *Manager) SignOut(userID uint) {
	if err := cache.Delete(startedKey(userID)); err != nil {
		m.logger.Warn("clear_started_flag_failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	m.notify(userID, nil)
}

func (m *Manager) notify(userID uint, identity *Identity) {
	m.mu.Lock()
	cbs := make([]func(*Identity), 0, len(m.listeners[userID]))
	for _, cb := range m.listeners[userID] {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(identity)
	}
}

// Landing-page flag: a single boolean key in client-local persistent
// storage, read at startup and cleared on sign-out.

func startedKey(userID uint) string {
	return fmt.Sprintf("planner:started:%d", userID)
}

func (m *Manager) HasStarted(userID uint) bool {
	return cache.GetFlag(startedKey(userID))
}

func (m *Manager) SetStarted(userID uint) error {
	return cache.SetFlag(startedKey(userID), true)
}
