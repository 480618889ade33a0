package syncengine

import (
	"sync"

	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/session"
	"go.uber.org/zap"
)

// Manager owns one engine per signed-in user with an explicit lifecycle:
// created and attached on first use, torn down when the session provider
// reports sign-out.
type Manager struct {
	remote   RemoteStore
	sessions *session.Manager
	logger   *zap.Logger

	mu      sync.Mutex
	engines map[uint]*Engine
	cancels map[uint]func()
}

func NewManager(remote RemoteStore, sessions *session.Manager, logger *zap.Logger) *Manager {
	return &Manager{
		remote:   remote,
		sessions: sessions,
		logger:   logger,
		engines:  map[uint]*Engine{},
		cancels:  map[uint]func(){},
	}
}

// ForUser returns the user's engine, creating and attaching it on first use.
func (m *Manager) ForUser(u models.User) *Engine {
	m.mu.Lock()
	if eng, ok := m.engines[u.ID]; ok {
		m.mu.Unlock()
		return eng
	}

	eng := NewEngine(m.remote, u.ID, u.Role, m.logger)
	m.engines[u.ID] = eng
	m.cancels[u.ID] = m.sessions.OnAuthStateChanged(u.ID, func(identity *session.Identity) {
		if identity == nil {
			m.Drop(u.ID)
		}
	})
	m.mu.Unlock()

	eng.Attach()
	m.logger.Info("engine_attached", zap.Uint("user_id", u.ID))
	return eng
}

// Drop detaches and discards a user's engine.
func (m *Manager) Drop(userID uint) {
	m.mu.Lock()
	eng, ok := m.engines[userID]
	cancel := m.cancels[userID]
	delete(m.engines, userID)
	delete(m.cancels, userID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if cancel != nil {
		cancel()
	}
	eng.Close()
	m.logger.Info("engine_dropped", zap.Uint("user_id", userID))
}
