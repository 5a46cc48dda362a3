package editor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lumina/internal/domain"
)

// Manager owns the in-memory editor sessions.
type Manager struct {
	cfg    Config
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager validates cfg and applies defaults.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("editor: catalog is required")
	}
	if cfg.Poller == nil {
		return nil, errors.New("editor: poller is required")
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "editor").Logger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*Session{},
	}, nil
}

// Create opens a session for owner.
func (m *Manager) Create(owner string) (*Session, error) {
	if owner == "" {
		return nil, domain.ErrUnauthorized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}
	s := newSession(m.ctx, uuid.NewString(), owner, m.cfg, m.logger)
	m.sessions[s.id] = s
	m.cfg.Metrics.SessionOpened()
	m.logger.Debug().Str("session_id", s.id).Str("user_id", owner).Msg("session created")
	return s, nil
}

// Get returns the session if it exists and belongs to owner.
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.owner != owner {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id, owner string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.owner != owner {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()
	s.Close()
	m.cfg.Metrics.SessionClosed()
	return nil
}

// Prune closes sessions unused for longer than idle and returns how many
// were removed.
func (m *Manager) Prune(idle time.Duration) int {
	cutoff := m.cfg.Now().Add(-idle)
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Close()
		m.cfg.Metrics.SessionClosed()
	}
	if len(stale) > 0 {
		m.logger.Info().Int("sessions", len(stale)).Msg("idle sessions pruned")
	}
	return len(stale)
}

// RunPruner prunes idle sessions every interval until ctx is done.
func (m *Manager) RunPruner(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune(idle)
		}
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close cancels every poller and waits for them to return.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
		m.cfg.Metrics.SessionClosed()
	}
}
