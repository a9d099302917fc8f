package syncer

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/logging"
)

// Manager owns the sessions of signed-in owners.
type Manager struct {
	store   *storage.Store
	remote  Remote
	monitor Connectivity
	policy  Policy
	opts    Options
	log     logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(store *storage.Store, r Remote, monitor Connectivity, policy Policy, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Manager{
		store:    store,
		remote:   r,
		monitor:  monitor,
		policy:   policy,
		opts:     opts,
		log:      opts.Logger.With("module", "syncer.manager"),
		sessions: map[string]*Session{},
	}
}

// Start creates the owner's session and enables auto-sync. When the device
// is already online an initial sync and subscription are scheduled as if it
// had just come online. Starting a running owner returns the live session.
func (m *Manager) Start(ctx context.Context, ownerID string, onChange func()) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[ownerID]; ok {
		return s
	}

	s := NewSession(ownerID, m.store, m.remote, m.monitor, m.opts)
	s.EnableAutoSync(m.monitor, m.policy, onChange)
	if m.monitor.Online() {
		s.handleConnectivity(true)
	}
	m.sessions[ownerID] = s

	m.log.Info(ctx, "sync session started", "owner", ownerID)
	return s
}

// Session returns the live session of ownerID.
func (m *Manager) Session(ownerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	return s, ok
}

// Stop tears down the owner's session synchronously. Local data is kept.
func (m *Manager) Stop(ownerID string) {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.log.Info(context.Background(), "sync session stopped", "owner", ownerID)
	}
}

func (m *Manager) StopAll() {
	m.mu.Lock()
	owners := make([]string, 0, len(m.sessions))
	for owner := range m.sessions {
		owners = append(owners, owner)
	}
	m.mu.Unlock()

	for _, owner := range owners {
		m.Stop(owner)
	}
}
