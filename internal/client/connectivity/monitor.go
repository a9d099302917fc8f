// Package connectivity tracks whether the remote store is reachable and
// notifies listeners on transitions.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/logging"
)

// Pinger probes the remote side; a nil error means online.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Listener is called with the new state after every transition.
type Listener func(online bool)

type Monitor struct {
	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	mu        sync.Mutex
	online    bool
	listeners map[string]Listener
}

func NewMonitor(p Pinger, interval time.Duration, log logging.Logger) *Monitor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Monitor{
		pinger:       p,
		interval:     interval,
		probeTimeout: interval,
		log:          log.With("module", "connectivity"),
		listeners:    map[string]Listener{},
	}
}

// Online is a pure read of the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers fn under key, replacing any listener with the same key.
func (m *Monitor) OnChange(key string, fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[key] = fn
}

func (m *Monitor) RemoveListener(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, key)
}

// Set records the state and notifies listeners if it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.log.Info(context.Background(), "connectivity changed", "online", online)
	for _, fn := range fns {
		fn(online)
	}
}

// Check probes once and updates the state.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.pinger == nil {
		return m.Online()
	}
	if m.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()
	}
	err := m.pinger.Ping(ctx)
	if err != nil {
		m.log.Debug(ctx, "ping failed", "error", err)
	}
	m.Set(err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
