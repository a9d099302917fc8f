package syncer

import (
	"context"
	"time"
)

// Policy controls automatic synchronisation.
type Policy struct {
	// SettleDelay is waited after the device comes online before syncing.
	SettleDelay time.Duration
	// Interval, when positive, also syncs periodically while online.
	Interval time.Duration
}

var DefaultPolicy = Policy{SettleDelay: time.Second}

type autoSync struct {
	monitor  Connectivity
	policy   Policy
	onChange func()
	key      string

	ctx          context.Context
	cancel       context.CancelFunc
	settleCancel context.CancelFunc
}

func listenerKey(ownerID string) string { return "syncer." + ownerID }

// EnableAutoSync reacts to connectivity transitions: coming online waits
// SettleDelay, runs FullSync and subscribes; going offline cancels a pending
// sync and drops the subscription. Enabling again replaces the previous
// registration.
func (s *Session) EnableAutoSync(monitor Connectivity, p Policy, onChange func()) {
	s.DisableAutoSync()

	ctx, cancel := context.WithCancel(s.ctx)
	a := &autoSync{
		monitor:  monitor,
		policy:   p,
		onChange: onChange,
		key:      listenerKey(s.ownerID),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.autoMu.Lock()
	s.auto = a
	s.autoMu.Unlock()

	monitor.OnChange(a.key, s.handleConnectivity)

	if p.Interval > 0 {
		s.bg.Add(1)
		go s.periodic(a)
	}
}

// DisableAutoSync removes the connectivity listener and cancels any pending
// sync. An existing subscription is left alone.
func (s *Session) DisableAutoSync() {
	s.autoMu.Lock()
	a := s.auto
	s.auto = nil
	if a != nil && a.settleCancel != nil {
		a.settleCancel()
	}
	s.autoMu.Unlock()

	if a == nil {
		return
	}
	a.monitor.RemoveListener(a.key)
	a.cancel()
}

func (s *Session) handleConnectivity(online bool) {
	s.autoMu.Lock()
	a := s.auto
	if a == nil {
		s.autoMu.Unlock()
		return
	}
	if a.settleCancel != nil {
		a.settleCancel()
		a.settleCancel = nil
	}

	if !online {
		s.autoMu.Unlock()
		s.log.Info(a.ctx, "offline, dropping subscription")
		s.Unsubscribe()
		return
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.settleCancel = cancel
	s.bg.Add(1)
	s.autoMu.Unlock()

	go s.settleAndSync(ctx, a)
}

func (s *Session) settleAndSync(ctx context.Context, a *autoSync) {
	defer s.bg.Done()

	timer := time.NewTimer(a.policy.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if _, err := s.FullSync(ctx); err != nil {
		s.log.Warn(ctx, "auto sync failed", "error", err)
	}

	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err := s.Subscribe(ctx, a.onChange); err != nil {
		s.log.Warn(ctx, "failed to subscribe", "error", err)
	}
}

func (s *Session) periodic(a *autoSync) {
	defer s.bg.Done()

	ticker := time.NewTicker(a.policy.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if !a.monitor.Online() {
				continue
			}
			if _, err := s.FullSync(a.ctx); err != nil {
				s.log.Warn(a.ctx, "periodic sync failed", "error", err)
			}
		}
	}
}
