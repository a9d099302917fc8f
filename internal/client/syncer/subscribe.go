package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/spendsync/internal/client/remote"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
)

type subscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

func (sub *subscription) finished() bool {
	select {
	case <-sub.done:
		return true
	default:
		return false
	}
}

// Subscribe opens a change stream per collection and applies every batch to
// the local store. onChange, if set, runs once per batch that changed local
// state. Calling Subscribe while a subscription is live is a no-op.
//
// onChange must not call Unsubscribe.
func (s *Session) Subscribe(ctx context.Context, onChange func()) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.sub != nil && !s.sub.finished() {
		return nil
	}

	subCtx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	streams := make([]remote.ChangeStream, 0, len(s.collections))
	for _, c := range s.collections {
		stream, err := s.remote.Watch(subCtx, s.ownerID, c.name())
		if err != nil {
			cancel()
			return fmt.Errorf("failed to watch %s: %w", c.name(), err)
		}
		streams = append(streams, stream)
	}

	for i, c := range s.collections {
		sub.wg.Add(1)
		go s.consume(subCtx, sub, c, streams[i], onChange)
	}
	go func() {
		sub.wg.Wait()
		close(sub.done)
	}()

	s.sub = sub
	s.log.Info(ctx, "subscribed to remote changes")
	return nil
}

// Unsubscribe stops the subscription and waits for its consumers; no
// callback runs after it returns.
func (s *Session) Unsubscribe() {
	s.subMu.Lock()
	sub := s.sub
	s.sub = nil
	s.subMu.Unlock()

	if sub == nil {
		return
	}
	sub.cancel()
	<-sub.done
}

// Subscribed reports whether a subscription is live.
func (s *Session) Subscribed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.sub != nil && !s.sub.finished()
}

// consume applies batches from one stream. When the stream ends on its own the
// whole subscription is cancelled, so the next sync trigger resubscribes.
func (s *Session) consume(ctx context.Context, sub *subscription, c syncable, stream remote.ChangeStream, onChange func()) {
	defer sub.wg.Done()
	defer sub.cancel()
	log := s.log.With("collection", c.name())

	for {
		batch, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				log.Warn(ctx, "change stream closed", "error", err)
			}
			return
		}

		if s.applyBatch(ctx, c, batch) > 0 && onChange != nil && ctx.Err() == nil {
			onChange()
		}
	}
}

func (s *Session) applyBatch(ctx context.Context, c syncable, batch docstore.ChangeBatch) int {
	applied := 0
	for _, change := range batch.Changes {
		ok, err := c.apply(ctx, s, change)
		if err != nil {
			s.log.Warn(ctx, "failed to apply change", "collection", c.name(), "id", change.Document.ID, "kind", change.Kind, "error", err)
			continue
		}
		if ok {
			applied++
		}
	}
	return applied
}
