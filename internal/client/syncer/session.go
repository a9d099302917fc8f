// Package syncer reconciles the local store with the remote document store.
//
// A Session belongs to one owner. It pushes unsynced records, pulls remote
// records the device has not seen, applies realtime change batches and
// reacts to connectivity transitions. The protocol is last-writer-wins at
// most; by default pulls only ever add records.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/connectivity"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/remote"
	"github.com/dmitrijs2005/spendsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/timex"
)

// Remote is the part of the document store the engine talks to.
type Remote interface {
	Put(ctx context.Context, ownerID, collection, id string, body json.RawMessage) error
	Query(ctx context.Context, ownerID, collection string) ([]docstore.Document, error)
	Delete(ctx context.Context, ownerID, collection, id string) error
	Watch(ctx context.Context, ownerID, collection string) (remote.ChangeStream, error)
}

// Connectivity is satisfied by *connectivity.Monitor.
type Connectivity interface {
	Online() bool
	OnChange(key string, fn connectivity.Listener)
	RemoveListener(key string)
}

type PushReport struct {
	// Skipped is set when another push of the same session was running.
	Skipped  bool
	Uploaded int
	Deleted  int
	Failed   int
}

func (r *PushReport) add(o PushReport) {
	r.Uploaded += o.Uploaded
	r.Deleted += o.Deleted
	r.Failed += o.Failed
}

type PullReport struct {
	Inserted int
	Replaced int
	// Skipped counts remote records that are pending deletion locally.
	Skipped int
	Failed  int
}

func (r *PullReport) add(o PullReport) {
	r.Inserted += o.Inserted
	r.Replaced += o.Replaced
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

func (r *PullReport) count(o mergeOutcome) {
	switch o {
	case outcomeInserted:
		r.Inserted++
	case outcomeReplaced:
		r.Replaced++
	}
}

type SyncReport struct {
	Pull PullReport
	Push PushReport
}

type Status struct {
	UnsyncedCount  int
	PendingDeletes int
	IsOnline       bool
	// LastSyncAt is zero until a full sync has completed.
	LastSyncAt time.Time
}

type Options struct {
	// Strategy defaults to AdditiveOnly.
	Strategy MergeStrategy
	Logger   logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Session struct {
	ownerID  string
	store    *storage.Store
	remote   Remote
	conn     Connectivity
	strategy MergeStrategy
	log      logging.Logger
	now      func() time.Time

	// budgets, then expenses
	collections []syncable

	pushing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	subMu sync.Mutex
	sub   *subscription

	autoMu sync.Mutex
	auto   *autoSync
}

func NewSession(ownerID string, store *storage.Store, r Remote, conn Connectivity, opts Options) *Session {
	if opts.Strategy == nil {
		opts.Strategy = AdditiveOnly{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ownerID:     ownerID,
		store:       store,
		remote:      r,
		conn:        conn,
		strategy:    opts.Strategy,
		log:         opts.Logger.With("module", "syncer", "owner", ownerID),
		now:         opts.Now,
		collections: []syncable{budgetsCollection(), expensesCollection()},
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Session) OwnerID() string { return s.ownerID }

// IsOnline reads the connectivity monitor without probing.
func (s *Session) IsOnline() bool { return s.conn.Online() }

func (s *Session) collection(name string) (syncable, error) {
	for _, c := range s.collections {
		if c.name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown collection %q", common.ErrValidation, name)
}

// PushLocalToRemote uploads every unsynced record and flushes pending remote
// deletes. Per-record failures are counted and the record stays unsynced.
// A call that overlaps a running push returns at once with Skipped set.
func (s *Session) PushLocalToRemote(ctx context.Context) (PushReport, error) {
	if !s.pushing.CompareAndSwap(false, true) {
		s.log.Debug(ctx, "push already running")
		return PushReport{Skipped: true}, nil
	}
	defer s.pushing.Store(false)

	var report PushReport
	var errs []error
	for _, c := range s.collections {
		r, err := c.push(ctx, s)
		report.add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// PullRemoteToLocal inserts remote records that are missing locally. Records
// present on both sides are handed to the merge strategy.
func (s *Session) PullRemoteToLocal(ctx context.Context) (PullReport, error) {
	var report PullReport
	var errs []error
	for _, c := range s.collections {
		r, err := c.pull(ctx, s)
		report.add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// FullSync runs pull then push for each collection. A failure in one
// collection does not stop the others; errors are joined.
func (s *Session) FullSync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	var errs []error

	for _, c := range s.collections {
		pulled, err := c.pull(ctx, s)
		report.Pull.add(pulled)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !s.pushing.CompareAndSwap(false, true) {
			report.Push.Skipped = true
			continue
		}
		pushed, err := c.push(ctx, s)
		s.pushing.Store(false)
		report.Push.add(pushed)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Warn(ctx, "sync finished with errors", "error", err)
		return report, err
	}

	stamp := timex.FormatInstant(s.now())
	if err := s.store.Metadata.Set(ctx, metadata.LastSyncKey(s.ownerID), []byte(stamp)); err != nil {
		s.log.Warn(ctx, "failed to record sync time", "error", err)
	}
	s.log.Info(ctx, "sync finished",
		"pulled", report.Pull.Inserted+report.Pull.Replaced,
		"pushed", report.Push.Uploaded,
		"failed", report.Pull.Failed+report.Push.Failed)
	return report, nil
}

// ManualSync is FullSync that refuses to run offline.
func (s *Session) ManualSync(ctx context.Context) (SyncReport, error) {
	if !s.conn.Online() {
		return SyncReport{}, common.ErrOffline
	}
	return s.FullSync(ctx)
}

// PushInBackground starts a push when online and returns immediately.
func (s *Session) PushInBackground() {
	if !s.conn.Online() || s.ctx.Err() != nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.PushLocalToRemote(s.ctx); err != nil {
			s.log.Warn(s.ctx, "background push failed", "error", err)
		}
	}()
}

// DeleteRecord removes a record locally and from the remote store. When the
// remote delete cannot happen now it is queued and retried by the next push.
func (s *Session) DeleteRecord(ctx context.Context, collection, id string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		if err := c.removeLocal(ctx, r, s.ownerID, id); err != nil {
			return err
		}
		return r.Tombstones.Add(ctx, models.Tombstone{
			OwnerID:    s.ownerID,
			Collection: collection,
			ID:         id,
			CreatedAt:  s.now(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	if !s.conn.Online() {
		return nil
	}
	if err := s.remote.Delete(ctx, s.ownerID, collection, id); err != nil {
		s.log.Warn(ctx, "remote delete failed, queued", "collection", collection, "id", id, "error", err)
		return nil
	}
	if err := s.store.Tombstones.Remove(ctx, s.ownerID, collection, id); err != nil {
		s.log.Warn(ctx, "failed to clear pending delete", "collection", collection, "id", id, "error", err)
	}
	return nil
}

func (s *Session) Status(ctx context.Context) (Status, error) {
	st := Status{IsOnline: s.conn.Online()}

	n, err := s.store.Expenses.CountUnsynced(ctx, s.ownerID)
	if err != nil {
		return Status{}, err
	}
	st.UnsyncedCount += n

	n, err = s.store.Budgets.CountUnsynced(ctx, s.ownerID)
	if err != nil {
		return Status{}, err
	}
	st.UnsyncedCount += n

	if st.PendingDeletes, err = s.store.Tombstones.Count(ctx, s.ownerID); err != nil {
		return Status{}, err
	}

	last, err := metadata.String(ctx, s.store.Metadata, metadata.LastSyncKey(s.ownerID))
	if err != nil {
		return Status{}, err
	}
	if last != "" {
		if st.LastSyncAt, err = timex.ParseInstant(last); err != nil {
			s.log.Warn(ctx, "ignoring malformed sync time", "value", last)
		}
	}
	return st, nil
}

// Close disables auto-sync, waits for background work and tears down the
// subscription. The session must not be used afterwards.
func (s *Session) Close() {
	s.DisableAutoSync()
	s.cancel()
	s.bg.Wait()
	s.Unsubscribe()
}
