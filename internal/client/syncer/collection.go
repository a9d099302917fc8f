package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
)

type record interface {
	RecordID() string
	RecordOwner() string
	SyncState() (time.Time, bool)
	Document() (json.RawMessage, error)
	Validate() error
}

type localRepo[T record] interface {
	Get(ctx context.Context, ownerID, id string) (T, error)
	GetAll(ctx context.Context, ownerID string) ([]T, error)
	GetUnsynced(ctx context.Context, ownerID string) ([]T, error)
	Put(ctx context.Context, rec T) error
	Replace(ctx context.Context, rec T) error
	MarkSynced(ctx context.Context, ownerID, id string, updatedAt time.Time) error
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

// syncable is the per-collection half of a Session.
type syncable interface {
	name() string
	pull(ctx context.Context, s *Session) (PullReport, error)
	push(ctx context.Context, s *Session) (PushReport, error)
	apply(ctx context.Context, s *Session, change docstore.Change) (bool, error)
	removeLocal(ctx context.Context, r storage.Repos, ownerID, id string) error
}

type collection[T record] struct {
	collName string
	repo     func(storage.Repos) localRepo[T]
	decode   func(json.RawMessage) (T, error)
	synced   func(T) T
	remove   func(ctx context.Context, r storage.Repos, ownerID, id string) (bool, error)
}

func expensesCollection() *collection[models.Expense] {
	return &collection[models.Expense]{
		collName: common.CollectionExpenses,
		repo:     func(r storage.Repos) localRepo[models.Expense] { return r.Expenses },
		decode:   models.ExpenseFromDocument,
		synced: func(e models.Expense) models.Expense {
			e.Synced = true
			return e
		},
		remove: func(ctx context.Context, r storage.Repos, ownerID, id string) (bool, error) {
			return r.Expenses.Delete(ctx, ownerID, id)
		},
	}
}

// Deleting a budget also drops its alerts.
func budgetsCollection() *collection[models.Budget] {
	return &collection[models.Budget]{
		collName: common.CollectionBudgets,
		repo:     func(r storage.Repos) localRepo[models.Budget] { return r.Budgets },
		decode:   models.BudgetFromDocument,
		synced: func(b models.Budget) models.Budget {
			b.Synced = true
			return b
		},
		remove: func(ctx context.Context, r storage.Repos, ownerID, id string) (bool, error) {
			alerts, err := r.Alerts.DeleteByBudget(ctx, ownerID, id)
			if err != nil {
				return false, err
			}
			removed, err := r.Budgets.Delete(ctx, ownerID, id)
			if err != nil {
				return false, err
			}
			return removed || alerts > 0, nil
		},
	}
}

func (c *collection[T]) name() string { return c.collName }

func (c *collection[T]) removeLocal(ctx context.Context, r storage.Repos, ownerID, id string) error {
	_, err := c.remove(ctx, r, ownerID, id)
	return err
}

func versionOf[T record](rec T) (Version, error) {
	updated, synced := rec.SyncState()
	doc, err := rec.Document()
	if err != nil {
		return Version{}, err
	}
	return Version{ID: rec.RecordID(), UpdatedAt: updated, Synced: synced, Document: doc}, nil
}

type mergeOutcome int

const (
	outcomeUnchanged mergeOutcome = iota
	outcomeInserted
	outcomeReplaced
)

// merge reconciles one remote record with the local copy, if any.
func (c *collection[T]) merge(ctx context.Context, s *Session, remote T, local T, exists bool) (mergeOutcome, error) {
	repo := c.repo(s.store.Repos)
	if !exists {
		if err := repo.Put(ctx, c.synced(remote)); err != nil {
			return outcomeUnchanged, err
		}
		return outcomeInserted, nil
	}

	lv, err := versionOf(local)
	if err != nil {
		return outcomeUnchanged, err
	}
	rv, err := versionOf(remote)
	if err != nil {
		return outcomeUnchanged, err
	}

	res := s.strategy.Resolve(c.collName, lv, rv)
	switch res.Action {
	case KeepRemote:
		if err := repo.Replace(ctx, c.synced(remote)); err != nil {
			return outcomeUnchanged, err
		}
		return outcomeReplaced, nil
	case Merge:
		merged, err := c.decode(res.Merged)
		if err != nil {
			return outcomeUnchanged, err
		}
		if merged.RecordID() != local.RecordID() || merged.RecordOwner() != s.ownerID {
			return outcomeUnchanged, fmt.Errorf("%w: merged record does not match %s", common.ErrValidation, local.RecordID())
		}
		if err := repo.Replace(ctx, merged); err != nil {
			return outcomeUnchanged, err
		}
		return outcomeReplaced, nil
	default:
		return outcomeUnchanged, nil
	}
}

func (c *collection[T]) pull(ctx context.Context, s *Session) (PullReport, error) {
	var report PullReport
	log := s.log.With("collection", c.collName)

	docs, err := s.remote.Query(ctx, s.ownerID, c.collName)
	if err != nil {
		return report, fmt.Errorf("failed to query remote %s: %w", c.collName, err)
	}

	repo := c.repo(s.store.Repos)
	all, err := repo.GetAll(ctx, s.ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to read local %s: %w", c.collName, err)
	}
	local := make(map[string]T, len(all))
	for _, rec := range all {
		local[rec.RecordID()] = rec
	}

	deleted, err := s.store.Tombstones.IDs(ctx, s.ownerID, c.collName)
	if err != nil {
		return report, fmt.Errorf("failed to read pending deletes: %w", err)
	}

	for _, doc := range docs {
		if _, ok := deleted[doc.ID]; ok {
			report.Skipped++
			continue
		}

		rec, err := c.decode(doc.Body)
		if err != nil {
			log.Warn(ctx, "skipping undecodable remote record", "id", doc.ID, "error", err)
			report.Failed++
			continue
		}
		if rec.RecordID() != doc.ID || rec.RecordOwner() != s.ownerID {
			log.Warn(ctx, "skipping remote record with mismatched identity", "id", doc.ID)
			report.Failed++
			continue
		}
		if err := rec.Validate(); err != nil {
			log.Warn(ctx, "skipping invalid remote record", "id", doc.ID, "error", err)
			report.Failed++
			continue
		}

		existing, exists := local[doc.ID]
		outcome, err := c.merge(ctx, s, rec, existing, exists)
		if err != nil {
			log.Warn(ctx, "failed to store pulled record", "id", doc.ID, "error", err)
			report.Failed++
			continue
		}
		report.count(outcome)
	}

	log.Debug(ctx, "pull finished", "remote", len(docs), "inserted", report.Inserted, "replaced", report.Replaced)
	return report, nil
}

func (c *collection[T]) push(ctx context.Context, s *Session) (PushReport, error) {
	var report PushReport
	log := s.log.With("collection", c.collName)

	pending, err := s.store.Tombstones.List(ctx, s.ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to read pending deletes: %w", err)
	}
	for _, t := range pending {
		if t.Collection != c.collName {
			continue
		}
		if err := s.remote.Delete(ctx, s.ownerID, c.collName, t.ID); err != nil {
			log.Warn(ctx, "failed to delete remote record", "id", t.ID, "error", err)
			report.Failed++
			continue
		}
		if err := s.store.Tombstones.Remove(ctx, s.ownerID, c.collName, t.ID); err != nil {
			log.Warn(ctx, "failed to clear pending delete", "id", t.ID, "error", err)
			report.Failed++
			continue
		}
		report.Deleted++
	}

	repo := c.repo(s.store.Repos)
	unsynced, err := repo.GetUnsynced(ctx, s.ownerID)
	if err != nil {
		return report, fmt.Errorf("failed to read unsynced %s: %w", c.collName, err)
	}

	for _, rec := range unsynced {
		id := rec.RecordID()
		doc, err := rec.Document()
		if err != nil {
			log.Warn(ctx, "failed to encode record", "id", id, "error", err)
			report.Failed++
			continue
		}
		if err := s.remote.Put(ctx, s.ownerID, c.collName, id, doc); err != nil {
			log.Warn(ctx, "failed to upload record", "id", id, "error", err)
			report.Failed++
			continue
		}
		updated, _ := rec.SyncState()
		if err := repo.MarkSynced(ctx, s.ownerID, id, updated); err != nil {
			log.Warn(ctx, "failed to mark record synced", "id", id, "error", err)
			report.Failed++
			continue
		}
		report.Uploaded++
	}

	log.Debug(ctx, "push finished", "uploaded", report.Uploaded, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}

// apply handles one realtime change and reports whether local state changed.
func (c *collection[T]) apply(ctx context.Context, s *Session, change docstore.Change) (bool, error) {
	id := change.Document.ID

	switch change.Kind {
	case docstore.ChangeRemoved:
		return c.remove(ctx, s.store.Repos, s.ownerID, id)

	case docstore.ChangeAdded, docstore.ChangeModified:
		deleted, err := s.store.Tombstones.IDs(ctx, s.ownerID, c.collName)
		if err != nil {
			return false, err
		}
		if _, ok := deleted[id]; ok {
			return false, nil
		}

		rec, err := c.decode(change.Document.Body)
		if err != nil {
			return false, err
		}
		if rec.RecordID() != id || rec.RecordOwner() != s.ownerID {
			return false, fmt.Errorf("%w: change for %s has mismatched identity", common.ErrValidation, id)
		}
		if err := rec.Validate(); err != nil {
			return false, err
		}

		existing, err := c.repo(s.store.Repos).Get(ctx, s.ownerID, id)
		exists := err == nil
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		outcome, err := c.merge(ctx, s, rec, existing, exists)
		if err != nil {
			return false, err
		}
		return outcome != outcomeUnchanged, nil
	}

	return false, fmt.Errorf("%w: unknown change kind %q", common.ErrValidation, change.Kind)
}
