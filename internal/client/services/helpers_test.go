package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/stretchr/testify/require"
)

const owner = "owner-1"

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fakeSyncer deletes locally and records what would have been propagated.
type fakeSyncer struct {
	store *storage.Store

	mu      sync.Mutex
	pushes  int
	deleted []string
}

func (f *fakeSyncer) OwnerID() string { return owner }

func (f *fakeSyncer) PushInBackground() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
}

func (f *fakeSyncer) DeleteRecord(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, collection+"/"+id)
	f.mu.Unlock()

	if collection == common.CollectionBudgets {
		return f.store.DeleteBudget(ctx, owner, id)
	}
	_, err := f.store.Expenses.Delete(ctx, owner, id)
	return err
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }
