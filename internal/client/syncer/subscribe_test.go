package syncer

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func docOf(t *testing.T, rec interface {
	RecordID() string
	Document() (json.RawMessage, error)
}) docstore.Document {
	t.Helper()
	body, err := rec.Document()
	require.NoError(t, err)
	return docstore.Document{ID: rec.RecordID(), Body: body}
}

func TestSubscribe_AppliesBatchesAndNotifies(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))
	require.True(t, s.Subscribed())

	require.NoError(t, s.Subscribe(ctx, func() { t.Error("second subscription must not replace the first") }))

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e1", "3", true))},
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e2", "4", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	all, err := st.Expenses.GetAll(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeRemoved, Document: docstore.Document{ID: "e1"}},
	)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, time.Millisecond)
	_, err = st.Expenses.Get(ctx, owner, "e1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSubscribe_EchoOfOwnWriteDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))

	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "3", false)))
	_, err := s.PushLocalToRemote(ctx)
	require.NoError(t, err)

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e2", "1", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubscribe_EchoOfOwnDeleteDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "3", true)))
	seedRemote(t, r, common.CollectionExpenses, expense("e1", "3", true))
	require.NoError(t, st.Budgets.Put(ctx, budget("b1", "100", true)))
	seedRemote(t, r, common.CollectionBudgets, budget("b1", "100", true))

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))

	require.NoError(t, s.DeleteRecord(ctx, common.CollectionExpenses, "e1"))
	require.NoError(t, s.DeleteRecord(ctx, common.CollectionBudgets, "b1"))
	require.False(t, r.has(common.CollectionExpenses, "e1"))
	require.False(t, r.has(common.CollectionBudgets, "b1"))

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e2", "1", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubscribe_RejectsInvalidChanges(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e1", "-2", true))},
	)
	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e2", "2", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	_, err := st.Expenses.Get(ctx, owner, "e1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	getExpense(t, st, "e2")
}

func TestSubscribe_EndedStreamAllowsResubscribe(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	r.watchErr[common.CollectionBudgets] = common.ErrUnavailable
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))
	require.Eventually(t, func() bool { return !s.Subscribed() }, waitFor, time.Millisecond)

	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))
	require.True(t, s.Subscribed())

	r.emit(common.CollectionBudgets,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, budget("b1", "100", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
	_, err := st.Budgets.Get(ctx, owner, "b1")
	require.NoError(t, err)
}

func TestUnsubscribe_NoCallbackAfterReturn(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(true), nil)

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))
	s.Unsubscribe()
	assert.False(t, s.Subscribed())

	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e1", "3", true))},
	)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())

	s.Unsubscribe()
}

func TestSubscribe_SkipsPendingDeletes(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	s := newTestSession(t, st, r, newFakeConn(false), nil)

	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "3", true)))
	require.NoError(t, s.DeleteRecord(ctx, common.CollectionExpenses, "e1"))

	var calls atomic.Int32
	require.NoError(t, s.Subscribe(ctx, func() { calls.Add(1) }))
	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeModified, Document: docOf(t, expense("e1", "3", true))},
	)
	r.emit(common.CollectionExpenses,
		docstore.Change{Kind: docstore.ChangeAdded, Document: docOf(t, expense("e2", "3", true))},
	)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	_, err := st.Expenses.Get(ctx, owner, "e1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAutoSync_OnlineTransitionSyncsAndSubscribes(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	conn := newFakeConn(false)
	s := newTestSession(t, st, r, conn, nil)

	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "12", false)))

	s.EnableAutoSync(conn, Policy{SettleDelay: 5 * time.Millisecond}, nil)
	s.EnableAutoSync(conn, Policy{SettleDelay: 5 * time.Millisecond}, nil)
	assert.Equal(t, 1, conn.listenerCount())

	conn.Set(true)
	require.Eventually(t, func() bool {
		return r.has(common.CollectionExpenses, "e1") && s.Subscribed()
	}, waitFor, time.Millisecond)
	assert.True(t, getExpense(t, st, "e1").Synced)

	conn.Set(false)
	assert.False(t, s.Subscribed())

	s.DisableAutoSync()
	assert.Zero(t, conn.listenerCount())
}

func TestAutoSync_OfflineCancelsPendingSync(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	conn := newFakeConn(false)
	s := newTestSession(t, st, r, conn, nil)

	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "12", false)))
	s.EnableAutoSync(conn, Policy{SettleDelay: 50 * time.Millisecond}, nil)

	conn.Set(true)
	conn.Set(false)
	time.Sleep(100 * time.Millisecond)

	assert.False(t, r.has(common.CollectionExpenses, "e1"))
	assert.False(t, s.Subscribed())
}

func TestAutoSync_PeriodicInterval(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	r := newMemRemote()
	conn := newFakeConn(true)
	s := newTestSession(t, st, r, conn, nil)

	s.EnableAutoSync(conn, Policy{SettleDelay: time.Hour, Interval: 5 * time.Millisecond}, nil)
	require.NoError(t, st.Expenses.Put(ctx, expense("e1", "12", false)))

	require.Eventually(t, func() bool { return r.has(common.CollectionExpenses, "e1") }, waitFor, time.Millisecond)
}

// A device records an expense offline, comes back online and a second
// device signed in as the same owner receives it.
func TestOfflineCreateReachesSecondDevice(t *testing.T) {
	ctx := context.Background()
	r := newMemRemote()
	policy := Policy{SettleDelay: 5 * time.Millisecond}

	phoneStore := newStore(t)
	phoneConn := newFakeConn(false)
	phone := NewManager(phoneStore, r, phoneConn, policy, Options{})
	t.Cleanup(phone.StopAll)
	phone.Start(ctx, owner, nil)

	require.NoError(t, phoneStore.Expenses.Put(ctx, expense("e1", "12.50", false)))
	assert.False(t, r.has(common.CollectionExpenses, "e1"))

	phoneConn.Set(true)
	require.Eventually(t, func() bool { return r.has(common.CollectionExpenses, "e1") }, waitFor, time.Millisecond)
	require.Eventually(t, func() bool {
		e, err := phoneStore.Expenses.Get(ctx, owner, "e1")
		return err == nil && e.Synced
	}, waitFor, time.Millisecond)

	laptopStore := newStore(t)
	laptop := NewManager(laptopStore, r, newFakeConn(true), policy, Options{})
	t.Cleanup(laptop.StopAll)

	var refreshed atomic.Int32
	laptopSession := laptop.Start(ctx, owner, func() { refreshed.Add(1) })
	assert.Same(t, laptopSession, laptop.Start(ctx, owner, nil))

	require.Eventually(t, func() bool {
		e, err := laptopStore.Expenses.Get(ctx, owner, "e1")
		return err == nil && e.Synced && e.Amount.String() == "12.5"
	}, waitFor, time.Millisecond)
	require.Eventually(t, laptopSession.Subscribed, waitFor, time.Millisecond)

	require.NoError(t, phoneStore.Expenses.Put(ctx, expense("e2", "3", false)))
	phoneSession, ok := phone.Session(owner)
	require.True(t, ok)
	_, err := phoneSession.ManualSync(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := laptopStore.Expenses.Get(ctx, owner, "e2")
		return err == nil
	}, waitFor, time.Millisecond)
	assert.Positive(t, refreshed.Load())

	laptop.Stop(owner)
	_, ok = laptop.Session(owner)
	assert.False(t, ok)
	assert.False(t, laptopSession.Subscribed())
}
