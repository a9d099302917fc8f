package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/connectivity"
	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/client/remote"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const owner = "owner-1"

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// memRemote is an in-memory document store shared by several devices.
type memRemote struct {
	mu       sync.Mutex
	docs     map[string]map[string]json.RawMessage
	puts     int
	watchers map[string][]*memStream

	putErr    func(collection, id string) error
	queryErr  map[string]error
	deleteErr error
	// watchErr makes the next stream opened for a collection fail on Recv.
	watchErr map[string]error
	// putGate, when set, blocks every Put until it is closed.
	putGate chan struct{}
	putSeen chan struct{}
}

func newMemRemote() *memRemote {
	return &memRemote{
		docs:     map[string]map[string]json.RawMessage{},
		watchers: map[string][]*memStream{},
		queryErr: map[string]error{},
		watchErr: map[string]error{},
	}
}

func (r *memRemote) Put(_ context.Context, ownerID, collection, id string, body json.RawMessage) error {
	if r.putSeen != nil {
		select {
		case r.putSeen <- struct{}{}:
		default:
		}
	}
	if r.putGate != nil {
		<-r.putGate
	}

	r.mu.Lock()
	if r.putErr != nil {
		if err := r.putErr(collection, id); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	if r.docs[collection] == nil {
		r.docs[collection] = map[string]json.RawMessage{}
	}
	_, existed := r.docs[collection][id]
	r.docs[collection][id] = body
	r.puts++
	r.mu.Unlock()

	kind := docstore.ChangeAdded
	if existed {
		kind = docstore.ChangeModified
	}
	r.emit(collection, docstore.Change{Kind: kind, Document: docstore.Document{ID: id, Body: body}})
	return nil
}

func (r *memRemote) Query(_ context.Context, ownerID, collection string) ([]docstore.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.queryErr[collection]; err != nil {
		return nil, err
	}
	out := make([]docstore.Document, 0, len(r.docs[collection]))
	for id, body := range r.docs[collection] {
		out = append(out, docstore.Document{ID: id, Body: body})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRemote) Delete(_ context.Context, ownerID, collection, id string) error {
	r.mu.Lock()
	if r.deleteErr != nil {
		r.mu.Unlock()
		return r.deleteErr
	}
	body, ok := r.docs[collection][id]
	delete(r.docs[collection], id)
	r.mu.Unlock()

	if ok {
		r.emit(collection, docstore.Change{Kind: docstore.ChangeRemoved, Document: docstore.Document{ID: id, Body: body}})
	}
	return nil
}

func (r *memRemote) Watch(ctx context.Context, ownerID, collection string) (remote.ChangeStream, error) {
	s := &memStream{ctx: ctx, ch: make(chan docstore.ChangeBatch, 16)}
	r.mu.Lock()
	s.err = r.watchErr[collection]
	delete(r.watchErr, collection)
	r.watchers[collection] = append(r.watchers[collection], s)
	r.mu.Unlock()
	return s, nil
}

func (r *memRemote) emit(collection string, changes ...docstore.Change) {
	r.mu.Lock()
	watchers := append([]*memStream(nil), r.watchers[collection]...)
	r.mu.Unlock()

	batch := docstore.ChangeBatch{Collection: collection, Changes: changes}
	for _, w := range watchers {
		if w.ctx.Err() != nil {
			continue
		}
		select {
		case w.ch <- batch:
		default:
		}
	}
}

func (r *memRemote) has(collection, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[collection][id]
	return ok
}

func (r *memRemote) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

type memStream struct {
	ctx context.Context
	ch  chan docstore.ChangeBatch
	err error
}

func (s *memStream) Recv() (docstore.ChangeBatch, error) {
	if s.err != nil {
		return docstore.ChangeBatch{}, s.err
	}
	select {
	case <-s.ctx.Done():
		return docstore.ChangeBatch{}, s.ctx.Err()
	case b := <-s.ch:
		return b, nil
	}
}

// fakeConn is a Connectivity whose state is flipped by the test.
type fakeConn struct {
	mu        sync.Mutex
	online    bool
	listeners map[string]connectivity.Listener
}

func newFakeConn(online bool) *fakeConn {
	return &fakeConn{online: online, listeners: map[string]connectivity.Listener{}}
}

func (c *fakeConn) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *fakeConn) OnChange(key string, fn connectivity.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[key] = fn
}

func (c *fakeConn) RemoveListener(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, key)
}

func (c *fakeConn) listenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *fakeConn) Set(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	fns := make([]connectivity.Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(online)
	}
}

var errBoom = errors.New("boom")

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestSession(t *testing.T, st *storage.Store, r Remote, conn Connectivity, strategy MergeStrategy) *Session {
	t.Helper()
	s := NewSession(owner, st, r, conn, Options{Strategy: strategy, Now: func() time.Time { return testNow }})
	t.Cleanup(s.Close)
	return s
}

func expense(id, amount string, synced bool) models.Expense {
	return models.Expense{
		ID:          id,
		OwnerID:     owner,
		Amount:      decimal.RequireFromString(amount),
		Category:    "food",
		Description: "lunch",
		Date:        "2024-03-10",
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
		Synced:      synced,
	}
}

func budget(id, amount string, synced bool) models.Budget {
	return models.Budget{
		ID:               id,
		OwnerID:          owner,
		Name:             "Food",
		Amount:           decimal.RequireFromString(amount),
		Period:           models.PeriodMonthly,
		Category:         "food",
		Enabled:          true,
		WarningThreshold: 80,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
		Synced:           synced,
	}
}

func seedRemote(t *testing.T, r *memRemote, collection string, rec interface {
	RecordID() string
	Document() (json.RawMessage, error)
}) {
	t.Helper()
	doc, err := rec.Document()
	require.NoError(t, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.docs[collection] == nil {
		r.docs[collection] = map[string]json.RawMessage{}
	}
	r.docs[collection][rec.RecordID()] = doc
}

func getExpense(t *testing.T, st *storage.Store, id string) models.Expense {
	t.Helper()
	e, err := st.Expenses.Get(context.Background(), owner, id)
	require.NoError(t, err)
	return e
}
