package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/server/models"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/documents"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	getOut    *models.User
	getErr    error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "new-id"
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(context.Context, string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	expired   int64

	created []models.RefreshToken
	deleted []string
}

func (f *fakeRefreshRepo) Create(_ context.Context, rt models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rt)
	return nil
}

func (f *fakeRefreshRepo) Find(context.Context, string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.delErr
}

func (f *fakeRefreshRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return f.expired, nil
}

// memDocs is an in-memory documents.Repository.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]models.Document
	err  error
}

func newMemDocs() *memDocs { return &memDocs{docs: map[string]models.Document{}} }

func docKey(owner, collection, id string) string { return owner + "/" + collection + "/" + id }

func (m *memDocs) Put(_ context.Context, owner, collection, id string, body json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	k := docKey(owner, collection, id)
	_, exists := m.docs[k]
	m.docs[k] = models.Document{OwnerID: owner, Collection: collection, ID: id, Body: body, UpdatedAt: time.Now()}
	return !exists, nil
}

func (m *memDocs) Get(_ context.Context, owner, collection, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.docs[docKey(owner, collection, id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &d, nil
}

func (m *memDocs) Query(_ context.Context, owner, collection string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Document
	for _, d := range m.docs {
		if d.OwnerID == owner && d.Collection == collection {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, owner, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	k := docKey(owner, collection, id)
	_, ok := m.docs[k]
	delete(m.docs, k)
	return ok, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	d *memDocs
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository         { return m.d }
