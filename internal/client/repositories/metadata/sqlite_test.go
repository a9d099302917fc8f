package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetGetOverwrite(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeySalt, []byte{0x01, 0x02}))
	v, err := r.Get(ctx, KeySalt)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)

	require.NoError(t, r.Set(ctx, KeySalt, []byte("new")))
	v, err = r.Get(ctx, KeySalt)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestGet_AbsentIsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDeleteListClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyUsername, []byte("alice")))
	require.NoError(t, r.Set(ctx, LastSyncKey("u1"), []byte("2024-03-01T00:00:00.000000000Z")))

	require.NoError(t, r.Delete(ctx, KeyUsername))
	require.NoError(t, r.Delete(ctx, KeyUsername))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.Contains(t, m, "sync.last.u1")

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestString(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	s, err := String(ctx, r, KeyOwnerID)
	require.NoError(t, err)
	assert.Empty(t, s)

	require.NoError(t, r.Set(ctx, KeyOwnerID, []byte("u1")))
	s, err = String(ctx, r, KeyOwnerID)
	require.NoError(t, err)
	assert.Equal(t, "u1", s)
}

func TestErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get metadata[k]")

	assert.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	assert.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.List(ctx)
	assert.ErrorContains(t, err, "failed to list metadata")
}
