package alerts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var now = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE alerts (
    id             TEXT PRIMARY KEY,
    budget_id      TEXT NOT NULL,
    owner_id       TEXT NOT NULL,
    kind           TEXT NOT NULL,
    message        TEXT NOT NULL,
    current_amount TEXT NOT NULL,
    budget_amount  TEXT NOT NULL,
    percentage     INTEGER NOT NULL,
    period         TEXT NOT NULL,
    category       TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL,
    dismissed      INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func alert(id, budgetID string, kind models.AlertKind, created time.Time) models.Alert {
	return models.Alert{
		ID:            id,
		BudgetID:      budgetID,
		OwnerID:       "u1",
		Kind:          kind,
		Message:       "msg " + id,
		CurrentAmount: decimal.RequireFromString("410"),
		BudgetAmount:  decimal.RequireFromString("500"),
		Percentage:    82,
		Period:        models.PeriodMonthly,
		CreatedAt:     created,
	}
}

func TestPutAndGetAll(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, alert("a1", "b1", models.AlertWarning, now.Add(-time.Hour))))
	require.NoError(t, r.Put(ctx, alert("a2", "b1", models.AlertExceeded, now)))

	list, err := r.GetAll(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)
	assert.Equal(t, models.AlertWarning, list[1].Kind)
	assert.Equal(t, 82, list[1].Percentage)
	assert.True(t, list[1].CurrentAmount.Equal(decimal.RequireFromString("410")))
	assert.True(t, list[1].CreatedAt.Equal(now.Add(-time.Hour)))

	other, err := r.GetAll(ctx, "u2", true)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDismiss(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, alert("a1", "b1", models.AlertWarning, now)))
	require.NoError(t, r.Dismiss(ctx, "u1", "a1"))

	active, err := r.GetAll(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := r.GetAll(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Dismissed)

	assert.ErrorIs(t, r.Dismiss(ctx, "u1", "missing"), common.ErrNotFound)
	assert.ErrorIs(t, r.Dismiss(ctx, "u2", "a1"), common.ErrNotFound)
}

func TestHasRecent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	since := now.Add(-24 * time.Hour)

	require.NoError(t, r.Put(ctx, alert("old", "b1", models.AlertWarning, since.Add(-time.Second))))

	ok, err := r.HasRecent(ctx, "u1", "b1", models.AlertWarning, since)
	require.NoError(t, err)
	assert.False(t, ok, "alerts outside the window do not count")

	require.NoError(t, r.Put(ctx, alert("fresh", "b1", models.AlertWarning, now)))

	ok, err = r.HasRecent(ctx, "u1", "b1", models.AlertWarning, since)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasRecent(ctx, "u1", "b1", models.AlertExceeded, since)
	require.NoError(t, err)
	assert.False(t, ok, "kind is part of the key")

	require.NoError(t, r.Dismiss(ctx, "u1", "fresh"))
	ok, err = r.HasRecent(ctx, "u1", "b1", models.AlertWarning, since)
	require.NoError(t, err)
	assert.False(t, ok, "dismissed alerts do not suppress")
}

func TestDeleteByBudget_LeavesOtherBudgets(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, alert("a1", "b1", models.AlertWarning, now)))
	require.NoError(t, r.Put(ctx, alert("a2", "b1", models.AlertExceeded, now)))
	require.NoError(t, r.Put(ctx, alert("a3", "b2", models.AlertWarning, now)))

	n, err := r.DeleteByBudget(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := r.GetAll(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b2", left[0].BudgetID)
}

func TestDeleteOlderThan(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	old := alert("old", "b1", models.AlertWarning, now.AddDate(0, 0, -40))
	old.Dismissed = false
	require.NoError(t, r.Put(ctx, old))
	require.NoError(t, r.Put(ctx, alert("new", "b1", models.AlertWarning, now)))

	n, err := r.DeleteOlderThan(ctx, "u1", now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := r.GetAll(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].ID)
}
