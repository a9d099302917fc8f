package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RoutesByTopic(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(logging.NewNop())

	a, cancelA := hub.Subscribe("u1", "expenses")
	defer cancelA()
	b, cancelB := hub.Subscribe("u2", "expenses")
	defer cancelB()

	hub.Publish(ctx, "u1", "expenses", docstore.Change{Kind: docstore.ChangeAdded, Document: docstore.Document{ID: "e1"}})

	got := <-a
	assert.Equal(t, "e1", got.Document.ID)
	assert.Empty(t, b)
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub(logging.NewNop())

	ch, cancel := hub.Subscribe("u1", "budgets")
	require.Equal(t, 1, hub.Watchers("u1", "budgets"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Watchers("u1", "budgets"))
}

func TestHub_DropsSlowWatcher(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(logging.NewNop())

	ch, cancel := hub.Subscribe("u1", "expenses")
	defer cancel()

	for i := 0; i <= subscriberBuffer; i++ {
		hub.Publish(ctx, "u1", "expenses", docstore.Change{Kind: docstore.ChangeModified})
	}
	assert.Equal(t, 0, hub.Watchers("u1", "expenses"))

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
}
