package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err   atomic.Value
	calls atomic.Int32
}

func (p *fakePinger) Ping(context.Context) error {
	p.calls.Add(1)
	if v := p.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func TestMonitor_SetNotifiesOnTransitionOnly(t *testing.T) {
	m := NewMonitor(nil, 0, nil)

	var got []bool
	m.OnChange("a", func(online bool) { got = append(got, online) })

	m.Set(false)
	m.Set(true)
	m.Set(true)
	m.Set(false)

	assert.Equal(t, []bool{true, false}, got)
	assert.False(t, m.Online())
}

func TestMonitor_KeyedListenerIsReplaced(t *testing.T) {
	m := NewMonitor(nil, 0, nil)

	var first, second int
	m.OnChange("owner", func(bool) { first++ })
	m.OnChange("owner", func(bool) { second++ })
	m.Set(true)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	m.RemoveListener("owner")
	m.Set(false)
	assert.Equal(t, 1, second)
}

func TestMonitor_Check(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, time.Second, nil)

	assert.True(t, m.Check(context.Background()))
	assert.True(t, m.Online())

	p.err.Store(errors.New("down"))
	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Online())
}

func TestMonitor_RunProbesUntilCancelled(t *testing.T) {
	p := &fakePinger{}
	m := NewMonitor(p, 5*time.Millisecond, nil)

	var mu sync.Mutex
	var transitions []bool
	m.OnChange("t", func(online bool) {
		mu.Lock()
		transitions = append(transitions, online)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true}, transitions)
}
