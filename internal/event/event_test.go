package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionState_String(t *testing.T) {
	tests := []struct {
		state    SubscriptionState
		expected string
	}{
		{SubscriptionStateActive, "active"},
		{SubscriptionStateCancelled, "cancelled"},
		{SubscriptionState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestEmitter_SubscribeEmit(t *testing.T) {
	var e Emitter[string]
	var got []string

	sub := e.Subscribe(func(v string) { got = append(got, "a:"+v) })
	e.Subscribe(func(v string) { got = append(got, "b:"+v) })

	require.NotEmpty(t, sub.ID())
	assert.True(t, sub.IsActive())
	assert.Equal(t, 2, e.Count())

	e.Emit("x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestEmitter_CancelIsIdempotent(t *testing.T) {
	var e Emitter[int]
	calls := 0
	sub := e.Subscribe(func(int) { calls++ })

	sub.Cancel()
	sub.Cancel()

	assert.Equal(t, SubscriptionStateCancelled, sub.State())
	assert.Equal(t, 0, e.Count())

	e.Emit(1)
	assert.Equal(t, 0, calls)
}

func TestEmitter_CancelDuringEmit(t *testing.T) {
	var e Emitter[int]
	var second Subscription
	calls := 0

	e.Subscribe(func(int) { second.Cancel() })
	second = e.Subscribe(func(int) { calls++ })

	e.Emit(1)
	assert.Equal(t, 0, calls, "listener cancelled mid-emit must not run")
}

func TestEmitter_Clear(t *testing.T) {
	var e Emitter[int]
	a := e.Subscribe(func(int) {})
	b := e.Subscribe(func(int) {})

	e.Clear()

	assert.False(t, a.IsActive())
	assert.False(t, b.IsActive())
	assert.Equal(t, 0, e.Count())
}

func TestEmitter_Concurrent(t *testing.T) {
	var e Emitter[int]
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := e.Subscribe(func(v int) {
				mu.Lock()
				total += v
				mu.Unlock()
			})
			e.Emit(1)
			sub.Cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, e.Count())
	assert.GreaterOrEqual(t, total, 10)
}

func TestSignal(t *testing.T) {
	var s Signal
	fired := 0
	sub := s.Subscribe(func() { fired++ })

	s.Fire()
	s.Fire()
	assert.Equal(t, 2, fired)
	assert.Equal(t, 1, s.Count())

	sub.Cancel()
	s.Fire()
	assert.Equal(t, 2, fired)
}

func TestFuncSubscription(t *testing.T) {
	released := 0
	sub := FuncSubscription(func() { released++ })

	sub.Cancel()
	sub.Cancel()

	assert.Equal(t, 1, released)
}

func TestScope_CloseReleasesOnceInReverseOrder(t *testing.T) {
	var order []string
	scope := NewScope()

	require.NoError(t, scope.Add(FuncSubscription(func() { order = append(order, "first") })))
	require.NoError(t, scope.Add(FuncSubscription(func() { order = append(order, "second") })))
	assert.Equal(t, 2, scope.Len())

	scope.Close()
	scope.Close()

	assert.True(t, scope.Closed())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, 0, scope.Len())
}

func TestScope_AddAfterClose(t *testing.T) {
	scope := NewScope()
	scope.Close()

	released := 0
	err := scope.Add(FuncSubscription(func() { released++ }))

	assert.ErrorIs(t, err, ErrScopeClosed)
	assert.Equal(t, 1, released)
}

func TestScope_AddNil(t *testing.T) {
	scope := NewScope()
	assert.NoError(t, scope.Add(nil))
	assert.Equal(t, 0, scope.Len())
}
