package signal

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSignal_Connect(t *testing.T) {
	t.Run("IncreasingIDs", func(t *testing.T) {
		s := New[int](nil)

		first := s.Connect(func(int) {})
		second := s.Connect(func(int) {})
		third := s.Connect(func(int) {})

		assert.Equal(t, SlotID(0), first)
		assert.Greater(t, second, first)
		assert.Greater(t, third, second)
		assert.Equal(t, 3, s.Len())
	})

	t.Run("IDsNotReusedAfterDisconnect", func(t *testing.T) {
		s := New[int](nil)

		id := s.Connect(func(int) {})
		s.Disconnect(id)
		next := s.Connect(func(int) {})

		assert.Greater(t, next, id)
	})

	t.Run("ConcurrentConnect", func(t *testing.T) {
		s := New[int](nil)

		var wg sync.WaitGroup
		ids := make(chan SlotID, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids <- s.Connect(func(int) {})
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[SlotID]bool)
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Equal(t, 100, s.Len())
	})
}

func TestSignal_Disconnect(t *testing.T) {
	t.Run("RemovesOnlyTarget", func(t *testing.T) {
		s := New[string](nil)

		var got []string
		a := s.Connect(func(v string) { got = append(got, "a:"+v) })
		s.Connect(func(v string) { got = append(got, "b:"+v) })

		s.Disconnect(a)
		s.Emit("x")

		assert.Equal(t, []string{"b:x"}, got)
	})

	t.Run("UnknownAndSentinel", func(t *testing.T) {
		s := New[string](nil)
		s.Connect(func(string) {})

		assert.NotPanics(t, func() {
			s.Disconnect(NoID)
			s.Disconnect(SlotID(1234))
		})
		assert.Equal(t, 1, s.Len())
	})

	t.Run("DisconnectAll", func(t *testing.T) {
		s := New[string](nil)
		called := false
		s.Connect(func(string) { called = true })
		s.Connect(func(string) { called = true })

		s.DisconnectAll()
		s.Emit("x")

		assert.False(t, called)
		assert.Equal(t, 0, s.Len())
	})
}

func TestSignal_Emit(t *testing.T) {
	t.Run("RegistrationOrder", func(t *testing.T) {
		s := New[int](nil)

		var order []int
		for i := 0; i < 5; i++ {
			idx := i
			s.Connect(func(v int) { order = append(order, idx*10+v) })
		}

		s.Emit(1)

		assert.Equal(t, []int{1, 11, 21, 31, 41}, order)
	})

	t.Run("NoListeners", func(t *testing.T) {
		s := New[int](nil)
		assert.NotPanics(t, func() { s.Emit(1) })
	})

	t.Run("PanicPropagates", func(t *testing.T) {
		s := New[int](nil)
		s.Connect(func(int) { panic("boom") })

		assert.Panics(t, func() { s.Emit(1) })

		// the registry lock must have been released
		assert.Equal(t, 1, s.Len())
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var s Signal[int]
		got := 0
		s.Connect(func(v int) { got = v })

		s.Emit(7)

		assert.Equal(t, 7, got)
		assert.True(t, s.SafeEmit("zero", 8))
		assert.Equal(t, 8, got)
	})
}

func TestSignal_SafeEmit(t *testing.T) {
	t.Run("AllSucceed", func(t *testing.T) {
		s := New[int](nil)
		var calls int32
		for i := 0; i < 3; i++ {
			s.Connect(func(int) { atomic.AddInt32(&calls, 1) })
		}

		assert.True(t, s.SafeEmit("onJobsCompleted(3)", 3))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("FailureIsolated", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		s := New[int](zap.New(core))

		const listeners = 8
		const failing = 3

		var calls [listeners]int32
		for i := 0; i < listeners; i++ {
			idx := i
			s.Connect(func(int) {
				atomic.AddInt32(&calls[idx], 1)
				if idx == failing {
					panic("listener exploded")
				}
			})
		}

		ok := s.SafeEmit("onJobsCompleted(1)", 1)

		assert.False(t, ok)
		for i := 0; i < listeners; i++ {
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls[i]), "listener %d", i)
		}

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "signal", entry.LoggerName)
		assert.Equal(t, "onJobsCompleted(1)", entry.ContextMap()["label"])
		assert.Contains(t, entry.ContextMap()["cause"], "listener exploded")
	})

	t.Run("ConcurrentEmitters", func(t *testing.T) {
		s := New[int](nil)

		const listeners = 5
		const emitters = 10

		var calls [listeners]int32
		for i := 0; i < listeners; i++ {
			idx := i
			s.Connect(func(int) {
				atomic.AddInt32(&calls[idx], 1)
				if idx == 2 {
					panic("always fails")
				}
			})
		}

		var wg sync.WaitGroup
		var failures int32
		for e := 0; e < emitters; e++ {
			wg.Add(1)
			go func(v int) {
				defer wg.Done()
				if !s.SafeEmit("concurrent", v) {
					atomic.AddInt32(&failures, 1)
				}
			}(e)
		}
		wg.Wait()

		assert.Equal(t, int32(emitters), atomic.LoadInt32(&failures))
		for i := 0; i < listeners; i++ {
			assert.Equal(t, int32(emitters), atomic.LoadInt32(&calls[i]))
		}
	})
}
