package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservable_LoadReturnsLatest(t *testing.T) {
	o := New(1)
	assert.Equal(t, 1, o.Load())

	o.Store(2)
	assert.Equal(t, 2, o.Load())
}

func TestObservable_NotifyInRegistrationOrder(t *testing.T) {
	o := New("")
	var got []string

	o.Subscribe(func(v string) { got = append(got, "a:"+v) })
	o.Subscribe(func(v string) { got = append(got, "b:"+v) })

	o.Set("x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestObservable_CancelStopsDelivery(t *testing.T) {
	o := New(0)
	calls := 0
	cancel := o.Subscribe(func(int) { calls++ })

	o.Set(1)
	cancel()
	cancel()
	o.Set(2)

	assert.Equal(t, 1, calls)
}

func TestObservable_NotifyDeliversCurrentValue(t *testing.T) {
	o := New(0)
	var seen []int
	o.Subscribe(func(v int) { seen = append(seen, v) })

	// two stores before a single notify: only the newest value is visible
	o.Store(1)
	o.Store(2)
	o.Notify()

	assert.Equal(t, []int{2}, seen)
}

func TestObservable_ConcurrentSetIsSafe(t *testing.T) {
	o := New(0)
	var mu sync.Mutex
	count := 0
	o.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			o.Set(v)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}
