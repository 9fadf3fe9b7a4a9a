// Package store holds the latest-value containers the state holders publish through.
package store

import (
	"sort"
	"sync"
)

// Observable keeps the latest value of T and fans changes out to subscribers.
//
// Writers call Store while holding their own lock and Notify after releasing it.
// Notify always delivers the value that is current at delivery time, so a slow
// subscriber never observes an older value after a newer one (last write wins).
type Observable[T any] struct {
	mu    sync.RWMutex
	value T

	subsMu sync.Mutex
	subs   map[uint64]func(T)
	nextID uint64

	notifyMu sync.Mutex
}

func New[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

func (o *Observable[T]) Load() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

func (o *Observable[T]) Store(v T) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
}

// Set stores v and notifies subscribers.
func (o *Observable[T]) Set(v T) {
	o.Store(v)
	o.Notify()
}

// Notify delivers the current value to every subscriber, one subscriber at a time.
func (o *Observable[T]) Notify() {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	v := o.Load()
	for _, fn := range o.subscribers() {
		fn(v)
	}
}

// Subscribe registers fn and returns a function that removes it.
// fn receives the stored value itself: it must not modify anything the value
// shares, such as slices or pointers. Owners that publish such values wrap fn
// to hand out copies.
func (o *Observable[T]) Subscribe(fn func(T)) (cancel func()) {
	o.subsMu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.subsMu.Lock()
			delete(o.subs, id)
			o.subsMu.Unlock()
		})
	}
}

func (o *Observable[T]) subscribers() []func(T) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()

	ids := make([]uint64, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(T), len(ids))
	for i, id := range ids {
		out[i] = o.subs[id]
	}
	return out
}
