// ============================================================================
// Observable Value - reactive value cell
// ============================================================================
//
// Package: internal/observable
// File: value.go
// Purpose: Hold a single value and synchronously notify subscribers whenever
// it is set. This is the only state-propagation primitive between the
// timeline domain (producer) and its presentation layers (consumers).
//
// Notification rules:
//   - Set never compares values; every call notifies.
//   - Subscribers are keyed by a random token, fan-out order is unspecified.
//   - The subscriber set is snapshotted before fan-out. A subscription added
//     from inside a callback starts receiving on the next Set; one removed
//     from inside a callback is skipped for the rest of the current fan-out.
//   - Callbacks run without the cell's lock held.
//
// Lifecycle:
//   Dispose drops every subscriber. The cell keeps working afterwards, Set
//   still stores the value, there is just nobody left to tell.
//
// ============================================================================

package observable

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Token identifies one subscription on one cell.
type Token string

// Readonly is the observation surface handed to consumers. It has no Set or
// Transform.
type Readonly[T any] interface {
	Get() T
	Subscribe(fn func(T)) Subscription
	Unsubscribe(token Token)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	token Token
	owner interface{ Unsubscribe(Token) }
}

// Token returns the subscription's unique token.
func (s Subscription) Token() Token {
	return s.token
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.owner != nil {
		s.owner.Unsubscribe(s.token)
	}
}

// Value is a mutable reactive cell.
type Value[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[Token]func(T)
}

// NewValue creates a cell holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		value: initial,
		subs:  make(map[Token]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores newValue and notifies every subscriber with it.
func (v *Value[T]) Set(newValue T) {
	v.mu.Lock()
	v.value = newValue
	tokens := make([]Token, 0, len(v.subs))
	for token := range v.subs {
		tokens = append(tokens, token)
	}
	v.mu.Unlock()

	for _, token := range tokens {
		v.mu.Lock()
		fn, ok := v.subs[token]
		v.mu.Unlock()
		if !ok {
			continue
		}
		fn(newValue)
	}
}

// Transform is shorthand for Set(fn(Get())).
func (v *Value[T]) Transform(fn func(T) T) {
	v.Set(fn(v.Get()))
}

// Subscribe registers fn and returns its handle.
func (v *Value[T]) Subscribe(fn func(T)) Subscription {
	token := Token(uuid.NewString())

	v.mu.Lock()
	v.subs[token] = fn
	v.mu.Unlock()

	return Subscription{token: token, owner: v}
}

// Unsubscribe removes the subscription with the given token. Unknown or
// already removed tokens are ignored.
func (v *Value[T]) Unsubscribe(token Token) {
	v.mu.Lock()
	delete(v.subs, token)
	v.mu.Unlock()
}

// Len reports the number of live subscriptions.
func (v *Value[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Dispose drops all subscribers.
func (v *Value[T]) Dispose() {
	v.mu.Lock()
	v.subs = make(map[Token]func(T))
	v.mu.Unlock()
}

// SliceView is a Readonly over a slice-valued cell that never hands out the
// cell's backing array. Get and every subscriber receive their own copy.
type SliceView[E any] struct {
	v *Value[[]E]
}

// Snapshot returns a SliceView over v.
func Snapshot[E any](v *Value[[]E]) SliceView[E] {
	return SliceView[E]{v: v}
}

// Get returns a copy of the current slice.
func (s SliceView[E]) Get() []E {
	return slices.Clone(s.v.Get())
}

// Subscribe registers fn; each call gets a fresh copy of the new slice.
func (s SliceView[E]) Subscribe(fn func([]E)) Subscription {
	return s.v.Subscribe(func(next []E) { fn(slices.Clone(next)) })
}

// Unsubscribe removes the subscription with the given token.
func (s SliceView[E]) Unsubscribe(token Token) {
	s.v.Unsubscribe(token)
}
