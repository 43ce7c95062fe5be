// Package store implements the reactive entity stores at the heart of
// the dashboard: each store owns the canonical in-memory collection for
// one entity type, reconciles HTTP snapshots and live deltas into it,
// and notifies subscribers with a consistent view after every mutation.
//
// Stores favor availability over strict ordering. Mutations are stamped
// with a monotonically increasing sequence number at issue time, and a
// resolving mutation whose number predates the last applied one is
// discarded — "last issued wins", deterministically, instead of by
// network-timing accident. Two further rules override plain
// replacement: the battle terminal-state merge guard, and the
// phase ordering of layered liveness loading.
package store

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// OpError is the typed failure returned by store actions that report
// to their caller (register, update, delete, create, get). Callers use
// it to decide whether to roll back an optimistic UI change. Bulk
// reloads never return it; they are fail-soft and surface failures in
// the snapshot only.
type OpError struct {
	Op      string // the failed action, e.g. "agents.delete"
	Message string // backend or transport failure message
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// sequencer orders store mutations. Guarded by the owning store's
// mutex.
type sequencer struct {
	next    uint64
	applied uint64
}

// ticket stamps a new mutation at issue time.
func (q *sequencer) ticket() uint64 {
	q.next++
	return q.next
}

// commit reports whether a mutation with the given ticket may apply,
// and records it as the latest applied one if so. A mutation that
// resolves after a later-issued one has applied is stale.
func (q *sequencer) commit(t uint64) bool {
	if t < q.applied {
		return false
	}
	q.applied = t
	return true
}

// subscribers is an observer list with subscription-order delivery.
type subscribers[S any] struct {
	mu   sync.Mutex
	next int
	subs []subscription[S]
}

type subscription[S any] struct {
	id int
	fn func(S)
}

// add registers a callback and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *subscribers[S]) add(fn func(S)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs = append(b.subs, subscription[S]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// notify delivers the snapshot to every subscriber in subscription
// order. Delivery is synchronous; callbacks run outside the store's
// state lock so they may read the store or mutate it again.
func (b *subscribers[S]) notify(snap S) {
	b.mu.Lock()
	subs := make([]subscription[S], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(snap)
	}
}

// count adds one to a counter when instruments are wired. Stores work
// without metrics; instrumentation is optional by construction.
func count(c metric.Int64Counter) {
	if c != nil {
		c.Add(context.Background(), 1)
	}
}
