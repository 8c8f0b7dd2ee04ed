package store

import (
	"context"
	"iter"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Notifier fans out "collection changed" signals to subscriptions.
// Both backends call Notify after every committed write.
type Notifier struct {
	mu      sync.Mutex
	next    uint64
	watches map[uint64]*watch
}

type watch struct {
	collection string
	ch         chan struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{watches: make(map[uint64]*watch)}
}

// Watch registers interest in collection. The returned channel receives a
// value after writes; bursts of writes coalesce into one signal.
func (n *Notifier) Watch(collection string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	key := n.next
	w := &watch{collection: collection, ch: make(chan struct{}, 1)}
	n.watches[key] = w

	return w.ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.watches, key)
	}
}

// Notify signals every watch on collection.
func (n *Notifier) Notify(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, w := range n.watches {
		if w.collection != collection {
			continue
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

// Watchers returns the number of live subscriptions.
func (n *Notifier) Watchers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watches)
}

// QueryFunc runs a query for Subscribe.
type QueryFunc func(ctx context.Context) ([]*Document, error)

// Subscribe builds the subscription sequence shared by the backends.
// It registers with n before the first query so no write is missed, yields
// the initial snapshot, then re-runs query after each signal and yields the
// result when it differs from the last one yielded. A query error is
// yielded and ends the sequence.
func Subscribe(ctx context.Context, n *Notifier, collection string, query QueryFunc) iter.Seq2[[]*Document, error] {
	var used atomic.Bool

	return func(yield func([]*Document, error) bool) {
		if used.Swap(true) {
			yield(nil, ErrSubscriptionConsumed)
			return
		}

		changed, cancel := n.Watch(collection)
		defer cancel()

		last := ""
		first := true
		for {
			if err := ctx.Err(); err != nil {
				return
			}

			docs, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					yield(nil, err)
				}
				return
			}

			if sig := signature(docs); first || sig != last {
				first = false
				last = sig
				if !yield(docs, nil) {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}
}

// signature identifies a result set by ids and revisions.
func signature(docs []*Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.ID)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(d.Revision, 10))
		b.WriteByte(';')
	}
	return b.String()
}
