package store

import (
	"context"
	"errors"
	"iter"
	"time"
)

// Observer receives the outcome of every document store call.
type Observer interface {
	ObserveStoreOp(backend, op string, err error, elapsed time.Duration)
}

// Instrumented reports each call of the wrapped DocumentStore to an Observer.
type Instrumented struct {
	next     DocumentStore
	backend  string
	observer Observer
}

var _ DocumentStore = (*Instrumented)(nil)

// Instrument wraps docs so every call is reported to observer.
func Instrument(docs DocumentStore, backend string, observer Observer) *Instrumented {
	return &Instrumented{next: docs, backend: backend, observer: observer}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	// Lookup misses and lost races are expected outcomes, not failures.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRevisionConflict) {
		err = nil
	}
	i.observer.ObserveStoreOp(i.backend, op, err, time.Since(start))
}

// Create implements DocumentStore.
func (i *Instrumented) Create(ctx context.Context, collection, id string, fields Fields) (*Document, error) {
	start := time.Now()
	doc, err := i.next.Create(ctx, collection, id, fields)
	i.observe("create", start, err)
	return doc, err
}

// Get implements DocumentStore.
func (i *Instrumented) Get(ctx context.Context, collection, id string) (*Document, error) {
	start := time.Now()
	doc, err := i.next.Get(ctx, collection, id)
	i.observe("get", start, err)
	return doc, err
}

// UpdateFields implements DocumentStore.
func (i *Instrumented) UpdateFields(ctx context.Context, collection, id string, fields Fields, opts ...UpdateOption) (*Document, error) {
	start := time.Now()
	doc, err := i.next.UpdateFields(ctx, collection, id, fields, opts...)
	i.observe("update", start, err)
	return doc, err
}

// Delete implements DocumentStore.
func (i *Instrumented) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, collection, id)
	i.observe("delete", start, err)
	return err
}

// Query implements DocumentStore.
func (i *Instrumented) Query(ctx context.Context, collection string, preds ...Predicate) ([]*Document, error) {
	start := time.Now()
	docs, err := i.next.Query(ctx, collection, preds...)
	i.observe("query", start, err)
	return docs, err
}

// Subscribe implements DocumentStore. Only the subscription start is reported.
func (i *Instrumented) Subscribe(ctx context.Context, collection string, preds ...Predicate) iter.Seq2[[]*Document, error] {
	i.observe("subscribe", time.Now(), nil)
	return i.next.Subscribe(ctx, collection, preds...)
}

// Close implements DocumentStore.
func (i *Instrumented) Close() error {
	return i.next.Close()
}
