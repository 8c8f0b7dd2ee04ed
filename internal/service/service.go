// Package service orchestrates bookcase, book, progress, note and goal
// operations: read the document, apply a pure transform, write it back
// guarded by its revision. Every call names the acting user explicitly.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
	"github.com/bookcaseapp/bookcase-server/internal/store"
)

// maxWriteAttempts bounds how often a transform is re-applied after losing
// a revision race.
const maxWriteAttempts = 3

// conflictBackoff is the base pause after a lost revision race. The pause
// grows with each attempt and carries up to the same amount of jitter so
// competing writers spread out.
var conflictBackoff = 5 * time.Millisecond

// ErrConcurrentModification is returned when every attempt lost a revision race.
var ErrConcurrentModification = domainerrors.Conflict("modified concurrently, please retry")

// retryOnConflict runs attempt until it succeeds, fails with anything but a
// revision conflict, or maxWriteAttempts is reached.
func retryOnConflict(ctx context.Context, attempt func() error) error {
	var err error
	for n := range maxWriteAttempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = attempt()
		if !errors.Is(err, store.ErrRevisionConflict) {
			return err
		}
		if n < maxWriteAttempts-1 {
			if waitErr := sleepCtx(ctx, backoff(n)); waitErr != nil {
				return waitErr
			}
		}
	}
	return ErrConcurrentModification.WithCause(err)
}

// backoff returns the pause before retry n+1.
func backoff(n int) time.Duration {
	if conflictBackoff <= 0 {
		return 0
	}
	base := conflictBackoff * time.Duration(n+1)
	return base + rand.N(conflictBackoff)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// translate maps store errors onto domain errors. notFound is used for a
// missing document.
func translate(err error, notFound *domainerrors.Error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		if notFound != nil {
			return notFound.WithCause(err)
		}
		return domainerrors.ErrNotFound.WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.ErrAlreadyExists.WithCause(err)
	case errors.Is(err, store.ErrRevisionConflict):
		return ErrConcurrentModification.WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid input")
	default:
		return domainerrors.StoreFailure(err)
	}
}
