package repository

import (
	"context"

	"medshelf/m/domain"
)

// Future is the pending result of an operation started in the background.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the operation finishes and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// AddAsync runs Add in the background.
func (r *Repository) AddAsync(ctx context.Context, c domain.Candidate) *Future[domain.Medicine] {
	return goFuture(func() (domain.Medicine, error) { return r.Add(ctx, c) })
}

// ListAsync runs List in the background.
func (r *Repository) ListAsync(ctx context.Context, query string) *Future[[]domain.Medicine] {
	return goFuture(func() ([]domain.Medicine, error) { return r.List(ctx, query) })
}

// DeleteAsync runs Delete in the background.
func (r *Repository) DeleteAsync(ctx context.Context, id int64) *Future[bool] {
	return goFuture(func() (bool, error) { return r.Delete(ctx, id) })
}
