package coop

import (
	"context"
	"sync/atomic"
)

// Func describes a unit of asynchronous work. It runs inside a
// started operation's coroutine, records durable progress through op,
// and suspends at its own checkpoint boundaries. The error return is
// the work's domain-failure case, surfaced inside a Completed outcome;
// it is never used to signal cancellation.
type Func[T any] func(ctx context.Context, op *Op) (T, error)

// Deferred is an inert, single-shot description of asynchronous work.
// Constructing one performs no side effect: the work function is not
// invoked, no resource is acquired, and no collaborator observes
// anything until one of the start methods runs. A never-started
// Deferred can be discarded freely.
type Deferred[T any] struct {
	noCopy  noCopy
	fn      Func[T]
	started atomic.Bool
}

// Defer describes a unit of asynchronous work without performing any
// of it. The returned value is consumed by exactly one start call.
func Defer[T any](fn Func[T]) *Deferred[T] {
	return &Deferred[T]{fn: fn}
}

// Start begins execution bound to the no-op token: the resulting
// handle can never be cancelled, only driven to completion. Panics if
// the Deferred was already started.
func (d *Deferred[T]) Start(ctx context.Context) *Handle[T] {
	return d.StartWith(ctx, None())
}

// StartWith begins execution bound to the supplied token, shared
// between the caller (who may request cancellation later) and the
// handle (which observes it at checkpoints). A nil token means None().
// Panics if the Deferred was already started.
func (d *Deferred[T]) StartWith(ctx context.Context, token *Token) *Handle[T] {
	if token == nil {
		token = None()
	}

	if !d.started.CompareAndSwap(false, true) {
		panic("coop: deferred operation started twice")
	}

	return newHandle(ctx, token, d.fn)
}
