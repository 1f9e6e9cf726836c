package coop

import (
	"context"
	"fmt"
	"runtime/trace"

	"github.com/webriots/coro"
)

const (
	opTraceTaskType   = "coop-op"
	opTraceRegionType = "coop-region"
	opTraceCategory   = "coop"
)

// Outcome is the terminal result of a driven operation. The same
// representation carries both terminal paths: Completed (Cancelled
// false; Value and Err hold the work function's returns) and Cancelled
// (Cancelled true; Value is zero and Err is nil, since cancellation is
// not an error). Progress is exposed identically on both paths.
type Outcome[T any] struct {
	Value     T
	Err       error
	Progress  int
	Cancelled bool
}

// Runner is the non-generic surface of a running operation, enough
// for a scheduler to drive heterogeneous handles to their terminal
// outcomes.
type Runner interface {
	// Step performs one drive step and reports whether the operation
	// is still running.
	Step() bool
	// Done reports whether a terminal outcome has been set.
	Done() bool
	// Progress returns the last durable progress value recorded.
	Progress() int
	// Err returns the domain failure of a Completed outcome, if any.
	// It is nil while running and nil on the Cancelled path.
	Err() error
}

// Handle is a running operation: a Deferred that has been started and
// bound to a token. Exactly one scheduler drives a given handle at a
// time by calling Step until a terminal outcome is produced; handle
// state is mutated only by drive steps. Once terminal, the outcome is
// immutable and further token requests have no observable effect.
type Handle[T any] struct {
	op      *Op
	resume  func(struct{}) (struct{}, bool)
	cancel  func()
	tracer  *trace.Task
	value   T
	err     error
	outcome *Outcome[T]
}

func newHandle[T any](ctx context.Context, token *Token, fn Func[T]) *Handle[T] {
	h := &Handle[T]{}

	ctx, h.tracer = trace.NewTask(ctx, opTraceTaskType)

	h.op = &Op{ctx: ctx, token: token}
	ctx = withOpContext(ctx, h.op)

	h.resume, h.cancel = coro.New(
		func(yield func(struct{}) struct{}, suspend func() struct{}) (z struct{}) {
			region := trace.StartRegion(ctx, opTraceRegionType)
			defer region.End()

			h.op.yield = yield
			h.op.suspend = suspend

			h.value, h.err = fn(ctx, h.op)
			return
		},
	)

	h.op.log("START")
	return h
}

// Step performs one drive step: it consults the bound token at the
// handle's current suspension point and, if cancellation is requested,
// unwinds the suspended work function (its defers run) and transitions
// to Cancelled with the progress durably recorded so far; otherwise it
// resumes the work function until its next checkpoint or return, a
// return transitioning to Completed. Step reports whether the
// operation is still running. Panics if the handle is already
// terminal.
func (h *Handle[T]) Step() bool {
	if h.outcome != nil {
		panic("coop: drive step on terminal handle")
	}

	if h.op.token.IsRequested() {
		// Unwind before snapshotting progress so cleanup that settles
		// an in-flight unit is still counted. Cancel also covers the
		// never-resumed case: the coroutine parked awaiting its first
		// resume must be released, not abandoned.
		h.cancel()
		h.terminal(&Outcome[T]{Progress: h.op.progress, Cancelled: true})
		h.op.log("CANCELLED")
		return false
	}

	h.op.log("STEP")

	if _, ok := h.resume(struct{}{}); ok {
		return true
	}

	h.cancel()
	h.terminal(&Outcome[T]{Value: h.value, Err: h.err, Progress: h.op.progress})
	h.op.log("COMPLETED")
	return false
}

// Drive steps the handle until it reaches a terminal outcome and
// returns that outcome. It is a convenience for callers that do not
// interleave the handle with other work.
func (h *Handle[T]) Drive() Outcome[T] {
	for h.Step() {
	}
	outcome, _ := h.Outcome()
	return outcome
}

// Done reports whether the handle has reached a terminal outcome.
func (h *Handle[T]) Done() bool {
	return h.outcome != nil
}

// Outcome returns the terminal outcome and whether one has been set.
func (h *Handle[T]) Outcome() (Outcome[T], bool) {
	if h.outcome == nil {
		var zero Outcome[T]
		return zero, false
	}
	return *h.outcome, true
}

// Progress returns the last durable progress value recorded by the
// work function. It never decreases across drive steps, and it equals
// the Progress of the terminal outcome once one is set.
func (h *Handle[T]) Progress() int {
	if h.outcome != nil {
		return h.outcome.Progress
	}
	return h.op.progress
}

// Err returns the domain failure of a Completed outcome. It is nil
// while the handle is running and nil on the Cancelled path.
func (h *Handle[T]) Err() error {
	if h.outcome == nil || h.outcome.Cancelled {
		return nil
	}
	return h.outcome.Err
}

// Cancelled reports whether the handle terminated on the Cancelled
// path.
func (h *Handle[T]) Cancelled() bool {
	return h.outcome != nil && h.outcome.Cancelled
}

// Token returns the token the handle was bound to at start.
func (h *Handle[T]) Token() *Token {
	return h.op.token
}

func (h *Handle[T]) terminal(outcome *Outcome[T]) {
	h.outcome = outcome
	h.tracer.End()
}

// Op is the checkpoint surface handed to a work function. Progress
// recorded through it is the operation's contract with its caller:
// every unit counted must have durably landed in caller-owned state.
// The drive protocol consults the bound token only while the work
// function is suspended, so a checkpoint is the only place
// cancellation can take effect.
type Op struct {
	ctx      context.Context
	token    *Token
	yield    func(struct{}) struct{}
	suspend  func() struct{}
	progress int
}

// Report records durable progress without suspending. Progress is
// monotone; Report panics if n is less than the last recorded value.
func (op *Op) Report(n int) {
	if n < op.progress {
		panic("coop: progress decreased")
	}
	op.progress = n
}

// Suspend parks the work function until the next drive step. This is
// a checkpoint: the drive protocol observes the bound token here.
func (op *Op) Suspend() {
	op.log("SUSPEND")
	op.suspend()
}

// Yield records durable progress and suspends until the next drive
// step. Equivalent to Report followed by Suspend.
func (op *Op) Yield(n int) {
	op.Report(n)
	op.logf("YIELD %d", n)
	op.suspend()
}

// Requested reports the bound token's effective requested state. Work
// functions normally rely on the drive protocol's checkpoint
// observation instead, but a primitive may consult this to release
// resources early within a unit.
func (op *Op) Requested() bool {
	return op.token.IsRequested()
}

// Progress returns the last durable progress value recorded.
func (op *Op) Progress() int {
	return op.progress
}

// Token returns the bound token.
func (op *Op) Token() *Token {
	return op.token
}

func (op *Op) log(msg string) {
	if trace.IsEnabled() {
		trace.Logf(op.ctx, opTraceCategory, "%p %s", op, msg)
	}
}

func (op *Op) logf(format string, args ...any) {
	if trace.IsEnabled() {
		trace.Logf(op.ctx, opTraceCategory, "%p %s", op, fmt.Sprintf(format, args...))
	}
}
