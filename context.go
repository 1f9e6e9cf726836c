package coop

import "context"

// opContextKey is a unique type used as a key for storing Op values in
// a context.
type opContextKey struct{}

// withOpContext creates a new context carrying the operation's Op.
// The context handed to a work function always carries its own Op.
func withOpContext(ctx context.Context, op *Op) context.Context {
	return context.WithValue(ctx, opContextKey{}, op)
}

// OpFromContext retrieves the Op from a work function's context, so
// helpers deep in the call stack can record progress and checkpoint
// without threading the Op explicitly. Returns the Op and whether one
// was found.
func OpFromContext(ctx context.Context) (*Op, bool) {
	val, ok := ctx.Value(opContextKey{}).(*Op)
	return val, ok
}

// MustOpFromContext retrieves the Op from a context, panicking if not
// found. This function is useful when the caller expects the context
// to definitely belong to a running operation.
func MustOpFromContext(ctx context.Context) *Op {
	val, ok := ctx.Value(opContextKey{}).(*Op)
	if !ok {
		panic("coop: op not found in context")
	}
	return val
}
