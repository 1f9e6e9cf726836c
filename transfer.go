package coop

import "context"

// Transport is the external collaborator behind a bounded transfer:
// attempt one bounded unit of transfer into dst and report how many
// elements were moved, or an error. Implementations know nothing about
// tokens; cancellation is handled entirely by the drive protocol
// polling between attempts.
type Transport[E any] interface {
	Transfer(ctx context.Context, dst []E) (int, error)
}

// ReadInto describes a read of up to len(buf) elements from src into
// the caller-owned buf. Progress is reported in elements durably
// written into buf: a count recorded at a checkpoint is already in the
// buffer, never ahead of it.
//
// One transport attempt is the atomic unit: the bound token is
// observed only between attempts, so a cancelled read terminates as
// Cancelled(n) with buf[:n] valid. A transport error terminates as
// Completed with the elements moved so far and the error untouched,
// a distinct outcome from cancellation in both directions.
func ReadInto[E any](src Transport[E], buf []E) *Deferred[int] {
	return Defer(func(ctx context.Context, op *Op) (int, error) {
		filled := 0
		for filled < len(buf) {
			n, err := src.Transfer(ctx, buf[filled:])
			if n < 0 || n > len(buf)-filled {
				panic("coop: transport reported out-of-range element count")
			}
			filled += n
			op.Report(filled)
			if err != nil {
				return filled, err
			}
			if filled < len(buf) {
				op.Suspend()
			}
		}
		return filled, nil
	})
}
