// Package coop provides cooperative cancellation for asynchronous
// operations that must preserve partial progress when interrupted.
// Operations are described as inert deferred values, optionally bound
// to a cancellation token at start time, and driven to a terminal
// outcome by an external scheduler loop.
//
// Key components:
//
//   - Token: A shareable capability carrying a one-way "cancellation
//     requested" flag with cross-goroutine visibility guarantees and
//     parent/child composition. Requesting a child never affects its
//     parent.
//
//   - Deferred: An inert, single-shot description of asynchronous
//     work. It performs no side effect until started, and starting is
//     where cancellation support is (optionally) attached: Start binds
//     the no-op token, StartWith binds a caller-supplied one.
//
//   - Handle: Produced by starting a Deferred. An external scheduler
//     calls Step until the handle reaches a terminal outcome: either
//     Completed, carrying the work's result, or Cancelled, carrying
//     the progress durably made before cancellation was honored. Both
//     outcomes expose progress identically.
//
//   - Op: The checkpoint surface handed to a work function. The
//     function records durable progress and suspends at its own
//     checkpoint boundaries; the drive protocol consults the token
//     only at those boundaries, so cancellation never discards or
//     corrupts a partially-completed unit of work.
//
//   - Driver/Group: Schedulers for driving several handles. A Group
//     binds its members to a shared child token and requests it on the
//     first domain failure, so siblings stop with their partial
//     progress intact.
//
//   - Transport/ReadInto: A reference interruptible primitive, a
//     bounded element transfer into a caller-owned buffer, built on
//     the pieces above.
//
// Cancellation is advisory and cooperative: it is observed at
// checkpoints, never forced, and it is a first-class terminal outcome
// distinct from both success and domain failure.
package coop
