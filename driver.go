package coop

import "github.com/gammazero/deque"

// Driver is a minimal scheduler: a FIFO run queue of running
// operations stepped round-robin until every one reaches a terminal
// outcome. A handle must be driven by at most one Driver.
type Driver struct {
	noCopy noCopy
	q      deque.Deque[Runner]
}

// Add enqueues runners. Already-terminal runners are skipped rather
// than queued, so Add never causes a later Step on a terminal handle.
func (d *Driver) Add(runners ...Runner) {
	for _, r := range runners {
		if r.Done() {
			continue
		}
		d.q.PushBack(r)
	}
}

// Pending returns the number of runners still queued.
func (d *Driver) Pending() int {
	return d.q.Len()
}

// Tick performs one drive step for each currently queued runner,
// re-queueing those still running, and reports whether any remain.
func (d *Driver) Tick() bool {
	for n := d.q.Len(); n > 0; n-- {
		r := d.q.PopFront()
		if r.Step() {
			d.q.PushBack(r)
		}
	}
	return d.q.Len() > 0
}

// Drive ticks until the queue empties.
func (d *Driver) Drive() {
	for d.Tick() {
	}
}
