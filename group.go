package coop

import "github.com/gammazero/deque"

// Group drives a set of operations bound to a shared child token and
// collects the first domain failure. When a member completes with an
// error, the group requests its token, so members still running stop
// at their next checkpoint with their partial progress intact.
// Cancellation itself is not an error: a group whose members were all
// cancelled externally waits clean.
type Group struct {
	noCopy noCopy
	token  *Token
	q      deque.Deque[Runner]
	err    error
}

// NewGroup returns a group whose token is a child of parent, or a
// fresh root token when parent is nil. Members are started with
// StartWith(ctx, g.Token()) and handed to Add.
func NewGroup(parent *Token) *Group {
	return &Group{token: parent.Child()}
}

// Token returns the group's shared token. Requesting it (directly or
// through an ancestor) cancels every member cooperatively.
func (g *Group) Token() *Token {
	return g.token
}

// Add enqueues running operations for the group to drive.
func (g *Group) Add(runners ...Runner) {
	for _, r := range runners {
		if r.Done() {
			g.settle(r)
			continue
		}
		g.q.PushBack(r)
	}
}

// Wait drives all members round-robin to their terminal outcomes and
// returns the first domain failure encountered, or nil.
func (g *Group) Wait() error {
	for g.q.Len() > 0 {
		r := g.q.PopFront()
		if r.Step() {
			g.q.PushBack(r)
			continue
		}
		g.settle(r)
	}
	return g.err
}

func (g *Group) settle(r Runner) {
	if err := r.Err(); err != nil && g.err == nil {
		g.err = err
		g.token.Request()
	}
}
