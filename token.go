package coop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrTokenClosed is returned by Token.Wait when the token is closed
// before cancellation was ever requested.
var ErrTokenClosed = errors.New("coop: token closed without cancellation")

const (
	tokenIdle uint32 = iota
	tokenRequested
	tokenClosed
)

// Token is a shareable capability carrying a one-way "cancellation
// requested" flag. The flag only ever transitions false to true, and a
// transition made on one goroutine is observed by every subsequent
// IsRequested call on any other goroutine.
//
// Tokens compose: a child token's effective requested state is its own
// flag ORed with its parent chain's. Requesting a child never affects
// the parent. Tokens carry no timer logic; a timeout is an external
// timer calling Request after a deadline.
type Token struct {
	parent *Token
	state  atomic.Uint32
	noop   bool

	mu       sync.Mutex
	done     chan struct{} // closed at most once to wake waiters
	woken    bool
	children []*Token
}

// NewToken returns a fresh root token with cancellation not requested.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

var noopToken = &Token{noop: true, done: make(chan struct{})}

// None returns the no-op token: never requested, Request is a no-op,
// and Wait resolves only through the caller's context. It is the
// default binding for operations started without a token, matching
// "no one will ever cancel this."
func None() *Token {
	return noopToken
}

// IsRequested reports the token's effective requested state: its own
// flag ORed with every ancestor's. It never blocks and is safe to call
// from any goroutine.
func (t *Token) IsRequested() bool {
	for ; t != nil; t = t.parent {
		if t.state.Load() == tokenRequested {
			return true
		}
	}
	return false
}

// Request sets the token's requested flag. It is idempotent: calling
// it multiple times, concurrently or not, has the same effect as
// calling it once. Waiters on this token and on every descendant are
// released. Requesting a closed or no-op token has no effect.
func (t *Token) Request() {
	if t.noop {
		return
	}
	if !t.state.CompareAndSwap(tokenIdle, tokenRequested) {
		return
	}
	t.wakeTree()

	// A requested token no longer needs ancestor cascades: its own
	// waiters and subtree are already woken, and later waiters see the
	// flag directly. Detach so a long-lived parent does not retain it.
	// A closed token, by contrast, stays registered: it still conducts
	// ancestor requests to its own children.
	if p := t.parent; p != nil {
		p.detach(t)
	}
}

// Close resolves this token's waiters with ErrTokenClosed. It does not
// affect descendants: they can still be requested independently or
// through other ancestors. Closing an already-requested token has no
// effect.
func (t *Token) Close() {
	if t.noop {
		return
	}
	if !t.state.CompareAndSwap(tokenIdle, tokenClosed) {
		return
	}
	t.wakeSelf()
}

// Child returns a new token whose effective requested state ORs with
// this token's. A child created after the parent was requested is
// effectively requested from birth.
func (t *Token) Child() *Token {
	c := NewToken()

	if t == nil || t.noop {
		return c
	}

	c.parent = t

	t.mu.Lock()
	t.children = append(t.children, c)
	t.mu.Unlock()

	// A request that raced ahead of the registration above may have
	// already swept the children list.
	if t.IsRequested() {
		c.wakeTree()
	}

	return c
}

// Wait blocks the calling goroutine until the token's effective
// requested state becomes true (returns nil), the token is closed
// before being requested (returns ErrTokenClosed), or ctx is done
// (returns ctx.Err()). If the token is already requested it returns
// immediately.
func (t *Token) Wait(ctx context.Context) error {
	if t.IsRequested() {
		return nil
	}
	if t.state.Load() == tokenClosed {
		return ErrTokenClosed
	}

	select {
	case <-t.done:
		if t.IsRequested() {
			return nil
		}
		return ErrTokenClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// detach removes c from the children registry. A no-op if a request
// cascade already swept the registry.
func (t *Token) detach(c *Token) {
	t.mu.Lock()
	for i, x := range t.children {
		if x == c {
			t.children = append(t.children[:i], t.children[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
}

// wakeSelf releases waiters on this token only.
func (t *Token) wakeSelf() {
	t.mu.Lock()
	if !t.woken {
		t.woken = true
		close(t.done)
	}
	t.mu.Unlock()
}

// wakeTree releases waiters on this token and every descendant. A
// closed intermediate token passes the cascade through: its own
// waiters were already resolved, but its children may be waiting on an
// ancestor request.
func (t *Token) wakeTree() {
	t.wakeSelf()

	t.mu.Lock()
	children := t.children
	t.children = nil
	t.mu.Unlock()

	for _, c := range children {
		c.wakeTree()
	}
}
