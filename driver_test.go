package coop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDriverDrivesAll(t *testing.T) {
	r := require.New(t)

	h1 := Defer(countdown(3)).Start(context.Background())
	h2 := Defer(countdown(7)).Start(context.Background())
	h3 := Defer(countdown(1)).Start(context.Background())

	var d Driver
	d.Add(h1, h2, h3)
	r.Equal(3, d.Pending())

	d.Drive()
	r.Equal(0, d.Pending())

	for _, h := range []*Handle[int]{h1, h2, h3} {
		r.True(h.Done())
		r.False(h.Cancelled())
	}
	r.Equal(3, h1.Progress())
	r.Equal(7, h2.Progress())
	r.Equal(1, h3.Progress())
}

func TestDriverTick(t *testing.T) {
	r := require.New(t)

	h := Defer(countdown(2)).Start(context.Background())

	var d Driver
	d.Add(h)

	r.True(d.Tick()) // yields 1
	r.Equal(1, h.Progress())
	r.True(d.Tick())  // yields 2
	r.False(d.Tick()) // returns
	r.True(h.Done())
}

func TestDriverSkipsTerminal(t *testing.T) {
	r := require.New(t)

	h := Defer(countdown(1)).Start(context.Background())
	h.Drive()

	var d Driver
	d.Add(h)
	r.Equal(0, d.Pending())
	d.Drive()
}

func TestDriverConcurrentRequest(t *testing.T) {
	r := require.New(t)

	tok := NewToken()

	// Endless until cancelled: the drive loop terminating at all pins
	// the liveness of a request made from another goroutine.
	endless := Defer(func(_ context.Context, op *Op) (int, error) {
		for i := 1; ; i++ {
			op.Yield(i)
		}
	}).StartWith(context.Background(), tok)

	finite := Defer(countdown(5)).Start(context.Background())

	var d Driver
	d.Add(endless, finite)
	r.True(d.Tick())
	r.GreaterOrEqual(endless.Progress(), 1)

	timer := time.AfterFunc(5*time.Millisecond, tok.Request)
	defer timer.Stop()

	d.Drive()

	r.True(endless.Cancelled())
	outcome, ok := endless.Outcome()
	r.True(ok)
	r.Equal(endless.Progress(), outcome.Progress)
	r.GreaterOrEqual(outcome.Progress, 1)

	r.True(finite.Done())
	r.False(finite.Cancelled())
	r.Equal(5, finite.Progress())
}

func TestGroupFirstErrorCancelsSiblings(t *testing.T) {
	r := require.New(t)

	wedged := errors.New("transport wedged")
	healthy := &chunkTransport{chunk: 10}
	broken := &chunkTransport{chunk: 10, failAt: 2, err: wedged}

	buf1 := make([]int, 100)
	buf2 := make([]int, 100)

	g := NewGroup(nil)
	h1 := ReadInto[int](healthy, buf1).StartWith(context.Background(), g.Token())
	h2 := ReadInto[int](broken, buf2).StartWith(context.Background(), g.Token())
	g.Add(h1, h2)

	r.ErrorIs(g.Wait(), wedged)
	r.True(g.Token().IsRequested())

	// The failing member completed with its domain error and the
	// elements it had moved.
	r.False(h2.Cancelled())
	r.ErrorIs(h2.Err(), wedged)
	r.Equal(10, h2.Progress())

	// The healthy sibling was cancelled at its next checkpoint with
	// its partial progress intact.
	r.True(h1.Cancelled())
	r.Equal(20, h1.Progress())
	for i := 0; i < 20; i++ {
		r.Equal(i+1, buf1[i])
	}
}

func TestGroupClean(t *testing.T) {
	r := require.New(t)

	g := NewGroup(nil)
	h1 := Defer(countdown(4)).StartWith(context.Background(), g.Token())
	h2 := Defer(countdown(2)).StartWith(context.Background(), g.Token())
	g.Add(h1, h2)

	r.NoError(g.Wait())
	r.False(g.Token().IsRequested())
	r.False(h1.Cancelled())
	r.False(h2.Cancelled())
}

func TestGroupExternalCancelIsNotAnError(t *testing.T) {
	r := require.New(t)

	parent := NewToken()
	g := NewGroup(parent)

	src1 := &chunkTransport{chunk: 10}
	src2 := &chunkTransport{chunk: 10}
	h1 := ReadInto[int](src1, make([]int, 100)).StartWith(context.Background(), g.Token())
	h2 := ReadInto[int](src2, make([]int, 100)).StartWith(context.Background(), g.Token())
	g.Add(h1, h2)

	parent.Request()

	r.NoError(g.Wait())
	r.True(h1.Cancelled())
	r.True(h2.Cancelled())
	r.Equal(0, h1.Progress())
	r.Equal(0, src1.calls)
}

func TestGroupTokenIsChild(t *testing.T) {
	r := require.New(t)

	parent := NewToken()
	g := NewGroup(parent)

	g.Token().Request()
	r.False(parent.IsRequested())
	r.True(g.Token().IsRequested())
}
