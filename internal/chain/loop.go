package chain

import (
	"context"
	"errors"
	"sync"
)

var ErrLoopClosed = errors.New("chain: loop is not running")

// Loop drives a Chain without a UI toolkit. All chain access happens on the
// goroutine running Run; fetches run on their own goroutines and post their
// results back to it.
type Loop struct {
	chain  *Chain
	notify func(Notice)

	events  chan func(context.Context)
	done    chan struct{}
	fetches sync.WaitGroup

	// owned by the Run goroutine
	inflight int
	waiters  []chan struct{}
}

// NewLoop wraps c. notify, if non-nil, receives every Notice on the loop
// goroutine.
func NewLoop(c *Chain, notify func(Notice)) *Loop {
	return &Loop{
		chain:  c,
		notify: notify,
		events: make(chan func(context.Context)),
		done:   make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled, then waits for outstanding
// fetches to return.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.fetches.Wait()
			return ctx.Err()
		case ev := <-l.events:
			ev(ctx)
		}
	}
}

func (l *Loop) Init(ctx context.Context) error {
	return l.Do(ctx, func(c *Chain) ([]Request, error) {
		return c.Init(), nil
	})
}

func (l *Loop) Select(ctx context.Context, key, value string) error {
	return l.Do(ctx, func(c *Chain) ([]Request, error) {
		return c.Select(key, value)
	})
}

func (l *Loop) Reload(ctx context.Context, key string) error {
	return l.Do(ctx, func(c *Chain) ([]Request, error) {
		req, err := c.Reload(key)
		if err != nil {
			return nil, err
		}
		return []Request{req}, nil
	})
}

// View runs fn on the loop goroutine for read access.
func (l *Loop) View(ctx context.Context, fn func(c *Chain)) error {
	return l.Do(ctx, func(c *Chain) ([]Request, error) {
		fn(c)
		return nil, nil
	})
}

// Do runs fn on the loop goroutine and dispatches the requests it returns.
func (l *Loop) Do(ctx context.Context, fn func(c *Chain) ([]Request, error)) error {
	errc := make(chan error, 1)
	ev := func(runCtx context.Context) {
		reqs, err := fn(l.chain)
		l.dispatch(runCtx, reqs)
		errc <- err
	}
	if err := l.post(ctx, ev); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Settle blocks until no fetch is in flight.
func (l *Loop) Settle(ctx context.Context) error {
	idle := make(chan struct{})
	ev := func(context.Context) {
		if l.inflight == 0 {
			close(idle)
			return
		}
		l.waiters = append(l.waiters, idle)
	}
	if err := l.post(ctx, ev); err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

func (l *Loop) post(ctx context.Context, ev func(context.Context)) error {
	select {
	case l.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

func (l *Loop) dispatch(ctx context.Context, reqs []Request) {
	for _, req := range reqs {
		l.inflight++
		l.fetches.Add(1)
		go func(req Request) {
			defer l.fetches.Done()
			res := req.Exec(ctx)
			select {
			case l.events <- func(context.Context) { l.apply(res) }:
			case <-ctx.Done():
			}
		}(req)
	}
}

func (l *Loop) apply(res Result) {
	l.inflight--
	out := l.chain.Apply(res)
	if out.Notice != nil && l.notify != nil {
		l.notify(*out.Notice)
	}
	if l.inflight == 0 {
		for _, w := range l.waiters {
			close(w)
		}
		l.waiters = nil
	}
}
