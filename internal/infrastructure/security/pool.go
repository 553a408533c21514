package security

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many CPU-heavy jobs (bcrypt, zxcvbn) run at once so a
// burst of signups cannot monopolise every core. Jobs run on the caller's
// goroutine once a slot is acquired; waiting honours ctx.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Do runs fn in a slot. A nil pool runs fn directly.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if p == nil {
		fn()
		return nil
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	fn()
	return nil
}
