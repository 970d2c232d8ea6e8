//go:build linux

package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
	"github.com/connected-data-lake/cdl/internal/log"
)

var logger = log.Of("pipeline")

// defaultPacketSize bounds a single splice call, standing in for the
// io-uring submission queue's per-entry transfer unit.
const defaultPacketSize = 256 * 1024

// Wait runs every edge to completion on the calling goroutine (one inner
// goroutine per edge, joined before return), then releases all fds. It
// returns the first error encountered across edges, if any.
func (tc *TaskContext) Wait(ctx context.Context) error {
	return tc.run(ctx)
}

// IntoNode spawns the transfer onto a worker goroutine and returns a
// channel that receives the single completion error.
func (tc *TaskContext) IntoNode(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- tc.run(ctx)
	}()
	return done
}

func (tc *TaskContext) run(ctx context.Context) error {
	defer tc.closeAll()

	if len(tc.edges) == 0 {
		return nil
	}

	var (
		wg             sync.WaitGroup
		firstErr       error
		firstErrOnce   sync.Once
		completedBytes int64
	)
	lastIdx := len(tc.edges) - 1

	for i, e := range tc.edges {
		wg.Add(1)
		go func(i int, e transferEdge) {
			defer wg.Done()
			n, err := spliceAll(ctx, e.in, e.out, e.hint)
			if i == lastIdx {
				atomic.AddInt64(&completedBytes, n)
			}
			if err != nil {
				firstErrOnce.Do(func() { firstErr = err })
			}
		}(i, e)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	logger.Debugf("pipeline completed, %d bytes through final edge", completedBytes)
	return nil
}

// spliceAll drains in to out with splice(2) until EOF (sized sources
// where hint is known) or the generator signals exhaustion (hint == 0,
// the Infinity case: loop until a zero-length splice). It returns the
// total bytes moved.
func spliceAll(ctx context.Context, in, out int, hint uint32) (int64, error) {
	var total int64
	remaining := int64(hint)
	sized := hint != 0

	for {
		select {
		case <-ctx.Done():
			return total, cdlerr.ErrCancelled
		default:
		}

		want := defaultPacketSize
		if sized {
			if remaining <= 0 {
				return total, nil
			}
			if remaining < int64(want) {
				want = int(remaining)
			}
		}

		n, err := unix.Splice(in, nil, out, nil, want, unix.SPLICE_F_NONBLOCK|unix.SPLICE_F_MORE)
		if err != nil {
			if err == unix.EAGAIN {
				runtime.Gosched()
				continue
			}
			return total, cdlerr.NewIoError("splice", err)
		}
		if n == 0 {
			return total, nil
		}
		total += n
		if sized {
			remaining -= n
		}
	}
}
