package zsplice

import (
	"context"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/zhihanii/zlog"
)

// Pump copies from src to dst until the source is exhausted, staging the
// bytes through an intermediate pipe so the two sides may be any endpoint
// kinds, including pairs that could not be spliced directly. It returns the
// total number of bytes moved. Endpoints opened non-blocking surface
// ErrWouldBlock here like everywhere else; Pump does not retry for them.
func Pump(ctx context.Context, src Source, dst Sink) (int64, error) {
	pr, pw := NewPipe()
	defer pr.Close()
	defer pw.Close()

	chunk := pr.Buffer().Cap()
	var total int64
	for {
		n, err := Splice(ctx, src, nil, pw, nil, chunk, false)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		for drained := 0; drained < n; {
			m, err := Splice(ctx, pr, nil, dst, nil, n-drained, false)
			drained += m
			total += int64(m)
			if err != nil {
				return total, err
			}
		}
	}
}

// Relay pumps both directions between two connected sockets until each
// sending side reaches EOF, dispatching the directions on the shared
// goroutine pool. When one direction drains cleanly its destination's
// sending side is shut down so the far end observes EOF. The first failure,
// if any, is returned once both directions have stopped.
func Relay(ctx context.Context, a, b *Socket) error {
	results := make(chan error, 2)
	run := func(src, dst *Socket) {
		gopool.CtxGo(ctx, func() {
			_, err := Pump(ctx, src, dst)
			if err != nil {
				zlog.Errorf("relay: pump failed: %v", err)
			} else {
				dst.CloseWrite()
			}
			results <- err
		})
	}
	run(a, b)
	run(b, a)

	var first error
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil && first == nil {
			first = err
		}
	}
	return first
}
