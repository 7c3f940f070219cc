package zsplice

import "context"

// Tee duplicates up to n bytes from src into dst without consuming them:
// the source pipe's buffered bytes remain fully readable afterward. Both
// endpoints must be pipe-backed. A short count is not an error, and a tee
// of a drained pipe at logical EOF succeeds with zero bytes.
//
// The wait-vs-fail decision is the same as for Splice, keyed off the
// source's readability and the destination's writability.
func Tee(ctx context.Context, src Source, dst Sink, n int, nonblock bool) (int, error) {
	if err := checkTee(src, dst); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	block := blockingAllowed(nonblock, src.Nonblocking(), dst.Nonblocking())
	return transferPipes(ctx, src.Buffer(), dst.Buffer(), n, block, false)
}
