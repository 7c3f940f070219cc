package zsplice

import "context"

// blockingAllowed decides wait-vs-fail for a stalled transfer. Waiting is
// permitted only when every flag agrees: the per-call override is unset and
// both endpoints were opened blocking. A single non-blocking endpoint makes
// the whole call fail fast, even when the call itself did not ask for it.
func blockingAllowed(override, srcNonblock, dstNonblock bool) bool {
	return !override && !srcNonblock && !dstNonblock
}

// waitReady parks the caller until ready is retired or ctx is cancelled.
// The caller must not hold any buffer lock; it re-checks state after waking.
func waitReady(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ErrInterrupted
	}
}
