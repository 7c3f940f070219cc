package zsplice

import (
	"context"
	"errors"
	"io"
)

// Splice moves up to n bytes from src to dst, consuming from src. It
// returns the number of bytes moved; a short count is not an error. Explicit
// offsets select positioned I/O on seekable endpoints without moving their
// implicit cursors, and are advanced in place by the amount moved.
//
// When nothing can move yet, the call waits only if nonblock is unset and
// both endpoints were opened blocking; otherwise it fails with
// ErrWouldBlock. Once any bytes have moved in the call it never waits
// again: a short result is preferred over blocking after partial success.
// Cancelling ctx while parked fails the call with ErrInterrupted.
func Splice(ctx context.Context, src Source, srcOff *int64, dst Sink, dstOff *int64, n int, nonblock bool) (int, error) {
	if err := checkSplice(src, srcOff, dst, dstOff); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	block := blockingAllowed(nonblock, src.Nonblocking(), dst.Nonblocking())

	// both sides pipe-backed: move between the rings directly
	if sp, dp := src.Buffer(), dst.Buffer(); sp != nil && dp != nil {
		return transferPipes(ctx, sp, dp, n, block, true)
	}

	var srcPos, dstPos int64
	if srcOff != nil {
		srcPos = *srcOff
	}
	if dstOff != nil {
		dstPos = *dstOff
	}
	defer func() {
		if srcOff != nil {
			*srcOff = srcPos
		}
		if dstOff != nil {
			*dstOff = dstPos
		}
	}()

	moved := 0
	for moved < n {
		// the claim pins the peeked bytes until they are discarded, so a
		// competing read on src cannot consume them mid-pass
		src.claimRead()
		var b []byte
		var err error
		if srcOff != nil {
			b, err = src.PeekAt(srcPos, n-moved)
		} else {
			b, err = src.Peek(n - moved)
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			src.releaseRead()
			return moved, nil
		case errors.Is(err, errAgain):
			src.releaseRead()
			if moved > 0 {
				return moved, nil
			}
			if !block {
				return 0, ErrWouldBlock
			}
			if werr := waitReady(ctx, src.ReadReady()); werr != nil {
				return 0, werr
			}
			continue
		default:
			src.releaseRead()
			return moved, err
		}

		var m int
		if dstOff != nil {
			m, err = dst.PushAt(b, dstPos)
		} else {
			m, err = dst.Push(b)
		}
		if m > 0 {
			if srcOff != nil {
				srcPos += int64(m)
			} else {
				src.Discard(m)
			}
			if dstOff != nil {
				dstPos += int64(m)
			}
			moved += m
		}
		src.releaseRead()
		if err != nil {
			if errors.Is(err, errAgain) {
				if moved > 0 {
					return moved, nil
				}
				if !block {
					return 0, ErrWouldBlock
				}
				if werr := waitReady(ctx, dst.WriteReady()); werr != nil {
					return 0, werr
				}
				continue
			}
			// the partial count survives a broken destination
			return moved, err
		}
	}
	return moved, nil
}

// transferPipes runs the pass loop shared by pipe-to-pipe splice and tee.
func transferPipes(ctx context.Context, sp, dp *Pipe, n int, block, consume bool) (int, error) {
	moved := 0
	for moved < n {
		skip := 0
		if !consume {
			skip = moved
		}
		m, ready, err := movePipes(sp, dp, skip, n-moved, consume)
		moved += m
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errAgain) {
			if moved > 0 {
				break
			}
			if !block {
				return 0, ErrWouldBlock
			}
			if werr := waitReady(ctx, ready); werr != nil {
				return 0, werr
			}
			continue
		}
		return moved, err
	}
	return moved, nil
}

// movePipes copies one pass of bytes between two distinct pipe buffers,
// holding both locks. The amount is clamped to min(n, source bytes past
// skip, destination space). When nothing can move it reports which side
// stalled through the returned wait channel. skip is nonzero only for tee,
// which walks past bytes it already duplicated without consuming them.
func movePipes(sp, dp *Pipe, skip, n int, consume bool) (int, <-chan struct{}, error) {
	lockPipes(sp, dp)
	defer func() {
		sp.mu.Unlock()
		dp.mu.Unlock()
	}()

	if dp.readers == 0 {
		return 0, nil, ErrBrokenPipe
	}
	avail := sp.bufferedLocked() - skip
	if avail <= 0 {
		if sp.writers == 0 {
			return 0, nil, io.EOF
		}
		return 0, sp.rwait, errAgain
	}
	space := dp.spaceLocked()
	if space == 0 {
		return 0, dp.wwait, errAgain
	}

	k := n
	if k > avail {
		k = avail
	}
	if k > space {
		k = space
	}
	copied := 0
	for copied < k {
		roff := int((sp.rpos + uint64(skip+copied)) % uint64(len(sp.buf)))
		woff := int(dp.wpos % uint64(len(dp.buf)))
		step := k - copied
		if rest := len(sp.buf) - roff; step > rest {
			step = rest
		}
		if rest := len(dp.buf) - woff; step > rest {
			step = rest
		}
		copy(dp.buf[woff:woff+step], sp.buf[roff:roff+step])
		dp.wpos += uint64(step)
		copied += step
	}
	dp.wakeReadersLocked()
	if consume {
		sp.rpos += uint64(k)
		if sp.rpos == sp.wpos {
			sp.rpos, sp.wpos = 0, 0
		}
		sp.wakeWritersLocked()
	}
	return k, nil, nil
}

// lockPipes takes both buffer locks in identity order so that two transfers
// referencing the same pair in opposite directions cannot deadlock.
func lockPipes(a, b *Pipe) {
	if a.id < b.id {
		a.mu.Lock()
		b.mu.Lock()
	} else {
		b.mu.Lock()
		a.mu.Lock()
	}
}
