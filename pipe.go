package zsplice

import (
	"io"
	"sync"
	"sync/atomic"
)

const (
	block4k = 4 * 1024

	pageSize = block4k

	// defaultPipeSize is sixteen pages, matching the usual kernel default.
	defaultPipeSize = 16 * pageSize
)

var pipeID uint64

// Pipe is a bounded circular byte queue shared by one reader end and one
// writer end. filled bytes live in buf between rpos and wpos; both positions
// grow monotonically and are reduced modulo len(buf) on access.
//
// Every state mutation happens under mu. Waiters never hold mu while parked:
// they grab the current rwait/wwait channel under the lock, release it, and
// select on the channel. commit, consume and close events retire the channel
// by closing it and installing a fresh one, so a wakeup is a hint to re-check,
// not a guarantee.
type Pipe struct {
	id uint64

	// rd serializes competing consuming passes: a reader or a transfer
	// claims it for one peek-consume sequence and never holds it parked.
	rd sync.Mutex

	mu   sync.Mutex
	buf  []byte
	rpos uint64
	wpos uint64

	readers int
	writers int

	rwait chan struct{} // retired when data arrives or the last writer leaves
	wwait chan struct{} // retired when space frees or the last reader leaves
}

func newPipe(size int) *Pipe {
	return &Pipe{
		id:      atomic.AddUint64(&pipeID, 1),
		buf:     make([]byte, size),
		readers: 1,
		writers: 1,
		rwait:   make(chan struct{}),
		wwait:   make(chan struct{}),
	}
}

// NewPipe creates a pipe and returns its two ends.
func NewPipe(opts ...Option) (*PipeReader, *PipeWriter) {
	o := new(options)
	for _, opt := range opts {
		opt(o)
	}
	size := o.capacity
	if size <= 0 {
		size = defaultPipeSize
	} else {
		size = align(size, pageSize)
	}
	p := newPipe(size)
	r := &PipeReader{p: p}
	w := &PipeWriter{p: p}
	if o.nonblock {
		r.SetNonblock(true)
		w.SetNonblock(true)
	}
	return r, w
}

// Cap returns the fixed capacity of the pipe.
func (p *Pipe) Cap() int {
	return len(p.buf)
}

// Buffered returns the number of bytes currently queued.
func (p *Pipe) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferedLocked()
}

func align(n, unit int) int {
	if n < unit {
		return unit
	}
	return (n + unit - 1) / unit * unit
}

func (p *Pipe) bufferedLocked() int {
	return int(p.wpos - p.rpos)
}

func (p *Pipe) spaceLocked() int {
	return len(p.buf) - int(p.wpos-p.rpos)
}

func (p *Pipe) wakeReadersLocked() {
	close(p.rwait)
	p.rwait = make(chan struct{})
}

func (p *Pipe) wakeWritersLocked() {
	close(p.wwait)
	p.wwait = make(chan struct{})
}

// peekLocked copies up to n buffered bytes starting skip bytes past the read
// position, leaving the queue untouched.
func (p *Pipe) peekLocked(skip, n int) []byte {
	avail := p.bufferedLocked() - skip
	if avail <= 0 {
		return nil
	}
	if n > avail {
		n = avail
	}
	out := make([]byte, n)
	off := int((p.rpos + uint64(skip)) % uint64(len(p.buf)))
	c := copy(out, p.buf[off:])
	if c < n {
		copy(out[c:], p.buf)
	}
	return out
}

// consumeLocked drops up to n buffered bytes and wakes writers waiting on
// space. Both positions are rewound to zero when the queue drains so long
// running pipes cannot overflow the position counters.
func (p *Pipe) consumeLocked(n int) int {
	if m := p.bufferedLocked(); n > m {
		n = m
	}
	if n == 0 {
		return 0
	}
	p.rpos += uint64(n)
	if p.rpos == p.wpos {
		p.rpos, p.wpos = 0, 0
	}
	p.wakeWritersLocked()
	return n
}

// commitLocked appends up to len(b) bytes, clamped to the free space, and
// wakes readers waiting on data.
func (p *Pipe) commitLocked(b []byte) int {
	n := p.spaceLocked()
	if n > len(b) {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	off := int(p.wpos % uint64(len(p.buf)))
	c := copy(p.buf[off:], b[:n])
	if c < n {
		copy(p.buf, b[c:n])
	}
	p.wpos += uint64(n)
	p.wakeReadersLocked()
	return n
}

func (p *Pipe) closeRead() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readers > 0 {
		p.readers--
	}
	if p.readers == 0 {
		// writers must observe the broken destination, readers the close
		p.wakeWritersLocked()
		p.wakeReadersLocked()
	}
}

func (p *Pipe) closeWrite() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writers > 0 {
		p.writers--
	}
	if p.writers == 0 {
		p.wakeReadersLocked()
		p.wakeWritersLocked()
	}
}

// readReady reports readiness for the consuming side: buffered data or
// logical EOF both qualify.
func (p *Pipe) readReady() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bufferedLocked() > 0 || p.writers == 0 {
		return closedChan
	}
	return p.rwait
}

// writeReady reports readiness for the producing side: free space or a
// broken destination both qualify.
func (p *Pipe) writeReady() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spaceLocked() > 0 || p.readers == 0 {
		return closedChan
	}
	return p.wwait
}

// ------------------------------------------ reader end ------------------------------------------

// PipeReader is the consuming end of a pipe.
type PipeReader struct {
	p        *Pipe
	nonblock int32
	closed   int32
}

// PipeBacked implements Endpoint.
func (r *PipeReader) PipeBacked() bool { return true }

// Seekable implements Endpoint.
func (r *PipeReader) Seekable() bool { return false }

// Nonblocking implements Endpoint.
func (r *PipeReader) Nonblocking() bool { return atomic.LoadInt32(&r.nonblock) != 0 }

// Buffer implements Endpoint.
func (r *PipeReader) Buffer() *Pipe { return r.p }

// SetNonblock switches the end's own open mode, like fcntl(F_SETFL,
// O_NONBLOCK) on a pipe fd.
func (r *PipeReader) SetNonblock(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&r.nonblock, v)
}

// Peek implements Source.
func (r *PipeReader) Peek(n int) ([]byte, error) {
	if atomic.LoadInt32(&r.closed) != 0 {
		return nil, ErrClosed
	}
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if b := p.peekLocked(0, n); b != nil {
		return b, nil
	}
	if p.writers == 0 {
		return nil, io.EOF
	}
	return nil, errAgain
}

// PeekAt implements Source. Pipes hold no positions.
func (r *PipeReader) PeekAt(off int64, n int) ([]byte, error) {
	return nil, ErrIllegalSeek
}

// Discard implements Source.
func (r *PipeReader) Discard(n int) int {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consumeLocked(n)
}

// ReadReady implements Source.
func (r *PipeReader) ReadReady() <-chan struct{} { return r.p.readReady() }

func (r *PipeReader) claimRead()   { r.p.rd.Lock() }
func (r *PipeReader) releaseRead() { r.p.rd.Unlock() }

// Read drains up to len(b) bytes, blocking while the pipe is empty and
// writers remain. It returns io.EOF at logical EOF and ErrWouldBlock when
// the end is in non-blocking mode and no data is buffered.
func (r *PipeReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p := r.p
	for {
		if atomic.LoadInt32(&r.closed) != 0 {
			return 0, ErrClosed
		}
		p.rd.Lock()
		p.mu.Lock()
		if avail := p.bufferedLocked(); avail > 0 {
			src := p.peekLocked(0, len(b))
			n := copy(b, src)
			p.consumeLocked(n)
			p.mu.Unlock()
			p.rd.Unlock()
			return n, nil
		}
		if p.writers == 0 {
			p.mu.Unlock()
			p.rd.Unlock()
			return 0, io.EOF
		}
		if r.Nonblocking() {
			p.mu.Unlock()
			p.rd.Unlock()
			return 0, ErrWouldBlock
		}
		ch := p.rwait
		p.mu.Unlock()
		p.rd.Unlock()
		<-ch
	}
}

// Close drops the reader reference. Writers stalled on space observe a
// broken destination once the last reader is gone.
func (r *PipeReader) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}
	r.p.closeRead()
	return nil
}

// ------------------------------------------ writer end ------------------------------------------

// PipeWriter is the producing end of a pipe.
type PipeWriter struct {
	p        *Pipe
	nonblock int32
	closed   int32
}

// PipeBacked implements Endpoint.
func (w *PipeWriter) PipeBacked() bool { return true }

// Seekable implements Endpoint.
func (w *PipeWriter) Seekable() bool { return false }

// Nonblocking implements Endpoint.
func (w *PipeWriter) Nonblocking() bool { return atomic.LoadInt32(&w.nonblock) != 0 }

// Buffer implements Endpoint.
func (w *PipeWriter) Buffer() *Pipe { return w.p }

// SetNonblock switches the end's own open mode.
func (w *PipeWriter) SetNonblock(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&w.nonblock, v)
}

// Push implements Sink.
func (w *PipeWriter) Push(b []byte) (int, error) {
	if atomic.LoadInt32(&w.closed) != 0 {
		return 0, ErrClosed
	}
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readers == 0 {
		return 0, ErrBrokenPipe
	}
	n := p.commitLocked(b)
	if n == 0 {
		return 0, errAgain
	}
	return n, nil
}

// PushAt implements Sink. Pipes hold no positions.
func (w *PipeWriter) PushAt(b []byte, off int64) (int, error) {
	return 0, ErrIllegalSeek
}

// WriteReady implements Sink.
func (w *PipeWriter) WriteReady() <-chan struct{} { return w.p.writeReady() }

// Write appends all of b, blocking whenever the pipe is full. In
// non-blocking mode it returns what fit, or ErrWouldBlock if nothing did.
func (w *PipeWriter) Write(b []byte) (int, error) {
	p := w.p
	var nn int
	for nn < len(b) {
		if atomic.LoadInt32(&w.closed) != 0 {
			return nn, ErrClosed
		}
		p.mu.Lock()
		if p.readers == 0 {
			p.mu.Unlock()
			return nn, ErrBrokenPipe
		}
		if n := p.commitLocked(b[nn:]); n > 0 {
			nn += n
			p.mu.Unlock()
			continue
		}
		if w.Nonblocking() {
			p.mu.Unlock()
			if nn > 0 {
				return nn, nil
			}
			return 0, ErrWouldBlock
		}
		ch := p.wwait
		p.mu.Unlock()
		<-ch
	}
	return nn, nil
}

// Close drops the writer reference. Readers observe logical EOF once the
// buffered bytes drain and the last writer is gone.
func (w *PipeWriter) Close() error {
	if !atomic.CompareAndSwapInt32(&w.closed, 0, 1) {
		return nil
	}
	w.p.closeWrite()
	return nil
}
