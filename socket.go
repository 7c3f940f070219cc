package zsplice

import (
	"io"
	"sync/atomic"
)

// Socket is one side of an in-process connected stream pair, the moral
// equivalent of an AF_UNIX SOCK_STREAM socket. Each side receives through
// its own buffer and transmits into the peer's. Sockets are stream
// endpoints but not pipe-backed: they cannot seek and they do not expose a
// pipe buffer to transfers.
type Socket struct {
	rx, tx   *Pipe
	nonblock int32
	closed   int32
}

// NewSocketPair creates two connected sockets.
func NewSocketPair(opts ...Option) (*Socket, *Socket) {
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
	p1, p2 := newPipe(size), newPipe(size)
	a := &Socket{rx: p1, tx: p2}
	b := &Socket{rx: p2, tx: p1}
	if o.nonblock {
		a.SetNonblock(true)
		b.SetNonblock(true)
	}
	return a, b
}

// PipeBacked implements Endpoint.
func (s *Socket) PipeBacked() bool { return false }

// Seekable implements Endpoint.
func (s *Socket) Seekable() bool { return false }

// Nonblocking implements Endpoint.
func (s *Socket) Nonblocking() bool { return atomic.LoadInt32(&s.nonblock) != 0 }

// Buffer implements Endpoint.
func (s *Socket) Buffer() *Pipe { return nil }

// SetNonblock switches the socket's open mode.
func (s *Socket) SetNonblock(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&s.nonblock, v)
}

// Cap returns the capacity of the send buffer.
func (s *Socket) Cap() int { return s.tx.Cap() }

// Peek implements Source.
func (s *Socket) Peek(n int) ([]byte, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return nil, ErrClosed
	}
	p := s.rx
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

// PeekAt implements Source. Streams hold no positions.
func (s *Socket) PeekAt(off int64, n int) ([]byte, error) {
	return nil, ErrInvalidArgument
}

// Discard implements Source.
func (s *Socket) Discard(n int) int {
	p := s.rx
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consumeLocked(n)
}

// ReadReady implements Source.
func (s *Socket) ReadReady() <-chan struct{} { return s.rx.readReady() }

func (s *Socket) claimRead()   { s.rx.rd.Lock() }
func (s *Socket) releaseRead() { s.rx.rd.Unlock() }

// Push implements Sink.
func (s *Socket) Push(b []byte) (int, error) {
	if atomic.LoadInt32(&s.closed) != 0 {
		return 0, ErrClosed
	}
	p := s.tx
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

// PushAt implements Sink.
func (s *Socket) PushAt(b []byte, off int64) (int, error) {
	return 0, ErrInvalidArgument
}

// WriteReady implements Sink.
func (s *Socket) WriteReady() <-chan struct{} { return s.tx.writeReady() }

// Read receives up to len(b) bytes, blocking while the receive buffer is
// empty and the peer can still send.
func (s *Socket) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p := s.rx
	for {
		if atomic.LoadInt32(&s.closed) != 0 {
			return 0, ErrClosed
		}
		p.rd.Lock()
		p.mu.Lock()
		if p.bufferedLocked() > 0 {
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
		if s.Nonblocking() {
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

// Write sends all of b, blocking whenever the send buffer is full. In
// non-blocking mode it returns what fit, or ErrWouldBlock if nothing did.
func (s *Socket) Write(b []byte) (int, error) {
	p := s.tx
	var nn int
	for nn < len(b) {
		if atomic.LoadInt32(&s.closed) != 0 {
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
		if s.Nonblocking() {
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

// CloseWrite shuts down the sending direction, like shutdown(SHUT_WR). The
// peer drains what was already sent and then observes EOF.
func (s *Socket) CloseWrite() {
	s.tx.closeWrite()
}

// Close shuts down both directions.
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	s.tx.closeWrite()
	s.rx.closeRead()
	return nil
}
