package zsplice

// Endpoint is a capability-tagged handle to an I/O object that can take part
// in a transfer: a pipe end, a regular file, a stream socket or an event
// counter. The engines never inspect concrete types; everything they need is
// answered by these queries plus the Source/Sink primitives.
type Endpoint interface {
	// PipeBacked reports whether the endpoint's storage is a bounded,
	// position-less byte queue.
	PipeBacked() bool
	// Seekable reports whether the endpoint supports positioned I/O at an
	// explicit byte offset. True only for regular files.
	Seekable() bool
	// Nonblocking reports the endpoint's own open mode, independent of any
	// per-call flag.
	Nonblocking() bool
	// Buffer returns the backing pipe buffer, or nil for endpoints that are
	// not pipe-backed. Used to detect a transfer from a pipe to itself.
	Buffer() *Pipe
}

// Source is the readable side of a transfer. The primitives never block:
// when nothing can be done right now they return errAgain and the engines
// decide between parking on ReadReady and failing with ErrWouldBlock.
type Source interface {
	Endpoint

	// Peek returns a copy of up to n bytes without consuming them. It
	// returns io.EOF once the endpoint is exhausted and errAgain when data
	// may still arrive.
	Peek(n int) ([]byte, error)

	// PeekAt is Peek at an absolute offset, without touching the
	// endpoint's implicit cursor. Seekable endpoints only.
	PeekAt(off int64, n int) ([]byte, error)

	// Discard consumes up to n previously peeked bytes and returns how
	// many were dropped.
	Discard(n int) int

	// ReadReady returns a channel that is closed once the endpoint may
	// have become readable. Grab it while stalled, then re-check.
	ReadReady() <-chan struct{}

	// claimRead and releaseRead bracket one peek-consume pass, keeping
	// competing consumers of the same endpoint from interleaving inside
	// it. The claim is never held while parked.
	claimRead()
	releaseRead()
}

// Sink is the writable side of a transfer.
type Sink interface {
	Endpoint

	// Push writes up to len(b) bytes and returns how many were taken.
	// errAgain means no room right now; ErrBrokenPipe means the
	// destination has no readers left.
	Push(b []byte) (int, error)

	// PushAt is Push at an absolute offset, without touching the
	// endpoint's implicit cursor. Seekable endpoints only.
	PushAt(b []byte, off int64) (int, error)

	// WriteReady returns a channel that is closed once the endpoint may
	// have become writable.
	WriteReady() <-chan struct{}
}

// closedChan is returned by ready queries on endpoints that never stall.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
