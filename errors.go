package zsplice

import "errors"

// Transfer failures are classified into a fixed taxonomy so that callers can
// branch with errors.Is. The mapping mirrors the errno a kernel would hand
// back for the same misuse.
var (
	// ErrInvalidArgument reports structural misuse: neither endpoint is
	// pipe-backed, source and destination share one buffer, or an offset
	// was supplied for an endpoint that cannot seek.
	ErrInvalidArgument = errors.New("zsplice: invalid argument")

	// ErrIllegalSeek reports an explicit offset on a pipe-backed endpoint.
	ErrIllegalSeek = errors.New("zsplice: illegal seek")

	// ErrWouldBlock reports that the call would have to wait but one of the
	// three non-blocking flags applies.
	ErrWouldBlock = errors.New("zsplice: operation would block")

	// ErrBrokenPipe reports a write toward a pipe with no open readers.
	ErrBrokenPipe = errors.New("zsplice: broken pipe")

	// ErrInterrupted reports cancellation while the call was parked.
	ErrInterrupted = errors.New("zsplice: interrupted")

	// ErrClosed reports an operation on a closed endpoint.
	ErrClosed = errors.New("zsplice: endpoint closed")
)

// errAgain is the internal "nothing available right now" signal between the
// endpoint primitives and the transfer engines. It never escapes a public
// call; the engines translate it into waiting or ErrWouldBlock.
var errAgain = errors.New("zsplice: again")
