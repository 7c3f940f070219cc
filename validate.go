package zsplice

// checkSplice applies the legality matrix before any byte moves. The checks
// run in a fixed order and each offset/endpoint pair is judged on its own:
// an absent source offset never excuses an illegal destination offset.
func checkSplice(src Source, srcOff *int64, dst Sink, dstOff *int64) error {
	// at least one side must be a pipe; two files or two sockets can
	// never be spliced directly
	if !src.PipeBacked() && !dst.PipeBacked() {
		return ErrInvalidArgument
	}
	if err := checkSamePipe(src, dst); err != nil {
		return err
	}
	if err := checkOffset(src, srcOff); err != nil {
		return err
	}
	return checkOffset(dst, dstOff)
}

// checkTee requires both sides to be pipes.
func checkTee(src Source, dst Sink) error {
	if !src.PipeBacked() || !dst.PipeBacked() {
		return ErrInvalidArgument
	}
	return checkSamePipe(src, dst)
}

// checkSamePipe rejects a transfer from a pipe buffer to itself.
func checkSamePipe(src, dst Endpoint) error {
	if sb := src.Buffer(); sb != nil && sb == dst.Buffer() {
		return ErrInvalidArgument
	}
	return nil
}

// checkOffset validates one explicit offset against one endpoint. Pipes
// report the seek error specifically; other position-less endpoints report
// plain misuse. Seekable endpoints take any non-negative offset.
func checkOffset(e Endpoint, off *int64) error {
	if off == nil {
		return nil
	}
	if e.PipeBacked() {
		return ErrIllegalSeek
	}
	if !e.Seekable() {
		return ErrInvalidArgument
	}
	if *off < 0 {
		return ErrInvalidArgument
	}
	return nil
}
