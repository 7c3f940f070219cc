package zsplice

import (
	"io"
	"sync"
	"sync/atomic"
)

// File is a memory-backed regular file endpoint. It carries an implicit
// cursor for plain reads and writes and additionally supports positioned
// I/O, which is what distinguishes regular files from every other endpoint
// kind. Files never stall: both ready queries answer immediately.
type File struct {
	mu       sync.Mutex
	rd       sync.Mutex // consumer claim, never held while parked
	data     []byte
	pos      int64
	nonblock int32
}

// NewFile creates a file holding a copy of data with the cursor at zero.
func NewFile(data []byte) *File {
	f := &File{}
	f.data = append(f.data, data...)
	return f
}

// PipeBacked implements Endpoint.
func (f *File) PipeBacked() bool { return false }

// Seekable implements Endpoint.
func (f *File) Seekable() bool { return true }

// Nonblocking implements Endpoint.
func (f *File) Nonblocking() bool { return atomic.LoadInt32(&f.nonblock) != 0 }

// Buffer implements Endpoint.
func (f *File) Buffer() *Pipe { return nil }

// SetNonblock switches the file's open mode. Regular files never block, so
// the flag only feeds the blocking decision of transfers touching them.
func (f *File) SetNonblock(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&f.nonblock, v)
}

// Peek implements Source, reading at the implicit cursor.
func (f *File) Peek(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peekLocked(f.pos, n)
}

// PeekAt implements Source.
func (f *File) PeekAt(off int64, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peekLocked(off, n)
}

func (f *File) peekLocked(off int64, n int) ([]byte, error) {
	if off >= int64(len(f.data)) {
		return nil, io.EOF
	}
	rest := f.data[off:]
	if n > len(rest) {
		n = len(rest)
	}
	out := make([]byte, n)
	copy(out, rest)
	return out, nil
}

// Discard implements Source, advancing the implicit cursor.
func (f *File) Discard(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rest := int64(len(f.data)) - f.pos; int64(n) > rest {
		n = int(rest)
	}
	if n < 0 {
		n = 0
	}
	f.pos += int64(n)
	return n
}

// ReadReady implements Source.
func (f *File) ReadReady() <-chan struct{} { return closedChan }

func (f *File) claimRead()   { f.rd.Lock() }
func (f *File) releaseRead() { f.rd.Unlock() }

// Push implements Sink, writing at the implicit cursor.
func (f *File) Push(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.writeLocked(b, f.pos)
	f.pos += int64(n)
	return n, nil
}

// PushAt implements Sink. Writing past the end grows the file; any gap
// reads back as zeros, like a sparse file.
func (f *File) PushAt(b []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(b, off), nil
}

func (f *File) writeLocked(b []byte, off int64) int {
	if end := off + int64(len(b)); end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:], b)
}

// WriteReady implements Sink.
func (f *File) WriteReady() <-chan struct{} { return closedChan }

// Seek repositions the implicit cursor, like lseek.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.data))
	default:
		return 0, ErrInvalidArgument
	}
	if base+offset < 0 {
		return 0, ErrInvalidArgument
	}
	f.pos = base + offset
	return f.pos, nil
}

// Len returns the current file size.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// Bytes returns a copy of the file contents.
func (f *File) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}
