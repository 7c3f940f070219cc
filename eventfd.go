package zsplice

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// eventRecordSize is the fixed record an event counter produces or accepts:
// its 64-bit value in little-endian order.
const eventRecordSize = 8

// counterMax is the largest value an event counter can hold.
const counterMax = ^uint64(0) - 1

// EventCounter models an eventfd-style notification object: a 64-bit
// counter read and written in fixed 8-byte records. Reading returns the
// current value and resets it; writing adds to it. The counter is neither
// pipe-backed nor seekable, so transfers may touch it only without explicit
// offsets.
//
// A record is consumed exactly once even when the destination takes it in
// pieces: the first partial Discard resets the counter and stages the
// unread tail, which later passes drain before a fresh record is rendered.
type EventCounter struct {
	mu       sync.Mutex
	rd       sync.Mutex // consumer claim, never held while parked
	val      uint64
	pending  []byte // unread tail of a partially consumed record
	nonblock int32
	rwait    chan struct{}
	wwait    chan struct{}
}

// NewEventCounter creates a counter holding initval.
func NewEventCounter(initval uint64) *EventCounter {
	return &EventCounter{
		val:   initval,
		rwait: make(chan struct{}),
		wwait: make(chan struct{}),
	}
}

// PipeBacked implements Endpoint.
func (e *EventCounter) PipeBacked() bool { return false }

// Seekable implements Endpoint.
func (e *EventCounter) Seekable() bool { return false }

// Nonblocking implements Endpoint.
func (e *EventCounter) Nonblocking() bool { return atomic.LoadInt32(&e.nonblock) != 0 }

// Buffer implements Endpoint.
func (e *EventCounter) Buffer() *Pipe { return nil }

// SetNonblock switches the counter's open mode.
func (e *EventCounter) SetNonblock(on bool) {
	var v int32
	if on {
		v = 1
	}
	atomic.StoreInt32(&e.nonblock, v)
}

// Peek implements Source. A staged tail is served before a fresh record.
// A zero counter has nothing to report yet; asking a fresh counter for
// less than one record is a misuse.
func (e *EventCounter) Peek(n int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) > 0 {
		if n > len(e.pending) {
			n = len(e.pending)
		}
		out := make([]byte, n)
		copy(out, e.pending)
		return out, nil
	}
	if e.val == 0 {
		return nil, errAgain
	}
	if n < eventRecordSize {
		return nil, ErrInvalidArgument
	}
	out := make([]byte, eventRecordSize)
	binary.LittleEndian.PutUint64(out, e.val)
	return out, nil
}

// PeekAt implements Source. Counters do not support positioned reads.
func (e *EventCounter) PeekAt(off int64, n int) ([]byte, error) {
	return nil, ErrInvalidArgument
}

// Discard implements Source, consuming the bytes peeked last. Taking less
// than a full record resets the counter once and stages the unread tail,
// so a record is never torn or delivered twice.
func (e *EventCounter) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) > 0 {
		if n > len(e.pending) {
			n = len(e.pending)
		}
		e.pending = e.pending[n:]
		if len(e.pending) == 0 {
			e.pending = nil
		}
		return n
	}
	if e.val == 0 {
		return 0
	}
	if n > eventRecordSize {
		n = eventRecordSize
	}
	if n < eventRecordSize {
		rec := make([]byte, eventRecordSize)
		binary.LittleEndian.PutUint64(rec, e.val)
		e.pending = rec[n:]
	}
	e.val = 0
	close(e.wwait)
	e.wwait = make(chan struct{})
	return n
}

// ReadReady implements Source.
func (e *EventCounter) ReadReady() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.val > 0 || len(e.pending) > 0 {
		return closedChan
	}
	return e.rwait
}

func (e *EventCounter) claimRead()   { e.rd.Lock() }
func (e *EventCounter) releaseRead() { e.rd.Unlock() }

// Push implements Sink, adding one 8-byte record to the counter. An
// addition that would overflow the counter stalls instead.
func (e *EventCounter) Push(b []byte) (int, error) {
	if len(b) < eventRecordSize {
		return 0, ErrInvalidArgument
	}
	add := binary.LittleEndian.Uint64(b)
	if add == ^uint64(0) {
		return 0, ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.val > counterMax-add {
		return 0, errAgain
	}
	e.val += add
	close(e.rwait)
	e.rwait = make(chan struct{})
	return eventRecordSize, nil
}

// PushAt implements Sink. Counters do not support positioned writes.
func (e *EventCounter) PushAt(b []byte, off int64) (int, error) {
	return 0, ErrInvalidArgument
}

// WriteReady implements Sink.
func (e *EventCounter) WriteReady() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.val < counterMax {
		return closedChan
	}
	return e.wwait
}

// Value returns the current counter value.
func (e *EventCounter) Value() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.val
}
