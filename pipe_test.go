package zsplice

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
	"time"
)

func randBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func TestPipeCapacityAligned(t *testing.T) {
	r, _ := NewPipe()
	if got := r.Buffer().Cap(); got != defaultPipeSize {
		t.Fatalf("default capacity = %d, want %d", got, defaultPipeSize)
	}
	r, _ = NewPipe(WithCapacity(1))
	if got := r.Buffer().Cap(); got != pageSize {
		t.Fatalf("capacity = %d, want one page", got)
	}
	r, _ = NewPipe(WithCapacity(pageSize + 1))
	if got := r.Buffer().Cap(); got != 2*pageSize {
		t.Fatalf("capacity = %d, want %d", got, 2*pageSize)
	}
}

// Sequential bytes written in random-sized chunks must come out identical
// through the ring, including across wraparound.
func TestPipeReadWriteWraparound(t *testing.T) {
	r, w := NewPipe(WithCapacity(pageSize))

	const total = 64 * pageSize
	go func() {
		var wpos int
		for wpos < total {
			n := rand.Intn(1500) + 1
			if n > total-wpos {
				n = total - wpos
			}
			b := make([]byte, n)
			for i := range b {
				b[i] = byte(wpos + i)
			}
			m, err := w.Write(b)
			if err != nil {
				t.Errorf("write: %v", err)
				return
			}
			wpos += m
		}
		w.Close()
	}()

	var rpos int
	b := make([]byte, 2048)
	for {
		n, err := r.Read(b)
		for i := 0; i < n; i++ {
			if b[i] != byte(rpos+i) {
				t.Fatalf("byte %d mismatch", rpos+i)
			}
		}
		rpos += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if rpos != total {
		t.Fatalf("read %d bytes, want %d", rpos, total)
	}
}

func TestPipeReadEOFAfterWriterClose(t *testing.T) {
	r, w := NewPipe()
	data := randBytes(100)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	got := make([]byte, 200)
	n, err := r.Read(got)
	if err != nil || n != 100 {
		t.Fatalf("read = %d, %v; want 100, nil", n, err)
	}
	if !bytes.Equal(got[:n], data) {
		t.Fatal("data mismatch")
	}
	if _, err := r.Read(got); err != io.EOF {
		t.Fatalf("read after drain = %v, want io.EOF", err)
	}
}

func TestPipeWriteBrokenAfterReaderClose(t *testing.T) {
	r, w := NewPipe()
	r.Close()
	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrBrokenPipe) {
		t.Fatalf("write = %v, want ErrBrokenPipe", err)
	}
}

func TestPipeNonblockingEnds(t *testing.T) {
	r, w := NewPipe(WithNonblock())
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("read = %v, want ErrWouldBlock", err)
	}
	fill := make([]byte, r.Buffer().Cap())
	if _, err := w.Write(fill); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("write on full = %v, want ErrWouldBlock", err)
	}
}

// A write stalled on a full pipe must resume once a reader frees space.
func TestPipeWriteWakesOnConsume(t *testing.T) {
	r, w := NewPipe(WithCapacity(pageSize))
	if _, err := w.Write(make([]byte, pageSize)); err != nil {
		t.Fatalf("fill: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := w.Write([]byte("tail"))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("write returned early: %v", err)
	default:
	}

	if _, err := r.Read(make([]byte, pageSize)); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("stalled write: %v", err)
	}
}

func TestSocketPairRoundTrip(t *testing.T) {
	a, b := NewSocketPair()
	data := randBytes(3 * pageSize)
	go func() {
		if _, err := a.Write(data); err != nil {
			t.Errorf("write: %v", err)
		}
		a.CloseWrite()
	}()

	var got bytes.Buffer
	buf := make([]byte, 1024)
	for {
		n, err := b.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if !bytes.Equal(got.Bytes(), data) {
		t.Fatal("data mismatch")
	}
}
