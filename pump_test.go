package zsplice

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestPumpFileToFile(t *testing.T) {
	data := randBytes(3*defaultPipeSize + 123)
	src := NewFile(data)
	dst := NewFile(nil)

	n, err := Pump(context.Background(), src, dst)
	if err != nil || n != int64(len(data)) {
		t.Fatalf("pump = %d, %v; want %d, nil", n, err, len(data))
	}
	if !bytes.Equal(dst.Bytes(), data) {
		t.Fatal("data mismatch")
	}
}

func TestPumpSocketToFile(t *testing.T) {
	sock, peer := NewSocketPair()
	dst := NewFile(nil)
	data := randBytes(2*defaultPipeSize + 17)

	go func() {
		if _, err := peer.Write(data); err != nil {
			t.Errorf("send: %v", err)
		}
		peer.CloseWrite()
	}()

	n, err := Pump(context.Background(), sock, dst)
	if err != nil || n != int64(len(data)) {
		t.Fatalf("pump = %d, %v; want %d, nil", n, err, len(data))
	}
	if !bytes.Equal(dst.Bytes(), data) {
		t.Fatal("data mismatch")
	}
}

// Relay proxies both directions between two socket pairs until the outer
// ends shut down their sending sides.
func TestRelay(t *testing.T) {
	a, aPeer := NewSocketPair()
	b, bPeer := NewSocketPair()

	forward := randBytes(defaultPipeSize + 99)
	backward := randBytes(defaultPipeSize / 2)

	done := make(chan error, 1)
	go func() {
		done <- Relay(context.Background(), a, b)
	}()

	go func() {
		if _, err := aPeer.Write(forward); err != nil {
			t.Errorf("send forward: %v", err)
		}
		aPeer.CloseWrite()
	}()
	go func() {
		if _, err := bPeer.Write(backward); err != nil {
			t.Errorf("send backward: %v", err)
		}
		bPeer.CloseWrite()
	}()

	gotForward := readAll(t, bPeer)
	gotBackward := readAll(t, aPeer)

	if err := <-done; err != nil {
		t.Fatalf("relay: %v", err)
	}
	if !bytes.Equal(gotForward, forward) {
		t.Fatal("forward data mismatch")
	}
	if !bytes.Equal(gotBackward, backward) {
		t.Fatal("backward data mismatch")
	}
}

func readAll(t *testing.T, s *Socket) []byte {
	t.Helper()
	var out bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, err := s.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			return out.Bytes()
		}
		if err != nil {
			t.Fatalf("read: %v", err)
			return nil
		}
	}
}
