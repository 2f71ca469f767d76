package memfd

import (
	"io"
	"syscall"
	"testing"
)

func TestNew(t *testing.T) {
	f, err := New("test-memfd")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer f.Close()

	data := []byte("hello world")
	n, err := f.Write(data)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Write n = %d, want %d", n, len(data))
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek error: %v", err)
	}
	read := make([]byte, len(data))
	n, err = f.Read(read)
	if err != nil && err != io.EOF {
		t.Fatalf("Read error: %v", err)
	}
	if string(read[:n]) != string(data) {
		t.Errorf("Read = %q, want %q", string(read[:n]), string(data))
	}
}

func TestShared(t *testing.T) {
	r, err := Shared("test-shared", 16)
	if err != nil {
		t.Fatalf("Shared() error: %v", err)
	}
	defer r.Close()

	if len(r.Data) != 16 {
		t.Fatalf("len(Data) = %d, want 16", len(r.Data))
	}
	r.Data[3] = 42

	// a second mapping of the same fd observes the write
	dup, err := syscall.Dup(int(r.File.Fd()))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Open(uintptr(dup), 16)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer r2.Close()
	if r2.Data[3] != 42 {
		t.Errorf("shared byte = %d, want 42", r2.Data[3])
	}

	// size is sealed
	if err := r.File.Truncate(32); err == nil {
		t.Error("expected truncate of sealed memfd to fail")
	}
}

func TestOpenSizeMismatch(t *testing.T) {
	r, err := Shared("test-size", 8)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	dup, err := syscall.Dup(int(r.File.Fd()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(uintptr(dup), 16); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestSharedInvalidSize(t *testing.T) {
	if _, err := Shared("test-invalid", 0); err == nil {
		t.Error("expected error for zero size")
	}
}
