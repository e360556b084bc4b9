package osc

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterNumericEncoding(t *testing.T) {
	w := NewWriter(64)

	if err := w.WriteInt32(-1); err != nil {
		t.Fatalf("WriteInt32() = %v", err)
	}
	if err := w.WriteFloat32(440.0); err != nil {
		t.Fatalf("WriteFloat32() = %v", err)
	}
	if err := w.WriteInt64(1); err != nil {
		t.Fatalf("WriteInt64() = %v", err)
	}
	if err := w.WriteChar('a'); err != nil {
		t.Fatalf("WriteChar() = %v", err)
	}

	want := []byte{
		0xff, 0xff, 0xff, 0xff,
		0x43, 0xdc, 0x00, 0x00,
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 'a',
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterStringPadding(t *testing.T) {
	tests := []struct {
		s    string
		want []byte
	}{
		{"", []byte{0, 0, 0, 0}},
		{"a", []byte{'a', 0, 0, 0}},
		{"data", []byte{'d', 'a', 't', 'a', 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			w := NewWriter(16)
			if err := w.WriteString(tt.s); err != nil {
				t.Fatalf("WriteString(%q) = %v", tt.s, err)
			}
			if !bytes.Equal(w.Bytes(), tt.want) {
				t.Errorf("Bytes() = % x, want % x", w.Bytes(), tt.want)
			}
		})
	}
}

func TestWriterBlob(t *testing.T) {
	w := NewWriter(16)
	if err := w.WriteBlob([]byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBlob() = %v", err)
	}
	want := []byte{0, 0, 0, 3, 1, 2, 3, 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterColorMIDI(t *testing.T) {
	w := NewWriter(8)
	if err := w.WriteColor(Color{R: 1, G: 2, B: 3, A: 4}); err != nil {
		t.Fatalf("WriteColor() = %v", err)
	}
	if err := w.WriteMIDI(MIDIMessage{Port: 0, Status: 0x90, Data1: 60, Data2: 127}); err != nil {
		t.Fatalf("WriteMIDI() = %v", err)
	}
	want := []byte{1, 2, 3, 4, 0, 0x90, 60, 127}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterBufferFull(t *testing.T) {
	w := NewWriter(6)
	if err := w.WriteInt32(7); err != nil {
		t.Fatalf("WriteInt32() = %v", err)
	}
	if err := w.WriteInt32(8); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("WriteInt32() error = %v, want ErrBufferFull", err)
	}
	// A failed write leaves the cursor where it was.
	if w.Len() != 4 {
		t.Errorf("Len() = %d after failed write, want 4", w.Len())
	}
	if err := w.WriteString("toolongforthis"); !errors.Is(err, ErrBufferFull) {
		t.Errorf("WriteString() error = %v, want ErrBufferFull", err)
	}
}

func TestWriterTruncate(t *testing.T) {
	w := NewWriter(16)
	w.WriteInt32(1)
	w.WriteInt32(2)
	w.Truncate(4)
	if w.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", w.Len())
	}

	defer func() {
		if recover() == nil {
			t.Error("Truncate(8) past the cursor did not panic")
		}
	}()
	w.Truncate(8)
}

func TestWriterFromCurrentBackfill(t *testing.T) {
	w := NewWriter(16)
	size := w.FromCurrent()
	if err := w.WriteInt32(0); err != nil {
		t.Fatalf("placeholder write: %v", err)
	}
	start := w.Len()
	w.WriteString("hi")
	if err := size.WriteInt32(int32(w.Len() - start)); err != nil {
		t.Fatalf("backfill write: %v", err)
	}

	want := []byte{0, 0, 0, 4, 'h', 'i', 0, 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterBorrowedBuffer(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriterBuffer(buf)
	if w.Cap() != 8 {
		t.Fatalf("Cap() = %d, want 8", w.Cap())
	}
	w.WriteBundlePrefix()
	if !bytes.Equal(buf, []byte("#bundle\x00")) {
		t.Errorf("buffer = %q, want %q", buf, "#bundle\x00")
	}
	if err := w.WriteInt32(1); !errors.Is(err, ErrBufferFull) {
		t.Errorf("WriteInt32() error = %v, want ErrBufferFull", err)
	}
}
