package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

////
// De/Encoding primitives
////

const (
	bit32Size = 4
	bit64Size = 8

	// MaxPacketSize is the default capacity for packet buffers. It matches
	// the maximum payload of a UDP datagram.
	MaxPacketSize = 65507
)

// bundlePrefix is the fixed 8-byte literal that opens every OSC bundle:
// the OSC-string "#bundle" plus its terminating null.
var bundlePrefix = []byte{'#', 'b', 'u', 'n', 'd', 'l', 'e', 0}

// padBytesNeeded determines how many bytes are needed to fill up to the next
// 4 byte boundary.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}

// alignedSize returns elementLen rounded up to the next 4 byte boundary.
func alignedSize(elementLen int) int {
	return elementLen + padBytesNeeded(elementLen)
}

// paddedStringSize returns the wire size of s encoded as an OSC-string:
// the bytes of s, the terminating null, and padding to a 4 byte boundary.
func paddedStringSize(s string) int {
	return alignedSize(len(s) + 1)
}

// parsePaddedString reads an OSC-string from the head of data. It returns a
// view of the string bytes (no copy, null excluded) and the number of bytes
// consumed including the null and padding.
func parsePaddedString(data []byte) ([]byte, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return nil, 0, fmt.Errorf("parsePaddedString: %w", ErrTruncated)
	}

	n := alignedSize(pos + 1)
	if n > len(data) {
		return nil, 0, fmt.Errorf("parsePaddedString: %w", ErrTruncated)
	}

	return data[:pos], n, nil
}

// writePaddedString writes str into b as an OSC-string and returns the number
// of bytes written. b must have room for paddedStringSize(str) bytes.
func writePaddedString(str string, b []byte) int {
	n := copy(b, str)
	pad := alignedSize(n+1) - n
	for i := 0; i < pad; i++ {
		b[n+i] = 0
	}
	return n + pad
}

// parseBlob reads an OSC blob from the head of data. It returns a view of the
// payload bytes and the number of bytes consumed including the length prefix
// and padding.
func parseBlob(data []byte) ([]byte, int, error) {
	if len(data) < bit32Size {
		return nil, 0, fmt.Errorf("parseBlob: %w", ErrTruncated)
	}
	blobLen := int(int32(binary.BigEndian.Uint32(data[:bit32Size])))
	if blobLen < 0 {
		return nil, 0, fmt.Errorf("parseBlob: negative blob length %d", blobLen)
	}

	n := bit32Size + alignedSize(blobLen)
	if n > len(data) {
		return nil, 0, fmt.Errorf("parseBlob: blob length %d overruns buffer: %w", blobLen, ErrTruncated)
	}

	return data[bit32Size : bit32Size+blobLen], n, nil
}

// writeBlob writes data into b as an OSC blob (big-endian length prefix,
// payload, zero padding) and returns the number of bytes written.
func writeBlob(data []byte, b []byte) int {
	binary.BigEndian.PutUint32(b[:bit32Size], uint32(len(data)))
	n := bit32Size + copy(b[bit32Size:], data)
	pad := padBytesNeeded(len(data))
	for i := 0; i < pad; i++ {
		b[n+i] = 0
	}
	return n + pad
}
