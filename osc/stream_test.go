package osc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthPrefixEncode(t *testing.T) {
	var enc LengthPrefixEncoder

	got := enc.Encode([]byte{1, 2, 3})
	assert.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3}, got)

	got = enc.Encode(nil)
	assert.Equal(t, []byte{0, 0, 0, 0}, got)
}

func TestLengthPrefixRoundTrip(t *testing.T) {
	p1 := buildMessage(t, "/one", ",i", func(w *Writer) { w.WriteInt32(1) })
	p2 := buildMessage(t, "/two", ",s", func(w *Writer) { w.WriteString("x") })

	var enc LengthPrefixEncoder
	var stream []byte
	stream = append(stream, enc.Encode(p1)...)
	stream = append(stream, enc.Encode(p2)...)

	// Two framed packets in one chunk come out as two emits.
	dec := NewLengthPrefixDecoder(0)
	var got [][]byte
	require.NoError(t, dec.Decode(stream, func(packet []byte) error {
		got = append(got, append([]byte(nil), packet...))
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, p1, got[0])
	assert.Equal(t, p2, got[1])
}

func TestLengthPrefixDecodeSplitChunks(t *testing.T) {
	p := buildMessage(t, "/split", ",i", func(w *Writer) { w.WriteInt32(9) })
	var enc LengthPrefixEncoder
	framed := append([]byte(nil), enc.Encode(p)...)

	// Byte-at-a-time feeding must reassemble across the header boundary.
	dec := NewLengthPrefixDecoder(0)
	var got [][]byte
	for _, b := range framed {
		require.NoError(t, dec.Decode([]byte{b}, func(packet []byte) error {
			got = append(got, append([]byte(nil), packet...))
			return nil
		}))
	}
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}

func TestLengthPrefixDecodeZeroLengthFrame(t *testing.T) {
	dec := NewLengthPrefixDecoder(0)
	emits := 0
	require.NoError(t, dec.Decode([]byte{0, 0, 0, 0}, func(packet []byte) error {
		emits++
		assert.Empty(t, packet)
		return nil
	}))
	assert.Equal(t, 1, emits)
}

func TestLengthPrefixFrameTooLarge(t *testing.T) {
	dec := NewLengthPrefixDecoder(16)

	header := binary.BigEndian.AppendUint32(nil, 1024)
	err := dec.Decode(header, func([]byte) error {
		t.Error("emitted a packet from an oversized frame")
		return nil
	})
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	// The error latches: alignment with the peer is gone for good.
	assert.ErrorIs(t, dec.Err(), ErrFrameTooLarge)
	assert.ErrorIs(t, dec.Decode([]byte{0, 0, 0, 1}, func([]byte) error {
		return nil
	}), ErrFrameTooLarge)
}

func TestLengthPrefixNegativeLength(t *testing.T) {
	dec := NewLengthPrefixDecoder(0)
	err := dec.Decode([]byte{0xff, 0xff, 0xff, 0xff}, func([]byte) error {
		t.Error("emitted a packet from a negative length")
		return nil
	})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestLengthPrefixEmitError(t *testing.T) {
	var enc LengthPrefixEncoder
	stream := append([]byte(nil), enc.Encode([]byte{1})...)
	stream = append(stream, enc.Encode([]byte{2})...)

	sentinel := errors.New("stop")
	dec := NewLengthPrefixDecoder(0)
	calls := 0
	err := dec.Decode(stream, func([]byte) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)

	// An emit error is not fatal; the rest of the stream decodes next call.
	require.NoError(t, dec.Err())
	var got [][]byte
	require.NoError(t, dec.Decode(nil, func(packet []byte) error {
		got = append(got, append([]byte(nil), packet...))
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{2}, got[0])
}
