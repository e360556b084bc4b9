package osc

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerDispatchMessage(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	var got []int32
	cb := &Callbacks{Read: func(m *Message) {
		v, err := m.Int32At(0)
		require.NoError(t, err)
		got = append(got, v)
	}}
	require.NoError(t, space.AddCallbacks("/level", cb))

	data := buildMessage(t, "/level", ",i", func(w *Writer) { w.WriteInt32(42) })
	require.NoError(t, srv.DispatchPacket(data, "peer"))
	assert.Equal(t, []int32{42}, got)
}

func TestServerDispatchPatternMessage(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	var hits []string
	add := func(addr string) {
		require.NoError(t, space.AddCallbacks(addr, &Callbacks{Read: func(*Message) {
			hits = append(hits, addr)
		}}))
	}
	add("/synth/1/freq")
	add("/synth/2/freq")
	add("/synth/1/amp")

	// A pattern-addressed message fans out to every matching registration.
	data := buildMessage(t, "/synth/*/freq", ",", nil)
	require.NoError(t, srv.DispatchPacket(data, "peer"))
	assert.ElementsMatch(t, []string{"/synth/1/freq", "/synth/2/freq"}, hits)
}

func TestServerDispatchBundleOrder(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	var order []string
	for _, addr := range []string{"/one", "/two", "/three"} {
		addr := addr
		require.NoError(t, space.AddCallbacks(addr, &Callbacks{Read: func(*Message) {
			order = append(order, addr)
		}}))
	}

	// /three sits in a nested bundle framed between /one and /two; sibling
	// messages still dispatch first, in declared order.
	m1 := buildMessage(t, "/one", ",", nil)
	m2 := buildMessage(t, "/two", ",", nil)
	m3 := buildMessage(t, "/three", ",", nil)
	inner := buildBundle(TimetagImmediate, m3)
	data := buildBundle(TimetagImmediate, m1, inner, m2)

	require.NoError(t, srv.DispatchPacket(data, "peer"))
	assert.Equal(t, []string{"/one", "/two", "/three"}, order)
}

func TestServerQueuedCallbacks(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	var order []string
	require.NoError(t, space.AddCallbacks("/a", &Callbacks{
		Read:   func(*Message) { order = append(order, "read-a") },
		Queued: func() { order = append(order, "queued-a") },
	}))
	require.NoError(t, space.AddCallbacks("/b", &Callbacks{
		Queued: func() { order = append(order, "queued-b") },
	}))

	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/a", ",", nil), "peer"))
	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/b", ",", nil), "peer"))

	// Reads ran inline; queued half waits for the drain tick.
	assert.Equal(t, []string{"read-a"}, order)
	assert.Equal(t, 2, srv.QueueLen())

	require.NoError(t, srv.Drain())
	assert.Equal(t, []string{"read-a", "queued-a", "queued-b"}, order)
	assert.Equal(t, 0, srv.QueueLen())

	// Draining an empty queue is a no-op.
	require.NoError(t, srv.Drain())
	assert.Len(t, order, 3)
}

func TestServerCallbackPanicIsolated(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	var survived bool
	require.NoError(t, space.AddCallbacks("/boom", &Callbacks{
		Read:   func(*Message) { panic("callback bug") },
		Queued: func() { panic("queued bug") },
	}))
	require.NoError(t, space.AddCallbacks("/boom", &Callbacks{
		Read:   func(*Message) { survived = true },
		Queued: func() { survived = true },
	}))

	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/boom", ",", nil), "peer"))
	assert.True(t, survived, "panic in one read stopped the rest")

	survived = false
	require.NoError(t, srv.Drain())
	assert.True(t, survived, "panic in one queued entry stopped the drain")
}

func TestServerUnparseablePacket(t *testing.T) {
	srv := NewServer(NewAddressSpace())
	srv.Logger = quietLogger()

	err := srv.DispatchPacket([]byte{1, 2, 3}, "peer")
	assert.ErrorIs(t, err, ErrNotAPacket)
}

func TestServerUnmatchedMessage(t *testing.T) {
	srv := NewServer(NewAddressSpace())
	srv.Logger = quietLogger()

	// No registrations: dispatch succeeds and does nothing.
	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/nobody", ",", nil), "peer"))
	assert.Equal(t, 0, srv.QueueLen())
}

func TestServerDisposed(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()

	require.NoError(t, space.AddCallbacks("/a", &Callbacks{Queued: func() {
		t.Error("queued callback ran after dispose")
	}}))
	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/a", ",", nil), "peer"))
	require.Equal(t, 1, srv.QueueLen())

	srv.Dispose()

	assert.Equal(t, 0, srv.QueueLen())
	assert.ErrorIs(t, srv.DispatchPacket(buildMessage(t, "/a", ",", nil), "peer"), ErrDisposed)
	assert.ErrorIs(t, srv.Drain(), ErrDisposed)
}

func TestServerMetrics(t *testing.T) {
	space := NewAddressSpace()
	srv := NewServer(space)
	srv.Logger = quietLogger()
	srv.Metrics = NewMetrics()

	require.NoError(t, space.AddCallbacks("/a", &Callbacks{
		Read:   func(*Message) { panic("x") },
		Queued: func() {},
	}))

	require.NoError(t, srv.DispatchPacket(buildMessage(t, "/a", ",", nil), "peer"))
	srv.DispatchPacket([]byte{9}, "peer") //nolint:errcheck // failure is the point

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics.PacketsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics.ParseFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics.MessagesDispatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.Metrics.CallbackPanics))

	require.NoError(t, srv.Drain())
}
