// Package osc implements the Open Sound Control 1.0/1.1 protocol core:
// bit-exact binary encoding of the OSC atomic types, zero-copy packet
// parsing, address pattern matching, a thread-safe address space registry,
// client/server engines, and the SLIP and length-prefix stream framings used
// over TCP.
//
// Open Sound Control (OSC) is an open, transport-independent, message-based
// protocol developed for communication among computers, sound synthesizers,
// and other multimedia devices.
//
// The package performs no socket I/O of its own. A transport reads raw
// datagrams or stream bytes and hands them to Server.DispatchPacket (after
// stream deframing, if any); outbound, a Client hands every completed packet
// to its OnSendPacket hook.
//
// # Messages and bundles
//
// The unit of transmission is an OSC Packet: either a Message (an address
// pattern plus typed arguments) or a Bundle (a time tag plus nested
// messages/bundles). Parsing is zero-copy: Parse indexes the buffer in place
// and returns views. Views are valid only until the next Parse of the same
// buffer; reading a stale view fails with ErrStaleView.
//
// Supported type tags: the OSC 1.0 standard 'i', 'f', 's', 'b' plus the
// documented extensions 'h', 'd', 't', 'c', 'r', 'm', 'T', 'F', 'N', 'I',
// 'S', '[' and ']'.
//
// # Sending
//
//	client := osc.NewClient(0)
//	client.OnSendPacket = func(buf []byte) { conn.Write(buf) }
//	client.BeginMessage("/oscillator/4/frequency", "f")
//	client.WriteFloat32(440.0)
//	client.EndMessage()
//
// # Receiving
//
//	space := osc.NewAddressSpace()
//	space.AddCallbacks("/oscillator/*/frequency", &osc.Callbacks{
//		Read: func(msg *osc.Message) {
//			f, _ := msg.Float32At(0)
//			_ = f // read everything needed before returning
//		},
//	})
//	server := osc.NewServer(space)
//	// per datagram:
//	server.DispatchPacket(buf[:n], addr.String())
//	// once per main-loop tick:
//	server.Drain()
package osc
