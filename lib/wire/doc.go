// Package wire implements the binary message formats exchanged by an onion
// relay node with its control API, the peer-sampling service, the Auth
// service and other relay nodes.
//
// # Framing
//
// Onion, Auth and Rps messages are wrapped in a 4 byte envelope:
//
//	+--------+--------+--------+--------+----------------
//	|  total length   |  message type   |  payload ...
//	+--------+--------+--------+--------+----------------
//
// The length covers the envelope itself. All multi-byte integers are big
// endian. Decoding uses only the first length bytes of the buffer and ignores
// anything that follows.
//
// P2P messages between relay nodes are not enveloped. They are encoded as a
// self-describing CBOR map ({message_type, data}).
//
// # Decoding order
//
// Decode tries an ordered list of decoders: P2P first, then the envelope. A
// buffer that happens to be a valid P2P value never reaches envelope decoding.
// The CBOR decoder is strict (no trailing bytes, no unknown fields, known
// opcode only) which makes such a collision unlikely, but the order is what
// decides, not the bytes.
//
// # Directions
//
// Every registered message type can be encoded and decoded. Encode panics when
// handed a Message implementation that is not part of this package: that is a
// programming error, not an I/O failure.
package wire
