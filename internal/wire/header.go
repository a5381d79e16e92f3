// Package wire implements the 32-bit packet header prepended to every
// datagram (spec component C3): a bit-packed flags/msg_id/packet word plus
// the payload-view accounting that the transport and queues build on.
package wire

import "encoding/binary"

// HeaderSize is the number of header bytes prepended to every datagram.
const HeaderSize = 4

// Flag is a bitset over the packet's position/role within its message.
// Other bits of the header's 4-bit flags field are reserved and must be
// preserved (not masked away) when round-tripping a header a peer sent.
type Flag uint8

const (
	// First marks the first packet allocated for a message; it always
	// carries packet sequence number 0.
	First Flag = 0x1
	// Last marks the final packet of a message; its arrival on the
	// receive side triggers reassembly and delivery.
	Last Flag = 0x2
	// Response marks a packet carrying acknowledgement ranges rather than
	// message payload; such packets never carry application data.
	Response Flag = 0x4
)

// Has reports whether f includes bit.
func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Header is the decoded form of the 32-bit little-endian word:
// flags occupy bits 0-3, msg_id occupies bits 4-11 (wraps mod 256), and
// packet occupies bits 12-31 (sequence number within the message,
// starting at 0). This mirrors the C bitfield layout of the original
// UDPPacketHeader, least-significant field first.
type Header struct {
	Flags  Flag
	MsgID  uint8
	Packet uint32
}

// Encode packs h into the first HeaderSize bytes of dst (little-endian).
// dst must have length >= HeaderSize.
func (h Header) Encode(dst []byte) {
	word := uint32(h.Flags&0xF) | uint32(h.MsgID)<<4 | (h.Packet&0xFFFFF)<<12
	binary.LittleEndian.PutUint32(dst, word)
}

// Decode unpacks a Header from the first HeaderSize bytes of src.
// src must have length >= HeaderSize.
func Decode(src []byte) Header {
	word := binary.LittleEndian.Uint32(src)
	return Header{
		Flags:  Flag(word & 0xF),
		MsgID:  uint8((word >> 4) & 0xFF),
		Packet: (word >> 12) & 0xFFFFF,
	}
}

// DataSize returns the total number of meaningful bytes in a send-side
// buffer, i.e. the header plus whatever payload a producer has written into
// it. This is the send-side equivalent of the original's
// NetBuffer::GetDataSize: payloadEnd is the offset just past the last
// written payload byte, measured from the start of the buffer (header
// included), so it is returned unchanged.
func DataSize(payloadEnd int) int {
	return payloadEnd
}

// SplitPayload extracts the header and the payload view from a received
// datagram buf (the raw bytes the socket returned, recvLen long). The
// payload view starts at offset HeaderSize and runs for recvLen-HeaderSize
// bytes; ok is false if recvLen is too short to contain a header.
func SplitPayload(buf []byte, recvLen int) (hdr Header, payload []byte, ok bool) {
	if recvLen < HeaderSize {
		return Header{}, nil, false
	}
	hdr = Decode(buf[:HeaderSize])
	payload = buf[HeaderSize:recvLen]
	return hdr, payload, true
}
