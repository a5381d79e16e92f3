package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Header{
		{Flags: First, MsgID: 0, Packet: 0},
		{Flags: Last, MsgID: 255, Packet: 1},
		{Flags: First | Last, MsgID: 7, Packet: 0},
		{Flags: Response, MsgID: 42, Packet: 1048575}, // max 20-bit value
		{Flags: 0, MsgID: 128, Packet: 500},
	}

	for _, want := range cases {
		buf := make([]byte, HeaderSize)
		want.Encode(buf)
		got := Decode(buf)
		if got != want {
			t.Fatalf("round trip mismatch: want %+v, got %+v", want, got)
		}
	}
}

func TestFlagHas(t *testing.T) {
	t.Parallel()

	f := First | Last
	if !f.Has(First) {
		t.Fatalf("expected First set")
	}
	if !f.Has(Last) {
		t.Fatalf("expected Last set")
	}
	if f.Has(Response) {
		t.Fatalf("expected Response unset")
	}
}

func TestMsgIDWrapsAtByteBoundary(t *testing.T) {
	t.Parallel()

	buf := make([]byte, HeaderSize)
	h := Header{Flags: First, MsgID: 255, Packet: 0}
	h.Encode(buf)
	got := Decode(buf)
	if got.MsgID != 255 {
		t.Fatalf("expected MsgID 255, got %d", got.MsgID)
	}
}

func TestSplitPayload(t *testing.T) {
	t.Parallel()

	want := Header{Flags: First | Last, MsgID: 9, Packet: 3}
	buf := make([]byte, HeaderSize+5)
	want.Encode(buf)
	copy(buf[HeaderSize:], []byte("hello"))

	hdr, payload, ok := SplitPayload(buf, len(buf))
	if !ok {
		t.Fatalf("expected SplitPayload to succeed")
	}
	if hdr != want {
		t.Fatalf("header mismatch: want %+v, got %+v", want, hdr)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload mismatch: got %q", payload)
	}
}

func TestSplitPayloadTooShort(t *testing.T) {
	t.Parallel()

	buf := []byte{1, 2, 3}
	_, _, ok := SplitPayload(buf, len(buf))
	if ok {
		t.Fatalf("expected SplitPayload to fail on short buffer")
	}
}

func TestDataSize(t *testing.T) {
	t.Parallel()

	if got := DataSize(42); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
