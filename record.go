package mfpipe

import (
	"github.com/vellum-io/mfpipe/internal/codec"
	"github.com/vellum-io/mfpipe/internal/objects"
	"github.com/vellum-io/mfpipe/internal/transport"
)

// recordKind identifies what a dispatcher record carries, mirroring
// ERecordType from the original implementation.
type recordKind byte

const (
	// recordUnparsed marks a record whose underlying message hasn't been
	// decoded yet; it never appears on the wire.
	recordUnparsed recordKind = 255
	recordData     recordKind = 0
	recordMessage  recordKind = 1
)

// record is one buffered inbound item. A freshly arrived record is
// recordUnparsed and keeps msg alive so its payload can be decoded lazily,
// the first time something asks for a (channel, kind) it might match.
// Once parsed, msg is released and channel/object or eventName/eventParam
// hold the decoded fields.
type record struct {
	kind       recordKind
	channel    string
	object     objects.Object
	eventName  string
	eventParam string
	msg        *transport.MsgReceived
}

// parseRecord decodes rec's underlying message in place. It reads the
// record-type byte and channel name common to both variants, then the
// type-specific fields. Any decode failure, including a record-type byte
// that is neither Data nor Message, leaves rec untouched and returns false;
// the caller drops such a record rather than retrying it.
func parseRecord(rec *record) bool {
	r := codec.NewReader(rec.msg.Payloads())

	var typeByte byte
	if !codec.Read(r, &typeByte) {
		return false
	}
	var channel string
	if !codec.Read(r, &channel) {
		return false
	}

	switch recordKind(typeByte) {
	case recordData:
		var objType byte
		if !codec.Read(r, &objType) {
			return false
		}
		obj := objects.CreateByObjectType(objects.Type(objType))
		if obj == nil || !obj.LoadFrom(r) {
			return false
		}
		rec.kind = recordData
		rec.channel = channel
		rec.object = obj
	case recordMessage:
		var name, param string
		if !codec.Read(r, &name) || !codec.Read(r, &param) {
			return false
		}
		rec.kind = recordMessage
		rec.channel = channel
		rec.eventName = name
		rec.eventParam = param
	default:
		return false
	}
	return true
}

// encodeDataRecord writes the wire form a parseRecord call with typeByte ==
// recordData expects to read back.
func encodeDataRecord(w *codec.Writer, channel string, obj objects.Object) bool {
	ok := codec.Write(w, byte(recordData))
	ok = ok && codec.Write(w, channel)
	ok = ok && codec.Write(w, byte(obj.Type()))
	ok = ok && obj.WriteTo(w)
	return ok
}

// encodeMessageRecord writes the wire form a parseRecord call with typeByte
// == recordMessage expects to read back.
func encodeMessageRecord(w *codec.Writer, channel, name, param string) bool {
	ok := codec.Write(w, byte(recordMessage))
	ok = ok && codec.Write(w, channel)
	ok = ok && codec.Write(w, name)
	ok = ok && codec.Write(w, param)
	return ok
}

// checkReceivedLocked is the lazy-parse-and-GC scan: it walks the buffered
// record list oldest-first, parsing any still-unparsed record on the way
// and dropping it on a decode failure, and returns (and removes) the first
// record matching (channel, kind). p.mu must be held by the caller.
func (p *Pipe) checkReceivedLocked(channel string, kind recordKind) *record {
	for i := 0; i < len(p.records); {
		rec := p.records[i]
		if rec.kind == recordUnparsed {
			if !parseRecord(rec) {
				p.log.Warn("dropping malformed record", "message_id", rec.msg.MessageID())
				rec.msg.Release()
				p.records = append(p.records[:i], p.records[i+1:]...)
				continue
			}
			rec.msg.Release()
			rec.msg = nil
		}

		if rec.kind == kind && rec.channel == channel {
			p.records = append(p.records[:i], p.records[i+1:]...)
			return rec
		}
		i++
	}
	return nil
}

// onNewMessage is the transport.OnMessage callback: it appends a fresh
// unparsed record and wakes any waiter. Decoding is deferred to the next
// checkReceivedLocked (or Flush) scan, which parses every unparsed record
// it walks past, so the worker goroutine never pays the parse cost.
func (p *Pipe) onNewMessage(_ *transport.Transport, msg *transport.MsgReceived) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		msg.Release()
		return
	}
	p.records = append(p.records, &record{kind: recordUnparsed, msg: msg})
	p.broadcastLocked()
	p.mu.Unlock()
}
