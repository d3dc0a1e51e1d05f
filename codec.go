package library

import (
	"encoding/binary"
	"fmt"

	"github.com/Kost1s/artio/transport"
)

// Message tags identify the outbound/inbound message encoded in a fragment's
// first byte, matching comet's hand-rolled binary index codec
// (index_binary.go): no reflection, no gob, fixed-width fields followed by
// length-prefixed strings, decoded with encoding/binary in little-endian order.
const (
	tagLibraryConnect byte = iota + 1
	tagInitiateConnection
	tagReleaseSession
	tagRequestSession
	tagManageConnection
	tagLogon
	tagFixMessage
	tagDisconnect
	tagErrorMessage
	tagApplicationHeartbeat
	tagReleaseSessionReply
	tagRequestSessionReply
	tagCatchup
	tagNewSentPosition
	tagNotLeader
	tagControlNotification
)

var byteOrder = binary.LittleEndian

type encoder struct{ buf []byte }

func newEncoder(tag byte, sizeHint int) *encoder {
	e := &encoder{buf: make([]byte, 1, sizeHint+1)}
	e.buf[0] = tag
	return e
}

func (e *encoder) putInt32(v int32)   { e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v)) }
func (e *encoder) putInt64(v int64)   { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }
func (e *encoder) putByte(v byte)     { e.buf = append(e.buf, v) }
func (e *encoder) putString(s string) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}
func (e *encoder) putBytes(b []byte) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(b)))
	e.buf = append(e.buf, b...)
}
func (e *encoder) bytes() []byte { return e.buf }

type decoder struct {
	buf []byte
	pos int
}

func newDecoder(buf []byte) *decoder { return &decoder{buf: buf, pos: 1} }

func (d *decoder) getInt32() int32 {
	v := int32(byteOrder.Uint32(d.buf[d.pos:]))
	d.pos += 4
	return v
}

func (d *decoder) getInt64() int64 {
	v := int64(byteOrder.Uint64(d.buf[d.pos:]))
	d.pos += 8
	return v
}

func (d *decoder) getByte() byte {
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *decoder) getString() string {
	n := int(byteOrder.Uint32(d.buf[d.pos:]))
	d.pos += 4
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s
}

func (d *decoder) getBytes() []byte {
	n := int(byteOrder.Uint32(d.buf[d.pos:]))
	d.pos += 4
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func encodeLibraryConnect(m transport.LibraryConnect) []byte {
	e := newEncoder(tagLibraryConnect, 4+8)
	e.putInt32(m.LibraryID)
	e.putInt64(m.CorrelationID)
	return e.bytes()
}

func encodeInitiateConnection(m transport.InitiateConnection) []byte {
	e := newEncoder(tagInitiateConnection, 128+len(m.Host)+len(m.SenderCompID)+len(m.TargetCompID))
	e.putInt32(m.LibraryID)
	e.putString(m.Host)
	e.putInt32(int32(m.Port))
	e.putString(m.SenderCompID)
	e.putString(m.SenderSubID)
	e.putString(m.SenderLocationID)
	e.putString(m.TargetCompID)
	e.putInt32(m.SeqType)
	e.putInt32(m.InitialSeqNo)
	e.putString(m.Username)
	e.putString(m.Password)
	e.putInt32(m.HeartbeatIntervalS)
	e.putInt64(m.CorrelationID)
	return e.bytes()
}

func encodeReleaseSession(m transport.ReleaseSession) []byte {
	e := newEncoder(tagReleaseSession, 64+len(m.Username)+len(m.Password))
	e.putInt32(m.LibraryID)
	e.putInt64(m.ConnectionID)
	e.putInt64(m.CorrelationID)
	e.putInt32(m.State)
	e.putInt64(m.HeartbeatIntervalMs)
	e.putInt32(m.LastSentSeq)
	e.putInt32(m.LastReceivedSeq)
	e.putString(m.Username)
	e.putString(m.Password)
	return e.bytes()
}

func encodeRequestSession(m transport.RequestSession) []byte {
	e := newEncoder(tagRequestSession, 32)
	e.putInt32(m.LibraryID)
	e.putInt64(m.SessionID)
	e.putInt64(m.CorrelationID)
	e.putInt32(m.LastReceivedSeq)
	return e.bytes()
}

// decodeFragment decodes a single inbound fragment into its concrete message
// type, returning it as an any for the dispatcher to type-switch on.
func decodeFragment(buf []byte) (any, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("library: empty fragment")
	}
	d := newDecoder(buf)
	switch buf[0] {
	case tagManageConnection:
		return transport.ManageConnection{
			LibraryID:          d.getInt32(),
			ConnectionID:       d.getInt64(),
			SessionID:          d.getInt64(),
			Type:               transport.ConnectionType(d.getInt32()),
			LastSentSeq:        d.getInt32(),
			LastReceivedSeq:    d.getInt32(),
			Address:            d.getString(),
			State:              d.getInt32(),
			HeartbeatIntervalS: d.getInt32(),
			ReplyToID:          d.getInt64(),
		}, nil
	case tagLogon:
		return transport.Logon{
			LibraryID:        d.getInt32(),
			ConnectionID:     d.getInt64(),
			SessionID:        d.getInt64(),
			LastSentSeq:      d.getInt32(),
			LastReceivedSeq:  d.getInt32(),
			Status:           transport.LogonStatus(d.getInt32()),
			SenderCompID:     d.getString(),
			SenderSubID:      d.getString(),
			SenderLocationID: d.getString(),
			TargetCompID:     d.getString(),
			Username:         d.getString(),
			Password:         d.getString(),
		}, nil
	case tagFixMessage:
		return transport.FixMessage{
			LibraryID:    d.getInt32(),
			ConnectionID: d.getInt64(),
			SessionID:    d.getInt64(),
			MessageType:  d.getString(),
			SeqIndex:     d.getInt32(),
			TimestampNs:  d.getInt64(),
			Position:     d.getInt64(),
			Body:         d.getBytes(),
		}, nil
	case tagDisconnect:
		return transport.Disconnect{
			LibraryID:    d.getInt32(),
			ConnectionID: d.getInt64(),
			Reason:       d.getString(),
		}, nil
	case tagErrorMessage:
		return transport.ErrorMessage{
			LibraryID: d.getInt32(),
			ReplyToID: d.getInt64(),
			ErrorType: d.getInt32(),
			Message:   d.getString(),
		}, nil
	case tagApplicationHeartbeat:
		return transport.ApplicationHeartbeat{LibraryID: d.getInt32()}, nil
	case tagReleaseSessionReply:
		return transport.ReleaseSessionReply{
			LibraryID: d.getInt32(),
			ReplyToID: d.getInt64(),
			Status:    d.getInt32(),
		}, nil
	case tagRequestSessionReply:
		return transport.RequestSessionReply{
			LibraryID: d.getInt32(),
			ReplyToID: d.getInt64(),
			Status:    d.getInt32(),
		}, nil
	case tagCatchup:
		return transport.Catchup{
			LibraryID:    d.getInt32(),
			ConnectionID: d.getInt64(),
			MessageCount: int(d.getInt32()),
		}, nil
	case tagNewSentPosition:
		return transport.NewSentPosition{
			LibraryID: d.getInt32(),
			Position:  d.getInt64(),
		}, nil
	case tagNotLeader:
		return transport.NotLeader{
			LibraryID:      d.getInt32(),
			ReplyToID:      d.getInt64(),
			LibraryChannel: d.getString(),
		}, nil
	case tagControlNotification:
		libraryID := d.getInt32()
		n := int(d.getInt32())
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = d.getInt64()
		}
		return transport.ControlNotification{LibraryID: libraryID, SessionIDs: ids}, nil
	default:
		return nil, fmt.Errorf("library: unknown message tag %d", buf[0])
	}
}

func encodeControlNotification(m transport.ControlNotification) []byte {
	e := newEncoder(tagControlNotification, 16+8*len(m.SessionIDs))
	e.putInt32(m.LibraryID)
	e.putInt32(int32(len(m.SessionIDs)))
	for _, id := range m.SessionIDs {
		e.putInt64(id)
	}
	return e.bytes()
}
