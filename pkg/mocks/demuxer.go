// Package mocks provides mock implementations for testing.
package mocks

import (
	"io"

	"github.com/user/framenav/pkg/ports"
)

// Demuxer is a mock implementation of ports.Demuxer backed by an in-memory
// packet list. With IndexOnRead set, every packet read is appended to its
// stream's index, the way a demuxer without a stored index behaves.
type Demuxer struct {
	StreamInfos []ports.StreamInfo
	Packets     []ports.Packet
	Index       map[int][]ports.IndexEntry
	IndexOnRead bool

	SeekTimestampFunc  func(stream int, ts int64) error
	SeekByteOffsetFunc func(stream int, offset int64, tsHint int64) error
	ReadPacketFunc     func() (*ports.Packet, error)
	RewindFunc         func() error

	// Recorded calls for verification
	SeekTimestampCalls  []SeekTimestampCall
	SeekByteOffsetCalls []SeekByteOffsetCall
	ReadCalls           int
	RewindCalls         int
	Closed              bool

	pos int
}

// SeekTimestampCall records a call to SeekTimestamp.
type SeekTimestampCall struct {
	Stream    int
	Timestamp int64
}

// SeekByteOffsetCall records a call to SeekByteOffset.
type SeekByteOffsetCall struct {
	Stream int
	Offset int64
	TSHint int64
}

func (m *Demuxer) Streams() []ports.StreamInfo {
	return m.StreamInfos
}

func (m *Demuxer) IndexLen(stream int) int {
	return len(m.Index[stream])
}

func (m *Demuxer) IndexEntry(stream, i int) (ports.IndexEntry, bool) {
	entries := m.Index[stream]
	if i < 0 || i >= len(entries) {
		return ports.IndexEntry{}, false
	}
	return entries[i], true
}

func (m *Demuxer) SeekTimestamp(stream int, ts int64) error {
	m.SeekTimestampCalls = append(m.SeekTimestampCalls, SeekTimestampCall{Stream: stream, Timestamp: ts})
	if m.SeekTimestampFunc != nil {
		return m.SeekTimestampFunc(stream, ts)
	}
	m.pos = 0
	for i, p := range m.Packets {
		if (stream == ports.DefaultStream || p.Stream == stream) && p.PTS <= ts && p.Flags.IsKeyframe() {
			m.pos = i
		}
	}
	return nil
}

func (m *Demuxer) SeekByteOffset(stream int, offset int64, tsHint int64) error {
	m.SeekByteOffsetCalls = append(m.SeekByteOffsetCalls, SeekByteOffsetCall{Stream: stream, Offset: offset, TSHint: tsHint})
	if m.SeekByteOffsetFunc != nil {
		return m.SeekByteOffsetFunc(stream, offset, tsHint)
	}
	for i, p := range m.Packets {
		if p.Offset >= offset {
			m.pos = i
			return nil
		}
	}
	return ports.ErrSeekOutOfRange
}

func (m *Demuxer) Rewind() error {
	m.RewindCalls++
	if m.RewindFunc != nil {
		return m.RewindFunc()
	}
	m.pos = 0
	return nil
}

func (m *Demuxer) ReadPacket() (*ports.Packet, error) {
	m.ReadCalls++
	if m.ReadPacketFunc != nil {
		return m.ReadPacketFunc()
	}
	if m.pos >= len(m.Packets) {
		return nil, io.EOF
	}
	p := m.Packets[m.pos]
	m.pos++
	if m.IndexOnRead {
		m.addIndexEntry(p)
	}
	return &p, nil
}

func (m *Demuxer) addIndexEntry(p ports.Packet) {
	if m.Index == nil {
		m.Index = make(map[int][]ports.IndexEntry)
	}
	entries := m.Index[p.Stream]
	if n := len(entries); n > 0 && entries[n-1].Offset >= p.Offset {
		return
	}
	m.Index[p.Stream] = append(entries, ports.IndexEntry{
		Timestamp: p.PTS,
		Offset:    p.Offset,
		Size:      uint32(len(p.Data)),
		Flags:     p.Flags,
	})
}

func (m *Demuxer) Close() error {
	m.Closed = true
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
