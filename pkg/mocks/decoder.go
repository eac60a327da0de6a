package mocks

import (
	"github.com/user/framenav/pkg/ports"
)

// VideoDecoder is a mock implementation of ports.VideoDecoder.
type VideoDecoder struct {
	DecodeVideoFunc func(pkt *ports.Packet) (*ports.Frame, error)

	// Recorded calls for verification
	DecodeCalls int
	FlushCalls  int
	CloseCalls  int
}

func (m *VideoDecoder) DecodeVideo(pkt *ports.Packet) (*ports.Frame, error) {
	m.DecodeCalls++
	if m.DecodeVideoFunc != nil {
		return m.DecodeVideoFunc(pkt)
	}
	return &ports.Frame{PTS: pkt.PTS}, nil
}

func (m *VideoDecoder) Flush() {
	m.FlushCalls++
}

func (m *VideoDecoder) Close() {
	m.CloseCalls++
}

// AudioDecoder is a mock implementation of ports.AudioDecoder.
//
// Without DecodeAudioFunc it consumes up to ChunkBytes of input per call
// (all of it when ChunkBytes is 0) and produces OutputPerCall bytes of Fill,
// capped at len(dst).
type AudioDecoder struct {
	DecodeAudioFunc func(data []byte, dst []byte) (int, int, error)
	ChunkBytes      int
	OutputPerCall   int
	Fill            byte
	MaxFrame        int

	// Recorded calls for verification
	DecodeCalls []AudioDecodeCall
	FlushCalls  int
	CloseCalls  int
}

// AudioDecodeCall records a call to DecodeAudio.
type AudioDecodeCall struct {
	DataLen int
	DstLen  int
}

func (m *AudioDecoder) DecodeAudio(data []byte, dst []byte) (int, int, error) {
	m.DecodeCalls = append(m.DecodeCalls, AudioDecodeCall{DataLen: len(data), DstLen: len(dst)})
	if m.DecodeAudioFunc != nil {
		return m.DecodeAudioFunc(data, dst)
	}
	consumed := len(data)
	if m.ChunkBytes > 0 && consumed > m.ChunkBytes {
		consumed = m.ChunkBytes
	}
	produced := m.OutputPerCall
	if produced > len(dst) {
		produced = len(dst)
	}
	for i := 0; i < produced; i++ {
		dst[i] = m.Fill
	}
	return consumed, produced, nil
}

func (m *AudioDecoder) MaxFrameSize() int {
	return m.MaxFrame
}

func (m *AudioDecoder) Flush() {
	m.FlushCalls++
}

func (m *AudioDecoder) Close() {
	m.CloseCalls++
}

var (
	_ ports.VideoDecoder = (*VideoDecoder)(nil)
	_ ports.AudioDecoder = (*AudioDecoder)(nil)
	_ ports.Flusher      = (*VideoDecoder)(nil)
	_ ports.Flusher      = (*AudioDecoder)(nil)
)
