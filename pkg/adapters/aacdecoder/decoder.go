// Package aacdecoder decodes raw AAC access units with the pure Go
// github.com/llehouerou/go-aac decoder.
package aacdecoder

import (
	"encoding/binary"
	"errors"
	"fmt"

	aac "github.com/llehouerou/go-aac"

	"github.com/user/framenav/pkg/ports"
)

// samplesPerFrame bounds the output of one access unit per channel.
const samplesPerFrame = 2048

// ErrNoConfig is returned when the stream carries no AudioSpecificConfig.
var ErrNoConfig = errors.New("aacdecoder: missing AudioSpecificConfig")

// Decoder implements ports.AudioDecoder for mp4a streams.
type Decoder struct {
	dec        *aac.Decoder
	sampleRate int
	channels   int
	pending    []int16
}

// New initialises a decoder from the esds AudioSpecificConfig in
// info.Extradata.
func New(info ports.StreamInfo) (*Decoder, error) {
	if len(info.Extradata) == 0 {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfiguration, ErrNoConfig)
	}
	dec := aac.NewDecoder()
	rate, channels, err := dec.SimpleInit2(info.Extradata)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: init aac: %w", ports.ErrEngine, err)
	}
	return &Decoder{dec: dec, sampleRate: int(rate), channels: int(channels)}, nil
}

// SampleRate returns the output sample rate.
func (d *Decoder) SampleRate() int { return d.sampleRate }

// Channels returns the output channel count.
func (d *Decoder) Channels() int { return d.channels }

// DecodeAudio decodes one access unit and consumes all of data. Samples that
// do not fit in dst are kept and written first on the next call, until
// Flush drops them.
func (d *Decoder) DecodeAudio(data, dst []byte) (int, int, error) {
	consumed := 0
	if len(d.pending) == 0 && len(data) > 0 {
		samples, err := d.dec.DecodeInt16(data)
		if err != nil {
			return 0, 0, fmt.Errorf("decode aac: %w", err)
		}
		d.pending = samples
		consumed = len(data)
	}

	n := min(len(d.pending), len(dst)/2)
	for i := 0; i < n; i++ {
		binary.NativeEndian.PutUint16(dst[2*i:], uint16(d.pending[i]))
	}
	d.pending = d.pending[n:]
	return consumed, 2 * n, nil
}

// Flush drops samples still pending from the previous access unit.
func (d *Decoder) Flush() {
	d.pending = nil
}

// MaxFrameSize returns the largest output of one access unit in bytes.
func (d *Decoder) MaxFrameSize() int {
	return samplesPerFrame * max(d.channels, 1) * 2
}

// Close releases the decoder.
func (d *Decoder) Close() {
	if d.dec != nil {
		d.dec.Close()
		d.dec = nil
	}
}

var (
	_ ports.AudioDecoder = (*Decoder)(nil)
	_ ports.Flusher      = (*Decoder)(nil)
)
