// Package pcmdecoder converts uncompressed PCM packets to native-endian
// signed 16-bit samples.
package pcmdecoder

import (
	"encoding/binary"
	"fmt"

	"github.com/user/framenav/pkg/ports"
)

// MaxFrameSize is the worst-case output of one packet, one second of 48 kHz
// stereo.
const MaxFrameSize = 192000

// Options configures a Decoder.
type Options struct {
	// ChunkBytes limits how many input bytes one DecodeAudio call consumes.
	// Zero consumes as much as fits in the destination.
	ChunkBytes int
}

// Decoder implements ports.AudioDecoder for PCM sample entries.
type Decoder struct {
	bytesPerSample int
	bigEndian      bool
	unsigned       bool
	chunk          int
}

// Supported reports whether codec is a PCM sample entry this package decodes.
func Supported(codec string) bool {
	switch codec {
	case "sowt", "twos", "lpcm", "raw ":
		return true
	}
	return false
}

// New creates a decoder for a PCM stream.
func New(info ports.StreamInfo, opts Options) (*Decoder, error) {
	d := &Decoder{chunk: opts.ChunkBytes}
	bits := info.BitsPerSample
	switch info.Codec {
	case "raw ":
		d.unsigned = true
		if bits == 0 {
			bits = 8
		}
	case "twos":
		d.bigEndian = true
	case "sowt", "lpcm":
	default:
		return nil, fmt.Errorf("%w: codec %q is not PCM", ports.ErrConfiguration, info.Codec)
	}
	if bits == 0 {
		bits = 16
	}
	switch bits {
	case 8, 16, 24:
		d.bytesPerSample = bits / 8
	default:
		return nil, fmt.Errorf("%w: %d-bit PCM", ports.ErrConfiguration, bits)
	}
	return d, nil
}

// DecodeAudio converts whole samples from data into dst. It consumes at most
// the configured chunk size and never writes past len(dst).
func (d *Decoder) DecodeAudio(data, dst []byte) (int, int, error) {
	in := len(data)
	if d.chunk > 0 && in > d.chunk {
		in = d.chunk
	}
	n := min(in/d.bytesPerSample, len(dst)/2)

	for i := 0; i < n; i++ {
		binary.NativeEndian.PutUint16(dst[2*i:], uint16(d.sample(data[i*d.bytesPerSample:])))
	}
	return n * d.bytesPerSample, n * 2, nil
}

// sample reads one input sample as signed 16-bit.
func (d *Decoder) sample(b []byte) int16 {
	switch d.bytesPerSample {
	case 1:
		if d.unsigned {
			return int16(int(b[0])-128) << 8
		}
		return int16(int8(b[0])) << 8
	case 3:
		if d.bigEndian {
			return int16(uint16(b[0])<<8 | uint16(b[1]))
		}
		return int16(uint16(b[2])<<8 | uint16(b[1]))
	default:
		if d.bigEndian {
			return int16(binary.BigEndian.Uint16(b))
		}
		return int16(binary.LittleEndian.Uint16(b))
	}
}

// MaxFrameSize returns MaxFrameSize.
func (d *Decoder) MaxFrameSize() int {
	return MaxFrameSize
}

// Close does nothing.
func (d *Decoder) Close() {}

var _ ports.AudioDecoder = (*Decoder)(nil)
