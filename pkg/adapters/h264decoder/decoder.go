// Package h264decoder provides H.264 video decoding through an external ffmpeg
// process.
//
// ffmpeg is stateless between calls, so the decoder keeps the access units of
// the current GOP and decodes them again for every packet, selecting the
// picture that belongs to that packet by its rank in display order.
package h264decoder

import (
	"bytes"
	"errors"
	"image"

	"github.com/user/framenav/pkg/ports"
)

var (
	// ErrDecodeFailed is returned when decoding a frame fails.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found in PATH.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")
)

// Options configures a Decoder.
type Options struct {
	// FFmpegPath overrides the ffmpeg lookup in PATH and common locations.
	FFmpegPath string
}

// pictureDecoder decodes an Annex B stream and returns the picture at the
// given display rank, or nil if there is none.
type pictureDecoder func(stream []byte, rank int) (image.Image, error)

// Decoder decodes H.264 packets. It implements ports.VideoDecoder.
type Decoder struct {
	decode    pictureDecoder
	paramSets []byte

	gop    []byte
	gopPTS []int64
}

// New creates a decoder for an H.264 stream. info.Extradata holds the SPS and
// PPS in Annex B form and is prepended to every keyframe.
func New(info ports.StreamInfo, opts Options) (*Decoder, error) {
	path, err := findFFmpeg(opts.FFmpegPath)
	if err != nil {
		return nil, err
	}
	ff := &ffmpegRunner{path: path}
	return newDecoder(info.Extradata, ff.decodePicture), nil
}

func newDecoder(paramSets []byte, decode pictureDecoder) *Decoder {
	return &Decoder{decode: decode, paramSets: paramSets}
}

// DecodeVideo decodes one access unit in AVCC or Annex B form. Packets before
// the first keyframe produce no picture.
func (d *Decoder) DecodeVideo(pkt *ports.Packet) (*ports.Frame, error) {
	if pkt.Flags.IsKeyframe() {
		d.gop = append(d.gop[:0], d.paramSets...)
		d.gopPTS = d.gopPTS[:0]
	} else if len(d.gopPTS) == 0 {
		return nil, nil
	}
	d.gop = append(d.gop, toAnnexB(pkt.Data)...)
	d.gopPTS = append(d.gopPTS, pkt.PTS)

	img, err := d.decode(d.gop, displayRank(d.gopPTS))
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	return &ports.Frame{Image: img, PTS: pkt.PTS}, nil
}

// Flush drops the buffered GOP. Packets up to the next keyframe report no
// picture.
func (d *Decoder) Flush() {
	d.gop = d.gop[:0]
	d.gopPTS = d.gopPTS[:0]
}

// Close drops the buffered GOP.
func (d *Decoder) Close() {
	d.gop = nil
	d.gopPTS = nil
}

// displayRank returns the display position of the last packet in the GOP.
// Without timestamps, decode order is assumed.
func displayRank(pts []int64) int {
	last := pts[len(pts)-1]
	if last == ports.NoPTS {
		return len(pts) - 1
	}
	rank := 0
	for _, p := range pts[:len(pts)-1] {
		if p == ports.NoPTS {
			return len(pts) - 1
		}
		if p < last {
			rank++
		}
	}
	return rank
}

var startCode = []byte{0, 0, 0, 1}

// toAnnexB converts AVCC (length-prefixed NALUs) to Annex B (start code
// prefixed). Data that already starts with a 4-byte start code is returned
// as is; a 3-byte one cannot be told apart from an AVCC length.
func toAnnexB(data []byte) []byte {
	if bytes.HasPrefix(data, startCode) {
		return data
	}

	var result []byte
	offset := 0
	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}

		result = append(result, startCode...)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}
	return result
}

var (
	_ ports.VideoDecoder = (*Decoder)(nil)
	_ ports.Flusher      = (*Decoder)(nil)
)
