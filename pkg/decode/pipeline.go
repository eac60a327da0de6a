// Package decode turns compressed packets into timestamped output buffers:
// rescaled pictures for video and accumulated samples for audio.
package decode

import (
	"errors"
	"fmt"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/ports"
)

// ErrNotConfigured is returned by DecodeVideo before a successful ConfigureScale.
var ErrNotConfigured = errors.New("decode: scale not configured")

// Result describes the outcome of decoding one packet.
type Result struct {
	// Timestamp is the presentation time in seconds.
	Timestamp float64
	// ByteCount is the number of bytes written to the caller buffer.
	ByteCount int
	// Skipped is set when the picture was earlier than the threshold and
	// was not rescaled.
	Skipped bool
	// Incomplete is set when the decoder produced no picture for the packet.
	Incomplete bool
}

// Decoders holds the per-stream decoders a Pipeline owns, keyed by stream index.
type Decoders struct {
	Video map[int]ports.VideoDecoder
	Audio map[int]ports.AudioDecoder
}

// Pipeline owns the decoders and the scaler of one opened container. It is not
// safe for concurrent use. Caller buffers are only borrowed for one call.
type Pipeline struct {
	streams  []ports.StreamInfo
	video    int
	decoders Decoders
	scaler   ports.Scaler
	log      ports.Logger

	configured bool
	width      int
	height     int
	pixfmt     ports.PixelFormat
	mode       StrideMode
	stride     int

	closed bool
}

// New creates a Pipeline. The first video stream in streams becomes the
// stream whose dimensions feed the scaler. The pipeline takes ownership of
// the decoders and the scaler and releases them on Close.
func New(streams []ports.StreamInfo, decoders Decoders, scaler ports.Scaler, log ports.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNoop()
	}
	p := &Pipeline{
		streams:  streams,
		video:    -1,
		decoders: decoders,
		scaler:   scaler,
		log:      log.WithComponent("decode"),
	}
	for i, s := range streams {
		if s.Type == ports.MediaVideo {
			p.video = i
			break
		}
	}
	return p
}

// VideoStream returns the stream index driving the scale configuration, or
// -1 when the container has no video stream.
func (p *Pipeline) VideoStream() int {
	if p.video < 0 {
		return -1
	}
	return p.streams[p.video].Index
}

// ConfigureScale sets the target picture format and rebuilds the scaler
// context for the current source video. It may be called repeatedly; each
// call supersedes the previous configuration.
func (p *Pipeline) ConfigureScale(width, height int, pf ports.PixelFormat, mode StrideMode) error {
	if p.video < 0 {
		return fmt.Errorf("%w: no video stream", ports.ErrConfiguration)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid target size %dx%d", ports.ErrConfiguration, width, height)
	}
	if !pf.IsTarget() {
		return fmt.Errorf("%w: %s is not a target pixel format", ports.ErrConfiguration, pf)
	}
	stride, err := mode.Stride(width * pf.BytesPerPixel())
	if err != nil {
		return err
	}

	src := p.streams[p.video]
	err = p.scaler.Configure(
		ports.ScaleFormat{Width: src.Width, Height: src.Height, PixelFormat: src.PixelFormat},
		ports.ScaleFormat{Width: width, Height: height, PixelFormat: pf},
	)
	if err != nil {
		p.configured = false
		return fmt.Errorf("%w: configure scaler: %w", ports.ErrEngine, err)
	}

	p.width, p.height, p.pixfmt, p.mode, p.stride = width, height, pf, mode, stride
	p.configured = true
	p.log.Debug("Scale configured: %dx%d %s, stride %d (%s)", width, height, pf, stride, mode)
	return nil
}

// DecodeVideo decodes one video packet into buf.
//
// A packet that yields no picture returns Incomplete. A picture whose
// timestamp is below threshold (in seconds) is not rescaled and returns
// Skipped with ByteCount 0. Otherwise the picture is rescaled into buf, which
// must hold at least ScaleBufferSize bytes. buf is not modified unless the
// result is a full picture.
func (p *Pipeline) DecodeVideo(pkt *ports.Packet, buf []byte, threshold float64) (Result, error) {
	if !p.configured {
		return Result{}, ErrNotConfigured
	}
	dec, ok := p.decoders.Video[pkt.Stream]
	if !ok {
		return Result{}, fmt.Errorf("%w: no video decoder for stream %d", ports.ErrConfiguration, pkt.Stream)
	}

	frame, err := dec.DecodeVideo(pkt)
	if err != nil {
		return Result{}, fmt.Errorf("%w: decode video: %w", ports.ErrEngine, err)
	}
	if frame == nil {
		return Result{Incomplete: true}, nil
	}

	ts := p.timeBase(pkt.Stream).Seconds(frameTimestamp(frame, pkt))
	if ts < threshold {
		return Result{Timestamp: ts, Skipped: true}, nil
	}

	need := p.ScaleBufferSize()
	if len(buf) < need {
		return Result{}, fmt.Errorf("%w: need %d bytes, have %d", ports.ErrBufferTooSmall, need, len(buf))
	}
	if err := p.scaler.Scale(frame.Image, buf[:need], p.stride); err != nil {
		return Result{}, fmt.Errorf("%w: scale: %w", ports.ErrEngine, err)
	}
	return Result{Timestamp: ts, ByteCount: need}, nil
}

// frameTimestamp prefers the decoder's reordered timestamp, then the
// packet's decode timestamp, then zero.
func frameTimestamp(frame *ports.Frame, pkt *ports.Packet) int64 {
	switch {
	case frame.PTS != ports.NoPTS:
		return frame.PTS
	case pkt.DTS != ports.NoPTS:
		return pkt.DTS
	default:
		return 0
	}
}

// DecodeAudio decodes every sample in one audio packet into buf.
//
// The decoder is called until the packet is consumed, it produces nothing, or
// buf is full. A decoder error ends the loop and keeps the output written so
// far. ByteCount is the number of bytes written, never more than len(buf).
// Size buf with AudioBufferSize.
func (p *Pipeline) DecodeAudio(pkt *ports.Packet, buf []byte) (Result, error) {
	dec, ok := p.decoders.Audio[pkt.Stream]
	if !ok {
		return Result{}, fmt.Errorf("%w: no audio decoder for stream %d", ports.ErrConfiguration, pkt.Stream)
	}

	// Output left over from an earlier packet does not belong to this one.
	if f, ok := dec.(ports.Flusher); ok {
		f.Flush()
	}

	data := pkt.Data
	written := 0
	for len(data) > 0 && written < len(buf) {
		consumed, produced, err := dec.DecodeAudio(data, buf[written:])
		if err != nil {
			p.log.Warn("Audio decode stopped at offset %d: %v", pkt.Offset, err)
			break
		}
		if produced > len(buf)-written {
			produced = len(buf) - written
		}
		written += produced
		if produced <= 0 {
			break
		}
		if consumed < 0 || consumed > len(data) {
			consumed = len(data)
		}
		data = data[consumed:]
	}

	var ts float64
	if pkt.PTS != ports.NoPTS {
		ts = p.timeBase(pkt.Stream).Seconds(pkt.PTS)
	}
	return Result{Timestamp: ts, ByteCount: written}, nil
}

// AudioBufferSize returns the worst-case output size of one packet of an
// audio stream, or 0 without a decoder for it.
func (p *Pipeline) AudioBufferSize(stream int) int {
	if dec, ok := p.decoders.Audio[stream]; ok {
		return dec.MaxFrameSize()
	}
	return 0
}

// Configured reports whether ConfigureScale succeeded.
func (p *Pipeline) Configured() bool { return p.configured }

// ScaleWidth returns the target width.
func (p *Pipeline) ScaleWidth() int { return p.width }

// ScaleHeight returns the target height.
func (p *Pipeline) ScaleHeight() int { return p.height }

// ScaleStride returns the derived row stride in bytes.
func (p *Pipeline) ScaleStride() int { return p.stride }

// ScalePixelFormat returns the target pixel format.
func (p *Pipeline) ScalePixelFormat() ports.PixelFormat { return p.pixfmt }

// ScaleStrideMode returns the configured stride mode.
func (p *Pipeline) ScaleStrideMode() StrideMode { return p.mode }

// ScaleBufferSize returns the byte size of one output picture.
func (p *Pipeline) ScaleBufferSize() int {
	return p.height * p.stride
}

// Flush drops the state every decoder carries from earlier packets. Call it
// after repositioning the demuxer.
func (p *Pipeline) Flush() {
	for _, d := range p.decoders.Video {
		if f, ok := d.(ports.Flusher); ok {
			f.Flush()
		}
	}
	for _, d := range p.decoders.Audio {
		if f, ok := d.(ports.Flusher); ok {
			f.Flush()
		}
	}
}

// Close releases the decoders and the scaler. Calling it again is a no-op.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}
	p.closed = true
	for _, d := range p.decoders.Video {
		d.Close()
	}
	for _, d := range p.decoders.Audio {
		d.Close()
	}
	if p.scaler != nil {
		p.scaler.Close()
	}
	p.configured = false
}

func (p *Pipeline) timeBase(stream int) ports.Rational {
	for _, s := range p.streams {
		if s.Index == stream {
			return s.TimeBase
		}
	}
	return ports.Rational{}
}
