// Package framenav opens a media file and ties the demuxer, the frame index
// and the decode pipeline together behind one Session.
package framenav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/user/framenav/pkg/adapters/drawscaler"
	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/adapters/mp4demux"
	"github.com/user/framenav/pkg/adapters/smartdecoder"
	"github.com/user/framenav/pkg/adapters/y4mdemux"
	"github.com/user/framenav/pkg/config"
	"github.com/user/framenav/pkg/decode"
	"github.com/user/framenav/pkg/frameindex"
	"github.com/user/framenav/pkg/ports"
)

// Container names the detected file format.
type Container string

const (
	ContainerMP4 Container = "mp4"
	ContainerY4M Container = "y4m"
)

// Session is an opened media file. It is not safe for concurrent use.
type Session struct {
	path      string
	container Container
	demuxer   ports.Demuxer
	pipeline  *decode.Pipeline
	streams   []ports.StreamInfo
	backends  map[int]smartdecoder.Backend
	cfg       config.Config
	log       ports.Logger
}

// Entry is an index entry together with its position and presentation time.
type Entry struct {
	Index   int
	Seconds float64
	ports.IndexEntry
}

// Open opens a Y4M or MP4 file, creates a decoder for every stream it can
// decode and configures the scaler from cfg. Streams without a decoder are
// logged and left undecodable.
func Open(path string, cfg config.Config, log ports.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNoop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	container, err := sniff(path)
	if err != nil {
		return nil, err
	}

	var demuxer ports.Demuxer
	switch container {
	case ContainerY4M:
		demuxer, err = y4mdemux.OpenFile(path, y4mdemux.WithLogger(log))
	default:
		demuxer, err = mp4demux.OpenFile(path, mp4demux.WithLogger(log))
	}
	if err != nil {
		return nil, err
	}

	s := &Session{
		path:      path,
		container: container,
		demuxer:   demuxer,
		streams:   demuxer.Streams(),
		backends:  make(map[int]smartdecoder.Backend),
		cfg:       cfg,
		log:       log,
	}
	if err := s.prepare(); err != nil {
		s.Close()
		return nil, err
	}
	log.Info("Opened %s (%s): %d streams", path, container, len(s.streams))
	return s, nil
}

// sniff reports the container format from the file signature.
func sniff(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 9)
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read signature: %w", err)
	}
	if bytes.Equal(magic[:n], []byte("YUV4MPEG2")) {
		return ContainerY4M, nil
	}
	return ContainerMP4, nil
}

// prepare builds decoders and the scale configuration.
func (s *Session) prepare() error {
	opts := smartdecoder.Options{
		FFmpegPath:    s.cfg.Decoder.FFmpegPath,
		PCMChunkBytes: s.cfg.Decoder.PCMChunkBytes,
	}
	scaler, err := drawscaler.New(drawscaler.Options{Interpolator: s.cfg.Scale.Interpolator})
	if err != nil {
		return err
	}
	decoders := decode.Decoders{
		Video: make(map[int]ports.VideoDecoder),
		Audio: make(map[int]ports.AudioDecoder),
	}

	for _, info := range s.streams {
		switch info.Type {
		case ports.MediaVideo:
			d, backend, err := smartdecoder.NewVideo(info, opts)
			if err != nil {
				s.log.Warn("Stream %d (%s %s) cannot be decoded: %v", info.Index, info.Type, info.Codec, err)
				continue
			}
			decoders.Video[info.Index] = d
			s.backends[info.Index] = backend
		case ports.MediaAudio:
			d, backend, err := smartdecoder.NewAudio(info, opts)
			if err != nil {
				s.log.Warn("Stream %d (%s %s) cannot be decoded: %v", info.Index, info.Type, info.Codec, err)
				continue
			}
			decoders.Audio[info.Index] = d
			s.backends[info.Index] = backend
		}
	}

	s.pipeline = decode.New(s.streams, decoders, scaler, s.log)

	if s.pipeline.VideoStream() < 0 {
		return nil
	}
	return s.applyScale(s.cfg.Scale)
}

// applyScale configures the scaler from a ScaleConfig. A zero dimension
// follows the source, keeping the aspect ratio when the other one is set.
func (s *Session) applyScale(sc config.ScaleConfig) error {
	src, _ := s.Stream(s.pipeline.VideoStream())
	w, h := fitSize(src.Width, src.Height, sc.Width, sc.Height)

	pf := ports.PixelFormatRGB32
	if sc.PixelFormat != "" {
		pf = ports.ParsePixelFormat(sc.PixelFormat)
	}
	mode, err := decode.ParseStrideMode(sc.StrideMode)
	if err != nil {
		return err
	}
	return s.pipeline.ConfigureScale(w, h, pf, mode)
}

func fitSize(srcW, srcH, w, h int) (int, int) {
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0 && srcW > 0:
		return w, max(1, (srcH*w+srcW/2)/srcW)
	case h > 0 && srcH > 0:
		return max(1, (srcW*h+srcH/2)/srcH), h
	default:
		return srcW, srcH
	}
}

// Resize changes the output size and keeps the configured pixel format and
// stride mode. A zero dimension follows the source aspect ratio.
func (s *Session) Resize(width, height int) error {
	if s.VideoStream() < 0 {
		return fmt.Errorf("%w: no video stream", ports.ErrConfiguration)
	}
	sc := s.cfg.Scale
	sc.Width, sc.Height = width, height
	return s.applyScale(sc)
}

// IndexStatus returns nil when a stream's index holds every declared frame,
// and an error wrapping ports.ErrIndexIncomplete otherwise.
func (s *Session) IndexStatus(stream int) error {
	info, ok := s.Stream(stream)
	if !ok {
		return fmt.Errorf("%w: stream %d not found", ports.ErrConfiguration, stream)
	}
	if n := s.demuxer.IndexLen(stream); int64(n) < info.FrameCount {
		return fmt.Errorf("%w: stream %d has %d of %d entries", ports.ErrIndexIncomplete, stream, n, info.FrameCount)
	}
	return nil
}

// Path returns the opened file path.
func (s *Session) Path() string { return s.path }

// Container returns the detected container format.
func (s *Session) Container() Container { return s.container }

// Streams returns the container's streams.
func (s *Session) Streams() []ports.StreamInfo { return s.streams }

// Stream returns the stream with the given index.
func (s *Session) Stream(index int) (ports.StreamInfo, bool) {
	for _, info := range s.streams {
		if info.Index == index {
			return info, true
		}
	}
	return ports.StreamInfo{}, false
}

// Backend returns the decoder backend of a stream, if it has a decoder.
func (s *Session) Backend(stream int) (smartdecoder.Backend, bool) {
	b, ok := s.backends[stream]
	return b, ok
}

// Demuxer exposes the underlying demuxer.
func (s *Session) Demuxer() ports.Demuxer { return s.demuxer }

// Pipeline exposes the decode pipeline and its scale accessors.
func (s *Session) Pipeline() *decode.Pipeline { return s.pipeline }

// VideoStream returns the stream driving the scaler, or -1.
func (s *Session) VideoStream() int { return s.pipeline.VideoStream() }

// Duration returns the longest stream duration in seconds.
func (s *Session) Duration() float64 {
	var d float64
	for _, info := range s.streams {
		d = max(d, info.TimeBase.Seconds(info.Duration))
	}
	return d
}

// MediaType returns the type of the stream a packet belongs to.
func (s *Session) MediaType(pkt *ports.Packet) ports.MediaType {
	info, _ := s.Stream(pkt.Stream)
	return info.Type
}

// Seek positions the demuxer at the keyframe at or before seconds.
func (s *Session) Seek(seconds float64) error {
	if err := s.demuxer.SeekTimestamp(ports.DefaultStream, int64(seconds*1e6)); err != nil {
		return fmt.Errorf("seek to %.3fs: %w", seconds, err)
	}
	s.pipeline.Flush()
	return nil
}

// SeekToIndex positions the demuxer at a stream's index entry.
func (s *Session) SeekToIndex(stream, index int) error {
	if err := frameindex.SeekToIndex(s.demuxer, stream, index); err != nil {
		return err
	}
	s.pipeline.Flush()
	return nil
}

// ReadPacket returns the next packet, or io.EOF.
func (s *Session) ReadPacket() (*ports.Packet, error) {
	return s.demuxer.ReadPacket()
}

// ConfigureScale replaces the output picture format.
func (s *Session) ConfigureScale(width, height int, pf ports.PixelFormat, mode decode.StrideMode) error {
	return s.pipeline.ConfigureScale(width, height, pf, mode)
}

// DecodeVideo decodes a video packet into buf. See decode.Pipeline.DecodeVideo.
func (s *Session) DecodeVideo(pkt *ports.Packet, buf []byte, threshold float64) (decode.Result, error) {
	return s.pipeline.DecodeVideo(pkt, buf, threshold)
}

// DecodeAudio decodes an audio packet into buf. See decode.Pipeline.DecodeAudio.
func (s *Session) DecodeAudio(pkt *ports.Packet, buf []byte) (decode.Result, error) {
	return s.pipeline.DecodeAudio(pkt, buf)
}

// Enumerator creates a cursor over a stream's index. It may read the whole
// container first to complete the index, which moves the read position.
func (s *Session) Enumerator(ctx context.Context, stream int, pred frameindex.Predicate) (*frameindex.Enumerator, error) {
	return frameindex.New(ctx, s.demuxer, stream, frameindex.WithPredicate(pred), frameindex.WithLogger(s.log))
}

// Entries lists the index entries of a stream that satisfy pred.
func (s *Session) Entries(ctx context.Context, stream int, pred frameindex.Predicate) ([]Entry, error) {
	info, ok := s.Stream(stream)
	if !ok {
		return nil, fmt.Errorf("%w: stream %d not found", ports.ErrConfiguration, stream)
	}
	e, err := s.Enumerator(ctx, stream, pred)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for {
		ok, err := e.Advance()
		if err != nil {
			return entries, err
		}
		if !ok {
			break
		}
		entry, _ := s.demuxer.IndexEntry(stream, e.Index())
		entries = append(entries, Entry{
			Index:      e.Index(),
			Seconds:    info.TimeBase.Seconds(entry.Timestamp),
			IndexEntry: entry,
		})
	}
	return entries, nil
}

// Keyframes lists the keyframes of the video stream.
func (s *Session) Keyframes(ctx context.Context) ([]Entry, error) {
	video := s.VideoStream()
	if video < 0 {
		return nil, fmt.Errorf("%w: no video stream", ports.ErrConfiguration)
	}
	return s.Entries(ctx, video, frameindex.KeyframesOnly)
}

// FrameAt decodes the first picture at or after seconds into buf, which must
// hold Pipeline().ScaleBufferSize() bytes. It returns io.EOF when no picture
// follows the target.
func (s *Session) FrameAt(ctx context.Context, seconds float64, buf []byte) (decode.Result, error) {
	if s.VideoStream() < 0 {
		return decode.Result{}, fmt.Errorf("%w: no video stream", ports.ErrConfiguration)
	}
	if err := s.Seek(seconds); err != nil {
		return decode.Result{}, err
	}
	return s.decodeFrom(ctx, seconds, buf)
}

// FrameAtEntry seeks to a video index entry and decodes its picture into buf.
func (s *Session) FrameAtEntry(ctx context.Context, e Entry, buf []byte) (decode.Result, error) {
	video := s.VideoStream()
	if video < 0 {
		return decode.Result{}, fmt.Errorf("%w: no video stream", ports.ErrConfiguration)
	}
	if err := s.SeekToIndex(video, e.Index); err != nil {
		return decode.Result{}, err
	}
	return s.decodeFrom(ctx, e.Seconds, buf)
}

// decodeFrom reads video packets until a picture at or after threshold.
func (s *Session) decodeFrom(ctx context.Context, threshold float64, buf []byte) (decode.Result, error) {
	video := s.VideoStream()
	for {
		if err := ctx.Err(); err != nil {
			return decode.Result{}, err
		}
		pkt, err := s.demuxer.ReadPacket()
		if err != nil {
			return decode.Result{}, err
		}
		if pkt.Stream != video {
			continue
		}
		res, err := s.pipeline.DecodeVideo(pkt, buf, threshold)
		if err != nil {
			return res, err
		}
		if res.Skipped || res.Incomplete {
			continue
		}
		s.log.Debug("Decoded frame at %.3fs for target %.3fs", res.Timestamp, threshold)
		return res, nil
	}
}

// Close releases the pipeline and the demuxer. Calling it again is a no-op.
func (s *Session) Close() error {
	if s.pipeline != nil {
		s.pipeline.Close()
	}
	if s.demuxer == nil {
		return nil
	}
	err := s.demuxer.Close()
	s.demuxer = nil
	return err
}
