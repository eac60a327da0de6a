// Package y4mdemux implements ports.Demuxer over YUV4MPEG2 streams using
// github.com/mengelbart/y4m.
//
// A Y4M file has no stored index. Frames are fixed-size, so the frame count is
// known from the file size, and index entries are added as frames are read.
// Every frame is a keyframe. Frame headers with parameters are not supported.
package y4mdemux

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/mengelbart/y4m"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/indexstore"
	"github.com/user/framenav/pkg/ports"
)

// Codec is the StreamInfo.Codec of the video stream.
const Codec = "rawvideo"

const frameMarker = "FRAME\n"

// ErrNotY4M is returned when the input does not start with a YUV4MPEG2 header.
var ErrNotY4M = errors.New("y4mdemux: not a YUV4MPEG2 stream")

// Demuxer reads frames from a Y4M stream.
type Demuxer struct {
	r      io.ReadSeeker
	closer io.Closer
	log    ports.Logger

	header    []byte
	info      ports.StreamInfo
	frameSize int
	index     *indexstore.Store

	reader *y4m.Reader
	next   int64
}

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l ports.Logger) Option {
	return func(d *Demuxer) {
		if l != nil {
			d.log = l.WithComponent("y4mdemux")
		}
	}
}

// OpenFile opens a Y4M file. Close closes the file.
func OpenFile(path string, opts ...Option) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	d, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// Open parses the stream header from r.
func Open(r io.ReadSeeker, opts ...Option) (*Demuxer, error) {
	d := &Demuxer{r: r, log: logger.NewNoop(), index: indexstore.New(0)}
	for _, opt := range opts {
		opt(d)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: seek: %w", ports.ErrEngine, err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek: %w", ports.ErrEngine, err)
	}

	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil || !bytes.HasPrefix(line, []byte("YUV4MPEG2 ")) {
		return nil, ErrNotY4M
	}
	d.header = line

	_, hdr, err := y4m.NewReader(bytes.NewReader(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotY4M, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || hdr.FrameRate.Numerator <= 0 || hdr.FrameRate.Denominator <= 0 {
		return nil, fmt.Errorf("%w: invalid header %q", ErrNotY4M, bytes.TrimSpace(line))
	}

	pf, ratio, alpha := pixelFormat(hdr.ChromaSubsampling)
	d.frameSize = planeBytes(hdr.Width, hdr.Height, ratio, alpha)

	frames := (size - int64(len(line))) / int64(len(frameMarker)+d.frameSize)
	d.info = ports.StreamInfo{
		Index:       0,
		Type:        ports.MediaVideo,
		Codec:       Codec,
		TimeBase:    ports.Rational{Num: int64(hdr.FrameRate.Denominator), Den: int64(hdr.FrameRate.Numerator)},
		FrameCount:  frames,
		Duration:    frames,
		Width:       hdr.Width,
		Height:      hdr.Height,
		PixelFormat: pf,
	}
	d.log.Debug("Opened Y4M: %dx%d %s, %d frames", hdr.Width, hdr.Height, pf, frames)
	return d, nil
}

// pixelFormat maps the Y4M colour space to a planar pixel format.
func pixelFormat(cs y4m.ChromaSubsamplingType) (ports.PixelFormat, image.YCbCrSubsampleRatio, bool) {
	switch cs {
	case y4m.CST411:
		return ports.PixelFormatYUV411P, image.YCbCrSubsampleRatio411, false
	case y4m.CST422:
		return ports.PixelFormatYUV422P, image.YCbCrSubsampleRatio422, false
	case y4m.CST444:
		return ports.PixelFormatYUV444P, image.YCbCrSubsampleRatio444, false
	case y4m.CST444Alpha:
		return ports.PixelFormatYUV444P, image.YCbCrSubsampleRatio444, true
	default:
		return ports.PixelFormatYUV420P, image.YCbCrSubsampleRatio420, false
	}
}

// planeBytes returns the payload size of one frame.
func planeBytes(w, h int, ratio image.YCbCrSubsampleRatio, alpha bool) int {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), ratio)
	n := len(img.Y) + len(img.Cb) + len(img.Cr)
	if alpha {
		n += w * h
	}
	return n
}

func (d *Demuxer) frameOffset(i int64) int64 {
	return int64(len(d.header)) + i*int64(len(frameMarker)+d.frameSize)
}

// Streams returns the single video stream.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return []ports.StreamInfo{d.info}
}

// FrameSize returns the payload size of one frame.
func (d *Demuxer) FrameSize() int {
	return d.frameSize
}

// IndexLen returns the number of frames indexed so far.
func (d *Demuxer) IndexLen(stream int) int {
	if stream != 0 {
		return 0
	}
	return d.index.Len()
}

// IndexEntry returns the i-th index entry.
func (d *Demuxer) IndexEntry(stream, i int) (ports.IndexEntry, bool) {
	if stream != 0 {
		return ports.IndexEntry{}, false
	}
	return d.index.At(i)
}

// SeekTimestamp positions the reader at frame ts, clamped to the stream.
// With ports.DefaultStream, ts is in microseconds.
func (d *Demuxer) SeekTimestamp(stream int, ts int64) error {
	switch stream {
	case ports.DefaultStream:
		ts = ts * d.info.TimeBase.Den / (1_000_000 * d.info.TimeBase.Num)
	case 0:
	default:
		return fmt.Errorf("%w: stream %d", ports.ErrSeekOutOfRange, stream)
	}
	if d.info.FrameCount == 0 {
		return fmt.Errorf("%w: empty stream", ports.ErrSeekOutOfRange)
	}
	d.seekFrame(min(max(ts, 0), d.info.FrameCount-1))
	return nil
}

// SeekByteOffset positions the reader at the first frame at or after offset.
func (d *Demuxer) SeekByteOffset(stream int, offset, tsHint int64) error {
	if stream != 0 {
		return fmt.Errorf("%w: stream %d", ports.ErrSeekOutOfRange, stream)
	}
	step := int64(len(frameMarker) + d.frameSize)
	frame := (offset - int64(len(d.header)) + step - 1) / step
	if frame < 0 {
		frame = 0
	}
	if frame >= d.info.FrameCount {
		return fmt.Errorf("%w: offset %d", ports.ErrSeekOutOfRange, offset)
	}
	if tsHint != ports.NoPTS && tsHint != frame {
		d.log.Debug("Frame at offset %d is %d, expected %d", offset, frame, tsHint)
	}
	d.seekFrame(frame)
	return nil
}

// Rewind positions the reader at the first frame.
func (d *Demuxer) Rewind() error {
	d.seekFrame(0)
	return nil
}

func (d *Demuxer) seekFrame(frame int64) {
	d.next = frame
	d.reader = nil
}

// ReadPacket returns the next frame payload, or io.EOF.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
	if d.next >= d.info.FrameCount {
		return nil, io.EOF
	}
	if d.reader == nil {
		if _, err := d.r.Seek(d.frameOffset(d.next), io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek: %w", ports.ErrEngine, err)
		}
		reader, _, err := y4m.NewReader(io.MultiReader(bytes.NewReader(d.header), d.r))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrEngine, err)
		}
		d.reader = reader
	}

	frame, _, err := d.reader.ReadNextFrame()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read frame %d: %w", ports.ErrEngine, d.next, err)
	}

	pkt := &ports.Packet{
		Stream: 0,
		PTS:    d.next,
		DTS:    d.next,
		Offset: d.frameOffset(d.next),
		Flags:  ports.FlagKeyframe,
		Data:   append([]byte(nil), frame...),
	}
	d.index.Add(ports.IndexEntry{Timestamp: pkt.PTS, Offset: pkt.Offset, Size: uint32(len(pkt.Data)), Flags: pkt.Flags})
	d.next++
	return pkt, nil
}

// Close closes the underlying file when the demuxer opened it.
func (d *Demuxer) Close() error {
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
