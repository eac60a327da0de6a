package framenav

import (
	"bytes"
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/adapters/smartdecoder"
	"github.com/user/framenav/pkg/config"
	"github.com/user/framenav/pkg/decode"
	"github.com/user/framenav/pkg/frameindex"
	"github.com/user/framenav/pkg/mocks"
	"github.com/user/framenav/pkg/ports"
)

// writeY4M writes a 4x2 4:2:0 file at 25 fps whose frame i has luma 10*(i+1)
// and neutral chroma.
func writeY4M(t *testing.T, frames int) string {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("YUV4MPEG2 W4 H2 F25:1 Ip A1:1 C420jpeg\n")
	for i := 0; i < frames; i++ {
		b.WriteString("FRAME\n")
		b.Write(bytes.Repeat([]byte{byte(10 * (i + 1))}, 8))
		b.Write([]byte{128, 128, 128, 128})
	}
	path := filepath.Join(t.TempDir(), "clip.y4m")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Scale.Interpolator = "nearest"
	return cfg
}

func openClip(t *testing.T, frames int, cfg config.Config) *Session {
	t.Helper()
	s, err := Open(writeY4M(t, frames), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func lumaAt(t *testing.T, s *Session, buf []byte) uint8 {
	t.Helper()
	img, err := s.Picture(buf)
	require.NoError(t, err)
	r, _, _, _ := img.At(0, 0).RGBA()
	return uint8(r >> 8)
}

func TestOpen_Y4M(t *testing.T) {
	s := openClip(t, 5, testConfig())

	assert.Equal(t, ContainerY4M, s.Container())
	require.Len(t, s.Streams(), 1)
	assert.Equal(t, 0, s.VideoStream())
	assert.InDelta(t, 0.2, s.Duration(), 1e-9)

	backend, ok := s.Backend(0)
	assert.True(t, ok)
	assert.Equal(t, smartdecoder.BackendRaw, backend)

	p := s.Pipeline()
	assert.Equal(t, 4, p.ScaleWidth())
	assert.Equal(t, 2, p.ScaleHeight())
	assert.Equal(t, ports.PixelFormatRGB32, p.ScalePixelFormat())
	assert.Equal(t, decode.StrideFourByteAligned, p.ScaleStrideMode())
	assert.Equal(t, 32, p.ScaleBufferSize())
}

func TestOpen_ConfiguredScale(t *testing.T) {
	cfg := testConfig()
	cfg.Scale.Width = 2
	cfg.Scale.PixelFormat = "gray8"
	cfg.Scale.StrideMode = "pow2"
	s := openClip(t, 2, cfg)

	p := s.Pipeline()
	assert.Equal(t, 2, p.ScaleWidth())
	assert.Equal(t, 1, p.ScaleHeight(), "height follows the source aspect ratio")
	assert.Equal(t, 2, p.ScaleStride())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.y4m"), testConfig(), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg := testConfig()
	cfg.Scale.StrideMode = "align16"
	_, err = Open(writeY4M(t, 1), cfg, nil)
	assert.ErrorIs(t, err, ports.ErrConfiguration)

	garbage := filepath.Join(t.TempDir(), "garbage.mp4")
	require.NoError(t, os.WriteFile(garbage, []byte("not a media file"), 0o644))
	_, err = Open(garbage, testConfig(), nil)
	assert.Error(t, err)
}

func TestKeyframes(t *testing.T) {
	s := openClip(t, 5, testConfig())

	entries, err := s.Keyframes(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, int64(i), e.Timestamp)
		assert.InDelta(t, float64(i)*0.04, e.Seconds, 1e-9)
		assert.True(t, e.Flags.IsKeyframe())
	}

	nth, err := s.Entries(context.Background(), 0, frameindex.EveryNth(2))
	require.NoError(t, err)
	assert.Len(t, nth, 3)

	_, err = s.Entries(context.Background(), 3, frameindex.All)
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}

func TestIndexStatus(t *testing.T) {
	s := openClip(t, 3, testConfig())

	assert.ErrorIs(t, s.IndexStatus(0), ports.ErrIndexIncomplete)
	_, err := s.Keyframes(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.IndexStatus(0))
	assert.ErrorIs(t, s.IndexStatus(1), ports.ErrConfiguration)
}

func TestResize(t *testing.T) {
	s := openClip(t, 1, testConfig())

	require.NoError(t, s.Resize(0, 1))
	p := s.Pipeline()
	assert.Equal(t, 2, p.ScaleWidth())
	assert.Equal(t, 1, p.ScaleHeight())
	assert.Equal(t, ports.PixelFormatRGB32, p.ScalePixelFormat())
	assert.Equal(t, 8, p.ScaleStride())
}

func TestFrameAt_FirstFrameAtOrAfterTarget(t *testing.T) {
	s := openClip(t, 5, testConfig())
	buf := make([]byte, s.Pipeline().ScaleBufferSize())

	res, err := s.FrameAt(context.Background(), 0.1, buf)
	require.NoError(t, err)
	assert.InDelta(t, 0.12, res.Timestamp, 1e-9)
	assert.Equal(t, 32, res.ByteCount)
	assert.Equal(t, uint8(40), lumaAt(t, s, buf))

	res, err = s.FrameAt(context.Background(), 0, buf)
	require.NoError(t, err)
	assert.Zero(t, res.Timestamp)
	assert.Equal(t, uint8(10), lumaAt(t, s, buf))
}

func TestFrameAt_PastEnd(t *testing.T) {
	s := openClip(t, 3, testConfig())
	buf := make([]byte, s.Pipeline().ScaleBufferSize())

	_, err := s.FrameAt(context.Background(), 10, buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameAt_Cancelled(t *testing.T) {
	s := openClip(t, 3, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FrameAt(ctx, 0, make([]byte, 32))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameAtEntry(t *testing.T) {
	s := openClip(t, 4, testConfig())
	entries, err := s.Keyframes(context.Background())
	require.NoError(t, err)

	buf := make([]byte, s.Pipeline().ScaleBufferSize())
	res, err := s.FrameAtEntry(context.Background(), entries[2], buf)
	require.NoError(t, err)
	assert.InDelta(t, 0.08, res.Timestamp, 1e-9)
	assert.Equal(t, uint8(30), lumaAt(t, s, buf))
}

func TestReadPacketAndDecode(t *testing.T) {
	s := openClip(t, 2, testConfig())

	pkt, err := s.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, ports.MediaVideo, s.MediaType(pkt))

	require.NoError(t, s.ConfigureScale(4, 2, ports.PixelFormatRGBA, decode.StrideTight))
	buf := make([]byte, 32)
	res, err := s.DecodeVideo(pkt, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, res.ByteCount)
	assert.Equal(t, []byte{10, 10, 10, 255}, buf[:4])

	_, err = s.DecodeAudio(pkt, buf)
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(writeY4M(t, 1), testConfig(), nil)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		srcW, srcH, w, h int
		wantW, wantH     int
	}{
		{640, 480, 0, 0, 640, 480},
		{640, 480, 320, 0, 320, 240},
		{640, 480, 0, 120, 160, 120},
		{640, 480, 100, 100, 100, 100},
		{4, 2, 1, 0, 1, 1},
	}
	for _, tt := range tests {
		w, h := fitSize(tt.srcW, tt.srcH, tt.w, tt.h)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestToImage(t *testing.T) {
	// Two pixels, red then blue, with two padding bytes per row.
	rgb24 := []byte{255, 0, 0, 0, 0, 255, 0xee, 0xee}
	img, err := ToImage(rgb24, 2, 1, 8, ports.PixelFormatRGB24)
	require.NoError(t, err)
	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, b)
	_, _, b, _ = img.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), b)

	gray, err := ToImage([]byte{1, 2, 0, 3, 4}, 2, 2, 3, ports.PixelFormatGray8)
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, gray)

	_, err = ToImage(make([]byte, 4), 2, 2, 4, ports.PixelFormatRGBA)
	assert.ErrorIs(t, err, ports.ErrBufferTooSmall)
	_, err = ToImage(make([]byte, 64), 2, 2, 4, ports.PixelFormatYUV420P)
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}

// mockSession wires a session over a three-packet mock video stream whose
// first packet is the only keyframe.
func mockSession(cfg config.Config) (*Session, *mocks.Demuxer, *mocks.VideoDecoder) {
	info := ports.StreamInfo{
		Index: 0, Type: ports.MediaVideo, Codec: "rawvideo",
		TimeBase: ports.Rational{Num: 1, Den: 25}, FrameCount: 3,
		Width: 4, Height: 2, PixelFormat: ports.PixelFormatYUV420P,
	}
	d := &mocks.Demuxer{StreamInfos: []ports.StreamInfo{info}, Index: map[int][]ports.IndexEntry{}}
	for i := 0; i < 3; i++ {
		var flags ports.IndexFlags
		if i == 0 {
			flags = ports.FlagKeyframe
		}
		d.Packets = append(d.Packets, ports.Packet{Stream: 0, PTS: int64(i), DTS: int64(i), Offset: int64(100 * i), Flags: flags, Data: []byte{1}})
		d.Index[0] = append(d.Index[0], ports.IndexEntry{Timestamp: int64(i), Offset: int64(100 * i), Size: 1, Flags: flags})
	}
	dec := &mocks.VideoDecoder{}
	s := &Session{
		demuxer:  d,
		streams:  d.StreamInfos,
		backends: make(map[int]smartdecoder.Backend),
		cfg:      cfg,
		log:      logger.NewNoop(),
	}
	s.pipeline = decode.New(s.streams, decode.Decoders{Video: map[int]ports.VideoDecoder{0: dec}}, &mocks.Scaler{}, nil)
	return s, d, dec
}

func TestSeek_FlushesDecoders(t *testing.T) {
	s, _, dec := mockSession(testConfig())

	require.NoError(t, s.SeekToIndex(0, 2))
	assert.Equal(t, 1, dec.FlushCalls, "a P-frame entry must not join the GOP read before the seek")

	require.NoError(t, s.Seek(0.04))
	assert.Equal(t, 2, dec.FlushCalls)

	assert.ErrorIs(t, s.SeekToIndex(0, 9), ports.ErrSeekOutOfRange)
	assert.Equal(t, 2, dec.FlushCalls, "a failed seek keeps the decoder state")
}

func TestPrepare_ScalerErrorOpensNoDecoders(t *testing.T) {
	cfg := testConfig()
	cfg.Scale.Interpolator = "lanczos"
	s, _, _ := mockSession(cfg)
	s.pipeline = nil

	err := s.prepare()
	assert.ErrorIs(t, err, ports.ErrConfiguration)
	assert.Empty(t, s.backends)
	assert.Nil(t, s.pipeline)
}
