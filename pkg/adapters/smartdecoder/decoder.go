// Package smartdecoder selects a decoder for each stream from its codec tag.
package smartdecoder

import (
	"errors"
	"fmt"

	"github.com/user/framenav/pkg/adapters/aacdecoder"
	"github.com/user/framenav/pkg/adapters/av1decoder"
	"github.com/user/framenav/pkg/adapters/h264decoder"
	"github.com/user/framenav/pkg/adapters/pcmdecoder"
	"github.com/user/framenav/pkg/adapters/rawdecoder"
	"github.com/user/framenav/pkg/adapters/y4mdemux"
	"github.com/user/framenav/pkg/ports"
)

// Backend names the engine behind a decoder.
type Backend string

const (
	// BackendRaw copies planar pictures without decoding.
	BackendRaw Backend = "raw"
	// BackendFFmpeg runs an ffmpeg subprocess for H.264.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
	// BackendPCM converts uncompressed samples.
	BackendPCM Backend = "pcm"
	// BackendGoAAC is the pure Go AAC decoder.
	BackendGoAAC Backend = "go-aac"
)

// Options configures decoder selection.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// PCMChunkBytes limits how much PCM input one decode call consumes.
	PCMChunkBytes int
}

var (
	// ErrUnsupportedCodec is returned when the codec is not supported.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrNoDecoderAvailable is returned when the codec is known but its engine is missing.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// BackendFor reports which backend would decode codec.
func BackendFor(codec string) (Backend, bool) {
	switch codec {
	case y4mdemux.Codec:
		return BackendRaw, true
	case "avc1", "avc3":
		return BackendFFmpeg, true
	case "av01":
		return BackendLibaom, true
	case "mp4a":
		return BackendGoAAC, true
	}
	if pcmdecoder.Supported(codec) {
		return BackendPCM, true
	}
	return "", false
}

// NewVideo creates a video decoder for the stream.
func NewVideo(info ports.StreamInfo, opts Options) (ports.VideoDecoder, Backend, error) {
	if info.Type != ports.MediaVideo {
		return nil, "", fmt.Errorf("%w: stream %d is %s", ErrUnsupportedCodec, info.Index, info.Type)
	}
	switch info.Codec {
	case y4mdemux.Codec:
		d, err := rawdecoder.New(info)
		if err != nil {
			return nil, BackendRaw, err
		}
		return d, BackendRaw, nil

	case "avc1", "avc3":
		if !h264decoder.Available(opts.FFmpegPath) {
			return nil, BackendFFmpeg, ErrNoDecoderAvailable
		}
		d, err := h264decoder.New(info, h264decoder.Options{FFmpegPath: opts.FFmpegPath})
		if err != nil {
			return nil, BackendFFmpeg, err
		}
		return d, BackendFFmpeg, nil

	case "av01":
		d, err := av1decoder.New(info)
		if err != nil {
			return nil, BackendLibaom, err
		}
		return d, BackendLibaom, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, info.Codec)
}

// NewAudio creates an audio decoder for the stream.
func NewAudio(info ports.StreamInfo, opts Options) (ports.AudioDecoder, Backend, error) {
	if info.Type != ports.MediaAudio {
		return nil, "", fmt.Errorf("%w: stream %d is %s", ErrUnsupportedCodec, info.Index, info.Type)
	}
	if pcmdecoder.Supported(info.Codec) {
		d, err := pcmdecoder.New(info, pcmdecoder.Options{ChunkBytes: opts.PCMChunkBytes})
		if err != nil {
			return nil, BackendPCM, err
		}
		return d, BackendPCM, nil
	}
	if info.Codec == "mp4a" {
		d, err := aacdecoder.New(info)
		if err != nil {
			return nil, BackendGoAAC, err
		}
		return d, BackendGoAAC, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, info.Codec)
}
