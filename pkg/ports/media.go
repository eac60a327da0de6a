// Package ports is the boundary between the navigation core and a media
// engine: demuxers, decoders, scalers and the data they exchange.
package ports

import (
	"image"
	"math"
)

// NoPTS marks a timestamp that is not known.
const NoPTS int64 = math.MinInt64

// MediaType is the kind of elementary stream.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
)

// String returns the string representation of the media type.
func (t MediaType) String() string {
	switch t {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Rational is a fraction used for time-bases.
type Rational struct {
	Num int64
	Den int64
}

// Float returns the rational as a float64. A zero denominator yields 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Seconds converts ticks in this time-base to seconds.
func (r Rational) Seconds(ticks int64) float64 {
	return float64(ticks) * r.Float()
}

// IndexFlags is the flag set carried by index entries and packets.
type IndexFlags uint32

const (
	// FlagKeyframe marks a frame decodable without reference to prior frames.
	FlagKeyframe IndexFlags = 1 << iota
	// FlagDiscard marks a packet the decoder may drop.
	FlagDiscard
)

// IsKeyframe reports whether the keyframe flag is set.
func (f IndexFlags) IsKeyframe() bool {
	return f&FlagKeyframe != 0
}

// IndexEntry maps a frame's byte position in the container to its timestamp.
// Entries are immutable once added to an index.
type IndexEntry struct {
	Timestamp int64 // presentation timestamp in stream time-base ticks, or NoPTS
	Offset    int64 // byte offset of the frame in the container
	Size      uint32
	Flags     IndexFlags
}

// StreamInfo describes one elementary stream of an opened container.
type StreamInfo struct {
	Index    int
	Type     MediaType
	Codec    string // sample entry or container codec tag, e.g. "avc1", "sowt", "rawvideo"
	TimeBase Rational

	// FrameCount is the declared total number of frames, 0 when unknown.
	FrameCount int64
	// Duration is in TimeBase ticks, 0 when unknown.
	Duration int64

	// Video
	Width       int
	Height      int
	PixelFormat PixelFormat

	// Audio
	SampleRate    int
	Channels      int
	BitsPerSample int

	// Extradata is the codec-specific configuration (avcC, esds DecSpecificInfo).
	Extradata []byte
}

// Packet is one compressed unit read from the container.
type Packet struct {
	Stream int
	PTS    int64
	DTS    int64
	Offset int64
	Flags  IndexFlags
	Data   []byte
}

// Frame is a decoded picture.
type Frame struct {
	Image image.Image
	// PTS is the timestamp the decoder carried through from the packet that
	// produced this picture (reordered opaque), or NoPTS.
	PTS int64
}
