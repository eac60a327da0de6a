package ports

import "strings"

// PixelFormat identifies a pixel layout.
type PixelFormat int

const (
	PixelFormatNone PixelFormat = iota

	// Packed formats usable as scale targets.

	// PixelFormatRGB32 is native-endian 0xAARRGGBB, stored B,G,R,A on little-endian hosts.
	PixelFormatRGB32
	PixelFormatRGBA
	PixelFormatBGR24
	PixelFormatRGB24
	PixelFormatGray8

	// Planar source formats produced by decoders.

	PixelFormatYUV420P
	PixelFormatYUV422P
	PixelFormatYUV444P
	PixelFormatYUV411P
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatNone:    "none",
	PixelFormatRGB32:   "rgb32",
	PixelFormatRGBA:    "rgba",
	PixelFormatBGR24:   "bgr24",
	PixelFormatRGB24:   "rgb24",
	PixelFormatGray8:   "gray8",
	PixelFormatYUV420P: "yuv420p",
	PixelFormatYUV422P: "yuv422p",
	PixelFormatYUV444P: "yuv444p",
	PixelFormatYUV411P: "yuv411p",
}

// String returns the lower-case name of the pixel format.
func (f PixelFormat) String() string {
	if name, ok := pixelFormatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParsePixelFormat parses a pixel format name. Unknown names yield PixelFormatNone.
func ParsePixelFormat(s string) PixelFormat {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range pixelFormatNames {
		if name == s {
			return f
		}
	}
	return PixelFormatNone
}

// BytesPerPixel returns the packed size of one pixel, or 0 for planar and unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB32, PixelFormatRGBA:
		return 4
	case PixelFormatBGR24, PixelFormatRGB24:
		return 3
	case PixelFormatGray8:
		return 1
	default:
		return 0
	}
}

// IsTarget reports whether the format can be produced by a Scaler.
func (f PixelFormat) IsTarget() bool {
	return f.BytesPerPixel() > 0
}
