// Package drawscaler implements ports.Scaler with golang.org/x/image/draw.
package drawscaler

import (
	"encoding/binary"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/user/framenav/pkg/ports"
)

// Interpolator names accepted by ParseInterpolator.
const (
	Nearest        = "nearest"
	ApproxBiLinear = "approx-bilinear"
	BiLinear       = "bilinear"
	CatmullRom     = "catmull-rom"
)

// ParseInterpolator maps a name to an x/image/draw kernel. The empty name
// selects approx-bilinear.
func ParseInterpolator(name string) (draw.Scaler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Nearest:
		return draw.NearestNeighbor, nil
	case "", ApproxBiLinear:
		return draw.ApproxBiLinear, nil
	case BiLinear:
		return draw.BiLinear, nil
	case CatmullRom:
		return draw.CatmullRom, nil
	}
	return nil, fmt.Errorf("%w: unknown interpolator %q", ports.ErrConfiguration, name)
}

// Options configures a Scaler.
type Options struct {
	Interpolator string
}

// Scaler resamples decoded pictures into packed pixel buffers.
type Scaler struct {
	kernel draw.Scaler
	src    ports.ScaleFormat
	dst    ports.ScaleFormat

	// canvas is reused between Scale calls while the target size is unchanged.
	canvas *image.RGBA
	ready  bool
}

// New creates a Scaler. It must be configured before use.
func New(opts Options) (*Scaler, error) {
	kernel, err := ParseInterpolator(opts.Interpolator)
	if err != nil {
		return nil, err
	}
	return &Scaler{kernel: kernel}, nil
}

// Configure validates both formats and replaces the previous configuration.
func (s *Scaler) Configure(src, dst ports.ScaleFormat) error {
	s.ready = false
	if src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("%w: source size %dx%d", ports.ErrConfiguration, src.Width, src.Height)
	}
	if dst.Width <= 0 || dst.Height <= 0 {
		return fmt.Errorf("%w: target size %dx%d", ports.ErrConfiguration, dst.Width, dst.Height)
	}
	if !dst.PixelFormat.IsTarget() {
		return fmt.Errorf("%w: target pixel format %s", ports.ErrConfiguration, dst.PixelFormat)
	}
	if src.PixelFormat == ports.PixelFormatNone {
		return fmt.Errorf("%w: source pixel format unknown", ports.ErrConfiguration)
	}

	s.src, s.dst = src, dst
	if s.canvas == nil || s.canvas.Rect.Dx() != dst.Width || s.canvas.Rect.Dy() != dst.Height {
		s.canvas = image.NewRGBA(image.Rect(0, 0, dst.Width, dst.Height))
	}
	s.ready = true
	return nil
}

// Scale resamples img to the configured size and packs it into dst, one row
// every stride bytes. Bytes between the end of a row and the next stride are
// not written.
func (s *Scaler) Scale(img image.Image, dst []byte, stride int) error {
	if !s.ready {
		return fmt.Errorf("%w: scaler not configured", ports.ErrConfiguration)
	}
	if img == nil {
		return fmt.Errorf("%w: nil picture", ports.ErrEngine)
	}
	w, h := s.dst.Width, s.dst.Height
	bpp := s.dst.PixelFormat.BytesPerPixel()
	if stride < w*bpp {
		return fmt.Errorf("%w: stride %d below row size %d", ports.ErrConfiguration, stride, w*bpp)
	}
	if len(dst) < (h-1)*stride+w*bpp {
		return fmt.Errorf("%w: need %d bytes, have %d", ports.ErrBufferTooSmall, (h-1)*stride+w*bpp, len(dst))
	}

	s.kernel.Scale(s.canvas, s.canvas.Rect, img, img.Bounds(), draw.Src, nil)

	for y := 0; y < h; y++ {
		src := s.canvas.Pix[y*s.canvas.Stride : y*s.canvas.Stride+w*4]
		row := dst[y*stride : y*stride+w*bpp]
		pack(row, src, s.dst.PixelFormat)
	}
	return nil
}

// pack converts one RGBA row into the target layout.
func pack(row, rgba []byte, pf ports.PixelFormat) {
	switch pf {
	case ports.PixelFormatRGBA:
		copy(row, rgba)
	case ports.PixelFormatRGB32:
		// 0xAARRGGBB as a native-endian word.
		for x := 0; x*4 < len(rgba); x++ {
			p := rgba[x*4 : x*4+4]
			v := uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
			binary.NativeEndian.PutUint32(row[x*4:], v)
		}
	case ports.PixelFormatRGB24:
		for x := 0; x*4 < len(rgba); x++ {
			row[x*3], row[x*3+1], row[x*3+2] = rgba[x*4], rgba[x*4+1], rgba[x*4+2]
		}
	case ports.PixelFormatBGR24:
		for x := 0; x*4 < len(rgba); x++ {
			row[x*3], row[x*3+1], row[x*3+2] = rgba[x*4+2], rgba[x*4+1], rgba[x*4]
		}
	case ports.PixelFormatGray8:
		// ITU-R BT.601 luma, as image/color.GrayModel.
		for x := 0; x*4 < len(rgba); x++ {
			r, g, b := uint32(rgba[x*4]), uint32(rgba[x*4+1]), uint32(rgba[x*4+2])
			row[x] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
}

// Close drops the canvas.
func (s *Scaler) Close() {
	s.canvas = nil
	s.ready = false
}

var _ ports.Scaler = (*Scaler)(nil)
