package framenav

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/user/framenav/pkg/ports"
)

// Picture wraps a decoded buffer in an image.Image using the pipeline's
// current scale configuration. RGBA and Gray8 buffers are shared, other
// layouts are converted to RGBA.
func (s *Session) Picture(buf []byte) (image.Image, error) {
	p := s.pipeline
	return ToImage(buf, p.ScaleWidth(), p.ScaleHeight(), p.ScaleStride(), p.ScalePixelFormat())
}

// ToImage interprets buf as a packed picture of the given layout.
func ToImage(buf []byte, w, h, stride int, pf ports.PixelFormat) (image.Image, error) {
	bpp := pf.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %s is not a packed format", ports.ErrConfiguration, pf)
	}
	if w <= 0 || h <= 0 || stride < w*bpp {
		return nil, fmt.Errorf("%w: invalid layout %dx%d stride %d", ports.ErrConfiguration, w, h, stride)
	}
	if len(buf) < (h-1)*stride+w*bpp {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d stride %d", ports.ErrBufferTooSmall, len(buf), w, h, stride)
	}
	rect := image.Rect(0, 0, w, h)

	switch pf {
	case ports.PixelFormatRGBA:
		return &image.RGBA{Pix: buf, Stride: stride, Rect: rect}, nil
	case ports.PixelFormatGray8:
		return &image.Gray{Pix: buf, Stride: stride, Rect: rect}, nil
	}

	img := image.NewRGBA(rect)
	for y := 0; y < h; y++ {
		row := buf[y*stride:]
		for x := 0; x < w; x++ {
			var c color.RGBA
			switch pf {
			case ports.PixelFormatRGB32:
				v := binary.NativeEndian.Uint32(row[x*4:])
				c = color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
			case ports.PixelFormatRGB24:
				c = color.RGBA{R: row[x*3], G: row[x*3+1], B: row[x*3+2], A: 0xff}
			case ports.PixelFormatBGR24:
				c = color.RGBA{R: row[x*3+2], G: row[x*3+1], B: row[x*3], A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}
