// Package rawdecoder wraps uncompressed planar YCbCr payloads as pictures.
package rawdecoder

import (
	"errors"
	"fmt"
	"image"

	"github.com/user/framenav/pkg/ports"
)

// ErrShortPayload is returned when a packet is smaller than one picture.
var ErrShortPayload = errors.New("rawdecoder: payload shorter than one picture")

// Decoder turns each packet into one image.YCbCr. It never buffers.
type Decoder struct {
	width  int
	height int
	ratio  image.YCbCrSubsampleRatio
}

// New creates a decoder for a raw video stream.
func New(info ports.StreamInfo) (*Decoder, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid raw video size %dx%d", ports.ErrConfiguration, info.Width, info.Height)
	}
	var ratio image.YCbCrSubsampleRatio
	switch info.PixelFormat {
	case ports.PixelFormatYUV420P:
		ratio = image.YCbCrSubsampleRatio420
	case ports.PixelFormatYUV422P:
		ratio = image.YCbCrSubsampleRatio422
	case ports.PixelFormatYUV444P:
		ratio = image.YCbCrSubsampleRatio444
	case ports.PixelFormatYUV411P:
		ratio = image.YCbCrSubsampleRatio411
	default:
		return nil, fmt.Errorf("%w: unsupported raw pixel format %s", ports.ErrConfiguration, info.PixelFormat)
	}
	return &Decoder{width: info.Width, height: info.Height, ratio: ratio}, nil
}

// DecodeVideo slices the packet payload into Y, Cb and Cr planes. Trailing
// bytes such as an alpha plane are ignored. The image aliases pkt.Data.
func (d *Decoder) DecodeVideo(pkt *ports.Packet) (*ports.Frame, error) {
	img := image.NewYCbCr(image.Rect(0, 0, d.width, d.height), d.ratio)
	ySize, cSize := len(img.Y), len(img.Cb)
	if len(pkt.Data) < ySize+2*cSize {
		return nil, fmt.Errorf("%w: %d < %d bytes", ErrShortPayload, len(pkt.Data), ySize+2*cSize)
	}
	img.Y = pkt.Data[:ySize:ySize]
	img.Cb = pkt.Data[ySize : ySize+cSize : ySize+cSize]
	img.Cr = pkt.Data[ySize+cSize : ySize+2*cSize : ySize+2*cSize]
	return &ports.Frame{Image: img, PTS: pkt.PTS}, nil
}

// Close does nothing.
func (d *Decoder) Close() {}

var _ ports.VideoDecoder = (*Decoder)(nil)
