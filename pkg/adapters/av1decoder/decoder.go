// Package av1decoder provides an AV1 video decoder using libaom.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_8bit_420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/user/framenav/pkg/ports"
)

var (
	// ErrDecodeFailed is returned when libaom rejects a temporal unit.
	ErrDecodeFailed = errors.New("av1decoder: decode failed")

	// ErrUnsupportedFormat is returned for pictures other than 8-bit 4:2:0.
	ErrUnsupportedFormat = errors.New("av1decoder: unsupported picture format")
)

// Decoder implements ports.VideoDecoder for AV1 using libaom.
type Decoder struct {
	codec *C.aom_codec_ctx_t
}

// New creates and initializes an AV1 decoder.
func New(info ports.StreamInfo) (*Decoder, error) {
	d := &Decoder{}
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return nil, fmt.Errorf("%w: failed to allocate decoder context", ports.ErrEngine)
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		return nil, fmt.Errorf("%w: failed to initialize decoder: %d", ports.ErrEngine, res)
	}
	return d, nil
}

// DecodeVideo decodes one temporal unit. It returns no picture when the unit
// holds only hidden frames. AV1 shows frames in decode order, so the picture
// carries the packet's timestamp.
func (d *Decoder) DecodeVideo(pkt *ports.Packet) (*ports.Frame, error) {
	if d.codec == nil {
		return nil, fmt.Errorf("%w: decoder closed", ErrDecodeFailed)
	}
	if len(pkt.Data) == 0 {
		return nil, fmt.Errorf("%w: empty frame data", ErrDecodeFailed)
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])),
		C.size_t(len(pkt.Data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("%w: %d", ErrDecodeFailed, res)
	}

	var iter C.aom_codec_iter_t
	img := C.aom_codec_get_frame(d.codec, &iter)
	if img == nil {
		return nil, nil
	}
	if C.is_8bit_420(img) == 0 {
		return nil, ErrUnsupportedFormat
	}
	return &ports.Frame{Image: copyYCbCr(img), PTS: pkt.PTS}, nil
}

// Close releases decoder resources. It is safe to call more than once.
func (d *Decoder) Close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// copyYCbCr copies the planes of a 4:2:0 picture out of libaom's buffer.
func copyYCbCr(img *C.aom_image_t) *image.YCbCr {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	out := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)

	copyPlane(out.Y, out.YStride, C.get_plane(img, 0), int(C.get_stride(img, 0)), width, height)
	cw, ch := (width+1)/2, (height+1)/2
	copyPlane(out.Cb, out.CStride, C.get_plane(img, 1), int(C.get_stride(img, 1)), cw, ch)
	copyPlane(out.Cr, out.CStride, C.get_plane(img, 2), int(C.get_stride(img, 2)), cw, ch)
	return out
}

func copyPlane(dst []byte, dstStride int, src *C.uchar, srcStride, width, height int) {
	for y := 0; y < height; y++ {
		row := unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(src), y*srcStride)), width)
		copy(dst[y*dstStride:y*dstStride+width], row)
	}
}

var _ ports.VideoDecoder = (*Decoder)(nil)
