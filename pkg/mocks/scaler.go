package mocks

import (
	"image"

	"github.com/user/framenav/pkg/ports"
)

// Scaler is a mock implementation of ports.Scaler.
//
// Without ScaleFunc it fills every row of dst with Fill for the configured
// target width, leaving stride padding untouched.
type Scaler struct {
	ConfigureFunc func(src, dst ports.ScaleFormat) error
	ScaleFunc     func(img image.Image, dst []byte, stride int) error
	Fill          byte

	// Recorded calls for verification
	ConfigureCalls []ConfigureCall
	ScaleCalls     []ScaleCall
	CloseCalls     int

	target ports.ScaleFormat
}

// ConfigureCall records a call to Configure.
type ConfigureCall struct {
	Src ports.ScaleFormat
	Dst ports.ScaleFormat
}

// ScaleCall records a call to Scale.
type ScaleCall struct {
	DstLen int
	Stride int
}

func (m *Scaler) Configure(src, dst ports.ScaleFormat) error {
	m.ConfigureCalls = append(m.ConfigureCalls, ConfigureCall{Src: src, Dst: dst})
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(src, dst)
	}
	m.target = dst
	return nil
}

func (m *Scaler) Scale(img image.Image, dst []byte, stride int) error {
	m.ScaleCalls = append(m.ScaleCalls, ScaleCall{DstLen: len(dst), Stride: stride})
	if m.ScaleFunc != nil {
		return m.ScaleFunc(img, dst, stride)
	}
	row := m.target.Width * m.target.PixelFormat.BytesPerPixel()
	for y := 0; y < m.target.Height; y++ {
		for x := 0; x < row; x++ {
			dst[y*stride+x] = m.Fill
		}
	}
	return nil
}

func (m *Scaler) Close() {
	m.CloseCalls++
}

var _ ports.Scaler = (*Scaler)(nil)
