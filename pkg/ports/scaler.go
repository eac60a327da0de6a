package ports

import "image"

// ScaleFormat describes one side of a rescale operation.
type ScaleFormat struct {
	Width       int
	Height      int
	PixelFormat PixelFormat
}

// Scaler converts decoded pictures to a target size and pixel layout.
type Scaler interface {
	// Configure (re)builds the scaling context. Each call supersedes the previous one.
	Configure(src, dst ScaleFormat) error

	// Scale writes img into dst using stride bytes per row.
	Scale(img image.Image, dst []byte, stride int) error

	// Close releases the scaling context.
	Close()
}
