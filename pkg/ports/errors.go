package ports

import "errors"

// Error kinds shared by the core and the engine adapters. End of stream is io.EOF.
var (
	// ErrConfiguration is returned for an invalid or impossible configuration,
	// e.g. configuring scale without a video stream.
	ErrConfiguration = errors.New("framenav: configuration error")

	// ErrBufferTooSmall is returned when a caller buffer cannot hold the output.
	ErrBufferTooSmall = errors.New("framenav: buffer too small")

	// ErrIndexIncomplete is reported when a stream index holds fewer entries
	// than the stream's declared frame count.
	ErrIndexIncomplete = errors.New("framenav: index incomplete")

	// ErrSeekOutOfRange is returned when a requested index position does not exist.
	ErrSeekOutOfRange = errors.New("framenav: seek out of range")

	// ErrEngine wraps opaque failures of the demux, decode or rescale engine.
	ErrEngine = errors.New("framenav: engine failure")
)
