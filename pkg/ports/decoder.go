package ports

// VideoDecoder decodes compressed video packets into pictures.
type VideoDecoder interface {
	// DecodeVideo decodes exactly one packet. A nil frame with a nil error
	// means the decoder produced no picture yet (it is still buffering).
	DecodeVideo(pkt *Packet) (*Frame, error)

	// Close releases decoder resources.
	Close()
}

// Flusher is implemented by decoders that keep state between packets. Flush
// drops that state so the next packet starts fresh, as after a seek.
type Flusher interface {
	Flush()
}

// AudioDecoder decodes compressed audio packets into raw samples.
type AudioDecoder interface {
	// DecodeAudio decodes from data into dst. It returns the number of bytes of
	// data consumed and the number of bytes written to dst. It never writes
	// more than len(dst) bytes.
	DecodeAudio(data []byte, dst []byte) (consumed, produced int, err error)

	// MaxFrameSize returns the worst-case output size for one packet.
	MaxFrameSize() int

	// Close releases decoder resources.
	Close()
}
