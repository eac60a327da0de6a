// Package summarizer builds and formats probe reports of opened media files.
package summarizer

import "time"

// Summary contains everything a probe learned about one file.
type Summary struct {
	GeneratedAt time.Time
	File        FileInfo
	Streams     []StreamInfo
}

// FileInfo describes the container.
type FileInfo struct {
	Path      string
	Container string
	SizeBytes int64
	Duration  float64 // seconds
}

// StreamInfo describes one stream and the state of its index.
type StreamInfo struct {
	Index        int
	Type         string
	Codec        string
	TimeBase     string
	FrameCount   int64
	IndexEntries int
	Keyframes    int
	Format       string
	Decoder      string // empty when the stream cannot be decoded
}

// IndexComplete reports whether the index holds every declared frame.
func (s StreamInfo) IndexComplete() bool {
	return int64(s.IndexEntries) >= s.FrameCount
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithFile sets container information.
func (b *Builder) WithFile(path, container string, size int64, duration float64) *Builder {
	b.summary.File = FileInfo{
		Path:      path,
		Container: container,
		SizeBytes: size,
		Duration:  duration,
	}
	return b
}

// AddStream appends a stream.
func (b *Builder) AddStream(s StreamInfo) *Builder {
	b.summary.Streams = append(b.summary.Streams, s)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
