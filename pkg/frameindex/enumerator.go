// Package frameindex walks a stream's frame index with a forward-only cursor
// and turns the cursor position into a seek against the demuxer.
package frameindex

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/ports"
)

var (
	// ErrIndexInvalidated is returned by Advance when the stream index changed
	// under the cursor. Call Reset before advancing again.
	ErrIndexInvalidated = errors.New("frameindex: index invalidated")

	// ErrNothingToSeek is returned by Seek before the first Advance.
	ErrNothingToSeek = errors.New("frameindex: nothing to seek to")
)

const beforeFirst = -1

// Enumerator is a cursor over the index entries of one stream that satisfy a
// predicate. It only reads the index and is not safe for concurrent use.
type Enumerator struct {
	demuxer ports.Demuxer
	stream  int
	pred    Predicate
	log     ports.Logger

	lastIndex     int
	lastTimestamp int64
	exhausted     bool
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithPredicate replaces the default keyframe-only predicate.
func WithPredicate(p Predicate) Option {
	return func(e *Enumerator) {
		if p != nil {
			e.pred = p
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l ports.Logger) Option {
	return func(e *Enumerator) {
		if l != nil {
			e.log = l.WithComponent("frameindex")
		}
	}
}

// New creates an Enumerator bound to one stream.
//
// If the stream index holds fewer entries than the stream's declared frame
// count, New seeks to the start and reads every packet to the end of the
// container so the demuxer fills in the index. This blocks for a full pass.
// ctx is checked between packets.
func New(ctx context.Context, d ports.Demuxer, stream int, opts ...Option) (*Enumerator, error) {
	e := &Enumerator{
		demuxer:       d,
		stream:        stream,
		pred:          KeyframesOnly,
		log:           logger.NewNoop(),
		lastIndex:     beforeFirst,
		lastTimestamp: ports.NoPTS,
	}
	for _, opt := range opts {
		opt(e)
	}

	info, ok := streamInfo(d, stream)
	if !ok {
		return nil, fmt.Errorf("%w: stream %d not found", ports.ErrConfiguration, stream)
	}

	if n := d.IndexLen(stream); int64(n) < info.FrameCount {
		e.log.Debug("Index of stream %d has %d of %d entries, scanning container", stream, n, info.FrameCount)
		if err := e.completeIndex(ctx); err != nil {
			return nil, err
		}
		e.log.Debug("Index of stream %d has %d entries after scan", stream, d.IndexLen(stream))
	}

	return e, nil
}

// completeIndex reads the container from its first packet to the end,
// discarding packets.
func (e *Enumerator) completeIndex(ctx context.Context) error {
	if err := e.demuxer.Rewind(); err != nil {
		e.log.Warn("Rewind failed before index scan: %v", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.demuxer.ReadPacket(); err != nil {
			if !errors.Is(err, io.EOF) {
				e.log.Warn("Index scan stopped early: %v", err)
			}
			return nil
		}
	}
}

// Advance moves the cursor to the next entry that satisfies the predicate and
// reports whether one was found. Once it returns false the cursor stays
// exhausted and later calls also return false until Reset.
func (e *Enumerator) Advance() (bool, error) {
	if e.exhausted {
		return false, nil
	}

	n := e.demuxer.IndexLen(e.stream)
	if e.lastIndex >= 0 {
		if e.lastIndex >= n {
			return false, fmt.Errorf("%w: index shrank to %d entries below position %d", ErrIndexInvalidated, n, e.lastIndex)
		}
		if entry, _ := e.demuxer.IndexEntry(e.stream, e.lastIndex); entry.Timestamp != e.lastTimestamp {
			return false, fmt.Errorf("%w: entry %d changed timestamp", ErrIndexInvalidated, e.lastIndex)
		}
	}

	for i := e.lastIndex + 1; i < n; i++ {
		entry, ok := e.demuxer.IndexEntry(e.stream, i)
		if !ok {
			return false, fmt.Errorf("%w: entry %d missing", ErrIndexInvalidated, i)
		}
		if e.pred.Match(i, entry) {
			e.lastIndex = i
			e.lastTimestamp = entry.Timestamp
			return true, nil
		}
	}

	e.lastIndex = n
	e.lastTimestamp = ports.NoPTS
	e.exhausted = true
	return false, nil
}

// Reset returns the cursor to the position before the first entry.
func (e *Enumerator) Reset() {
	e.lastIndex = beforeFirst
	e.lastTimestamp = ports.NoPTS
	e.exhausted = false
}

// Exhausted reports whether Advance ran past the last matching entry.
func (e *Enumerator) Exhausted() bool {
	return e.exhausted
}

// Index returns the cursor's entry position, -1 before the first Advance and
// the entry count once exhausted.
func (e *Enumerator) Index() int {
	return e.lastIndex
}

// Timestamp returns the timestamp of the cursor's entry, or ports.NoPTS.
func (e *Enumerator) Timestamp() int64 {
	return e.lastTimestamp
}

// Stream returns the stream the enumerator is bound to.
func (e *Enumerator) Stream() int {
	return e.stream
}

// Seek positions the demuxer at the cursor's entry.
func (e *Enumerator) Seek() error {
	if e.lastIndex < 0 {
		return ErrNothingToSeek
	}
	return SeekToIndex(e.demuxer, e.stream, e.lastIndex)
}

// SeekToIndex positions the demuxer at the byte offset of a stream's index
// entry and hands it the entry's timestamp.
func SeekToIndex(d ports.Demuxer, stream, index int) error {
	n := d.IndexLen(stream)
	if index < 0 || index >= n {
		return fmt.Errorf("%w: index %d / %d", ports.ErrSeekOutOfRange, index, n)
	}
	entry, ok := d.IndexEntry(stream, index)
	if !ok {
		return fmt.Errorf("%w: index %d / %d", ports.ErrSeekOutOfRange, index, n)
	}
	if err := d.SeekByteOffset(stream, entry.Offset, entry.Timestamp); err != nil {
		return fmt.Errorf("seek to index %d: %w", index, err)
	}
	return nil
}

func streamInfo(d ports.Demuxer, stream int) (ports.StreamInfo, bool) {
	for _, s := range d.Streams() {
		if s.Index == stream {
			return s, true
		}
	}
	return ports.StreamInfo{}, false
}
