package ports

// DefaultStream selects the container's default stream in SeekTimestamp.
// Timestamps are then in microseconds.
const DefaultStream = -1

// Demuxer abstracts an opened container.
//
// The demuxer owns each stream's index and may grow it while packets are read.
// Callers only observe it through IndexLen and IndexEntry.
type Demuxer interface {
	// Streams returns metadata for every stream in the container.
	Streams() []StreamInfo

	// IndexLen returns the number of index entries currently known for a stream.
	IndexLen(stream int) int

	// IndexEntry returns the i-th index entry of a stream.
	IndexEntry(stream, i int) (IndexEntry, bool)

	// SeekTimestamp positions the reader at the keyframe at or before ts.
	// ts is in the stream's time-base, or microseconds for DefaultStream.
	SeekTimestamp(stream int, ts int64) error

	// SeekByteOffset positions the reader at the first packet at or after offset
	// and records tsHint as the stream's current timestamp.
	SeekByteOffset(stream int, offset int64, tsHint int64) error

	// Rewind positions the reader at the first packet of the container,
	// whatever its stream.
	Rewind() error

	// ReadPacket returns the next packet in container order, or io.EOF.
	ReadPacket() (*Packet, error)

	// Close releases the container.
	Close() error
}
