// Package mp4demux implements ports.Demuxer over ISO-BMFF files using mp4ff.
//
// Progressive files are indexed completely at open from the sample tables.
// Fragmented files declare their frame counts at open but index each sample
// only when it is read, so the index is incomplete until a full pass.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/indexstore"
	"github.com/user/framenav/pkg/ports"
)

// ErrNoTracks is returned when the file has no audio or video track.
var ErrNoTracks = errors.New("mp4demux: no audio or video track")

// sample is one entry of the read schedule, in file order.
type sample struct {
	stream int
	offset int64
	size   uint32
	dts    int64
	pts    int64
	flags  ports.IndexFlags
	data   []byte // set for fragmented files, read from the file otherwise
}

// Demuxer reads packets from an MP4 file.
type Demuxer struct {
	r      io.ReadSeeker
	closer io.Closer
	log    ports.Logger

	streams    []ports.StreamInfo
	indexes    []*indexstore.Store
	schedule   []sample
	fragmented bool
	pos        int
}

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l ports.Logger) Option {
	return func(d *Demuxer) {
		if l != nil {
			d.log = l.WithComponent("mp4demux")
		}
	}
}

// OpenFile opens an MP4 file. Close closes the file.
func OpenFile(path string, opts ...Option) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	d, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// Open parses an MP4 file from r.
func Open(r io.ReadSeeker, opts ...Option) (*Demuxer, error) {
	d := &Demuxer{r: r, log: logger.NewNoop()}
	for _, opt := range opts {
		opt(d)
	}

	file, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode mp4: %w", ports.ErrEngine, err)
	}

	if file.IsFragmented() {
		d.fragmented = true
		if file.Init == nil || file.Init.Moov == nil {
			return nil, fmt.Errorf("%w: fragmented file without init segment", ports.ErrEngine)
		}
		err = d.loadFragmented(file, r)
	} else {
		if file.Moov == nil {
			return nil, fmt.Errorf("%w: no moov box found", ports.ErrEngine)
		}
		err = d.loadProgressive(file.Moov)
	}
	if err != nil {
		return nil, err
	}
	if len(d.streams) == 0 {
		return nil, ErrNoTracks
	}

	sort.SliceStable(d.schedule, func(i, j int) bool {
		return d.schedule[i].offset < d.schedule[j].offset
	})
	d.log.Debug("Opened MP4: %d streams, %d samples, fragmented=%v", len(d.streams), len(d.schedule), d.fragmented)
	return d, nil
}

// addStream registers a track as a stream and returns its index, or -1 if
// the track is neither audio nor video.
func (d *Demuxer) addStream(trak *mp4.TrakBox) int {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Mdhd == nil {
		return -1
	}
	var typ ports.MediaType
	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		typ = ports.MediaVideo
	case "soun":
		typ = ports.MediaAudio
	default:
		return -1
	}

	info := ports.StreamInfo{
		Index:    len(d.streams),
		Type:     typ,
		TimeBase: ports.Rational{Num: 1, Den: int64(trak.Mdia.Mdhd.Timescale)},
		Duration: int64(trak.Mdia.Mdhd.Duration),
	}
	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		describeSampleEntry(&info, trak.Mdia.Minf.Stbl.Stsd)
	}

	d.streams = append(d.streams, info)
	d.indexes = append(d.indexes, indexstore.New(0))
	return info.Index
}

// describeSampleEntry fills codec fields from the first sample entry.
func describeSampleEntry(info *ports.StreamInfo, stsd *mp4.StsdBox) {
	for _, child := range stsd.Children {
		info.Codec = child.Type()
		switch entry := child.(type) {
		case *mp4.VisualSampleEntryBox:
			info.Width = int(entry.Width)
			info.Height = int(entry.Height)
			info.PixelFormat = ports.PixelFormatYUV420P
			if entry.AvcC != nil {
				info.Extradata = parameterSetsAnnexB(entry.AvcC)
			}
		case *mp4.AudioSampleEntryBox:
			info.SampleRate = int(entry.SampleRate)
			info.Channels = int(entry.ChannelCount)
			info.BitsPerSample = int(entry.SampleSize)
			if entry.Esds != nil {
				info.Extradata = entry.Esds.DecConfigDescriptor.DecSpecificInfo.DecConfig
			}
		}
		return
	}
}

// parameterSetsAnnexB returns the SPS and PPS NAL units with start codes.
func parameterSetsAnnexB(avcC *mp4.AvcCBox) []byte {
	var out []byte
	for _, sps := range avcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range avcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

func (d *Demuxer) loadProgressive(moov *mp4.MoovBox) error {
	for _, trak := range moov.Traks {
		stream := d.addStream(trak)
		if stream < 0 {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsz == nil {
			continue
		}
		stbl := trak.Mdia.Minf.Stbl

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, nr := range stbl.Stss.SampleNumber {
				syncSamples[nr] = true
			}
		}

		count := stbl.Stsz.SampleNumber
		d.streams[stream].FrameCount = int64(count)
		for nr := uint32(1); nr <= count; nr++ {
			offset, err := sampleOffset(stbl, nr)
			if err != nil {
				return fmt.Errorf("%w: track %d sample %d: %w", ports.ErrEngine, trak.Tkhd.TrackID, nr, err)
			}

			var dts uint64
			if stbl.Stts != nil {
				dts, _ = stbl.Stts.GetDecodeTime(nr)
			}
			pts := int64(dts)
			if stbl.Ctts != nil {
				pts += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
			}

			s := sample{
				stream: stream,
				offset: int64(offset),
				size:   stbl.Stsz.GetSampleSize(int(nr)),
				dts:    int64(dts),
				pts:    pts,
			}
			if stbl.Stss == nil || syncSamples[nr] {
				s.flags = ports.FlagKeyframe
			}
			d.schedule = append(d.schedule, s)
			d.indexes[stream].Add(s.entry())
		}
	}
	return nil
}

// sampleOffset returns the file offset of a sample from stsc, stco/co64 and stsz.
func sampleOffset(stbl *mp4.StblBox, nr uint32) (uint64, error) {
	if stbl.Stsc == nil {
		return 0, fmt.Errorf("missing stsc box")
	}
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		offset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	for s := firstSampleInChunk; s < int(nr); s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(s))
	}
	return offset, nil
}

// loadFragmented builds the read schedule from every fragment. Each
// fragment is expected to carry one track.
func (d *Demuxer) loadFragmented(file *mp4.File, r io.ReadSeeker) error {
	moov := file.Init.Moov
	streamByTrack := make(map[uint32]int)
	for _, trak := range moov.Traks {
		if stream := d.addStream(trak); stream >= 0 {
			streamByTrack[trak.Tkhd.TrackID] = stream
		}
	}
	trexByTrack := make(map[uint32]*mp4.TrexBox)
	if moov.Mvex != nil {
		for _, trex := range moov.Mvex.Trexs {
			trexByTrack[trex.TrackID] = trex
		}
	}

	payloads, err := mdatPayloadOffsets(r)
	if err != nil {
		return fmt.Errorf("%w: scan boxes: %w", ports.ErrEngine, err)
	}

	durations := make(map[int]int64)
	fragNr := 0
	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			if fragNr >= len(payloads) {
				return fmt.Errorf("%w: fragment %d has no mdat", ports.ErrEngine, fragNr)
			}
			offset := payloads[fragNr]
			fragNr++

			trackID := frag.Moof.Trafs[0].Tfhd.TrackID
			stream, ok := streamByTrack[trackID]
			if !ok {
				continue
			}
			samples, err := frag.GetFullSamples(trexByTrack[trackID])
			if err != nil {
				return fmt.Errorf("%w: get samples: %w", ports.ErrEngine, err)
			}
			for _, fs := range samples {
				s := sample{
					stream: stream,
					offset: offset,
					size:   fs.Size,
					dts:    int64(fs.DecodeTime),
					pts:    int64(fs.DecodeTime) + int64(fs.CompositionTimeOffset),
					data:   fs.Data,
				}
				if isSyncSample(fs.Flags) {
					s.flags = ports.FlagKeyframe
				}
				d.schedule = append(d.schedule, s)
				d.streams[stream].FrameCount++
				durations[stream] += int64(fs.Dur)
				offset += int64(fs.Size)
			}
		}
	}

	for stream, dur := range durations {
		if d.streams[stream].Duration == 0 {
			d.streams[stream].Duration = dur
		}
	}
	return nil
}

// isSyncSample reports whether the sample_is_non_sync_sample bit is clear.
func isSyncSample(flags uint32) bool {
	return flags&0x00010000 == 0
}

// mdatPayloadOffsets walks the top-level boxes and returns the file offset
// of each mdat payload, in file order.
func mdatPayloadOffsets(r io.ReadSeeker) ([]int64, error) {
	var offsets []int64
	var pos int64
	for {
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
		hdr, err := mp4.DecodeHeader(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return offsets, nil
			}
			return nil, err
		}
		if hdr.Name == "mdat" {
			offsets = append(offsets, pos+int64(hdr.Hdrlen))
		}
		if hdr.Size == 0 {
			return offsets, nil
		}
		pos += int64(hdr.Size)
	}
}

func (s sample) entry() ports.IndexEntry {
	return ports.IndexEntry{Timestamp: s.pts, Offset: s.offset, Size: s.size, Flags: s.flags}
}

// Streams returns the audio and video streams in track order.
func (d *Demuxer) Streams() []ports.StreamInfo {
	return d.streams
}

// Fragmented reports whether the file is a fragmented MP4.
func (d *Demuxer) Fragmented() bool {
	return d.fragmented
}

// IndexLen returns the number of index entries for a stream.
func (d *Demuxer) IndexLen(stream int) int {
	if stream < 0 || stream >= len(d.indexes) {
		return 0
	}
	return d.indexes[stream].Len()
}

// IndexEntry returns the i-th index entry of a stream.
func (d *Demuxer) IndexEntry(stream, i int) (ports.IndexEntry, bool) {
	if stream < 0 || stream >= len(d.indexes) {
		return ports.IndexEntry{}, false
	}
	return d.indexes[stream].At(i)
}

// defaultStream returns the first video stream, else stream 0.
func (d *Demuxer) defaultStream() int {
	for _, s := range d.streams {
		if s.Type == ports.MediaVideo {
			return s.Index
		}
	}
	return 0
}

// SeekTimestamp positions the reader at the last keyframe of stream whose
// timestamp is at or before ts. With ports.DefaultStream, ts is in
// microseconds and applies to the first video stream. A target before the
// first keyframe lands on the first keyframe.
func (d *Demuxer) SeekTimestamp(stream int, ts int64) error {
	if stream == ports.DefaultStream && len(d.streams) > 0 {
		stream = d.defaultStream()
		ts = ts * d.streams[stream].TimeBase.Den / (1_000_000 * max(d.streams[stream].TimeBase.Num, 1))
	}
	if stream < 0 || stream >= len(d.streams) {
		return fmt.Errorf("%w: stream %d", ports.ErrSeekOutOfRange, stream)
	}

	var offset int64 = -1
	if idx := d.indexes[stream]; int64(idx.Len()) >= d.streams[stream].FrameCount {
		i := idx.Search(ts, true, true)
		if i < 0 {
			i = idx.Search(ts, false, true)
		}
		if e, ok := idx.At(i); ok {
			offset = e.Offset
		}
	} else {
		offset = d.scheduledKeyframe(stream, ts)
	}
	if offset < 0 {
		return fmt.Errorf("%w: no keyframe in stream %d", ports.ErrSeekOutOfRange, stream)
	}
	return d.seekTo(stream, offset)
}

// scheduledKeyframe searches the read schedule when the index is not yet
// complete. It returns -1 if the stream has no keyframe.
func (d *Demuxer) scheduledKeyframe(stream int, ts int64) int64 {
	var before, after int64 = -1, -1
	var bestBefore int64
	for _, s := range d.schedule {
		if s.stream != stream || !s.flags.IsKeyframe() {
			continue
		}
		if s.pts <= ts && (before < 0 || s.pts >= bestBefore) {
			before, bestBefore = s.offset, s.pts
		}
		if after < 0 {
			after = s.offset
		}
	}
	if before >= 0 {
		return before
	}
	return after
}

// SeekByteOffset positions the reader at the first sample of stream at or
// after offset. tsHint is the timestamp the caller expects there.
func (d *Demuxer) SeekByteOffset(stream int, offset, tsHint int64) error {
	if stream < 0 || stream >= len(d.streams) {
		return fmt.Errorf("%w: stream %d", ports.ErrSeekOutOfRange, stream)
	}
	if err := d.seekTo(stream, offset); err != nil {
		return err
	}
	if s := d.schedule[d.pos]; tsHint != ports.NoPTS && s.offset == offset && s.pts != tsHint {
		d.log.Debug("Sample at offset %d has timestamp %d, expected %d", offset, s.pts, tsHint)
	}
	return nil
}

func (d *Demuxer) seekTo(stream int, offset int64) error {
	i := sort.Search(len(d.schedule), func(i int) bool {
		return d.schedule[i].offset >= offset
	})
	for ; i < len(d.schedule); i++ {
		if d.schedule[i].stream == stream {
			d.pos = i
			return nil
		}
	}
	return fmt.Errorf("%w: offset %d in stream %d", ports.ErrSeekOutOfRange, offset, stream)
}

// Rewind positions the reader at the first sample in the file.
func (d *Demuxer) Rewind() error {
	d.pos = 0
	return nil
}

// ReadPacket returns the next sample in file order, or io.EOF.
func (d *Demuxer) ReadPacket() (*ports.Packet, error) {
	if d.pos >= len(d.schedule) {
		return nil, io.EOF
	}
	s := d.schedule[d.pos]

	data := s.data
	if data == nil {
		data = make([]byte, s.size)
		if _, err := d.r.Seek(s.offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek to sample: %w", ports.ErrEngine, err)
		}
		if _, err := io.ReadFull(d.r, data); err != nil {
			return nil, fmt.Errorf("%w: read sample: %w", ports.ErrEngine, err)
		}
	}
	d.pos++
	d.indexes[s.stream].Add(s.entry())

	return &ports.Packet{
		Stream: s.stream,
		PTS:    s.pts,
		DTS:    s.dts,
		Offset: s.offset,
		Flags:  s.flags,
		Data:   data,
	}, nil
}

// Close closes the underlying file when the demuxer opened it.
func (d *Demuxer) Close() error {
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
