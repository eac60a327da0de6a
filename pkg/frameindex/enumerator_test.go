package frameindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framenav/pkg/adapters/logger"
	"github.com/user/framenav/pkg/mocks"
	"github.com/user/framenav/pkg/ports"
)

// newDemuxer builds a single-stream mock whose packets carry the given
// keyframe pattern. Offsets are 100 bytes apart and timestamps count frames.
func newDemuxer(keys []bool, indexed int) *mocks.Demuxer {
	d := &mocks.Demuxer{
		StreamInfos: []ports.StreamInfo{{
			Index:      0,
			Type:       ports.MediaVideo,
			TimeBase:   ports.Rational{Num: 1, Den: 25},
			FrameCount: int64(len(keys)),
		}},
		Index: map[int][]ports.IndexEntry{},
	}
	for i, key := range keys {
		p := ports.Packet{Stream: 0, PTS: int64(i), DTS: int64(i), Offset: int64(i * 100), Data: make([]byte, 10)}
		if key {
			p.Flags = ports.FlagKeyframe
		}
		d.Packets = append(d.Packets, p)
		if i < indexed {
			d.Index[0] = append(d.Index[0], ports.IndexEntry{Timestamp: p.PTS, Offset: p.Offset, Size: 10, Flags: p.Flags})
		}
	}
	return d
}

func TestAdvance_KeyframeScenario(t *testing.T) {
	d := newDemuxer([]bool{true, false, true}, 3)
	e, err := New(context.Background(), d, 0)
	require.NoError(t, err)

	assert.Equal(t, -1, e.Index())
	assert.Equal(t, ports.NoPTS, e.Timestamp())

	ok, err := e.Advance()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, int64(0), e.Timestamp())

	ok, err = e.Advance()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, e.Index())
	assert.Equal(t, int64(2), e.Timestamp())

	ok, err = e.Advance()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, e.Index())
	assert.Equal(t, ports.NoPTS, e.Timestamp())
	assert.True(t, e.Exhausted())

	assert.Zero(t, d.ReadCalls, "complete index must not trigger a scan")
}

func TestAdvance_TerminalIdempotence(t *testing.T) {
	d := newDemuxer([]bool{true, false, false}, 3)
	e, err := New(context.Background(), d, 0)
	require.NoError(t, err)

	ok, err := e.Advance()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = e.Advance()
		require.NoError(t, err)
		assert.False(t, ok, "call %d after exhaustion", i)
		assert.Equal(t, 3, e.Index())
	}

	e.Reset()
	ok, err = e.Advance()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, e.Index())
}

func TestReset_ReproducesFreshEnumerator(t *testing.T) {
	keys := []bool{false, false, true, false, true, true}
	d := newDemuxer(keys, len(keys))

	fresh, err := New(context.Background(), d, 0)
	require.NoError(t, err)
	_, err = fresh.Advance()
	require.NoError(t, err)

	used, err := New(context.Background(), d, 0)
	require.NoError(t, err)
	for {
		ok, err := used.Advance()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	used.Reset()
	ok, err := used.Advance()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, fresh.Index(), used.Index())
	assert.Equal(t, fresh.Timestamp(), used.Timestamp())
}

func TestAdvance_OrderAndPredicate(t *testing.T) {
	keys := []bool{true, false, false, true, false, true, false, false, false, true}

	tests := []struct {
		name string
		pred Predicate
		want []int
	}{
		{"keyframes", KeyframesOnly, []int{0, 3, 5, 9}},
		{"all", All, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"every third", EveryNth(3), []int{0, 3, 6, 9}},
		{"non-keyframes", PredicateFunc(func(e ports.IndexEntry) bool { return !e.Flags.IsKeyframe() }), []int{1, 2, 4, 6, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDemuxer(keys, len(keys))
			e, err := New(context.Background(), d, 0, WithPredicate(tt.pred))
			require.NoError(t, err)

			var got []int
			last := -1
			for {
				ok, err := e.Advance()
				require.NoError(t, err)
				if !ok {
					break
				}
				require.Greater(t, e.Index(), last, "visits must be strictly increasing")
				last = e.Index()
				entry, _ := d.IndexEntry(0, e.Index())
				require.True(t, tt.pred.Match(e.Index(), entry))
				got = append(got, e.Index())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_ForcesIndexScan(t *testing.T) {
	d := newDemuxer([]bool{true, false, true, false, true}, 2)
	d.IndexOnRead = true
	require.Equal(t, 2, d.IndexLen(0))

	e, err := New(context.Background(), d, 0)
	require.NoError(t, err)

	// The scan happened inside New, before any Advance.
	assert.Equal(t, 1, d.RewindCalls)
	assert.Empty(t, d.SeekTimestampCalls)
	assert.Equal(t, len(d.Packets)+1, d.ReadCalls, "reads every packet plus the EOF")
	assert.Equal(t, 5, d.IndexLen(0))

	var got []int
	for {
		ok, err := e.Advance()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, e.Index())
	}
	assert.Equal(t, []int{0, 2, 4}, got)
}

func TestNew_ScanStopsOnReadError(t *testing.T) {
	d := newDemuxer([]bool{true, true, true}, 1)
	d.ReadPacketFunc = func() (*ports.Packet, error) {
		return nil, errors.New("broken container")
	}

	rec := logger.NewRecorder()
	e, err := New(context.Background(), d, 0, WithLogger(rec))
	require.NoError(t, err)
	assert.Equal(t, 1, d.ReadCalls)

	warnings := rec.Entries(ports.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "broken container")

	ok, err := e.Advance()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_ScanCancelled(t *testing.T) {
	d := newDemuxer([]bool{true, true, true}, 0)
	d.IndexOnRead = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, d, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.ReadCalls)
}

func TestNew_UnknownStream(t *testing.T) {
	d := newDemuxer([]bool{true}, 1)
	_, err := New(context.Background(), d, 7)
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}

func TestAdvance_IndexInvalidated(t *testing.T) {
	t.Run("timestamp changed", func(t *testing.T) {
		d := newDemuxer([]bool{true, false, true}, 3)
		e, err := New(context.Background(), d, 0)
		require.NoError(t, err)

		ok, err := e.Advance()
		require.NoError(t, err)
		require.True(t, ok)

		// An entry inserted ahead of the cursor shifts the visited slot.
		d.Index[0] = append([]ports.IndexEntry{{Timestamp: -5, Offset: -100, Flags: ports.FlagKeyframe}}, d.Index[0]...)

		_, err = e.Advance()
		assert.ErrorIs(t, err, ErrIndexInvalidated)

		e.Reset()
		ok, err = e.Advance()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, e.Index())
		assert.Equal(t, int64(-5), e.Timestamp())
	})

	t.Run("index shrank", func(t *testing.T) {
		d := newDemuxer([]bool{false, false, true}, 3)
		e, err := New(context.Background(), d, 0)
		require.NoError(t, err)

		ok, err := e.Advance()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 2, e.Index())

		d.Index[0] = d.Index[0][:1]
		_, err = e.Advance()
		assert.ErrorIs(t, err, ErrIndexInvalidated)
	})
}

func TestSeek(t *testing.T) {
	d := newDemuxer([]bool{false, true, false}, 3)
	e, err := New(context.Background(), d, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, e.Seek(), ErrNothingToSeek)
	assert.Empty(t, d.SeekByteOffsetCalls)

	ok, err := e.Advance()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, e.Seek())
	require.Len(t, d.SeekByteOffsetCalls, 1)
	assert.Equal(t, mocks.SeekByteOffsetCall{Stream: 0, Offset: 100, TSHint: 1}, d.SeekByteOffsetCalls[0])

	p, err := d.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.PTS)

	// Exhausted cursor points past the end.
	ok, err = e.Advance()
	require.NoError(t, err)
	require.False(t, ok)
	assert.ErrorIs(t, e.Seek(), ports.ErrSeekOutOfRange)
}

func TestSeekToIndex_OutOfRange(t *testing.T) {
	d := newDemuxer([]bool{true}, 1)
	assert.ErrorIs(t, SeekToIndex(d, 0, -1), ports.ErrSeekOutOfRange)
	assert.ErrorIs(t, SeekToIndex(d, 0, 1), ports.ErrSeekOutOfRange)
	assert.NoError(t, SeekToIndex(d, 0, 0))
}

func TestParsePredicate(t *testing.T) {
	for _, name := range []string{"", "keyframes", "all", "every-nth"} {
		p, ok := ParsePredicate(name, 2)
		assert.True(t, ok, name)
		assert.NotNil(t, p, name)
	}
	_, ok := ParsePredicate("odd", 0)
	assert.False(t, ok)
}
