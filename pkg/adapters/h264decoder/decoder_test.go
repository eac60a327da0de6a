package h264decoder

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/user/framenav/pkg/ports"
)

type decodeCall struct {
	stream []byte
	rank   int
}

// recordingDecoder returns a 1x1 picture for every call and records it.
func recordingDecoder(calls *[]decodeCall) pictureDecoder {
	return func(stream []byte, rank int) (image.Image, error) {
		*calls = append(*calls, decodeCall{stream: append([]byte(nil), stream...), rank: rank})
		return image.NewGray(image.Rect(0, 0, 1, 1)), nil
	}
}

func avcc(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, byte(len(n)>>24), byte(len(n)>>16), byte(len(n)>>8), byte(len(n)))
		out = append(out, n...)
	}
	return out
}

func TestToAnnexB(t *testing.T) {
	got := toAnnexB(avcc([]byte{0x65, 1, 2}, []byte{0x06}))
	want := []byte{0, 0, 0, 1, 0x65, 1, 2, 0, 0, 0, 1, 0x06}
	if !bytes.Equal(got, want) {
		t.Errorf("toAnnexB() = %x, want %x", got, want)
	}

	annexB := []byte{0, 0, 0, 1, 0x41, 9}
	if got := toAnnexB(annexB); !bytes.Equal(got, annexB) {
		t.Errorf("Annex B input changed: %x", got)
	}

	// A 300-byte NALU has a length prefix of 00 00 01 2c.
	long := bytes.Repeat([]byte{0x41}, 300)
	if got := toAnnexB(avcc(long)); len(got) != 304 || !bytes.Equal(got[:4], startCode) {
		t.Errorf("long NALU converted to %d bytes", len(got))
	}

	// Truncated NALU stops the conversion.
	if got := toAnnexB([]byte{0, 0, 0, 9, 1, 2}); len(got) != 0 {
		t.Errorf("truncated input produced %x", got)
	}
}

func TestDisplayRank(t *testing.T) {
	tests := []struct {
		pts  []int64
		want int
	}{
		{[]int64{0}, 0},
		{[]int64{0, 3}, 1},
		{[]int64{0, 3, 1}, 1},
		{[]int64{0, 3, 1, 2}, 2},
		{[]int64{0, ports.NoPTS}, 1},
		{[]int64{ports.NoPTS, 5, 6}, 2},
	}
	for _, tt := range tests {
		if got := displayRank(tt.pts); got != tt.want {
			t.Errorf("displayRank(%v) = %d, want %d", tt.pts, got, tt.want)
		}
	}
}

func TestDecodeVideo_AccumulatesGOP(t *testing.T) {
	var calls []decodeCall
	params := []byte{0, 0, 0, 1, 0x67, 0, 0, 0, 1, 0x68}
	d := newDecoder(params, recordingDecoder(&calls))
	defer d.Close()

	// Before the first keyframe nothing can be decoded.
	frame, err := d.DecodeVideo(&ports.Packet{PTS: 9, Data: avcc([]byte{0x41})})
	if err != nil || frame != nil {
		t.Fatalf("leading non-keyframe: frame %v err %v", frame, err)
	}
	if len(calls) != 0 {
		t.Fatalf("decoder called %d times before keyframe", len(calls))
	}

	packets := []ports.Packet{
		{PTS: 0, Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65, 1})},
		{PTS: 2, Data: avcc([]byte{0x41, 2})},
		{PTS: 1, Data: avcc([]byte{0x01, 3})},
	}
	for i := range packets {
		frame, err := d.DecodeVideo(&packets[i])
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		if frame == nil || frame.PTS != packets[i].PTS {
			t.Fatalf("packet %d: frame %+v", i, frame)
		}
	}

	if len(calls) != 3 {
		t.Fatalf("got %d decode calls, want 3", len(calls))
	}
	if !bytes.HasPrefix(calls[0].stream, params) {
		t.Error("keyframe stream does not start with parameter sets")
	}
	if ranks := []int{calls[0].rank, calls[1].rank, calls[2].rank}; ranks[0] != 0 || ranks[1] != 1 || ranks[2] != 1 {
		t.Errorf("ranks = %v, want [0 1 1]", ranks)
	}
	if !bytes.HasPrefix(calls[2].stream, calls[1].stream) {
		t.Error("GOP stream was not accumulated")
	}

	// A new keyframe starts a new GOP.
	if _, err := d.DecodeVideo(&ports.Packet{PTS: 3, Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65, 4})}); err != nil {
		t.Fatal(err)
	}
	last := calls[len(calls)-1]
	if last.rank != 0 || len(last.stream) != len(params)+6 {
		t.Errorf("new GOP: rank %d len %d", last.rank, len(last.stream))
	}
}

func TestFlush_WaitsForKeyframe(t *testing.T) {
	var calls []decodeCall
	d := newDecoder(nil, recordingDecoder(&calls))
	defer d.Close()

	if _, err := d.DecodeVideo(&ports.Packet{PTS: 0, Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65, 1})}); err != nil {
		t.Fatal(err)
	}
	d.Flush()

	// A non-keyframe after a seek has no reference picture to build on.
	frame, err := d.DecodeVideo(&ports.Packet{PTS: 40, Data: avcc([]byte{0x41, 2})})
	if err != nil || frame != nil {
		t.Fatalf("non-keyframe after Flush: frame %v err %v, want incomplete", frame, err)
	}
	if len(calls) != 1 {
		t.Fatalf("decoder called %d times, want 1", len(calls))
	}

	frame, err = d.DecodeVideo(&ports.Packet{PTS: 80, Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65, 3})})
	if err != nil || frame == nil || frame.PTS != 80 {
		t.Fatalf("keyframe after Flush: frame %+v err %v", frame, err)
	}
	if got := calls[len(calls)-1].stream; !bytes.Equal(got, []byte{0, 0, 0, 1, 0x65, 3}) {
		t.Errorf("stream after Flush = %v, want only the new keyframe", got)
	}
}

func TestDecodeVideo_Incomplete(t *testing.T) {
	d := newDecoder(nil, func([]byte, int) (image.Image, error) { return nil, nil })
	frame, err := d.DecodeVideo(&ports.Packet{Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65})})
	if err != nil || frame != nil {
		t.Errorf("frame %v err %v, want incomplete", frame, err)
	}
}

func TestDecodeVideo_Error(t *testing.T) {
	d := newDecoder(nil, func([]byte, int) (image.Image, error) { return nil, ErrDecodeFailed })
	_, err := d.DecodeVideo(&ports.Packet{Flags: ports.FlagKeyframe, Data: avcc([]byte{0x65})})
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("err = %v, want ErrDecodeFailed", err)
	}
}

func TestFindFFmpeg_CustomPath(t *testing.T) {
	if _, err := findFFmpeg("/nonexistent/ffmpeg"); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("err = %v, want ErrFFmpegNotFound", err)
	}
	if Available("/nonexistent/ffmpeg") {
		t.Error("Available() = true for missing binary")
	}
}
