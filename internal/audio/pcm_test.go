package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestInterpretPCMMono(t *testing.T) {
	buf, err := InterpretPCM(pcmBytes(1000, -1000, 0, 32767, -32768), 24000, 1)
	if err != nil {
		t.Fatalf("InterpretPCM failed: %v", err)
	}

	if buf.SampleRate() != 24000 {
		t.Errorf("SampleRate = %d, want 24000", buf.SampleRate())
	}
	if buf.ChannelCount() != 1 {
		t.Errorf("ChannelCount = %d, want 1", buf.ChannelCount())
	}
	if buf.FrameCount() != 5 {
		t.Fatalf("FrameCount = %d, want 5", buf.FrameCount())
	}

	want := []float32{1000.0 / 32768, -1000.0 / 32768, 0, 32767.0 / 32768, -1}
	for i, w := range want {
		if got := buf.Channel(0)[i]; got != w {
			t.Errorf("sample %d = %v, want %v", i, got, w)
		}
	}

	// The positive side never reaches 1.0.
	if buf.Channel(0)[3] >= 1 {
		t.Errorf("max positive sample = %v, want < 1", buf.Channel(0)[3])
	}
}

func TestInterpretPCMStereoDeinterleaves(t *testing.T) {
	// Frames: (L=100, R=-100), (L=200, R=-200)
	buf, err := InterpretPCM(pcmBytes(100, -100, 200, -200), 48000, 2)
	if err != nil {
		t.Fatalf("InterpretPCM failed: %v", err)
	}

	if buf.FrameCount() != 2 {
		t.Fatalf("FrameCount = %d, want 2", buf.FrameCount())
	}

	left := buf.Channel(0)
	right := buf.Channel(1)
	if left[0] != 100.0/32768 || left[1] != 200.0/32768 {
		t.Errorf("left channel = %v", left)
	}
	if right[0] != -100.0/32768 || right[1] != -200.0/32768 {
		t.Errorf("right channel = %v", right)
	}
}

func TestInterpretPCMLengthInvariant(t *testing.T) {
	for channels := 1; channels <= 3; channels++ {
		for length := 0; length <= 24; length++ {
			raw := make([]byte, length)
			buf, err := InterpretPCM(raw, 24000, channels)

			if length%(2*channels) != 0 {
				if !errors.Is(err, ttypes.ErrInvalidPCMLength) {
					t.Errorf("len=%d ch=%d: expected ErrInvalidPCMLength, got %v", length, channels, err)
				}
				continue
			}

			if err != nil {
				t.Errorf("len=%d ch=%d: unexpected error %v", length, channels, err)
				continue
			}
			if buf.FrameCount() != length/(2*channels) {
				t.Errorf("len=%d ch=%d: FrameCount = %d, want %d", length, channels, buf.FrameCount(), length/(2*channels))
			}
			if buf.FrameCount()*buf.ChannelCount()*2 != length {
				t.Errorf("len=%d ch=%d: frames*channels*2 != length", length, channels)
			}
		}
	}
}

func TestInterpretPCMEmpty(t *testing.T) {
	buf, err := InterpretPCM([]byte{}, 24000, 1)
	if err != nil {
		t.Fatalf("InterpretPCM failed: %v", err)
	}
	if buf.FrameCount() != 0 || buf.ChannelCount() != 1 {
		t.Errorf("got %d frames / %d channels, want 0 / 1", buf.FrameCount(), buf.ChannelCount())
	}
}

func TestInterpretPCMInvalidFormat(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{"zero rate", 0, 1},
		{"negative rate", -24000, 1},
		{"zero channels", 24000, 0},
		{"negative channels", 24000, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InterpretPCM(pcmBytes(1, 2), tt.sampleRate, tt.channels)
			if !errors.Is(err, ttypes.ErrInvalidAudioBuffer) {
				t.Errorf("expected ErrInvalidAudioBuffer, got %v", err)
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, 32767},
		{"full negative", -1, -32768},
		{"clamp high", 1.5, 32767},
		{"clamp low", -2, -32768},
		{"small positive", 1000.0 / 32768, 1000},
		{"small negative", -1000.0 / 32768, -1000},
		{"half", 0.5, 16384},
		{"negative half", -0.5, -16384},
		{"nan", float32(math.NaN()), 0},
		{"positive infinity", float32(math.Inf(1)), 32767},
		{"negative infinity", float32(math.Inf(-1)), -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quantize(tt.in); got != tt.want {
				t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodePCM16Interleaves(t *testing.T) {
	buf, err := NewBufferFromChannels(24000,
		[]float32{0, 1},
		[]float32{-1, 0},
	)
	if err != nil {
		t.Fatalf("NewBufferFromChannels failed: %v", err)
	}

	got, err := EncodePCM16(buf)
	if err != nil {
		t.Fatalf("EncodePCM16 failed: %v", err)
	}

	want := pcmBytes(0, -32768, 32767, 0)
	if string(got) != string(want) {
		t.Errorf("EncodePCM16 = %v, want %v", got, want)
	}
}

func TestPCMFormatFrameSize(t *testing.T) {
	if got := DefaultPCMFormat().FrameSize(); got != 2 {
		t.Errorf("mono frame size = %d, want 2", got)
	}
	if got := (PCMFormat{SampleRate: 48000, Channels: 2}).FrameSize(); got != 4 {
		t.Errorf("stereo frame size = %d, want 4", got)
	}
}
