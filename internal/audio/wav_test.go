package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

func TestEncodeWAVHeader(t *testing.T) {
	buf, err := NewBufferFromChannels(24000, []float32{0, 0.25, -0.25})
	if err != nil {
		t.Fatalf("NewBufferFromChannels failed: %v", err)
	}

	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	data := blob.Data
	if len(data) != WAVHeaderSize+2*3 {
		t.Fatalf("len = %d, want %d", len(data), WAVHeaderSize+6)
	}
	if blob.MIMEType != "audio/wav" {
		t.Errorf("MIMEType = %q, want audio/wav", blob.MIMEType)
	}
	if blob.Len() != len(data) {
		t.Errorf("Len() = %d, want %d", blob.Len(), len(data))
	}

	checks := []struct {
		name   string
		offset int
		want   string
	}{
		{"riff", 0, "RIFF"},
		{"wave", 8, "WAVE"},
		{"fmt", 12, "fmt "},
		{"data", 36, "data"},
	}
	for _, c := range checks {
		if got := string(data[c.offset : c.offset+4]); got != c.want {
			t.Errorf("%s tag = %q, want %q", c.name, got, c.want)
		}
	}

	le := binary.LittleEndian
	fields := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"chunk size", le.Uint32(data[4:]), uint32(36 + 6)},
		{"fmt size", le.Uint32(data[16:]), 16},
		{"audio format", uint32(le.Uint16(data[20:])), 1},
		{"channels", uint32(le.Uint16(data[22:])), 1},
		{"sample rate", le.Uint32(data[24:]), 24000},
		{"byte rate", le.Uint32(data[28:]), 48000},
		{"block align", uint32(le.Uint16(data[32:])), 2},
		{"bits per sample", uint32(le.Uint16(data[34:])), 16},
		{"data size", le.Uint32(data[40:]), 6},
	}
	for _, f := range fields {
		if f.got != f.want {
			t.Errorf("%s = %d, want %d", f.name, f.got, f.want)
		}
	}
}

func TestEncodeWAVClamps(t *testing.T) {
	over, _ := NewBufferFromChannels(24000, []float32{1.5, -2.0, 1.0, -1.0})
	blob, err := EncodeWAV(over)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	pcm := blob.Data[WAVHeaderSize:]
	want := pcmBytes(32767, -32768, 32767, -32768)
	if !bytes.Equal(pcm, want) {
		t.Errorf("clamped samples = %v, want %v", pcm, want)
	}

	// Out-of-range input encodes identically to the clamped values.
	clamped, _ := NewBufferFromChannels(24000, []float32{1.0, -1.0, 1.0, -1.0})
	ref, err := EncodeWAV(clamped)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if !bytes.Equal(blob.Data, ref.Data) {
		t.Error("clamped and in-range buffers encode differently")
	}
}

func TestEndToEndTwoSamples(t *testing.T) {
	// int16 LE [1000, -1000]
	raw, err := DecodeBase64("6AMY/A==")
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}

	buf, err := InterpretPCM(raw, 24000, 1)
	if err != nil {
		t.Fatalf("InterpretPCM failed: %v", err)
	}

	samples := buf.Channel(0)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0] != 0.030517578125 || samples[1] != -0.030517578125 {
		t.Errorf("samples = %v, want [0.030517578125 -0.030517578125]", samples)
	}

	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if blob.Len() != 48 {
		t.Fatalf("WAV length = %d, want 48", blob.Len())
	}

	if !bytes.Equal(blob.Data[WAVHeaderSize:], raw) {
		t.Errorf("data section = %v, want %v", blob.Data[WAVHeaderSize:], raw)
	}
}

func TestEncodeWAVRoundTripBound(t *testing.T) {
	samples := make([]float32, 0, 401)
	for i := -200; i <= 200; i++ {
		samples = append(samples, float32(i)/200*0.999)
	}
	buf, _ := NewBufferFromChannels(24000, samples)

	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	back, err := DecodeWAV(blob.Data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	const tolerance = 1.5 / 32768
	for i, s := range samples {
		diff := math.Abs(float64(back.Channel(0)[i]) - float64(s))
		if diff > tolerance {
			t.Errorf("sample %d: %v -> %v, diff %v exceeds %v", i, s, back.Channel(0)[i], diff, tolerance)
		}
	}
}

func TestEncodeWAVExactForDecodedPCM(t *testing.T) {
	// Samples that came from int16 values below half scale re-encode exactly.
	values := []int16{0, 1, -1, 257, -257, 12345, -12345, 16383, -16384, -32768}
	raw := pcmBytes(values...)

	buf, err := InterpretPCM(raw, 24000, 1)
	if err != nil {
		t.Fatalf("InterpretPCM failed: %v", err)
	}
	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if !bytes.Equal(blob.Data[WAVHeaderSize:], raw) {
		t.Errorf("data section = %v, want %v", blob.Data[WAVHeaderSize:], raw)
	}
}

func TestEncodeWAVStereoInterleaves(t *testing.T) {
	buf, err := NewBufferFromChannels(48000,
		[]float32{-1, 0},
		[]float32{1, -1},
	)
	if err != nil {
		t.Fatalf("NewBufferFromChannels failed: %v", err)
	}

	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	header, err := ReadWAVHeader(blob.Data)
	if err != nil {
		t.Fatalf("ReadWAVHeader failed: %v", err)
	}
	if header.NumChannels != 2 {
		t.Errorf("NumChannels = %d, want 2", header.NumChannels)
	}
	if header.BlockAlign != 4 {
		t.Errorf("BlockAlign = %d, want 4", header.BlockAlign)
	}
	if header.ByteRate != 48000*4 {
		t.Errorf("ByteRate = %d, want %d", header.ByteRate, 48000*4)
	}
	if header.Subchunk2Size != 8 {
		t.Errorf("data size = %d, want 8", header.Subchunk2Size)
	}

	want := pcmBytes(-32768, 32767, 0, -32768)
	if !bytes.Equal(blob.Data[WAVHeaderSize:], want) {
		t.Errorf("data section = %v, want %v", blob.Data[WAVHeaderSize:], want)
	}

	back, err := DecodeWAV(blob.Data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if back.ChannelCount() != 2 || back.FrameCount() != 2 {
		t.Errorf("decoded %d channels / %d frames, want 2 / 2", back.ChannelCount(), back.FrameCount())
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	buf, err := NewBuffer(24000, 1, 0)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	blob, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if blob.Len() != WAVHeaderSize {
		t.Fatalf("len = %d, want %d", blob.Len(), WAVHeaderSize)
	}
	if got := binary.LittleEndian.Uint32(blob.Data[40:]); got != 0 {
		t.Errorf("data size = %d, want 0", got)
	}
	if got := binary.LittleEndian.Uint32(blob.Data[4:]); got != 36 {
		t.Errorf("chunk size = %d, want 36", got)
	}
}

func TestEncodeWAVInvalidBuffer(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
	}{
		{"nil", nil},
		{"zero rate", &Buffer{sampleRate: 0, channels: [][]float32{{0}}}},
		{"no channels", &Buffer{sampleRate: 24000}},
		{"ragged", &Buffer{sampleRate: 24000, channels: [][]float32{{0, 0}, {0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeWAV(tt.buf)
			if !errors.Is(err, ttypes.ErrInvalidAudioBuffer) {
				t.Errorf("expected ErrInvalidAudioBuffer, got %v", err)
			}
		})
	}
}

func TestReadWAVHeaderInvalid(t *testing.T) {
	buf, _ := NewBufferFromChannels(24000, []float32{0, 0})
	good, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	corrupt := func(mutate func([]byte) []byte) []byte {
		data := append([]byte(nil), good.Data...)
		return mutate(data)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", good.Data[:20]},
		{"not riff", corrupt(func(d []byte) []byte { copy(d[0:], "RIFX"); return d })},
		{"not wave", corrupt(func(d []byte) []byte { copy(d[8:], "AVI "); return d })},
		{"float format", corrupt(func(d []byte) []byte { binary.LittleEndian.PutUint16(d[20:], 3); return d })},
		{"8 bit", corrupt(func(d []byte) []byte { binary.LittleEndian.PutUint16(d[34:], 8); return d })},
		{"truncated data", corrupt(func(d []byte) []byte { return d[:len(d)-1] })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadWAVHeader(tt.data)
			if !errors.Is(err, ttypes.ErrInvalidWAV) {
				t.Errorf("expected ErrInvalidWAV, got %v", err)
			}
		})
	}
}

func TestBlobWriteTo(t *testing.T) {
	blob := Blob{Data: []byte("RIFF"), MIMEType: WAVMIMEType}
	var out bytes.Buffer
	n, err := blob.WriteTo(&out)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != 4 || out.String() != "RIFF" {
		t.Errorf("WriteTo wrote %d bytes %q", n, out.String())
	}
}

func TestBufferDuration(t *testing.T) {
	buf, _ := NewBuffer(24000, 1, 12000)
	if got := buf.Duration().Milliseconds(); got != 500 {
		t.Errorf("Duration = %dms, want 500ms", got)
	}
}
