package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// Scale factors for 16-bit samples. Decoding divides by 32768 for both signs,
// encoding multiplies negatives by 32768 and non-negatives by 32767, so -1.0
// maps to -32768 and +1.0 maps to 32767.
const (
	negativeScale = 32768.0
	positiveScale = 32767.0
)

// PCMFormat describes interleaved signed 16-bit little-endian PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

// DefaultPCMFormat returns the format the remote speech model emits.
func DefaultPCMFormat() PCMFormat {
	return PCMFormat{
		SampleRate: ttypes.SampleRate,
		Channels:   ttypes.Channels,
	}
}

// FrameSize returns the number of bytes in one frame.
func (f PCMFormat) FrameSize() int {
	return ttypes.BitDepth / 8 * f.Channels
}

// InterpretPCM reads raw as interleaved little-endian int16 samples and
// returns them as a normalized Buffer. Sample i of channel c sits at
// integer index i*channelCount+c and becomes int16/32768.
func InterpretPCM(raw []byte, sampleRate, channelCount int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, invalidBuffer(fmt.Sprintf("sample rate must be positive, got %d", sampleRate))
	}
	if channelCount <= 0 {
		return nil, invalidBuffer(fmt.Sprintf("channel count must be positive, got %d", channelCount))
	}

	frameSize := PCMFormat{SampleRate: sampleRate, Channels: channelCount}.FrameSize()
	if len(raw)%frameSize != 0 {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidPCMLength,
			fmt.Sprintf("PCM data length %d is not aligned to %d-byte frames", len(raw), frameSize), nil).
			WithContext("length", len(raw)).
			WithContext("channels", channelCount)
	}

	frameCount := len(raw) / frameSize
	buf, err := NewBuffer(sampleRate, channelCount, frameCount)
	if err != nil {
		return nil, err
	}

	for i := 0; i < frameCount; i++ {
		for c := 0; c < channelCount; c++ {
			off := (i*channelCount + c) * 2
			sample := int16(binary.LittleEndian.Uint16(raw[off:]))
			buf.channels[c][i] = float32(float64(sample) / negativeScale)
		}
	}
	return buf, nil
}

// quantize converts a float sample to int16: clamp to [-1, 1], then scale
// negatives by 32768 and the rest by 32767, rounding to nearest.
func quantize(sample float32) int16 {
	s := float64(sample)
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}

	if s < 0 {
		return int16(math.Round(s * negativeScale))
	}
	return int16(math.Round(s * positiveScale))
}

// EncodePCM16 interleaves every channel of buf into little-endian int16 bytes.
func EncodePCM16(buf *Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.FrameCount()*buf.ChannelCount()*2)
	writePCM16(out, buf)
	return out, nil
}

// writePCM16 assumes dst holds exactly FrameCount*ChannelCount*2 bytes.
func writePCM16(dst []byte, buf *Buffer) {
	channelCount := buf.ChannelCount()
	for i := 0; i < buf.FrameCount(); i++ {
		for c := 0; c < channelCount; c++ {
			off := (i*channelCount + c) * 2
			binary.LittleEndian.PutUint16(dst[off:], uint16(quantize(buf.channels[c][i])))
		}
	}
}
