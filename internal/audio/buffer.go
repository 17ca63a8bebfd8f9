package audio

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// Buffer holds decoded audio as per-channel float samples in [-1, 1].
// A Buffer is not modified after it is produced; callers that need to
// change samples should work on a copy.
type Buffer struct {
	sampleRate int
	channels   [][]float32
}

// NewBuffer allocates a silent buffer with the given shape.
func NewBuffer(sampleRate, channelCount, frameCount int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, invalidBuffer(fmt.Sprintf("sample rate must be positive, got %d", sampleRate))
	}
	if channelCount <= 0 {
		return nil, invalidBuffer(fmt.Sprintf("channel count must be positive, got %d", channelCount))
	}
	if frameCount < 0 {
		return nil, invalidBuffer(fmt.Sprintf("frame count must not be negative, got %d", frameCount))
	}

	channels := make([][]float32, channelCount)
	for c := range channels {
		channels[c] = make([]float32, frameCount)
	}
	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

// NewBufferFromChannels wraps existing per-channel samples. Every channel
// must have the same length.
func NewBufferFromChannels(sampleRate int, channels ...[]float32) (*Buffer, error) {
	b := &Buffer{sampleRate: sampleRate, channels: channels}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// SampleRate returns frames per second.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// ChannelCount returns the number of channels.
func (b *Buffer) ChannelCount() int { return len(b.channels) }

// FrameCount returns the number of frames, i.e. the length of each channel.
func (b *Buffer) FrameCount() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Channel returns the samples of channel c.
func (b *Buffer) Channel(c int) []float32 {
	return b.channels[c]
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.FrameCount()) * time.Second / time.Duration(b.sampleRate)
}

// Validate checks the buffer invariants: positive rate, at least one
// channel, equal channel lengths.
func (b *Buffer) Validate() error {
	if b == nil {
		return invalidBuffer("buffer is nil")
	}
	if b.sampleRate <= 0 {
		return invalidBuffer(fmt.Sprintf("sample rate must be positive, got %d", b.sampleRate))
	}
	if len(b.channels) == 0 {
		return invalidBuffer("channel count must be positive, got 0")
	}
	frames := len(b.channels[0])
	for c, ch := range b.channels {
		if len(ch) != frames {
			return invalidBuffer(fmt.Sprintf("channel %d has %d frames, channel 0 has %d", c, len(ch), frames))
		}
	}
	return nil
}

func invalidBuffer(msg string) error {
	return ttypes.NewTTSError(ttypes.ErrorCodeInvalidAudioBuffer, msg, nil)
}
