package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often Play checks whether the device has drained.
const pollInterval = 20 * time.Millisecond

// Player implements ttypes.AudioPlayer on top of oto. The oto context is the
// output device and lives as long as the Player; each Play call creates its
// own oto player and closes it before returning.
type Player struct {
	// OTO context - initialized once and reused
	context *oto.Context

	sampleRate int
	channels   int
	volume     float64

	// Serializes playbacks; a Player plays one clip at a time.
	mu     sync.Mutex
	closed bool
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // Device sample rate; must match the audio played
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // Device buffer; zero lets oto decide
	Volume     float64       // 0.0 to 1.0
}

// DefaultPlayerConfig returns the configuration for speech model output.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: ttypes.SampleRate,
		Channels:   ttypes.Channels,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
	}
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	if config.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}

	if config.Volume < 0.0 || config.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}

	return nil
}

// NewPlayer opens the output device for the given format.
// oto allows a single context per process, so create one Player and reuse it.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeAudioDevice, "failed to create oto context", err)
	}

	// Wait for context to be ready
	<-readyChan

	return &Player{
		context:    ctx,
		sampleRate: config.SampleRate,
		channels:   config.Channels,
		volume:     config.Volume,
	}, nil
}

// Play plays interleaved 16-bit PCM once. It blocks until the device has
// drained the clip or ctx is done; the per-clip oto player is always closed.
func (p *Player) Play(ctx context.Context, pcm []byte, sampleRate, channels int) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}
	if sampleRate != p.sampleRate || channels != p.channels {
		return fmt.Errorf("player opened for %d Hz/%d ch, got %d Hz/%d ch",
			p.sampleRate, p.channels, sampleRate, channels)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}

	// Own the data for the whole playback.
	data := make([]byte, len(pcm))
	copy(data, pcm)

	player := p.context.NewPlayer(bytes.NewReader(data))
	defer player.Close() //nolint:errcheck

	player.SetVolume(p.volume)
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// Close releases the output device. oto.Context has no Close in v3, so the
// device is suspended and the context dropped.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.context != nil {
		err = p.context.Suspend()
		p.context = nil
	}
	return err
}

var _ ttypes.AudioPlayer = (*Player)(nil)
