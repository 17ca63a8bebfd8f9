package engines

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// ToneEngine implements ttypes.SpeechEngine without a network. It answers
// every request with a sine tone whose length follows the spoken text and
// whose pitch follows the voice name, encoded exactly like the remote model's
// payload. Useful for demos, offline runs and tests.
type ToneEngine struct {
	sampleRate  int
	perRune     time.Duration
	minDuration time.Duration
	maxDuration time.Duration
	amplitude   float64
}

// ToneConfig holds configuration for the tone engine.
type ToneConfig struct {
	// Sample rate (defaults to 24000, the remote model's rate)
	SampleRate int

	// Tone length per character of text (defaults to 60ms)
	PerRune time.Duration

	// Bounds on the tone length (default 250ms to 10s)
	MinDuration time.Duration
	MaxDuration time.Duration

	// Peak amplitude in (0, 1] (defaults to 0.3)
	Amplitude float64
}

// NewToneEngine creates a new offline tone engine.
func NewToneEngine(config ToneConfig) *ToneEngine {
	if config.SampleRate <= 0 {
		config.SampleRate = ttypes.SampleRate
	}
	if config.PerRune <= 0 {
		config.PerRune = 60 * time.Millisecond
	}
	if config.MinDuration <= 0 {
		config.MinDuration = 250 * time.Millisecond
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = 10 * time.Second
	}
	if config.MaxDuration < config.MinDuration {
		config.MaxDuration = config.MinDuration
	}
	if config.Amplitude <= 0 || config.Amplitude > 1 {
		config.Amplitude = 0.3
	}

	return &ToneEngine{
		sampleRate:  config.SampleRate,
		perRune:     config.PerRune,
		minDuration: config.MinDuration,
		maxDuration: config.MaxDuration,
		amplitude:   config.Amplitude,
	}
}

// RequestSynthesis renders the tone for prompt and voice.
func (e *ToneEngine) RequestSynthesis(ctx context.Context, prompt, voice string) (*ttypes.AudioResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pcm := e.render(e.duration(spokenText(prompt)), Frequency(voice))
	return &ttypes.AudioResponse{
		Data:     base64.StdEncoding.EncodeToString(pcm),
		MIMEType: "audio/L16;codec=pcm;rate=" + strconv.Itoa(e.sampleRate),
	}, nil
}

// duration maps text length to tone length inside the configured bounds.
func (e *ToneEngine) duration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * e.perRune
	if d < e.minDuration {
		return e.minDuration
	}
	if d > e.maxDuration {
		return e.maxDuration
	}
	return d
}

// render produces mono 16-bit little-endian PCM with 10ms linear fades.
func (e *ToneEngine) render(d time.Duration, freq float64) []byte {
	frames := int(d * time.Duration(e.sampleRate) / time.Second)
	fade := e.sampleRate / 100
	if fade*2 > frames {
		fade = frames / 2
	}

	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		gain := e.amplitude
		switch {
		case i < fade:
			gain *= float64(i) / float64(fade)
		case i >= frames-fade:
			gain *= float64(frames-1-i) / float64(fade)
		}
		v := gain * math.Sin(2*math.Pi*freq*float64(i)/float64(e.sampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(math.Round(v*32767))))
	}
	return out
}

// Frequency returns the tone pitch for voice, one of eight fixed steps
// between 220 Hz and 550 Hz.
func Frequency(voice string) float64 {
	steps := [...]float64{220, 247.5, 275, 330, 366.7, 440, 495, 550}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(voice))) //nolint:errcheck
	return steps[h.Sum32()%uint32(len(steps))]
}

// spokenText pulls the quoted text out of a synthesis prompt, falling back
// to the whole prompt.
func spokenText(prompt string) string {
	const marker = `Text: "`
	start := strings.Index(prompt, marker)
	if start < 0 {
		return prompt
	}
	rest := prompt[start+len(marker):]
	end := strings.LastIndex(rest, `"`)
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// GetInfo returns engine capabilities and configuration.
func (e *ToneEngine) GetInfo() ttypes.EngineInfo {
	return ttypes.EngineInfo{
		Name:        string(ttypes.EngineTone),
		Model:       "sine",
		SampleRate:  e.sampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: ttypes.MaxTextLength,
		IsOnline:    false,
	}
}

// Validate always succeeds; the tone engine has no dependencies.
func (e *ToneEngine) Validate() error { return nil }

// Close releases nothing.
func (e *ToneEngine) Close() error { return nil }

var _ ttypes.ManagedEngine = (*ToneEngine)(nil)
