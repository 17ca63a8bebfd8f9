// Package ttypes contains shared types and interfaces for the speech system.
// This package is used to break import cycles between tts, engines, audio, history and server packages.
package ttypes

import (
	"context"
	"fmt"
)

// EngineType represents the speech engine selection
type EngineType string

const (
	// EngineGemini represents the remote Gemini speech model
	EngineGemini EngineType = "gemini"

	// EngineTone represents the offline tone generator
	EngineTone EngineType = "tone"

	// EngineNone represents no engine selected
	EngineNone EngineType = ""
)

// Output format of the remote speech model.
const (
	// SampleRate is the sample rate of the PCM the remote model returns.
	SampleRate = 24000
	// Channels is the channel count of the PCM the remote model returns.
	Channels = 1
	// BitDepth is the bit depth of the PCM the remote model returns.
	BitDepth = 16

	// MaxTextLength is the longest request text accepted, in runes.
	MaxTextLength = 5000
)

// SpeechEngine is the capability the synthesizer needs from a remote speech service.
// Implementations own transport, authentication and pacing.
type SpeechEngine interface {
	// RequestSynthesis sends one synthesis request for prompt spoken by voice.
	// A nil error with an empty response is legal and signals "no audio".
	RequestSynthesis(ctx context.Context, prompt, voice string) (*AudioResponse, error)

	// GetInfo returns engine capabilities and configuration.
	GetInfo() EngineInfo
}

// ManagedEngine is a SpeechEngine that can check its configuration before
// first use and holds resources that Close releases.
type ManagedEngine interface {
	SpeechEngine

	// Validate checks if the engine is properly configured.
	Validate() error

	// Close releases the engine's resources.
	Close() error
}

// AudioResponse is the payload returned by a speech engine.
type AudioResponse struct {
	// Data is the base64 encoded, headerless PCM audio.
	Data string

	// MIMEType is the type reported by the service (e.g. "audio/L16;codec=pcm;rate=24000").
	MIMEType string
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "gemini", "tone")
	Model       string // Remote model identifier, if any
	SampleRate  int    // Audio sample rate in Hz
	Channels    int    // Number of audio channels (1=mono, 2=stereo)
	BitDepth    int    // Bits per sample (typically 16)
	MaxTextSize int    // Maximum text size in characters
	IsOnline    bool   // Whether the engine requires internet
}

// Language selects the script mix of the request text.
type Language string

const (
	LanguageBangla   Language = "bangla"
	LanguageEnglish  Language = "english"
	LanguageBanglish Language = "banglish"
)

// Accent selects a regional or stylistic delivery.
type Accent string

const (
	AccentDhaka      Accent = "dhaka"
	AccentChittagong Accent = "chittagong"
	AccentSylheti    Accent = "sylheti"
	AccentTrendy     Accent = "trendy"
	AccentNews       Accent = "news"
)

// Settings are the delivery controls recorded with a generation.
type Settings struct {
	Language Language `json:"language"`
	Accent   Accent   `json:"accent"`
	Speed    float64  `json:"speed"`   // 0.5 to 2.0
	Emotion  float64  `json:"emotion"` // 0.0 to 1.0
	Pitch    float64  `json:"pitch"`   // 0.5 to 1.5
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		Language: LanguageBangla,
		Accent:   AccentDhaka,
		Speed:    1,
		Emotion:  0.5,
		Pitch:    1,
	}
}

// Validate checks every field is inside its range.
func (s Settings) Validate() error {
	switch s.Language {
	case LanguageBangla, LanguageEnglish, LanguageBanglish:
	default:
		return NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("unknown language %q", s.Language), nil)
	}

	switch s.Accent {
	case AccentDhaka, AccentChittagong, AccentSylheti, AccentTrendy, AccentNews:
	default:
		return NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("unknown accent %q", s.Accent), nil)
	}

	if s.Speed < 0.5 || s.Speed > 2.0 {
		return NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("speed must be between 0.5 and 2.0, got %.2f", s.Speed), nil)
	}
	if s.Emotion < 0 || s.Emotion > 1 {
		return NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("emotion must be between 0 and 1, got %.2f", s.Emotion), nil)
	}
	if s.Pitch < 0.5 || s.Pitch > 1.5 {
		return NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("pitch must be between 0.5 and 1.5, got %.2f", s.Pitch), nil)
	}
	return nil
}

// GenerationRequest is what a caller asks the synthesizer for.
type GenerationRequest struct {
	// Text is the user text, Bangla, English or mixed.
	Text string

	// Voice is the prebuilt voice name understood by the engine.
	Voice string

	// Settings are optional delivery directions. Nil keeps the plain prompt.
	Settings *Settings
}

// AudioPlayer defines the contract for playing decoded audio once.
// Implementations acquire the output device per call and release it before returning.
type AudioPlayer interface {
	// Play blocks until the audio has drained or ctx is done.
	Play(ctx context.Context, pcm []byte, sampleRate, channels int) error

	// Close releases the output device.
	Close() error
}
