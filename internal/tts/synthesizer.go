package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/audio"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// Result pairs the decoded audio with its WAV encoding. The two share no
// memory: Buffer can be played while WAV is stored or sent.
type Result struct {
	Buffer *audio.Buffer
	WAV    audio.Blob
}

// Synthesizer sends text to a speech engine and transcodes the base64 PCM
// reply into a Buffer and a WAV blob. It holds no per-call state and is safe
// for concurrent use; it never retries and never logs.
type Synthesizer struct {
	engine ttypes.SpeechEngine
	format audio.PCMFormat
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithFormat sets the PCM format the engine's payload is read as.
func WithFormat(sampleRate, channels int) Option {
	return func(s *Synthesizer) {
		s.format = audio.PCMFormat{SampleRate: sampleRate, Channels: channels}
	}
}

// NewSynthesizer creates a synthesizer over engine. The payload format
// defaults to 24 kHz mono.
func NewSynthesizer(engine ttypes.SpeechEngine, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		engine: engine,
		format: audio.DefaultPCMFormat(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info returns the underlying engine description.
func (s *Synthesizer) Info() ttypes.EngineInfo {
	return s.engine.GetInfo()
}

// Synthesize speaks text with voice and returns the decoded audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	return s.Generate(ctx, ttypes.GenerationRequest{Text: text, Voice: voice})
}

// Generate performs one synthesis round trip for req. Exactly one engine
// request is made when the request is valid. Engine failures surface as
// ErrSynthesisFailed, a reply without audio as ErrEmptyResponse, and codec
// failures unchanged.
func (s *Synthesizer) Generate(ctx context.Context, req ttypes.GenerationRequest) (*Result, error) {
	text, err := ValidateText(req.Text)
	if err != nil {
		return nil, err
	}
	if req.Settings != nil {
		if err := req.Settings.Validate(); err != nil {
			return nil, err
		}
	}

	resp, err := s.engine.RequestSynthesis(ctx, BuildPrompt(text, req.Settings), req.Voice)
	if err != nil {
		return nil, synthesisFailed(err)
	}
	if resp == nil || strings.TrimSpace(resp.Data) == "" {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeEmptyResponse, "speech service returned no audio", nil).
			WithContext("voice", req.Voice)
	}

	raw, err := audio.DecodeBase64(resp.Data)
	if err != nil {
		return nil, err
	}

	buf, err := audio.InterpretPCM(raw, s.format.SampleRate, s.format.Channels)
	if err != nil {
		return nil, err
	}

	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		return nil, err
	}

	return &Result{Buffer: buf, WAV: wav}, nil
}

func synthesisFailed(err error) error {
	var ttsErr *ttypes.TTSError
	if errors.As(err, &ttsErr) && ttsErr.Code == ttypes.ErrorCodeSynthesisFailed {
		return err
	}
	return ttypes.NewTTSError(ttypes.ErrorCodeSynthesisFailed, "speech request failed", err)
}
