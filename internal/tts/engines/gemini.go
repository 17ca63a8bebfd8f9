package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"golang.org/x/time/rate"
)

const (
	// DefaultGeminiModel is the speech model the app was built against.
	DefaultGeminiModel = "gemini-2.5-flash-preview-tts"

	// DefaultGeminiBaseURL is the public Generative Language API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultVoice is used when a request names no voice.
	DefaultVoice = "Kore"

	defaultGeminiTimeout = 60 * time.Second
	defaultGeminiRPM     = 10
	maxErrorBody         = 512
)

// ErrMissingAPIKey is returned when the Gemini engine has no credentials.
var ErrMissingAPIKey = errors.New("gemini API key is not set")

// GeminiEngine implements ttypes.SpeechEngine over the Gemini generateContent
// REST endpoint, asking for an AUDIO response with a prebuilt voice.
type GeminiEngine struct {
	// Configuration
	apiKey  string
	model   string
	baseURL string

	client *http.Client
	logger *log.Logger

	// Rate limiting to stay inside the API quota
	rateLimiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

// GeminiConfig holds configuration for the Gemini engine.
type GeminiConfig struct {
	// APIKey authenticates requests (required)
	APIKey string

	// Model name - defaults to DefaultGeminiModel
	Model string

	// BaseURL of the API - defaults to DefaultGeminiBaseURL
	BaseURL string

	// Timeout for one request - defaults to 60s
	Timeout time.Duration

	// Rate limit requests per minute (defaults to 10)
	RequestsPerMinute int

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client

	// Logger receives debug output; nil discards it
	Logger *log.Logger
}

// NewGeminiEngine creates a new Gemini speech engine.
func NewGeminiEngine(config GeminiConfig) (*GeminiEngine, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultGeminiBaseURL
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultGeminiTimeout
	}

	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaultGeminiRPM
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &GeminiEngine{
		apiKey:      config.APIKey,
		model:       config.Model,
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		client:      client,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

// Wire types for generateContent.
type (
	geminiRequest struct {
		Contents         []geminiContent        `json:"contents"`
		GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	}

	geminiContent struct {
		Parts []geminiPart `json:"parts"`
	}

	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inlineData,omitempty"`
	}

	geminiInlineData struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	}

	geminiGenerationConfig struct {
		ResponseModalities []string            `json:"responseModalities"`
		SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
	}

	geminiSpeechConfig struct {
		VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
	}

	geminiVoiceConfig struct {
		PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
	}

	geminiPrebuiltVoice struct {
		VoiceName string `json:"voiceName"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
		Error *geminiAPIError `json:"error,omitempty"`
	}

	geminiAPIError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	}
)

// RequestSynthesis sends prompt to the model and returns the first inline
// audio part of the first candidate. A reply without inline audio yields
// (nil, nil). No retries are made.
func (e *GeminiEngine) RequestSynthesis(ctx context.Context, prompt, voice string) (*ttypes.AudioResponse, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errors.New("gemini engine is closed")
	}

	if voice == "" {
		voice = DefaultVoice
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", e.baseURL, url.PathEscape(e.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	start := time.Now()
	e.logger.Debug("gemini request", "model", e.model, "voice", voice, "prompt_chars", len([]rune(prompt)))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	e.logger.Debug("gemini response", "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini api error (status %d): %s", resp.StatusCode, errorMessage(respBody))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini api error (code %d): %s", parsed.Error.Code, parsed.Error.Message)
	}

	if len(parsed.Candidates) == 0 {
		return nil, nil
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return &ttypes.AudioResponse{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MimeType,
			}, nil
		}
	}
	return nil, nil
}

// errorMessage extracts the API error message from body, falling back to a
// truncated copy of the raw body.
func errorMessage(body []byte) string {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// GetInfo returns engine capabilities and configuration.
func (e *GeminiEngine) GetInfo() ttypes.EngineInfo {
	return ttypes.EngineInfo{
		Name:        string(ttypes.EngineGemini),
		Model:       e.model,
		SampleRate:  ttypes.SampleRate,
		Channels:    ttypes.Channels,
		BitDepth:    ttypes.BitDepth,
		MaxTextSize: ttypes.MaxTextLength,
		IsOnline:    true,
	}
}

// Validate checks if the engine is properly configured.
func (e *GeminiEngine) Validate() error {
	if e.apiKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := url.Parse(e.baseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", e.baseURL, err)
	}
	return nil
}

// Close releases idle connections. Further requests fail.
func (e *GeminiEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

var _ ttypes.ManagedEngine = (*GeminiEngine)(nil)
