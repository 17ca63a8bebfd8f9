package tts

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

var (
	// ErrNoEngineConfigured indicates no speech engine has been selected
	ErrNoEngineConfigured = errors.New("no speech engine configured")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid speech engine")

	// ErrEngineNotAvailable indicates the selected engine cannot run
	ErrEngineNotAvailable = errors.New("selected speech engine is not available")
)

// ValidateText trims text and checks it is non-empty and within
// ttypes.MaxTextLength runes. It returns the trimmed text.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ttypes.NewTTSError(ttypes.ErrorCodeEmptyText, "nothing to say", nil)
	}
	if n := utf8.RuneCountInString(trimmed); n > ttypes.MaxTextLength {
		return "", ttypes.NewTTSError(ttypes.ErrorCodeTextTooLong,
			fmt.Sprintf("text has %d characters, the limit is %d", n, ttypes.MaxTextLength), nil).
			WithContext("length", n)
	}
	return trimmed, nil
}

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	// Engine is the validated engine type
	Engine ttypes.EngineType

	// Available indicates if the engine is available and configured
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// ValidateEngineSelection resolves the engine to use. The CLI argument wins
// over the configured value; an empty result is an error.
func ValidateEngineSelection(cliArg string, configured ttypes.EngineType) (ttypes.EngineType, error) {
	engineType := strings.TrimSpace(cliArg)
	if engineType == "" {
		engineType = strings.TrimSpace(string(configured))
	}

	if engineType == "" {
		return ttypes.EngineNone, fmt.Errorf("%w\n\nPlease specify an engine:\n  shobdo --engine gemini \"আমার সোনার বাংলা\"   # Gemini speech model (online)\n  shobdo --engine tone \"test\"               # Test tone (offline)\n\nOr set a default in shobdo.yml:\n  engine: gemini", ErrNoEngineConfigured)
	}

	switch strings.ToLower(engineType) {
	case "gemini", "google":
		return ttypes.EngineGemini, nil
	case "tone", "offline":
		return ttypes.EngineTone, nil
	default:
		return ttypes.EngineNone, fmt.Errorf("%w: %s\n\nSupported engines:\n  - gemini (Gemini speech model)\n  - tone (offline test tone)", ErrInvalidEngine, engineType)
	}
}

// ValidateEngine checks that the engine has what it needs to run.
func ValidateEngine(engineType ttypes.EngineType, apiKey, model string) *ValidationResult {
	result := &ValidationResult{
		Engine:  engineType,
		Details: make(map[string]string),
	}

	switch engineType {
	case ttypes.EngineGemini:
		result.Details["engine"] = "Gemini speech model (online)"
		if model != "" {
			result.Details["model"] = model
		}
		if strings.TrimSpace(apiKey) == "" {
			result.Error = fmt.Errorf("%w: no API key", ErrEngineNotAvailable)
			result.Guidance = buildAPIKeyGuidance()
			return result
		}
		result.Details["api_key"] = maskKey(apiKey)
		result.Available = true
		result.Details["status"] = "Ready (full validation requires network test)"
	case ttypes.EngineTone:
		result.Details["engine"] = "Test tone (offline)"
		result.Available = true
		result.Details["status"] = "Ready"
	case ttypes.EngineNone:
		result.Error = ErrNoEngineConfigured
		result.Guidance = "Please specify a speech engine with --engine or in the config file"
	default:
		result.Error = fmt.Errorf("%w: %s", ErrInvalidEngine, engineType)
		result.Guidance = "Supported engines: gemini, tone"
	}

	return result
}

// maskKey keeps the last four characters of a secret.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// buildAPIKeyGuidance provides instructions for configuring the Gemini API key
func buildAPIKeyGuidance() string {
	return `The Gemini engine needs an API key. To configure:

1. Create a key at https://aistudio.google.com/apikey
2. Export it before running shobdo:

   export GEMINI_API_KEY=your-key

   or put it in a .env file in the working directory:

   GEMINI_API_KEY=your-key

3. To try shobdo without a key, use the offline engine:

   shobdo --engine tone "hello"`
}
