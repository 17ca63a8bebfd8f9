package ttypes

import (
	"errors"
	"fmt"
)

// Transcoding and synthesis errors. Every one of them is terminal for the request.
var (
	// ErrMalformedInput indicates the audio payload is not valid base64
	ErrMalformedInput = errors.New("malformed base64 input")

	// ErrInvalidPCMLength indicates the PCM byte count does not divide into whole frames
	ErrInvalidPCMLength = errors.New("PCM length does not match frame size")

	// ErrInvalidAudioBuffer indicates the buffer handed to the encoder is not usable
	ErrInvalidAudioBuffer = errors.New("invalid audio buffer")

	// ErrEmptyResponse indicates the speech service answered without audio
	ErrEmptyResponse = errors.New("no audio returned from speech service")

	// ErrSynthesisFailed indicates the speech service call failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrEmptyText indicates the request text is blank
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the request text exceeds MaxTextLength
	ErrTextTooLong = errors.New("text too long")

	// ErrInvalidInput indicates a request field is out of range
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownVoice indicates the persona or voice is not in the catalog
	ErrUnknownVoice = errors.New("unknown voice")

	// ErrInvalidWAV indicates a stored file is not a 16-bit PCM WAV
	ErrInvalidWAV = errors.New("invalid WAV data")

	// ErrNotFound indicates a history entry does not exist
	ErrNotFound = errors.New("not found")

	// ErrAudioDeviceUnavailable indicates the output device cannot be opened
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Transcoding errors
	ErrorCodeMalformedInput     ErrorCode = "MALFORMED_INPUT"
	ErrorCodeInvalidPCMLength   ErrorCode = "INVALID_PCM_LENGTH"
	ErrorCodeInvalidAudioBuffer ErrorCode = "INVALID_AUDIO_BUFFER"
	ErrorCodeInvalidWAV         ErrorCode = "INVALID_WAV"

	// Engine errors
	ErrorCodeEmptyResponse   ErrorCode = "EMPTY_RESPONSE"
	ErrorCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	// Input errors
	ErrorCodeEmptyText    ErrorCode = "EMPTY_TEXT"
	ErrorCodeTextTooLong  ErrorCode = "TEXT_TOO_LONG"
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeUnknownVoice ErrorCode = "UNKNOWN_VOICE"

	// Storage errors
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// Audio device errors
	ErrorCodeAudioDevice ErrorCode = "AUDIO_DEVICE"
)

var sentinels = map[ErrorCode]error{
	ErrorCodeMalformedInput:     ErrMalformedInput,
	ErrorCodeInvalidPCMLength:   ErrInvalidPCMLength,
	ErrorCodeInvalidAudioBuffer: ErrInvalidAudioBuffer,
	ErrorCodeInvalidWAV:         ErrInvalidWAV,
	ErrorCodeEmptyResponse:      ErrEmptyResponse,
	ErrorCodeSynthesisFailed:    ErrSynthesisFailed,
	ErrorCodeEmptyText:          ErrEmptyText,
	ErrorCodeTextTooLong:        ErrTextTooLong,
	ErrorCodeInvalidInput:       ErrInvalidInput,
	ErrorCodeUnknownVoice:       ErrUnknownVoice,
	ErrorCodeNotFound:           ErrNotFound,
	ErrorCodeAudioDevice:        ErrAudioDeviceUnavailable,
}

// TTSError represents a speech error with additional context.
// errors.Is matches it against the sentinel for its Code and against Cause.
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *TTSError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// NewTTSError creates a new speech error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	e.Context[key] = value
	return e
}

// IsClientError returns true if the error was caused by the caller's input
// rather than by the speech service or its payload.
func (e *TTSError) IsClientError() bool {
	switch e.Code {
	case ErrorCodeEmptyText,
		ErrorCodeTextTooLong,
		ErrorCodeInvalidInput,
		ErrorCodeUnknownVoice:
		return true
	default:
		return false
	}
}

// IsClientError reports whether the first TTSError in err's chain was caused
// by the caller's input.
func IsClientError(err error) bool {
	var te *TTSError
	return errors.As(err, &te) && te.IsClientError()
}

// CodeOf returns the code of the first TTSError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var te *TTSError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
