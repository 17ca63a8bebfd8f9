package audio

import (
	"encoding/base64"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// DecodeBase64 decodes a standard-alphabet base64 string into raw bytes.
// ASCII whitespace is ignored. Padding may be left off, but padding that is
// present must complete the final quantum exactly. The empty string decodes
// to an empty, non-nil slice.
func DecodeBase64(text string) ([]byte, error) {
	text = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, text)

	enc := base64.RawStdEncoding
	if len(text)%4 == 0 {
		enc = base64.StdEncoding
	}

	out, err := enc.DecodeString(text)
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeMalformedInput, "cannot decode audio payload", err).
			WithContext("length", len(text))
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}
