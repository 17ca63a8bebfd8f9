package tts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

const promptPrefix = "Convert this to high quality audio. Language: Auto-detect (Bangla/English). Text: "

var languageNames = map[ttypes.Language]string{
	ttypes.LanguageBangla:   "Bangla",
	ttypes.LanguageEnglish:  "English",
	ttypes.LanguageBanglish: "a natural mix of Bangla and English",
}

var accentNames = map[ttypes.Accent]string{
	ttypes.AccentDhaka:      "a standard Dhaka accent",
	ttypes.AccentChittagong: "a Chittagonian accent",
	ttypes.AccentSylheti:    "a Sylheti accent",
	ttypes.AccentTrendy:     "a trendy, youthful street style",
	ttypes.AccentNews:       "a formal news-anchor delivery",
}

// BuildPrompt embeds text in the synthesis prompt. Without settings the
// prompt is the fixed request line; with settings one line of delivery
// directions follows it.
func BuildPrompt(text string, settings *ttypes.Settings) string {
	prompt := promptPrefix + `"` + text + `"`
	if settings == nil {
		return prompt
	}
	return prompt + "\n" + deliveryDirections(*settings)
}

func deliveryDirections(s ttypes.Settings) string {
	var b strings.Builder
	b.WriteString("Delivery: speak in ")
	b.WriteString(nameOr(languageNames[s.Language], string(s.Language)))
	b.WriteString(" with ")
	b.WriteString(nameOr(accentNames[s.Accent], string(s.Accent)))
	fmt.Fprintf(&b, ", %s (%sx speed), %s, %s.", pace(s.Speed),
		strconv.FormatFloat(s.Speed, 'f', -1, 64), expressiveness(s.Emotion), pitch(s.Pitch))
	return b.String()
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func pace(speed float64) string {
	switch {
	case speed < 0.85:
		return "slowly"
	case speed > 1.15:
		return "quickly"
	default:
		return "at a natural pace"
	}
}

func expressiveness(emotion float64) string {
	switch {
	case emotion < 0.34:
		return "calm and restrained"
	case emotion > 0.66:
		return "highly expressive"
	default:
		return "moderately expressive"
	}
}

func pitch(p float64) string {
	switch {
	case p < 0.85:
		return "with a lower pitch"
	case p > 1.15:
		return "with a higher pitch"
	default:
		return "with a natural pitch"
	}
}
