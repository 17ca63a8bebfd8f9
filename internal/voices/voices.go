// Package voices holds the persona catalog. A persona is what a user picks;
// its PrebuiltName is what the speech engine is asked for.
package voices

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/sahilm/fuzzy"
)

// Voice is a speaking persona.
type Voice struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Tagline      string `json:"tagline"`
	Personality  string `json:"personality"`
	PrebuiltName string `json:"prebuilt_name"`
}

var defaultVoices = []Voice{
	{
		ID:           "nodi",
		Name:         "Nodi",
		Tagline:      "Calm river voice",
		Personality:  "Soft and soothing, made for poetry and bedtime stories",
		PrebuiltName: "Kore",
	},
	{
		ID:           "tanvir",
		Name:         "Tanvir",
		Tagline:      "Dhaka's hype man",
		Personality:  "Energetic, quick and playful",
		PrebuiltName: "Puck",
	},
	{
		ID:           "rahim",
		Name:         "Rahim Bhai",
		Tagline:      "The storyteller uncle",
		Personality:  "Warm, unhurried and full of stories",
		PrebuiltName: "Charon",
	},
	{
		ID:           "shathi",
		Name:         "Shathi Apa",
		Tagline:      "Evening news desk",
		Personality:  "Crisp, formal and authoritative",
		PrebuiltName: "Aoede",
	},
	{
		ID:           "babu",
		Name:         "Babu",
		Tagline:      "Street-smart youth",
		Personality:  "Loud, cheeky and fluent in Banglish",
		PrebuiltName: "Fenrir",
	},
	{
		ID:           "mitu",
		Name:         "Mitu",
		Tagline:      "Friendly guide",
		Personality:  "Bright, cheerful and patient",
		PrebuiltName: "Zephyr",
	},
}

// Catalog is an ordered, read-only set of personas. The first entry is the
// default selection.
type Catalog struct {
	voices []Voice
	byID   map[string]int
}

// NewCatalog builds a catalog. IDs must be unique and non-empty, and every
// voice needs a prebuilt name.
func NewCatalog(voices []Voice) (*Catalog, error) {
	if len(voices) == 0 {
		return nil, fmt.Errorf("catalog needs at least one voice")
	}

	c := &Catalog{
		voices: make([]Voice, len(voices)),
		byID:   make(map[string]int, len(voices)),
	}
	copy(c.voices, voices)

	for i, v := range c.voices {
		id := strings.ToLower(strings.TrimSpace(v.ID))
		if id == "" {
			return nil, fmt.Errorf("voice %d has no id", i)
		}
		if v.PrebuiltName == "" {
			return nil, fmt.Errorf("voice %q has no prebuilt name", v.ID)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate voice id %q", v.ID)
		}
		c.byID[id] = i
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultVoices)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every voice in catalog order.
func (c *Catalog) All() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Len returns the number of voices.
func (c *Catalog) Len() int { return len(c.voices) }

// First returns the default voice.
func (c *Catalog) First() Voice { return c.voices[0] }

// Get returns the voice with the given id.
func (c *Catalog) Get(id string) (Voice, error) {
	if i, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]; ok {
		return c.voices[i], nil
	}
	return Voice{}, unknownVoice(id)
}

// Find resolves a user query: exact id, then exact name or prebuilt name
// (case-insensitive), then the best fuzzy match over ids and names.
func (c *Catalog) Find(query string) (Voice, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Voice{}, unknownVoice(query)
	}

	if v, err := c.Get(q); err == nil {
		return v, nil
	}

	for _, v := range c.voices {
		if strings.EqualFold(v.Name, q) || strings.EqualFold(v.PrebuiltName, q) {
			return v, nil
		}
	}

	matches := fuzzy.FindFrom(strings.ToLower(q), searchSource(c.voices))
	if len(matches) > 0 {
		return c.voices[matches[0].Index], nil
	}

	return Voice{}, unknownVoice(query)
}

// searchSource exposes voices to fuzzy matching.
type searchSource []Voice

func (s searchSource) String(i int) string {
	return strings.ToLower(s[i].ID + " " + s[i].Name)
}

func (s searchSource) Len() int { return len(s) }

func unknownVoice(query string) error {
	return ttypes.NewTTSError(ttypes.ErrorCodeUnknownVoice, fmt.Sprintf("no voice matches %q", query), nil).
		WithContext("query", query)
}
