package ttypes

import (
	"errors"
	"testing"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"english news", func(s *Settings) { s.Language = LanguageEnglish; s.Accent = AccentNews }, false},
		{"slowest", func(s *Settings) { s.Speed = 0.5 }, false},
		{"fastest", func(s *Settings) { s.Speed = 2.0 }, false},
		{"too slow", func(s *Settings) { s.Speed = 0.4 }, true},
		{"too fast", func(s *Settings) { s.Speed = 2.1 }, true},
		{"negative emotion", func(s *Settings) { s.Emotion = -0.1 }, true},
		{"emotion over one", func(s *Settings) { s.Emotion = 1.1 }, true},
		{"low pitch", func(s *Settings) { s.Pitch = 0.4 }, true},
		{"high pitch", func(s *Settings) { s.Pitch = 1.6 }, true},
		{"unknown language", func(s *Settings) { s.Language = "hindi" }, true},
		{"unknown accent", func(s *Settings) { s.Accent = "barishal" }, true},
		{"zero value", func(s *Settings) { *s = Settings{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)

			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
