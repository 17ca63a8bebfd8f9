package audio

import (
	"testing"
	"time"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  PlayerConfig
		wantErr bool
	}{
		{"default", DefaultPlayerConfig(), false},
		{"stereo", PlayerConfig{SampleRate: 48000, Channels: 2, Volume: 0.5}, false},
		{"zero rate", PlayerConfig{SampleRate: 0, Channels: 1, Volume: 1}, true},
		{"three channels", PlayerConfig{SampleRate: 24000, Channels: 3, Volume: 1}, true},
		{"negative buffer", PlayerConfig{SampleRate: 24000, Channels: 1, BufferSize: -time.Millisecond, Volume: 1}, true},
		{"loud", PlayerConfig{SampleRate: 24000, Channels: 1, Volume: 1.5}, true},
		{"negative volume", PlayerConfig{SampleRate: 24000, Channels: 1, Volume: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPlayerConfig(t *testing.T) {
	c := DefaultPlayerConfig()
	if c.SampleRate != 24000 || c.Channels != 1 {
		t.Errorf("default format = %d Hz/%d ch, want 24000/1", c.SampleRate, c.Channels)
	}
	if c.Volume != 1.0 {
		t.Errorf("default volume = %v, want 1.0", c.Volume)
	}
}
