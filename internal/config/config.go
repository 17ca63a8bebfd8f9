// Package config assembles shobdo's configuration from viper keys, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// AppName names the config file, the env prefix and the app-data scope.
const AppName = "shobdo"

// Config contains all shobdo configuration options.
type Config struct {
	Voice  string `yaml:"voice"`
	Engine string `yaml:"engine"`
	Debug  bool   `yaml:"debug"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Audio   AudioConfig   `yaml:"audio"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`

	// Secrets never come from the config file.
	Secrets Secrets `yaml:"-"`
}

// GeminiConfig contains the remote speech model settings.
type GeminiConfig struct {
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// AudioConfig describes the PCM the engine returns.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// CacheConfig bounds the in-memory reply cache used by serve. It is off
// by default: with it on, identical requests are answered from memory
// instead of asking the engine for a fresh take.
type CacheConfig struct {
	MaxSizeMB int           `yaml:"max_size_mb"` // Zero disables the cache
	TTL       time.Duration `yaml:"ttl"`         // Replies older than this are pruned
}

// HistoryConfig controls the on-disk generation history.
type HistoryConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Dir              string `yaml:"dir"`
	MaxSizeMB        int    `yaml:"max_size_mb"`
	CompressionLevel int    `yaml:"compression_level"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Secrets are read from the environment only.
type Secrets struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	APIKey       string `env:"API_KEY"`
}

// Key returns GEMINI_API_KEY, falling back to API_KEY.
func (s Secrets) Key() string {
	if k := strings.TrimSpace(s.GeminiAPIKey); k != "" {
		return k
	}
	return strings.TrimSpace(s.APIKey)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Voice:  "nodi",
		Engine: "gemini",
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash-preview-tts",
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           60 * time.Second,
			RequestsPerMinute: 10,
		},
		Audio: AudioConfig{
			SampleRate: 24000,
			Channels:   1,
		},
		Cache: CacheConfig{
			MaxSizeMB: 0,
			TTL:       time.Hour,
		},
		History: HistoryConfig{
			Enabled:          true,
			MaxSizeMB:        256,
			CompressionLevel: 3,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// SetDefaults sets default values in v for every key.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("voice", d.Voice)
	v.SetDefault("engine", d.Engine)
	v.SetDefault("debug", d.Debug)

	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout.String())
	v.SetDefault("gemini.requests_per_minute", d.Gemini.RequestsPerMinute)

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)

	v.SetDefault("cache.max_size_mb", d.Cache.MaxSizeMB)
	v.SetDefault("cache.ttl", d.Cache.TTL.String())

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.dir", d.History.Dir)
	v.SetDefault("history.max_size_mb", d.History.MaxSizeMB)
	v.SetDefault("history.compression_level", d.History.CompressionLevel)

	v.SetDefault("server.addr", d.Server.Addr)
}

// Load reads the configuration from v and validates it. Keys that are not
// set keep their defaults.
func Load(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("voice") {
		cfg.Voice = v.GetString("voice")
	}
	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}

	if v.IsSet("gemini.model") {
		cfg.Gemini.Model = v.GetString("gemini.model")
	}
	if v.IsSet("gemini.base_url") {
		cfg.Gemini.BaseURL = v.GetString("gemini.base_url")
	}
	if v.IsSet("gemini.timeout") {
		d, err := time.ParseDuration(v.GetString("gemini.timeout"))
		if err != nil {
			return cfg, fmt.Errorf("invalid gemini.timeout: %w", err)
		}
		cfg.Gemini.Timeout = d
	}
	if v.IsSet("gemini.requests_per_minute") {
		cfg.Gemini.RequestsPerMinute = v.GetInt("gemini.requests_per_minute")
	}

	if v.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.channels") {
		cfg.Audio.Channels = v.GetInt("audio.channels")
	}

	if v.IsSet("cache.max_size_mb") {
		cfg.Cache.MaxSizeMB = v.GetInt("cache.max_size_mb")
	}
	if v.IsSet("cache.ttl") {
		d, err := time.ParseDuration(v.GetString("cache.ttl"))
		if err != nil {
			return cfg, fmt.Errorf("invalid cache.ttl: %w", err)
		}
		cfg.Cache.TTL = d
	}

	if v.IsSet("history.enabled") {
		cfg.History.Enabled = v.GetBool("history.enabled")
	}
	if v.IsSet("history.dir") {
		cfg.History.Dir = v.GetString("history.dir")
	}
	if v.IsSet("history.max_size_mb") {
		cfg.History.MaxSizeMB = v.GetInt("history.max_size_mb")
	}
	if v.IsSet("history.compression_level") {
		cfg.History.CompressionLevel = v.GetInt("history.compression_level")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}

	cfg.History.Dir = ExpandPath(cfg.History.Dir)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Engine)) {
	case "", "gemini", "google", "tone", "offline":
	default:
		return fmt.Errorf("invalid engine %q: must be one of [gemini tone]", c.Engine)
	}

	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini timeout must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Gemini.RequestsPerMinute < 1 || c.Gemini.RequestsPerMinute > 1000 {
		return fmt.Errorf("gemini requests_per_minute must be between 1 and 1000, got %d", c.Gemini.RequestsPerMinute)
	}

	validSampleRates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	sampleRateValid := false
	for _, sr := range validSampleRates {
		if c.Audio.SampleRate == sr {
			sampleRateValid = true
			break
		}
	}
	if !sampleRateValid {
		return fmt.Errorf("invalid sample rate %d: must be one of %v", c.Audio.SampleRate, validSampleRates)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Audio.Channels)
	}

	if c.Cache.MaxSizeMB < 0 || c.Cache.MaxSizeMB > 1024 {
		return fmt.Errorf("cache max_size_mb must be between 0 and 1024, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}

	if c.History.MaxSizeMB < 1 || c.History.MaxSizeMB > 10000 {
		return fmt.Errorf("history max_size_mb must be between 1 and 10000 MB, got %d", c.History.MaxSizeMB)
	}
	if c.History.CompressionLevel < 0 || c.History.CompressionLevel > 22 {
		return fmt.Errorf("history compression_level must be between 0 and 22, got %d", c.History.CompressionLevel)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr must not be empty")
	}
	return nil
}

// HistoryDir returns the configured history directory, or the user's
// app-data directory when none is set.
func (c *Config) HistoryDir() (string, error) {
	if c.History.Dir != "" {
		return c.History.Dir, nil
	}
	dir, err := gap.NewScope(gap.User, AppName).DataPath("history")
	if err != nil {
		return "", fmt.Errorf("unable to locate data directory: %w", err)
	}
	return dir, nil
}

// LoadSecrets loads the given .env files, or ./.env when none are named,
// then reads the secrets from the environment. Missing .env files are not
// an error; variables already in the environment win over the file.
func LoadSecrets(files ...string) (Secrets, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(ExpandPath(f)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("unable to load %s: %w", f, err)
		}
	}

	s, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return s, nil
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return path
	}
	return expanded
}
