package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/shobdo/internal/cache"
	"github.com/dgnsrekt/shobdo/internal/config"
	"github.com/dgnsrekt/shobdo/internal/tts"
	"github.com/dgnsrekt/shobdo/internal/tts/engines"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// newEngine builds and validates the speech engine selected by --engine or
// the config. The caller closes it.
func newEngine(c config.Config, logger *log.Logger) (ttypes.ManagedEngine, error) {
	engine, err := buildEngine(c, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("speech engine %s is misconfigured: %w", engine.GetInfo().Name, err)
	}
	return engine, nil
}

func buildEngine(c config.Config, logger *log.Logger) (ttypes.ManagedEngine, error) {
	engineType, err := tts.ValidateEngineSelection("", ttypes.EngineType(c.Engine))
	if err != nil {
		return nil, err
	}

	switch engineType {
	case ttypes.EngineTone:
		return engines.NewToneEngine(engines.ToneConfig{SampleRate: c.Audio.SampleRate}), nil

	case ttypes.EngineGemini:
		secrets, err := config.LoadSecrets()
		if err != nil {
			return nil, err
		}

		result := tts.ValidateEngine(engineType, secrets.Key(), c.Gemini.Model)
		if !result.Available {
			return nil, fmt.Errorf("%w\n\n%s", result.Error, result.Guidance)
		}
		logger.Debug("Speech engine ready", "engine", engineType, "model", result.Details["model"], "key", result.Details["api_key"])

		return engines.NewGeminiEngine(engines.GeminiConfig{
			APIKey:            secrets.Key(),
			Model:             c.Gemini.Model,
			BaseURL:           c.Gemini.BaseURL,
			Timeout:           c.Gemini.Timeout,
			RequestsPerMinute: c.Gemini.RequestsPerMinute,
			Logger:            logger,
		})
	}

	return nil, errors.New("no speech engine available")
}

// withReplyCache puts the reply cache in front of engine when it is enabled.
func withReplyCache(engine ttypes.ManagedEngine, c config.CacheConfig) ttypes.ManagedEngine {
	if c.MaxSizeMB <= 0 {
		return engine
	}
	return cache.NewEngine(engine, int64(c.MaxSizeMB)*1024*1024)
}

// pruneReplies drops cached replies older than ttl until ctx is done.
func pruneReplies(ctx context.Context, cached *cache.Engine, ttl time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cached.Prune(ttl); n > 0 {
				logger.Debug("Pruned cached replies", "pruned", n, "cached", cached.Len())
			}
		}
	}
}
