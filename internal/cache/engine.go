package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// Engine wraps a SpeechEngine and answers repeated requests from memory.
// Only replies that carry audio are cached; errors and empty replies always
// come from the wrapped engine.
type Engine struct {
	next  ttypes.SpeechEngine
	cache *MemoryCache
}

// NewEngine caches up to capacity bytes of replies from next.
func NewEngine(next ttypes.SpeechEngine, capacity int64) *Engine {
	return &Engine{next: next, cache: NewMemoryCache(capacity)}
}

// Key identifies a request by voice and prompt.
func Key(prompt, voice string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(voice)))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// RequestSynthesis implements ttypes.SpeechEngine.
func (e *Engine) RequestSynthesis(ctx context.Context, prompt, voice string) (*ttypes.AudioResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := Key(prompt, voice)
	if resp, ok := e.cache.Get(key); ok {
		return &resp, nil
	}

	resp, err := e.next.RequestSynthesis(ctx, prompt, voice)
	if err != nil || resp == nil || strings.TrimSpace(resp.Data) == "" {
		return resp, err
	}

	// Too large to cache is not a failure.
	_ = e.cache.Put(key, *resp)
	return resp, nil
}

// GetInfo reports the wrapped engine.
func (e *Engine) GetInfo() ttypes.EngineInfo {
	return e.next.GetInfo()
}

// Stats returns the cache statistics.
func (e *Engine) Stats() Stats {
	return e.cache.Stats()
}

// Len returns the number of cached replies.
func (e *Engine) Len() int {
	return e.cache.Len()
}

// Prune drops replies cached longer than maxAge and returns how many went.
func (e *Engine) Prune(maxAge time.Duration) int {
	return e.cache.Prune(maxAge)
}

// Validate validates the wrapped engine when it supports validation.
func (e *Engine) Validate() error {
	if v, ok := e.next.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// Close empties the cache and closes the wrapped engine when it is closable.
func (e *Engine) Close() error {
	e.cache.Clear()
	if c, ok := e.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ ttypes.ManagedEngine = (*Engine)(nil)
