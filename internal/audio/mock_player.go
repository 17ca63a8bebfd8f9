package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

// MockPlayer implements ttypes.AudioPlayer for testing purposes.
// It simulates playback timing without producing sound.
type MockPlayer struct {
	// Audio data of the last call
	mu         sync.Mutex
	lastPCM    []byte
	lastRate   int
	lastChans  int
	closed     bool
	failNext   error
	callbacks  MockCallbacks
	delayScale float64 // Speed up/slow down simulated playback

	// Metrics for testing
	playCount   atomic.Int64
	cancelCount atomic.Int64
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay  func(pcm []byte, sampleRate, channels int)
	OnClose func()
}

// NewMockPlayer creates a mock player. delayScale multiplies the simulated
// playing time; zero plays instantly.
func NewMockPlayer(delayScale float64, callbacks MockCallbacks) *MockPlayer {
	return &MockPlayer{
		delayScale: delayScale,
		callbacks:  callbacks,
	}
}

// Play records the clip and waits for its simulated duration or ctx.
func (mp *MockPlayer) Play(ctx context.Context, pcm []byte, sampleRate, channels int) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return errors.New("player is closed")
	}
	if err := mp.failNext; err != nil {
		mp.failNext = nil
		mp.mu.Unlock()
		return err
	}
	mp.lastPCM = append([]byte(nil), pcm...)
	mp.lastRate = sampleRate
	mp.lastChans = channels
	onPlay := mp.callbacks.OnPlay
	delay := mp.simulatedDuration(len(pcm), sampleRate, channels)
	mp.mu.Unlock()

	mp.playCount.Add(1)
	if onPlay != nil {
		onPlay(pcm, sampleRate, channels)
	}

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		mp.cancelCount.Add(1)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (mp *MockPlayer) simulatedDuration(n, sampleRate, channels int) time.Duration {
	if mp.delayScale <= 0 || sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := n / (2 * channels)
	d := time.Duration(frames) * time.Second / time.Duration(sampleRate)
	return time.Duration(float64(d) * mp.delayScale)
}

// FailNext makes the next Play return err.
func (mp *MockPlayer) FailNext(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.failNext = err
}

// LastPlayed returns the PCM and format of the most recent Play call.
func (mp *MockPlayer) LastPlayed() (pcm []byte, sampleRate, channels int) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.lastPCM, mp.lastRate, mp.lastChans
}

// PlayCount returns how many times Play was called.
func (mp *MockPlayer) PlayCount() int64 { return mp.playCount.Load() }

// CancelCount returns how many playbacks were cut short by their context.
func (mp *MockPlayer) CancelCount() int64 { return mp.cancelCount.Load() }

// Close releases nothing but records that the device was released.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.closed {
		return nil
	}
	mp.closed = true
	if mp.callbacks.OnClose != nil {
		mp.callbacks.OnClose()
	}
	return nil
}

// IsClosed reports whether Close was called.
func (mp *MockPlayer) IsClosed() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.closed
}

var _ ttypes.AudioPlayer = (*MockPlayer)(nil)
