// Package player provides Audio Player Contract implementations: a native
// decode-and-play reference backed by go-mp3, and a Simulated player for
// tests and headless operation that tracks a virtual cursor instead of
// pushing samples to a sound device.
package player

import (
	"sync"
	"time"
)

// Simulated is a Player that keeps a virtual cursor without touching any
// audio device. The cursor does not follow the wall clock: it moves only
// through Advance, Seek and Stop. It is the Player used by `jukebox play`,
// `jukebox serve` and the Driver's own tests.
type Simulated struct {
	mu        sync.Mutex
	loaded    bool
	playing   bool
	cursor    time.Duration
	lastTick  time.Time
	scheduled *scheduledJump
}

type scheduledJump struct {
	at   time.Duration
	dest time.Duration
}

// NewSimulated constructs an unloaded Simulated player.
func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.cursor = 0
	return nil
}

func (s *Simulated) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.lastTick = time.Time{}
	return nil
}

func (s *Simulated) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	return nil
}

// Stop halts playback, resets the cursor to 0, and discards any pending jump.
func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.cursor = 0
	s.scheduled = nil
	return nil
}

// Seek moves the cursor directly to t and discards any pending jump.
func (s *Simulated) Seek(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < 0 {
		t = 0
	}
	s.cursor = t
	s.scheduled = nil
	return nil
}

func (s *Simulated) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Simulated) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Simulated) ScheduleJump(atTrackTime, destTrackTime time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = &scheduledJump{at: atTrackTime, dest: destTrackTime}
	return nil
}

func (s *Simulated) Close() error { return nil }

// Advance moves the simulated cursor forward by d of wall-clock time,
// honoring any pending scheduled jump crossed along the way. Tests call
// this directly instead of waiting on a real clock.
func (s *Simulated) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.cursor += d
	if s.scheduled != nil && s.cursor >= s.scheduled.at {
		s.cursor = s.scheduled.dest
		s.scheduled = nil
	}
}
