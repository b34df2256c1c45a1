package player

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// Native is a reference Player that decodes an MP3 file fully into memory
// and tracks a play cursor in wall-clock time. It does not open an audio
// output device; the decoded buffer and jump fence are the exercised
// contract, not a working speaker ("played" samples are never sent to a
// sound backend). The CLI's inspect command uses it to decode samples.
type Native struct {
	path string

	samples    []float64 // mono, decoder's native sample rate
	sampleRate int

	playing    atomic.Bool
	startWall  time.Time
	startTrack time.Duration

	pendingJump atomic.Pointer[nativeJump]
}

type nativeJump struct {
	at   time.Duration
	dest time.Duration
}

// NewNative constructs a Native player over the MP3 file at path. Decoding
// happens in Load, not here.
func NewNative(path string) *Native {
	return &Native{path: path}
}

// Load decodes the whole file into a mono float64 buffer, per the teacher's
// loadMP3Mono approach: go-mp3.NewDecoder, then average stereo frames down
// to one channel.
func (n *Native) Load() error {
	f, err := os.Open(n.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", n.path, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", n.path, err)
	}
	n.sampleRate = dec.SampleRate()

	var mono []float64
	buf := make([]byte, 4096)
	for {
		nread, rerr := dec.Read(buf)
		for i := 0; i+4 <= nread; i += 4 {
			l := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			r := int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8)
			mono = append(mono, (float64(l)+float64(r))/2/32768.0)
		}
		if rerr != nil {
			break
		}
	}
	n.samples = mono
	return nil
}

func (n *Native) Play() error {
	n.startWall = time.Now()
	n.playing.Store(true)
	return nil
}

func (n *Native) Pause() error {
	if n.playing.Load() {
		n.startTrack = n.CurrentTime()
	}
	n.playing.Store(false)
	return nil
}

// Stop halts playback, resets the cursor to 0, and discards any pending jump.
func (n *Native) Stop() error {
	n.startTrack = 0
	n.playing.Store(false)
	n.pendingJump.Store(nil)
	return nil
}

// Seek moves the cursor directly to t, clamped to the decoded buffer.
func (n *Native) Seek(t time.Duration) error {
	if t < 0 {
		t = 0
	}
	if max := n.duration(); t > max {
		t = max
	}
	n.startTrack = t
	n.startWall = time.Now()
	n.pendingJump.Store(nil)
	return nil
}

func (n *Native) IsPlaying() bool { return n.playing.Load() }

// CurrentTime returns wall-clock elapsed since Play, offset by the cursor
// at the last pause or jump, clamped to the decoded buffer's length.
func (n *Native) CurrentTime() time.Duration {
	if !n.playing.Load() {
		return n.startTrack
	}
	elapsed := n.startTrack + time.Since(n.startWall)
	if max := n.duration(); elapsed > max {
		return max
	}
	return elapsed
}

func (n *Native) duration() time.Duration {
	if n.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(n.samples)) / float64(n.sampleRate) * float64(time.Second))
}

// ScheduleJump records the pending splice. It is applied only by Tick, once
// the cursor has reached atTrackTime; CurrentTime does not apply it.
func (n *Native) ScheduleJump(atTrackTime, destTrackTime time.Duration) error {
	n.pendingJump.Store(&nativeJump{at: atTrackTime, dest: destTrackTime})
	return nil
}

// Tick applies any pending jump whose trigger time has passed, by resetting
// the wall-clock epoch to the jump's destination. Tick is not part of the
// driver.Player interface and the Driver does not call it; whoever owns the
// Native player calls it.
func (n *Native) Tick() {
	j := n.pendingJump.Load()
	if j == nil {
		return
	}
	if n.CurrentTime() >= j.at {
		n.startTrack = j.dest
		n.startWall = time.Now()
		n.pendingJump.Store(nil)
	}
}

func (n *Native) Close() error {
	n.samples = nil
	return nil
}

// ExportSamples returns the decoded mono buffer and its sample rate, for
// callers (e.g. the CLI's inspect command) that need direct DSP access
// beyond the Player contract.
func (n *Native) ExportSamples() ([]float64, int) {
	return n.samples, n.sampleRate
}
