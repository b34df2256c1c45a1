package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNativeBeforeLoadReportsZeroDuration(t *testing.T) {
	n := NewNative("unused.mp3")
	assert.Equal(t, time.Duration(0), n.CurrentTime())
	assert.False(t, n.IsPlaying())

	samples, rate := n.ExportSamples()
	assert.Nil(t, samples)
	assert.Equal(t, 0, rate)
}

func TestNativeCurrentTimeClampsToDecodedLength(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100)
	n.sampleRate = 44100

	n.playing.Store(true)
	n.startWall = time.Now().Add(-5 * time.Second)
	n.startTrack = 0

	assert.Equal(t, time.Second, n.CurrentTime())
}

func TestNativePauseCapturesCursorAndStops(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100*2)
	n.sampleRate = 44100
	n.playing.Store(true)
	n.startWall = time.Now().Add(-500 * time.Millisecond)

	require := assert.New(t)
	require.NoError(n.Pause())
	require.False(n.IsPlaying())
	require.InDelta(500*time.Millisecond, n.CurrentTime(), float64(10*time.Millisecond))
}

func TestNativeTickAppliesScheduledJumpOncePassed(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100*10)
	n.sampleRate = 44100
	n.playing.Store(true)
	n.startWall = time.Now().Add(-2 * time.Second)
	n.startTrack = 0

	assert.NoError(t, n.ScheduleJump(time.Second, 5*time.Second))
	n.Tick()

	assert.InDelta(t, 5*time.Second, n.CurrentTime(), float64(50*time.Millisecond))
}

func TestNativeTickDoesNothingBeforeTriggerTime(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100*10)
	n.sampleRate = 44100
	n.playing.Store(true)
	n.startWall = time.Now()
	n.startTrack = 0

	assert.NoError(t, n.ScheduleJump(5*time.Second, 8*time.Second))
	n.Tick()

	assert.Less(t, n.CurrentTime(), 5*time.Second)
}

func TestNativeStopResetsCursorAndDiscardsJump(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100*10)
	n.sampleRate = 44100
	n.playing.Store(true)
	n.startWall = time.Now().Add(-2 * time.Second)

	assert.NoError(t, n.ScheduleJump(3*time.Second, 9*time.Second))
	assert.NoError(t, n.Stop())
	assert.False(t, n.IsPlaying())
	assert.Equal(t, time.Duration(0), n.CurrentTime())

	n.Tick()
	assert.Equal(t, time.Duration(0), n.CurrentTime(), "stopped jump must not apply")
}

func TestNativeSeekMovesCursorAndClampsToDuration(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = make([]float64, 44100*2)
	n.sampleRate = 44100

	assert.NoError(t, n.Seek(time.Second))
	assert.Equal(t, time.Second, n.CurrentTime())

	assert.NoError(t, n.Seek(10*time.Second))
	assert.Equal(t, 2*time.Second, n.CurrentTime())

	assert.NoError(t, n.Seek(-time.Second))
	assert.Equal(t, time.Duration(0), n.CurrentTime())
}

func TestNativeCloseClearsSamples(t *testing.T) {
	n := NewNative("unused.mp3")
	n.samples = []float64{1, 2, 3}
	assert.NoError(t, n.Close())
	samples, _ := n.ExportSamples()
	assert.Nil(t, samples)
}
