package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedStartsAtZeroAfterLoad(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	assert.Equal(t, time.Duration(0), s.CurrentTime())
	assert.False(t, s.IsPlaying())
}

func TestSimulatedAdvanceOnlyMovesWhilePlaying(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	s.Advance(time.Second)
	assert.Equal(t, time.Duration(0), s.CurrentTime())

	require.NoError(t, s.Play())
	s.Advance(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, s.CurrentTime())
}

func TestSimulatedPauseFreezesCursor(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Play())
	s.Advance(time.Second)
	require.NoError(t, s.Pause())
	s.Advance(time.Second)
	assert.Equal(t, time.Second, s.CurrentTime())
	assert.False(t, s.IsPlaying())
}

func TestSimulatedScheduledJumpAppliesWhenCrossed(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Play())
	require.NoError(t, s.ScheduleJump(time.Second, 3*time.Second))

	s.Advance(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, s.CurrentTime())

	s.Advance(600 * time.Millisecond)
	assert.Equal(t, 3*time.Second, s.CurrentTime())
}

func TestSimulatedJumpDoesNotApplyTwice(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Play())
	require.NoError(t, s.ScheduleJump(time.Second, 3*time.Second))

	s.Advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, s.CurrentTime())

	s.Advance(time.Second)
	assert.Equal(t, 4*time.Second, s.CurrentTime())
}

func TestSimulatedStopResetsCursorAndDiscardsJump(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Play())
	s.Advance(time.Second)
	require.NoError(t, s.ScheduleJump(2*time.Second, 9*time.Second))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsPlaying())
	assert.Equal(t, time.Duration(0), s.CurrentTime())

	require.NoError(t, s.Play())
	s.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, s.CurrentTime(), "stopped jump must not apply after restart")
}

func TestSimulatedSeekMovesCursorAndDiscardsJump(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Play())
	require.NoError(t, s.ScheduleJump(time.Second, 9*time.Second))

	require.NoError(t, s.Seek(4*time.Second))
	assert.Equal(t, 4*time.Second, s.CurrentTime())

	s.Advance(time.Second)
	assert.Equal(t, 5*time.Second, s.CurrentTime(), "seek must discard the pending jump")
}

func TestSimulatedSeekClampsNegativeToZero(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	require.NoError(t, s.Seek(-time.Second))
	assert.Equal(t, time.Duration(0), s.CurrentTime())
}

func TestSimulatedCloseIsNoop(t *testing.T) {
	s := NewSimulated()
	require.NoError(t, s.Load())
	assert.NoError(t, s.Close())
}
