// Package driver implements the Playback Driver: the tick loop that reads
// the Jump Graph, asks the Branch Selector for the next beat, and drives a
// Player across the beat boundary.
package driver

import "time"

// Player is the Audio Player Contract (component F). A Player owns a
// decoded audio buffer and a play cursor; the Driver never touches raw
// samples, only this interface.
type Player interface {
	// Load prepares the player to play audio rooted at time 0.
	Load() error

	// Play resumes playback from the current cursor.
	Play() error

	// Pause halts playback without resetting the cursor.
	Pause() error

	// Stop halts playback and discards any in-flight scheduled jump.
	Stop() error

	// Seek moves the play cursor directly to t, bypassing scheduleJump.
	Seek(t time.Duration) error

	// IsPlaying reports whether the player is actively advancing.
	IsPlaying() bool

	// CurrentTime returns the player's current position.
	CurrentTime() time.Duration

	// ScheduleJump instructs the player that, at track time atTrackTime,
	// the playback cursor should become destTrackTime. destTrackTime
	// already carries any headroom the caller wants inside the
	// destination beat. At most one scheduled jump is pending; a later
	// call supersedes an earlier one.
	ScheduleJump(atTrackTime, destTrackTime time.Duration) error

	// Close releases any underlying resources.
	Close() error
}
