package driver

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foreverjukebox/core/internal/jukeboxerr"
	"github.com/foreverjukebox/core/internal/selector"
	"github.com/foreverjukebox/core/internal/track"
)

const (
	tickInterval = 50 * time.Millisecond

	scheduleOffsetFraction = 0.06
	minScheduleOffset      = 15 * time.Millisecond
	maxScheduleOffset      = 50 * time.Millisecond
	scheduleEndEpsilon     = 1 * time.Millisecond

	resyncTolerance   = 50 * time.Millisecond
	ignoreResyncFloor = 200 * time.Millisecond
)

// jumpRecord is published on every jump so a concurrent audio callback
// goroutine can read the scheduled splice without taking the Driver's lock.
type jumpRecord struct {
	AtBeatWhich   int
	DestWhich     int
	DestTrackTime time.Duration
	ScheduledAt   time.Time
}

// State is a snapshot of playback for listeners (e.g. an SSE stream).
type State struct {
	BeatIndex             int
	BeatsPlayed           int
	Playing               bool
	CurRandomBranchChance float64
	LastJumpAt            time.Time

	CurrentTime       time.Duration
	LastJumped        bool
	LastJumpFromIndex int
	CurrentThreshold  float64
	LastBranchPoint   int
}

// Driver ticks the Playback Branching Engine: at every beat boundary it
// consults the Branch Selector and either advances linearly or instructs
// the Player to jump.
type Driver struct {
	player   Player
	track    *track.Track
	selector *selector.Selector
	branch   *selector.BranchState

	mu                 sync.Mutex
	currentBeatIndex   int
	playing            bool
	beatsPlayed        int
	nextTransitionTime time.Time
	lastJumpTime       time.Time
	lastJumpFromIndex  int
	lastTickTime       time.Time
	ignoreResyncUntil  time.Time
	forceBranchOnce    bool

	pendingJump atomic.Pointer[jumpRecord]

	listenersMu sync.Mutex
	listeners   []chan State
}

// New constructs a Driver starting at beat 0. Call Load before Tick/Run.
func New(p Player, t *track.Track, sel *selector.Selector, branch *selector.BranchState) *Driver {
	return &Driver{
		player:   p,
		track:    t,
		selector: sel,
		branch:   branch,
	}
}

// Load prepares the player and primes the Driver's clock. now is the wall
// time corresponding to track position 0.
func (d *Driver) Load(now time.Time) error {
	if err := d.player.Load(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentBeatIndex = 0
	d.lastTickTime = now
	if beat := d.track.BeatAt(0); beat != nil {
		d.nextTransitionTime = now.Add(durationOf(beat.Duration()))
	}
	return nil
}

// Play resumes playback.
func (d *Driver) Play() error {
	d.mu.Lock()
	d.playing = true
	d.mu.Unlock()
	return d.player.Play()
}

// Pause halts playback without resetting position.
func (d *Driver) Pause() error {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
	return d.player.Pause()
}

// Stop halts the tick loop and the player, discarding any in-flight
// scheduled jump, per stopJukebox's contract.
func (d *Driver) Stop() error {
	d.mu.Lock()
	d.playing = false
	d.pendingJump.Store(nil)
	d.mu.Unlock()
	return d.player.Stop()
}

// ForceBranch requests that the very next beat boundary force a jump,
// regardless of the random draw (e.g. a user "skip" command).
func (d *Driver) ForceBranch() {
	d.mu.Lock()
	d.forceBranchOnce = true
	d.mu.Unlock()
}

// Snapshot returns the current playback state.
func (d *Driver) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked(false, d.currentBeatIndex)
}

// Subscribe registers a listener channel that receives a State snapshot on
// every tick. The returned func unsubscribes it.
func (d *Driver) Subscribe(ch chan State) func() {
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, ch)
	d.listenersMu.Unlock()
	return func() {
		d.listenersMu.Lock()
		defer d.listenersMu.Unlock()
		for i, l := range d.listeners {
			if l == ch {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// PendingJump returns the most recently scheduled jump, or nil if none has
// happened yet. Safe to call concurrently from an audio callback.
func (d *Driver) PendingJump() (atBeatWhich, destWhich int, destTrackTime time.Duration, ok bool) {
	j := d.pendingJump.Load()
	if j == nil {
		return 0, 0, 0, false
	}
	return j.AtBeatWhich, j.DestWhich, j.DestTrackTime, true
}

// Tick advances the Driver's clock to now, crossing as many beat boundaries
// as now implies. It is the single place branch decisions are made.
func (d *Driver) Tick(now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing {
		d.lastTickTime = time.Time{}
		d.broadcastLocked(false)
		return nil
	}

	t := d.player.CurrentTime()
	if t < 0 {
		return jukeboxerr.New(jukeboxerr.PlayerUnavailable, "player cursor went negative", nil)
	}

	if !now.Before(d.ignoreResyncUntil) {
		d.resyncLocked(now, t)
	}

	jumpedThisTick := false
	for d.playing && !now.Before(d.nextTransitionTime) {
		d.beatsPlayed++
		cur := d.track.BeatAt(d.currentBeatIndex)
		if cur == nil {
			d.playing = false
			break
		}

		dest, jumped := d.selector.Next(cur, d.track.Graph, d.branch, d.forceBranchOnce)
		d.forceBranchOnce = false

		if jumped {
			offset := computeScheduleOffset(durationOf(dest.Duration()))
			destTime := durationOf(dest.Start()) + offset
			if endBound := durationOf(dest.End()) - scheduleEndEpsilon; destTime > endBound {
				destTime = endBound
			}

			if err := d.player.ScheduleJump(durationOf(cur.End()), destTime); err != nil {
				return err
			}
			d.lastJumpTime = now
			d.lastJumpFromIndex = cur.Which()
			jumpedThisTick = true
			d.pendingJump.Store(&jumpRecord{
				AtBeatWhich:   cur.Which(),
				DestWhich:     dest.Which(),
				DestTrackTime: destTime,
				ScheduledAt:   now,
			})
			d.currentBeatIndex = dest.Which()

			ignoreFor := durationOf(dest.Duration())
			if ignoreFor < ignoreResyncFloor {
				ignoreFor = ignoreResyncFloor
			}
			d.ignoreResyncUntil = now.Add(ignoreFor)
		} else {
			next := d.currentBeatIndex + 1
			if next >= d.track.TotalBeats() {
				d.playing = false
				break
			}
			d.currentBeatIndex = next
		}

		nb := d.track.BeatAt(d.currentBeatIndex)
		if nb == nil {
			d.playing = false
			break
		}
		d.nextTransitionTime = d.nextTransitionTime.Add(durationOf(nb.Duration()))
	}

	d.lastTickTime = now
	d.broadcastLocked(jumpedThisTick)
	return nil
}

// resyncLocked re-acquires currentBeatIndex from the player's own reported
// position when it has drifted outside the current beat's interval
// (plus tolerance), per the Playback Driver's resync step. Must be called
// with d.mu held.
func (d *Driver) resyncLocked(now time.Time, t time.Duration) {
	cur := d.track.BeatAt(d.currentBeatIndex)
	inRange := cur != nil &&
		t >= durationOf(cur.Start())-resyncTolerance &&
		t <= durationOf(cur.End())+resyncTolerance
	if d.currentBeatIndex >= 0 && inRange {
		return
	}

	idx, ok := reacquireBeatIndex(d.track, t)
	if !ok {
		return
	}
	d.currentBeatIndex = idx
	if nb := d.track.BeatAt(idx); nb != nil {
		remaining := durationOf(nb.End()) - t
		d.nextTransitionTime = now.Add(remaining)
	}
}

// reacquireBeatIndex binary-searches the track's beats by start time for the
// beat whose interval contains (or most nearly precedes) t.
func reacquireBeatIndex(tr *track.Track, t time.Duration) (int, bool) {
	n := tr.TotalBeats()
	if n == 0 {
		return 0, false
	}
	idx := sort.Search(n, func(i int) bool {
		return durationOf(tr.BeatAt(i).Start()) > t
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx, true
}

// Run ticks the Driver on a fixed interval until ctx is canceled, mirroring
// a scheduler loop driven by a single background goroutine.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := d.Tick(now); err != nil {
				return err
			}
		}
	}
}

// stateLocked builds a State snapshot. Must be called with d.mu held.
func (d *Driver) stateLocked(lastJumped bool, beatIndex int) State {
	var currentThreshold float64
	lastBranchPoint := -1
	if d.track.Graph != nil {
		currentThreshold = d.track.Graph.CurrentThreshold
		lastBranchPoint = d.track.Graph.LastBranchPoint
	}
	return State{
		BeatIndex:             beatIndex,
		BeatsPlayed:           d.beatsPlayed,
		Playing:               d.playing,
		CurRandomBranchChance: d.branch.CurRandomBranchChance,
		LastJumpAt:            d.lastJumpTime,
		CurrentTime:           d.player.CurrentTime(),
		LastJumped:            lastJumped,
		LastJumpFromIndex:     d.lastJumpFromIndex,
		CurrentThreshold:      currentThreshold,
		LastBranchPoint:       lastBranchPoint,
	}
}

func (d *Driver) broadcastLocked(lastJumped bool) {
	snap := d.stateLocked(lastJumped, d.currentBeatIndex)
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	for _, ch := range d.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}

// computeScheduleOffset scales a beat's duration by scheduleOffsetFraction,
// clamped to [minScheduleOffset, maxScheduleOffset]: a small headroom inside
// the destination beat that hides scheduling jitter.
func computeScheduleOffset(beatDuration time.Duration) time.Duration {
	offset := time.Duration(float64(beatDuration) * scheduleOffsetFraction)
	if offset < minScheduleOffset {
		return minScheduleOffset
	}
	if offset > maxScheduleOffset {
		return maxScheduleOffset
	}
	return offset
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
