package main

import (
	"fmt"
	"time"
)

// remaining is the match time left, never negative; caller holds r.mu
func (r *Room) remaining() time.Duration {
	left := MatchDuration - r.now().Sub(r.matchStart)
	if left < 0 {
		return 0
	}
	return left
}

// TimerTick broadcasts the remaining time in milliseconds. When time is up
// the room moves to ended, gameOver goes out with the final scores, and
// TimerTick reports true so the scheduler can hand the room off.
func (r *Room) TimerTick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.status != RoomPlaying {
		return false
	}

	left := r.remaining()
	r.broadcast(Envelope{T: MsgTimer, Data: left.Milliseconds()})
	if left > 0 {
		return false
	}

	r.broadcast(Envelope{T: MsgGameOver, Data: r.scores})
	r.shut()
	r.log.Info("match over", "top", r.scores.Top, "bottom", r.scores.Bottom)
	return true
}

// countdownStep emits the status for the given remaining count. At zero the
// match starts. It reports false when the room left the countdown phase.
func (r *Room) countdownStep(n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.status != RoomCountdown {
		return false
	}
	if n > 0 {
		r.broadcast(Envelope{T: MsgStatus, Data: fmt.Sprintf("Starting in %d...", n)})
		return true
	}
	r.broadcast(Envelope{T: MsgStatus, Data: StatusInProgressText})
	r.startMatch()
	return true
}
