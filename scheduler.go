package main

import (
	"fmt"
	"sync"
	"time"
)

// Scheduler drives one room: the countdown, then the physics and timer
// tickers. Stop may be called from any goroutine, including the loop itself.
type Scheduler struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startScheduler(r *Room, onExpire func(), onFault func(error)) *Scheduler {
	s := &Scheduler{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(r, onExpire, onFault)
	return s
}

// Stop halts the loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the loop has exited
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run(r *Room, onExpire func(), onFault func(error)) {
	defer close(s.done)

	if !s.countdown(r, onFault) {
		return
	}

	physics := time.NewTicker(TickDuration)
	defer physics.Stop()
	clock := time.NewTicker(TimerInterval)
	defer clock.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-physics.C:
			if err := guard(r.Tick); err != nil {
				onFault(err)
				return
			}
		case <-clock.C:
			over := false
			if err := guard(func() { over = r.TimerTick() }); err != nil {
				onFault(err)
				return
			}
			if over {
				onExpire()
				return
			}
		}
	}
}

// countdown runs the remaining countdown steps; "Starting in 3" was sent
// when the room entered countdown
func (s *Scheduler) countdown(r *Room, onFault func(error)) bool {
	step := time.NewTicker(CountdownStep)
	defer step.Stop()

	for n := CountdownFrom - 1; n >= 0; n-- {
		select {
		case <-s.stop:
			return false
		case <-step.C:
		}
		ok := false
		if err := guard(func() { ok = r.countdownStep(n) }); err != nil {
			onFault(err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// guard runs fn and converts a panic into an error
func guard(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("room tick panicked: %v", p)
		}
	}()
	fn()
	return nil
}
