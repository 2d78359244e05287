package main

import (
	"fmt"
	"math"
	"time"
)

// halfOf returns the side whose half contains y
func halfOf(y float64) Side {
	if y < FieldMidline {
		return SideTop
	}
	return SideBottom
}

// watchPossession tracks how long the puck has stayed in one half. The
// holder is warned once per second after StallWarnAfter and penalised at
// StallLimit. Caller holds r.mu.
func (r *Room) watchPossession() {
	now := r.now()
	current := halfOf(r.puck.Y)

	if current != r.possession {
		r.possession = current
		r.possessionSince = now
		r.lastWarning = 0
		r.sendTo(current.Opposite(), Envelope{
			T:    MsgSystem,
			Data: fmt.Sprintf("Puck is in the %s half", current.Label()),
		})
		return
	}

	held := now.Sub(r.possessionSince)
	if held >= StallLimit {
		r.penalize(current, now)
		return
	}
	if held > StallWarnAfter {
		left := int(math.Ceil((StallLimit - held).Seconds()))
		if left != r.lastWarning {
			r.lastWarning = left
			r.sendTo(current, Envelope{
				T:    MsgSystem,
				Data: fmt.Sprintf("Don't stall! You will be penalized in %ds", left),
			})
		}
	}
}

// penalize hands the puck to the side opposite offender
func (r *Room) penalize(offender Side, now time.Time) {
	awarded := offender.Opposite()
	r.puck = penaltyServe(awarded)
	r.hitCooldown = 0
	r.log.Info("stall penalty", "offender", offender)

	r.broadcast(Envelope{
		T:    MsgChat,
		Data: systemChat(fmt.Sprintf("%s kept the puck too long! Possession given to %s", offender.Label(), awarded.Label())),
	})
	r.sendTo(offender, Envelope{T: MsgSystem, Data: "You were penalized!"})

	r.possession = SideNone
	r.possessionSince = now
	r.lastWarning = 0
}
