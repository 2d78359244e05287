package main

// Match end reasons recorded in the ledger
const (
	ReasonTimeout      = "timeout"
	ReasonOpponentLeft = "opponent_left"
)

// leaveOutcome is what a departing player left behind
type leaveOutcome struct {
	remaining int
	abandoned *MatchResult // set when a live match was cut short
}

// Disconnect detaches the session from its room. A room left with no
// players is destroyed. A room left with one player drops back to waiting.
func (c *Coordinator) Disconnect(s *Session) {
	room := s.Room()
	if room == nil {
		return
	}
	role := s.role
	s.room, s.role, s.side = nil, RoleNone, SideNone

	id := s.Peer.ID()
	if role == RoleSpectator {
		room.removeSpectator(id)
		return
	}

	out, ok := room.leave(id)
	if !ok {
		return
	}
	c.log.Info("player left", "room", room.ID, "conn", id, "remaining", out.remaining)
	if out.abandoned != nil {
		c.sink.Record(*out.abandoned)
	}
	if out.remaining == 0 {
		c.rooms.destroyRoom(room)
	}
}

// leave unseats a player and halts any countdown or match in progress
func (r *Room) leave(id string) (leaveOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.unseat(id) == nil {
		return leaveOutcome{}, false
	}

	out := leaveOutcome{remaining: r.playerCount()}
	if r.status == RoomPlaying {
		res := r.result(ReasonOpponentLeft)
		out.abandoned = &res
	}
	r.stopSchedule()
	if out.remaining == 0 {
		// closed before the lock drops so no joiner can sit down in it
		r.shut()
		return out, true
	}

	r.status = RoomWaiting
	r.broadcast(Envelope{T: MsgPlayerLeft})
	r.broadcast(Envelope{T: MsgStatus, Data: StatusWaitingText})
	return out, true
}
