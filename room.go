package main

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// RoomStatus is the lifecycle phase of a room.
//
//	waiting → countdown → playing → ended
//	   ↑__________|__________|
//
// A room with no players does not exist; ended is always followed by destruction.
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomCountdown RoomStatus = "countdown"
	RoomPlaying   RoomStatus = "playing"
	RoomEnded     RoomStatus = "ended"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrRoomNotFound = errors.New("room does not exist")
	ErrRoomClosed   = errors.New("room is closed")
)

// Peer is the outbound half of a connection
type Peer interface {
	ID() string
	Send(msg Envelope)
}

// Player is a seated paddle
type Player struct {
	ID           string
	Side         Side
	Pos          Vec
	Vel          Vec
	LastHitFrame int64
	peer         Peer
}

// NewPlayer creates a player at its side's spawn point
func NewPlayer(peer Peer, side Side) *Player {
	pos := Vec{X: BottomSpawnX, Y: BottomSpawnY}
	if side == SideTop {
		pos = Vec{X: TopSpawnX, Y: TopSpawnY}
	}
	return &Player{
		ID:           peer.ID(),
		Side:         side,
		Pos:          pos,
		LastHitFrame: initialHitTick,
		peer:         peer,
	}
}

// ToState converts to protocol state
func (p *Player) ToState() *PlayerState {
	if p == nil {
		return nil
	}
	return &PlayerState{ID: p.ID, Pos: p.Pos, Vel: p.Vel, Side: p.Side}
}

// Room is one match: two paddle slots, any number of spectators, one puck.
// Every field below mu is guarded by it; the scheduler goroutine and the
// connection handlers both take it before touching room state.
type Room struct {
	ID      string
	Private bool

	mu              sync.Mutex
	status          RoomStatus
	players         [2]*Player // indexed by Side; iteration order is bottom, top
	spectators      map[string]Peer
	puck            Puck
	scores          Scores
	matchStart      time.Time
	frame           int64
	hitCooldown     int
	possession      Side
	possessionSince time.Time
	lastWarning     int
	sched           *Scheduler
	closed          bool

	now func() time.Time
	log *slog.Logger
}

// NewRoom creates an empty room with the puck at rest on the serve point
func NewRoom(id string, private bool, now func() time.Time, logger *slog.Logger) *Room {
	if now == nil {
		now = time.Now
	}
	return &Room{
		ID:         id,
		Private:    private,
		status:     RoomWaiting,
		spectators: make(map[string]Peer),
		puck:       Puck{X: ServeX, Y: ServeY},
		possession: SideNone,
		now:        now,
		log:        logger.With("room", id),
	}
}

// PlayerCount returns the number of seated players
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerCount()
}

// Status returns the current lifecycle phase
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Closed reports whether the room has been destroyed
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Scores returns a copy of the tally
func (r *Room) Scores() Scores {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scores
}

// Info summarises the room for listings
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		Code:       r.ID,
		Private:    r.Private,
		Players:    r.playerCount(),
		Spectators: len(r.spectators),
		Status:     r.status,
	}
}

func (r *Room) playerCount() int {
	n := 0
	for _, p := range r.players {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) player(id string) *Player {
	for _, p := range r.players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// seat places peer in the free slot, bottom first. It reports whether the
// room is now full and waiting, i.e. ready for a countdown.
func (r *Room) seat(peer Peer) (*Player, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, ErrRoomClosed
	}
	side := SideNone
	switch {
	case r.players[SideBottom] == nil:
		side = SideBottom
	case r.players[SideTop] == nil:
		side = SideTop
	default:
		return nil, false, ErrRoomFull
	}

	p := NewPlayer(peer, side)
	r.players[side] = p
	r.log.Info("player seated", "conn", p.ID, "side", side)

	peer.Send(Envelope{T: MsgInit, Data: side})
	if r.playerCount() < 2 {
		peer.Send(Envelope{T: MsgStatus, Data: StatusWaitingText})
		return p, false, nil
	}
	return p, r.status == RoomWaiting, nil
}

// unseat removes the player with the given connection id
func (r *Room) unseat(id string) *Player {
	for i, p := range r.players {
		if p != nil && p.ID == id {
			r.players[i] = nil
			return p
		}
	}
	return nil
}

func (r *Room) addSpectator(peer Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	r.spectators[peer.ID()] = peer
	peer.Send(Envelope{T: MsgInitSpectator})
	peer.Send(Envelope{T: MsgStatus, Data: StatusSpectating})
	r.broadcast(Envelope{T: MsgChat, Data: systemChat("A spectator has joined the match.")})
	return nil
}

func (r *Room) removeSpectator(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spectators[id]; !ok {
		return false
	}
	delete(r.spectators, id)
	return true
}

// beginCountdown moves a full waiting room into countdown and starts its
// scheduler. It is a no-op if the room changed since seat reported ready.
func (r *Room) beginCountdown(onExpire func(), onFault func(error)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.status != RoomWaiting || r.playerCount() != 2 {
		return false
	}
	r.resetMatch()
	r.status = RoomCountdown
	r.broadcast(Envelope{T: MsgStatus, Data: StatusMatchFound})
	r.sched = startScheduler(r, onExpire, onFault)
	r.log.Info("countdown started")
	return true
}

// resetMatch clears everything a previous match in this room left behind
func (r *Room) resetMatch() {
	r.scores = Scores{}
	r.puck = Puck{X: ServeX, Y: ServeY}
	r.frame = 0
	r.hitCooldown = 0
	r.possession = SideNone
	r.possessionSince = time.Time{}
	r.lastWarning = 0
	r.matchStart = time.Time{}
}

// startMatch is called by the final countdown step; caller holds r.mu
func (r *Room) startMatch() {
	r.status = RoomPlaying
	r.matchStart = r.now()
	r.puck = serve(SideBottom)
	r.log.Info("match started")
}

// stopSchedule halts the scheduler if one is running; caller holds r.mu
func (r *Room) stopSchedule() {
	if r.sched != nil {
		r.sched.Stop()
		r.sched = nil
	}
}

// close marks the room destroyed and stops its schedule. Idempotent.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shut()
}

// shut ends the room for good: nothing is seated, sent or scheduled after
// it. Caller holds r.mu.
func (r *Room) shut() {
	if r.closed {
		return
	}
	r.closed = true
	r.status = RoomEnded
	r.stopSchedule()
}

// result snapshots the match for the ledger; caller holds r.mu
func (r *Room) result(reason string) MatchResult {
	return MatchResult{
		Room:      r.ID,
		Private:   r.Private,
		Top:       r.scores.Top,
		Bottom:    r.scores.Bottom,
		Reason:    reason,
		StartedAt: r.matchStart,
		EndedAt:   r.now(),
	}
}

// Result snapshots the match for the ledger
func (r *Room) Result(reason string) MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result(reason)
}
