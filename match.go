package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	maxChatRunes = 200
	joinAttempts = 3
)

var ErrAlreadySeated = errors.New("already in a room")

// Role is what a session does in its room
type Role int

const (
	RoleNone Role = iota
	RolePlayer
	RoleSpectator
)

// Session is the per-connection membership record. It is owned by the
// connection's read goroutine and never shared.
type Session struct {
	Peer Peer
	room *Room
	role Role
	side Side
}

// NewSession creates a session with no room
func NewSession(peer Peer) *Session {
	return &Session{Peer: peer, side: SideNone}
}

// Room returns the session's room, or nil. A destroyed room is forgotten.
func (s *Session) Room() *Room {
	if s.room != nil && s.room.Closed() {
		s.room, s.role, s.side = nil, RoleNone, SideNone
	}
	return s.room
}

// Role returns the session's role in its room
func (s *Session) Role() Role {
	if s.Room() == nil {
		return RoleNone
	}
	return s.role
}

// Side returns the seated side, or SideNone
func (s *Session) Side() Side {
	if s.Role() != RolePlayer {
		return SideNone
	}
	return s.side
}

// Coordinator handles join, move and chat requests against the registry
type Coordinator struct {
	rooms *Registry
	sink  MatchSink
	log   *slog.Logger

	// joinMu makes "find a room with a free seat, then take it" atomic
	// with respect to other joins
	joinMu sync.Mutex
}

// NewCoordinator creates a coordinator; sink may be nil
func NewCoordinator(rooms *Registry, sink MatchSink, logger *slog.Logger) *Coordinator {
	if sink == nil {
		sink = MatchSinks()
	}
	return &Coordinator{rooms: rooms, sink: sink, log: logger}
}

// JoinQuickMatch seats the session in any public room with a free seat,
// creating one if none exists
func (c *Coordinator) JoinQuickMatch(s *Session) error {
	if s.Room() != nil {
		return ErrAlreadySeated
	}
	c.joinMu.Lock()
	defer c.joinMu.Unlock()

	for i := 0; i < joinAttempts; i++ {
		room := c.rooms.FindPublicJoinable()
		if room == nil {
			var err error
			if room, err = c.rooms.Create(); err != nil {
				return err
			}
		}
		err := c.seat(s, room)
		if errors.Is(err, ErrRoomClosed) || errors.Is(err, ErrRoomFull) {
			continue
		}
		return err
	}
	return ErrRoomFull
}

// JoinCoded seats the session in the room named by code, creating a
// private room if it does not exist
func (c *Coordinator) JoinCoded(s *Session, code string) error {
	if s.Room() != nil {
		return ErrAlreadySeated
	}
	c.joinMu.Lock()
	defer c.joinMu.Unlock()

	for i := 0; i < joinAttempts; i++ {
		room, err := c.rooms.GetOrCreate(code)
		if err != nil {
			return err
		}
		err = c.seat(s, room)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		return err
	}
	return ErrRoomNotFound
}

// JoinAsSpectator attaches the session to an existing room without a seat
func (c *Coordinator) JoinAsSpectator(s *Session, code string) error {
	if s.Room() != nil {
		return ErrAlreadySeated
	}
	room := c.rooms.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	if err := room.addSpectator(s.Peer); err != nil {
		return err
	}
	s.room, s.role, s.side = room, RoleSpectator, SideNone
	c.log.Info("spectator joined", "room", room.ID, "conn", s.Peer.ID())
	return nil
}

func (c *Coordinator) seat(s *Session, room *Room) error {
	p, ready, err := room.seat(s.Peer)
	if err != nil {
		return err
	}
	s.room, s.role, s.side = room, RolePlayer, p.Side
	if ready {
		room.beginCountdown(func() { c.expire(room) }, func(err error) { c.fault(room, err) })
	}
	return nil
}

// Move applies a paddle report. Reports from anyone but a seated player
// are dropped.
func (c *Coordinator) Move(s *Session, m MoveMsg) {
	if s.Role() != RolePlayer {
		return
	}
	s.room.applyMove(s.Peer.ID(), m)
}

// Chat relays a player's message to the whole room, prefixed with their side
func (c *Coordinator) Chat(s *Session, text string) {
	if s.Role() != RolePlayer {
		return
	}
	text = truncateRunes(strings.TrimSpace(text), maxChatRunes)
	if text == "" {
		return
	}
	s.room.chat(s.Peer.ID(), text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// expire runs on the room's scheduler goroutine once the match clock hits zero
func (c *Coordinator) expire(room *Room) {
	c.sink.Record(room.Result(ReasonTimeout))
	c.rooms.destroyRoom(room)
}

// fault ends a room whose tick panicked; other rooms are unaffected
func (c *Coordinator) fault(room *Room, err error) {
	c.log.Error("room failed", "room", room.ID, "err", err)
	room.abort()
	c.rooms.destroyRoom(room)
}

// Rejection maps a join error to the message sent back to the client
func Rejection(err error) Envelope {
	switch {
	case errors.Is(err, ErrRoomFull):
		return Envelope{T: MsgFull}
	case errors.Is(err, ErrRoomNotFound):
		return Envelope{T: MsgError, Data: "Room does not exist"}
	case errors.Is(err, ErrAlreadySeated):
		return Envelope{T: MsgError, Data: "already in a room"}
	case errors.Is(err, ErrInvalidCode):
		return Envelope{T: MsgError, Data: "invalid room code"}
	case errors.Is(err, ErrRegistryFull):
		return Envelope{T: MsgError, Data: "server is full, try again later"}
	case errors.Is(err, ErrInvalidInvite):
		return Envelope{T: MsgError, Data: "invalid or expired invite"}
	default:
		return Envelope{T: MsgError, Data: "request failed"}
	}
}

// chat broadcasts a player's line; caller passes already-trimmed text
func (r *Room) chat(id, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	p := r.player(id)
	if p == nil {
		return
	}
	r.broadcast(Envelope{T: MsgChat, Data: p.Side.Label() + ": " + text})
}

// abort tells everyone the match cannot continue
func (r *Room) abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.broadcast(Envelope{T: MsgError, Data: "Match aborted"})
}
