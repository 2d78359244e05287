package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
)

const (
	defaultMaxRooms = 500
	codeLength      = 6
	maxCodeLength   = 32
)

var (
	ErrRegistryFull = errors.New("room limit reached")
	ErrInvalidCode  = errors.New("invalid room code")
)

// RegistryStats is a point-in-time count for housekeeping logs
type RegistryStats struct {
	Rooms      int
	Public     int
	Private    int
	Players    int
	Spectators int
	Playing    int
}

// Registry maps room codes to live rooms
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	maxRooms int
	now      func() time.Time
	log      *slog.Logger
}

// NewRegistry creates an empty registry. maxRooms <= 0 selects the default cap.
func NewRegistry(maxRooms int, logger *slog.Logger) *Registry {
	if maxRooms <= 0 {
		maxRooms = defaultMaxRooms
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		maxRooms: maxRooms,
		now:      time.Now,
		log:      logger,
	}
}

// NormalizeCode folds a user-supplied room code into its canonical form
func NormalizeCode(code string) (string, error) {
	s := slug.Make(code)
	if len(s) > maxCodeLength {
		s = strings.TrimRight(s[:maxCodeLength], "-")
	}
	if s == "" {
		return "", ErrInvalidCode
	}
	return s, nil
}

// Create makes a public room under a fresh generated code
func (reg *Registry) Create() (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= reg.maxRooms {
		return nil, ErrRegistryFull
	}
	id := GenerateCode(codeLength)
	for reg.rooms[id] != nil {
		id = GenerateCode(codeLength)
	}
	return reg.add(id, false), nil
}

// add registers a new room; caller holds reg.mu
func (reg *Registry) add(id string, private bool) *Room {
	room := NewRoom(id, private, reg.now, reg.log)
	reg.rooms[id] = room
	reg.log.Info("room created", "room", id, "private", private)
	return room
}

// FindPublicJoinable returns any public room with a free seat, or nil
func (reg *Registry) FindPublicJoinable() *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, room := range reg.rooms {
		if !room.Private && room.PlayerCount() < 2 && !room.Closed() {
			return room
		}
	}
	return nil
}

// GetOrCreate returns the room for code, creating a private one if absent.
// A room that has ended but is not yet destroyed is replaced.
func (reg *Registry) GetOrCreate(code string) (*Room, error) {
	id, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room := reg.rooms[id]; room != nil {
		if !room.Closed() {
			return room, nil
		}
		delete(reg.rooms, id)
	}
	if len(reg.rooms) >= reg.maxRooms {
		return nil, ErrRegistryFull
	}
	return reg.add(id, true), nil
}

// Get returns the room for code, or nil
func (reg *Registry) Get(code string) *Room {
	id, err := NormalizeCode(code)
	if err != nil {
		return nil
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// Destroy removes a room and stops its schedule. Unknown ids are ignored.
func (reg *Registry) Destroy(id string) {
	reg.mu.Lock()
	room := reg.rooms[id]
	delete(reg.rooms, id)
	reg.mu.Unlock()

	if room != nil {
		room.close()
		reg.log.Info("room destroyed", "room", id)
	}
}

// destroyRoom removes room only if it is still the one registered under its
// code, so a stale caller never tears down a newer room with the same code
func (reg *Registry) destroyRoom(room *Room) {
	reg.mu.Lock()
	if reg.rooms[room.ID] == room {
		delete(reg.rooms, room.ID)
	}
	reg.mu.Unlock()

	room.close()
	reg.log.Info("room destroyed", "room", room.ID)
}

// List returns a summary of every live room
func (reg *Registry) List() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	list := make([]RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		list = append(list, room.Info())
	}
	return list
}

// Len returns the number of live rooms
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Stats aggregates room counts
func (reg *Registry) Stats() RegistryStats {
	var st RegistryStats
	for _, info := range reg.List() {
		st.Rooms++
		if info.Private {
			st.Private++
		} else {
			st.Public++
		}
		st.Players += info.Players
		st.Spectators += info.Spectators
		if info.Status == RoomPlaying {
			st.Playing++
		}
	}
	return st
}

// Close destroys every room
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := reg.rooms
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()

	for _, room := range rooms {
		room.close()
	}
	reg.log.Info("registry closed", "rooms", len(rooms))
}
