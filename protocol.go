package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoinQuickMatch  = "joinQuickMatch"
	MsgJoinRoom        = "joinRoom"
	MsgJoinAsSpectator = "joinAsSpectator"
	MsgJoinInvite      = "joinInvite" // signed invite token instead of a bare code
	MsgMove            = "move"
)

// Server -> Client message types
const (
	MsgInit          = "init"
	MsgInitSpectator = "initSpectator"
	MsgStatus        = "statusMessage"
	MsgSystem        = "systemMessage"
	MsgUpdate        = "update"
	MsgUpdateScore   = "updateScore"
	MsgTimer         = "timer"
	MsgGameOver      = "gameOver"
	MsgPlayerLeft    = "playerLeft"
	MsgFull          = "full"
	MsgError         = "errorMessage"
)

// MsgChat travels in both directions.
const MsgChat = "chatMessage"

// Status texts
const (
	StatusWaitingText    = "Waiting for opponent..."
	StatusMatchFound     = "Match found! Starting in 3..."
	StatusInProgressText = "Game in progress"
	StatusSpectating     = "Spectating game..."
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// MoveMsg is the paddle position reported by a player
type MoveMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerView is the per-tick snapshot sent to a player. The player's own
// paddle is tracked client-side and is never echoed back.
type PlayerView struct {
	Puck        Puck `json:"puck" msgpack:"puck"`
	OpponentPos Vec  `json:"opponentPos" msgpack:"opponentPos"`
}

// PlayerState is the full public state of one paddle
type PlayerState struct {
	ID   string `json:"id" msgpack:"id"`
	Pos  Vec    `json:"pos" msgpack:"pos"`
	Vel  Vec    `json:"vel" msgpack:"vel"`
	Side Side   `json:"side" msgpack:"side"`
}

// SidePlayers holds both slots; an empty slot encodes as null
type SidePlayers struct {
	Top    *PlayerState `json:"top" msgpack:"top"`
	Bottom *PlayerState `json:"bottom" msgpack:"bottom"`
}

// SpectatorView is the per-tick snapshot sent to spectators
type SpectatorView struct {
	Puck    Puck        `json:"puck" msgpack:"puck"`
	Players SidePlayers `json:"players" msgpack:"players"`
	Scores  Scores      `json:"scores" msgpack:"scores"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Code       string     `json:"code"`
	Private    bool       `json:"private"`
	Players    int        `json:"players"`
	Spectators int        `json:"spectators"`
	Status     RoomStatus `json:"status"`
}

// InviteMsg is the response body of the invite endpoint
type InviteMsg struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
