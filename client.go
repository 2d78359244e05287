package main

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
	// a client this far over the limit is disconnected rather than throttled
	floodFactor = 4
)

// binaryMarker prefixes queued frames that WritePump sends as binary
const binaryMarker = 0xFF

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	msgpack    bool // encode update frames as msgpack binary
	session    *Session
	msgCount   int
	msgResetAt time.Time
	log        *slog.Logger
}

// NewClient creates a new Client with a fresh connection id
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, useMsgpack bool) *Client {
	id := uuid.NewString()
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         id,
		remoteAddr: remoteAddr,
		msgpack:    useMsgpack,
		log:        hub.log.With("conn", id),
	}
	c.session = NewSession(c)
	return c
}

// ID implements Peer
func (c *Client) ID() string { return c.id }

// Send implements Peer. Snapshots go out as msgpack when negotiated; every
// other message is JSON text.
func (c *Client) Send(msg Envelope) {
	if c.msgpack && msg.T == MsgUpdate {
		data, err := msgpack.Marshal(msg)
		if err != nil {
			c.log.Error("msgpack marshal", "err", err)
			return
		}
		c.SendBinary(data)
		return
	}
	c.SendJSON(msg)
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.coord.Disconnect(c.session)
		c.hub.Release(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws read error", "err", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec*floodFactor {
			c.log.Warn("flood detected, disconnecting", "ip", c.remoteAddr)
			break
		}
		if c.msgCount > maxMessagesPerSec {
			continue
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text message
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary queues pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("unmarshal error", "err", err)
		return
	}

	coord := c.hub.coord
	switch env.T {
	case MsgJoinQuickMatch:
		c.reply(coord.JoinQuickMatch(c.session))
	case MsgJoinRoom:
		var code string
		if err := json.Unmarshal(env.D, &code); err != nil {
			c.reply(ErrInvalidCode)
			return
		}
		c.reply(coord.JoinCoded(c.session, code))
	case MsgJoinAsSpectator:
		var code string
		if err := json.Unmarshal(env.D, &code); err != nil {
			c.reply(ErrRoomNotFound)
			return
		}
		c.reply(coord.JoinAsSpectator(c.session, code))
	case MsgJoinInvite:
		c.reply(c.joinInvite(env.D))
	case MsgMove:
		var m MoveMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		coord.Move(c.session, m)
	case MsgChat:
		var text string
		if err := json.Unmarshal(env.D, &text); err != nil {
			return
		}
		coord.Chat(c.session, text)
	}
}

func (c *Client) joinInvite(data json.RawMessage) error {
	if c.hub.invites == nil {
		return ErrInvalidInvite
	}
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return ErrInvalidInvite
	}
	claims, err := c.hub.invites.Verify(token)
	if err != nil {
		return err
	}
	if claims.Role == InviteSpectator {
		return c.hub.coord.JoinAsSpectator(c.session, claims.Room)
	}
	return c.hub.coord.JoinCoded(c.session, claims.Room)
}

// reply reports a failed request back to the client
func (c *Client) reply(err error) {
	if err == nil {
		return
	}
	c.log.Debug("request rejected", "err", err)
	c.Send(Rejection(err))
}
