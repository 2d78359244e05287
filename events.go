package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectMatchEnded carries one JSON MatchResult per message
const SubjectMatchEnded = "airhockey.match.ended"

// natsConn is the slice of *nats.Conn the publisher uses
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// Publisher announces finished matches on NATS
type Publisher struct {
	conn    natsConn
	subject string
	log     *slog.Logger
}

// NewPublisher connects to the NATS server at url
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	logger = logger.With("component", "publisher")
	conn, err := nats.Connect(url,
		nats.Name("airhockey-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return newPublisher(conn, logger), nil
}

func newPublisher(conn natsConn, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, subject: SubjectMatchEnded, log: logger}
}

// Record publishes m. nats.Conn.Publish only buffers, so this never
// waits on the network.
func (p *Publisher) Record(m MatchResult) {
	data, err := json.Marshal(m)
	if err != nil {
		p.log.Error("encode match", "room", m.Room, "err", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.log.Warn("publish match", "room", m.Room, "err", err)
	}
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
