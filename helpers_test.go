package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockPeer captures sent messages for testing
type mockPeer struct {
	id string

	mu       sync.Mutex
	messages []Envelope
	panicOn  string // Send panics for this message type
}

func newMockPeer(id string) *mockPeer {
	return &mockPeer{id: id}
}

func (m *mockPeer) ID() string { return m.id }

func (m *mockPeer) Send(msg Envelope) {
	if m.panicOn != "" && msg.T == m.panicOn {
		panic("send failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockPeer) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.messages...)
}

func (m *mockPeer) ofType(t string) []Envelope {
	var out []Envelope
	for _, msg := range m.all() {
		if msg.T == t {
			out = append(out, msg)
		}
	}
	return out
}

// texts returns the string payloads of every message of type t
func (m *mockPeer) texts(t string) []string {
	var out []string
	for _, msg := range m.ofType(t) {
		if s, ok := msg.Data.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockPeer) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// playingRoom returns a room with both seats taken and the match running,
// without a scheduler. Tests drive Tick and TimerTick directly.
func playingRoom(t *testing.T) (*Room, *mockPeer, *mockPeer, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	r := NewRoom("test", false, clock.Now, testLogger())
	bottom := newMockPeer("bottom")
	top := newMockPeer("top")
	if _, _, err := r.seat(bottom); err != nil {
		t.Fatalf("seat bottom: %v", err)
	}
	if _, ready, err := r.seat(top); err != nil || !ready {
		t.Fatalf("seat top: ready=%v err=%v", ready, err)
	}
	r.mu.Lock()
	r.startMatch()
	r.mu.Unlock()
	bottom.reset()
	top.reset()
	return r, bottom, top, clock
}

// setPuck replaces the puck state under the room lock
func setPuck(r *Room, p Puck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck = p
}

func getPuck(r *Room) Puck {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puck
}

// captureSink records matches handed to it
type captureSink struct {
	mu      sync.Mutex
	results []MatchResult
}

func (s *captureSink) Record(m MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, m)
}

func (s *captureSink) all() []MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MatchResult(nil), s.results...)
}

// roundTrip re-decodes v through JSON into a generic map
func roundTrip(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}
