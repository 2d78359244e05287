package main

import "time"

// Field geometry, in field units. Origin is the top-left corner.
const (
	FieldWidth   = 600.0
	FieldHeight  = 800.0
	FieldMidline = FieldHeight / 2

	GoalWidth      = 160.0
	GoalDepth      = 10.0
	GoalCenterX    = 300.0
	GoalLineTop    = 0 - 50.0
	GoalLineBottom = FieldHeight + 50.0

	PaddleRadius = 30.0
	PuckRadius   = 20.0
)

// Puck dynamics
const (
	Friction       = 0.99 // velocity multiplier per tick
	MinHitSpeed    = 2.0  // floor on the paddle's normal speed at contact
	HitStrength    = 3.0  // multiplier applied to the outgoing puck speed
	HitCooldown    = 3    // ticks during which paddle contact is skipped
	MaxMoveDelta   = 100.0
	ServeX         = 200.0
	ServeY         = 600.0
	ServeSpeed     = 5.0
	PenaltyX       = 300.0
	PenaltyOffset  = 25.0 // distance from the midline for a penalty serve
	PenaltySpeed   = 3.0
	BottomSpawnX   = 200.0
	BottomSpawnY   = 700.0
	TopSpawnX      = 200.0
	TopSpawnY      = 100.0
	initialHitTick = -10
)

// Match timing
const (
	TickRate       = 60 // physics ticks per second
	TickDuration   = time.Second / TickRate
	TimerInterval  = time.Second
	MatchDuration  = 3 * time.Minute
	CountdownFrom  = 3
	CountdownStep  = time.Second
	StallWarnAfter = 3 * time.Second
	StallLimit     = 8 * time.Second
)

// goalMouthLeft and goalMouthRight bound the open gap in each back wall.
const (
	goalMouthLeft  = GoalCenterX - GoalWidth/2
	goalMouthRight = GoalCenterX + GoalWidth/2
)
