package main

import "math"

// Tick advances a playing room by one physics step and broadcasts the
// resulting snapshots. Ticks outside the playing phase are ignored.
func (r *Room) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.status != RoomPlaying {
		return
	}
	r.step()
}

// step runs one tick in order: integrate, walls, possession watchdog,
// scoring, paddle contact, side walls again, broadcast. Caller holds r.mu.
func (r *Room) step() {
	r.frame++
	p := &r.puck

	integrate(p)
	bounceSideWalls(p)
	bounceBackWalls(p)

	r.watchPossession()

	if scorer := goalScored(*p); scorer != SideNone {
		r.score(scorer)
		return
	}

	r.resolvePaddles()
	keepInsideSideWalls(p)

	r.broadcastState()
}

// integrate moves the puck by its velocity, then applies friction
func integrate(p *Puck) {
	p.X += p.VX
	p.Y += p.VY
	p.VX *= Friction
	p.VY *= Friction
}

func bounceSideWalls(p *Puck) {
	if p.X-PuckRadius <= 0 {
		p.X = PuckRadius
		p.VX = -p.VX
	} else if p.X+PuckRadius >= FieldWidth {
		p.X = FieldWidth - PuckRadius
		p.VX = -p.VX
	}
}

// keepInsideSideWalls clamps after paddle contact. The velocity is turned
// inward rather than inverted, since the paddle may already have done so.
func keepInsideSideWalls(p *Puck) {
	if p.X-PuckRadius < 0 {
		p.X = PuckRadius
		p.VX = math.Abs(p.VX)
	} else if p.X+PuckRadius > FieldWidth {
		p.X = FieldWidth - PuckRadius
		p.VX = -math.Abs(p.VX)
	}
}

// bounceBackWalls reflects the puck off the end walls either side of the goal mouth
func bounceBackWalls(p *Puck) {
	if inGoalMouth(p.X) {
		return
	}
	if p.Y-PuckRadius <= GoalDepth {
		p.Y = GoalDepth + PuckRadius
		p.VY = -p.VY
	} else if p.Y+PuckRadius >= FieldHeight-GoalDepth {
		p.Y = FieldHeight - GoalDepth - PuckRadius
		p.VY = -p.VY
	}
}

// resolvePaddles handles at most one paddle contact per tick. Only a full
// room collides; while the cooldown runs, contact is skipped entirely.
func (r *Room) resolvePaddles() {
	if r.playerCount() != 2 {
		return
	}
	if r.hitCooldown > 0 {
		r.hitCooldown--
		return
	}

	p := &r.puck
	for _, pl := range r.players {
		if !CheckCollision(pl.Pos.X, pl.Pos.Y, PaddleRadius, p.X, p.Y, PuckRadius) {
			continue
		}
		c, ok := CircleContact(pl.Pos, PaddleRadius, p.Pos(), PuckRadius, awayFromGoal(pl.Side))
		if !ok {
			continue
		}
		p.X += c.Normal.X * c.Overlap
		p.Y += c.Normal.Y * c.Overlap

		normalSpeed := pl.Vel.X*c.Normal.X + pl.Vel.Y*c.Normal.Y
		speed := math.Max(MinHitSpeed, normalSpeed) * HitStrength
		p.VX = c.Normal.X * speed
		p.VY = c.Normal.Y * speed

		r.hitCooldown = HitCooldown
		pl.LastHitFrame = r.frame
		return
	}
}

// awayFromGoal points from a side's goal toward the opponent
func awayFromGoal(side Side) Vec {
	if side == SideTop {
		return Vec{X: 0, Y: 1}
	}
	return Vec{X: 0, Y: -1}
}

// applyMove records a paddle report from a seated player. Velocity is the
// per-axis displacement since the previous report, capped at MaxMoveDelta.
func (r *Room) applyMove(id string, m MoveMsg) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	pl := r.player(id)
	if pl == nil {
		return false
	}
	pl.Vel = Vec{
		X: Clamp(m.X-pl.Pos.X, -MaxMoveDelta, MaxMoveDelta),
		Y: Clamp(m.Y-pl.Pos.Y, -MaxMoveDelta, MaxMoveDelta),
	}
	pl.Pos = Vec{X: m.X, Y: m.Y}
	return true
}
