package main

// Puck is the authoritative puck state
type Puck struct {
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	VX float64 `json:"vx" msgpack:"vx"`
	VY float64 `json:"vy" msgpack:"vy"`
}

// Pos returns the puck centre
func (p Puck) Pos() Vec { return Vec{X: p.X, Y: p.Y} }

// Scores is the per-side goal tally
type Scores struct {
	Top    int `json:"top" msgpack:"top"`
	Bottom int `json:"bottom" msgpack:"bottom"`
}

// Add credits one goal to side
func (s *Scores) Add(side Side) {
	switch side {
	case SideTop:
		s.Top++
	case SideBottom:
		s.Bottom++
	}
}

// serve places the puck on the serve point moving toward side
func serve(toward Side) Puck {
	vy := ServeSpeed
	if toward == SideTop {
		vy = -ServeSpeed
	}
	return Puck{X: ServeX, Y: ServeY, VY: vy}
}

// penaltyServe restarts play just inside the awarded side's half,
// moving deeper into it
func penaltyServe(awarded Side) Puck {
	if awarded == SideTop {
		return Puck{X: PenaltyX, Y: FieldMidline - PenaltyOffset, VY: -PenaltySpeed}
	}
	return Puck{X: PenaltyX, Y: FieldMidline + PenaltyOffset, VY: PenaltySpeed}
}

// goalScored returns the side credited with a goal, or SideNone. A puck
// whose leading edge crosses a goal line inside the mouth counts for the
// opposite side.
func goalScored(p Puck) Side {
	if !inGoalMouth(p.X) {
		return SideNone
	}
	if p.Y+PuckRadius >= GoalLineBottom {
		return SideTop
	}
	if p.Y-PuckRadius <= GoalLineTop {
		return SideBottom
	}
	return SideNone
}

// score credits scorer, announces the new tally and re-serves toward the
// side that conceded; caller holds r.mu
func (r *Room) score(scorer Side) {
	r.scores.Add(scorer)
	r.log.Info("goal", "scorer", scorer, "top", r.scores.Top, "bottom", r.scores.Bottom)
	r.broadcast(Envelope{T: MsgUpdateScore, Data: r.scores})
	r.puck = serve(scorer.Opposite())
	r.hitCooldown = 0
}
