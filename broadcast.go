package main

// Every helper here expects r.mu to be held. Peer.Send never blocks, so a
// slow connection cannot stall the room loop.

// systemChat formats a chat line authored by the server
func systemChat(text string) string {
	return "SYSTEM: " + text
}

// broadcast sends msg to both players and every spectator
func (r *Room) broadcast(msg Envelope) {
	for _, p := range r.players {
		if p != nil {
			p.peer.Send(msg)
		}
	}
	for _, s := range r.spectators {
		s.Send(msg)
	}
}

// sendTo delivers msg to the player on side, if seated
func (r *Room) sendTo(side Side, msg Envelope) {
	if side != SideBottom && side != SideTop {
		return
	}
	if p := r.players[side]; p != nil {
		p.peer.Send(msg)
	}
}

// broadcastState emits the per-tick snapshots. A player without an
// opponent receives nothing.
func (r *Room) broadcastState() {
	for _, p := range r.players {
		if p == nil {
			continue
		}
		opp := r.players[p.Side.Opposite()]
		if opp == nil {
			continue
		}
		p.peer.Send(Envelope{T: MsgUpdate, Data: PlayerView{Puck: r.puck, OpponentPos: opp.Pos}})
	}
	if len(r.spectators) == 0 {
		return
	}
	view := r.spectatorView()
	for _, s := range r.spectators {
		s.Send(Envelope{T: MsgUpdate, Data: view})
	}
}

func (r *Room) spectatorView() SpectatorView {
	return SpectatorView{
		Puck: r.puck,
		Players: SidePlayers{
			Top:    r.players[SideTop].ToState(),
			Bottom: r.players[SideBottom].ToState(),
		},
		Scores: r.scores,
	}
}
