package gateway

import (
	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/rps"
)

// eventMessage renders a controller event for the receiving participant.
func (h *Hub) eventMessage(participant string, ev match.Event) (Outbound, bool) {
	switch ev.Type {
	case match.EventMatchFound:
		return Outbound{Type: TypeGameFound, Data: GameFoundData{
			MatchID:    ev.MatchID,
			Mode:       ev.Mode,
			OpponentID: ev.Opponent,
			Slot:       ev.Slot,
			Message:    h.cat.Text("matchmaking.found", map[string]any{"Opponent": ev.Opponent, "Slot": ev.Slot}, "Opponent found."),
		}}, true
	case match.EventRoundResult:
		if ev.Round == nil {
			return Outbound{}, false
		}
		return h.roundMessage(participant, ev.Round), true
	case match.EventOpponentLeft:
		return h.leftMessage(TypeOpponentLeft, "game.opponent_left", participant, ev), true
	case match.EventOpponentDisconnected:
		return h.leftMessage(TypeOpponentDisconnected, "game.opponent_disconnected", participant, ev), true
	case match.EventMatchEnded:
		if ev.Record == nil {
			return Outbound{}, false
		}
		return h.endedMessage(participant, ev.Record, ev.Opponent), true
	}
	return Outbound{}, false
}

func (h *Hub) roundMessage(participant string, rr *match.RoundResult) Outbound {
	slot, _ := rr.SlotOf(participant)
	own, other := rr.MovesBySlot[match.SlotA], rr.MovesBySlot[match.SlotB]
	score := PersonalScore{You: rr.Score.A, Opponent: rr.Score.B, Ties: rr.Score.Ties}
	outcome := rr.Outcome
	if slot == match.SlotB {
		own, other = other, own
		score.You, score.Opponent = score.Opponent, score.You
		outcome = outcome.Flip()
	}
	result, key := "tie", "game.round_tie"
	switch outcome {
	case rps.OutcomeA:
		result, key = "win", "game.round_win"
	case rps.OutcomeB:
		result, key = "loss", "game.round_loss"
	}
	msg := h.cat.Text(key, map[string]any{"Round": rr.Number, "Own": own, "Other": other}, result)
	if rr.Finished {
		msg += " " + h.finalText(score)
	}
	return Outbound{Type: TypeRoundResult, Data: RoundResultData{
		MatchID:       rr.MatchID,
		RoundNumber:   rr.Number,
		YourMove:      own,
		OpponentMove:  other,
		Result:        result,
		Score:         score,
		MatchFinished: rr.Finished,
		Message:       msg,
		Round:         rr,
	}}
}

func (h *Hub) leftMessage(typ, key, participant string, ev match.Event) Outbound {
	d := MatchEndedData{
		MatchID: ev.MatchID,
		Status:  match.StatusAbandoned,
		Record:  ev.Record,
		Message: h.cat.Text(key, nil, typ),
	}
	if ev.Record != nil {
		d.Score = personalScore(participant, ev.Record)
	}
	return Outbound{Type: typ, Data: d}
}

func (h *Hub) endedMessage(participant string, rec *match.Record, by string) Outbound {
	score := personalScore(participant, rec)
	msg := h.cat.Text("game.match_ended", map[string]any{"By": by}, "Match ended.")
	return Outbound{Type: TypeMatchEnded, Data: MatchEndedData{
		MatchID: rec.ID,
		Status:  rec.Status,
		Score:   score,
		Record:  rec,
		Message: msg + " " + h.finalText(score),
	}}
}

func (h *Hub) finalText(s PersonalScore) string {
	data := map[string]any{"OwnScore": s.You, "OtherScore": s.Opponent}
	switch {
	case s.You > s.Opponent:
		return h.cat.Text("game.match_won", data, "You won.")
	case s.You < s.Opponent:
		return h.cat.Text("game.match_lost", data, "You lost.")
	default:
		return h.cat.Text("game.match_tied", data, "Draw.")
	}
}

func personalScore(participant string, rec *match.Record) PersonalScore {
	own, opp, _ := rec.ScoreFor(participant)
	return PersonalScore{You: own, Opponent: opp, Ties: rec.Score.Ties}
}
