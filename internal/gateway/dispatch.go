package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/obslog"
)

// dispatch runs one inbound message and returns the direct reply, if any.
func (h *Hub) dispatch(ctx context.Context, participant string, env Envelope) (Outbound, bool) {
	switch env.Type {
	case TypeFindMatch:
		var req FindMatchRequest
		if !decode(env.Data, &req) {
			return h.errorMessage("invalid_payload", nil), true
		}
		return h.findMatch(ctx, participant, req), true

	case TypeCancelSearch:
		if err := h.matches.CancelSearch(ctx, participant); err != nil {
			return h.errorOut(err), true
		}
		return Outbound{Type: TypeCancelled, Data: MessageData{Message: h.cat.Text("matchmaking.cancelled", nil, "Matchmaking cancelled.")}}, true

	case TypePlayMove:
		var req PlayMoveRequest
		if !decode(env.Data, &req) {
			return h.errorMessage("invalid_payload", nil), true
		}
		res, err := h.matches.PlayMove(ctx, req.MatchID, participant, req.Move)
		if err != nil {
			return h.errorOut(err), true
		}
		if res.Round == nil {
			return Outbound{Type: TypeMoveSubmitted, Data: MessageData{
				MatchID: strings.TrimSpace(req.MatchID),
				Message: h.cat.Text("game.move_submitted", nil, "Move submitted."),
			}}, true
		}
		return h.roundMessage(participant, res.Round), true

	case TypeLeaveGame:
		var req MatchRequest
		if !decode(env.Data, &req) {
			return h.errorMessage("invalid_payload", nil), true
		}
		if err := h.matches.Leave(ctx, req.MatchID, participant); err != nil {
			return h.errorOut(err), true
		}
		return Outbound{Type: TypeMatchEnded, Data: MatchEndedData{
			MatchID: strings.TrimSpace(req.MatchID),
			Status:  match.StatusAbandoned,
			Message: h.cat.Text("game.left", nil, "You left the match."),
		}}, true

	case TypeEndMatch:
		var req MatchRequest
		if !decode(env.Data, &req) {
			return h.errorMessage("invalid_payload", nil), true
		}
		rec, err := h.matches.End(ctx, req.MatchID, participant)
		if err != nil {
			return h.errorOut(err), true
		}
		return h.endedMessage(participant, rec, participant), true

	case TypePing:
		return Outbound{Type: TypePong}, true

	default:
		return h.errorMessage("unknown_type", map[string]any{"Type": env.Type}), true
	}
}

func (h *Hub) findMatch(ctx context.Context, participant string, req FindMatchRequest) Outbound {
	mode, err := match.ParseMode(req.Mode)
	if err != nil {
		return h.errorOut(err)
	}
	var res *match.FindResult
	switch strings.ToLower(strings.TrimSpace(req.Opponent)) {
	case "", "human", "online":
		res, err = h.matches.FindMatch(ctx, participant, mode)
	case "computer", "cpu":
		res, err = h.matches.FindComputerMatch(ctx, participant, mode)
	default:
		return h.errorMessage("invalid_args", nil)
	}
	if err != nil {
		return h.errorOut(err)
	}
	if res.Status == match.FindWaiting {
		return Outbound{Type: TypeWaiting, Data: WaitingData{
			Mode:    res.Mode,
			Message: h.cat.Text("matchmaking.waiting", map[string]any{"Mode": res.Mode}, "Waiting for an opponent..."),
		}}
	}
	key := "matchmaking.found"
	if res.OpponentID == match.ComputerID {
		key = "matchmaking.computer"
	}
	return Outbound{Type: TypeGameFound, Data: GameFoundData{
		MatchID:    res.MatchID,
		Mode:       res.Mode,
		OpponentID: res.OpponentID,
		Slot:       res.Slot,
		Message:    h.cat.Text(key, map[string]any{"Opponent": res.OpponentID, "Slot": res.Slot, "Mode": res.Mode}, "Opponent found."),
	}}
}

func decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	return json.Unmarshal(raw, v) == nil
}

func (h *Hub) errorOut(err error) Outbound {
	code := match.CodeOf(err)
	if match.KindOf(err) == "" {
		obslog.L().Error("ws_internal_error", zap.Error(err))
	}
	return h.errorMessage(code, nil)
}

func (h *Hub) errorMessage(code string, data map[string]any) Outbound {
	msg := h.cat.Text("errors."+code, data, code)
	return Outbound{Type: TypeError, Data: ErrorData{Code: code, Message: msg}}
}
