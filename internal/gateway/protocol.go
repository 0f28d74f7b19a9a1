package gateway

import (
	"encoding/json"

	"github.com/park285/rps-arena/internal/match"
	"github.com/park285/rps-arena/internal/rps"
)

// Inbound message types.
const (
	TypeFindMatch    = "find_match"
	TypeCancelSearch = "cancel_search"
	TypePlayMove     = "play_move"
	TypeLeaveGame    = "leave_game"
	TypeEndMatch     = "end_match"
	TypePing         = "ping"
)

// Outbound message types.
const (
	TypeConnected            = "connected"
	TypeWaiting              = "waiting_for_opponent"
	TypeGameFound            = "game_found"
	TypeCancelled            = "matchmaking_cancelled"
	TypeMoveSubmitted        = "move_submitted"
	TypeRoundResult          = "round_result"
	TypeOpponentLeft         = "opponent_left"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypeMatchEnded           = "match_ended"
	TypeError                = "error"
	TypePong                 = "pong"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is queued per connection and written with wsjson.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type FindMatchRequest struct {
	Mode string `json:"mode"`
	// "human" (default) or "computer"
	Opponent string `json:"opponent"`
}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

type PlayMoveRequest struct {
	MatchID string `json:"match_id"`
	Move    string `json:"move"`
}

type ConnectedData struct {
	ParticipantID string `json:"participant_id"`
	Message       string `json:"message"`
}

type WaitingData struct {
	Mode    match.Mode `json:"mode"`
	Message string     `json:"message"`
}

type GameFoundData struct {
	MatchID    string     `json:"match_id"`
	Mode       match.Mode `json:"mode"`
	OpponentID string     `json:"opponent_id"`
	Slot       match.Slot `json:"slot"`
	Message    string     `json:"message"`
}

type MessageData struct {
	MatchID string `json:"match_id,omitempty"`
	Message string `json:"message"`
}

// PersonalScore is a score seen from one side.
type PersonalScore struct {
	You      int `json:"you"`
	Opponent int `json:"opponent"`
	Ties     int `json:"ties"`
}

type RoundResultData struct {
	MatchID       string        `json:"match_id"`
	RoundNumber   int           `json:"round_number"`
	YourMove      rps.Move      `json:"your_move"`
	OpponentMove  rps.Move      `json:"opponent_move"`
	Result        string        `json:"result"`
	Score         PersonalScore `json:"score"`
	MatchFinished bool          `json:"match_finished"`
	Message       string        `json:"message"`
	// Full slot-indexed view.
	Round *match.RoundResult `json:"round"`
}

type MatchEndedData struct {
	MatchID string        `json:"match_id"`
	Status  match.Status  `json:"status"`
	Score   PersonalScore `json:"score"`
	Record  *match.Record `json:"record,omitempty"`
	Message string        `json:"message"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
