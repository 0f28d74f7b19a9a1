package match

import (
	"strings"
	"time"

	"github.com/park285/rps-arena/internal/rps"
)

// ComputerID is the reserved participant id of the built-in opponent.
const ComputerID = "computer"

// Mode fixes the termination policy of a match.
type Mode string

const (
	ModeSingleRound Mode = "single_round"
	ModeBestOf3     Mode = "best_of_3"
	ModeBestOf5     Mode = "best_of_5"
	ModeBestOf7     Mode = "best_of_7"
	ModeEndless     Mode = "endless"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeSingleRound, ModeBestOf3, ModeBestOf5, ModeBestOf7, ModeEndless}

// ParseMode accepts the mode names plus the legacy "quick_play" alias.
// An empty string selects single_round.
func ParseMode(s string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "quick_play", "single", "single_round":
		return ModeSingleRound, nil
	}
	m := Mode(v)
	if !m.Valid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

func (m Mode) Valid() bool {
	for _, v := range Modes {
		if v == m {
			return true
		}
	}
	return false
}

// WinsNeeded is the number of round wins that ends a best-of match (⌈N/2⌉).
// Zero means the mode is not decided by round wins.
func (m Mode) WinsNeeded() int {
	switch m {
	case ModeBestOf3:
		return 2
	case ModeBestOf5:
		return 3
	case ModeBestOf7:
		return 4
	default:
		return 0
	}
}

// Done reports whether a match in this mode terminates with the given score.
func (m Mode) Done(s Score, rounds int) bool {
	switch m {
	case ModeSingleRound:
		return rounds >= 1
	case ModeBestOf3, ModeBestOf5, ModeBestOf7:
		need := m.WinsNeeded()
		return s.A >= need || s.B >= need
	default:
		return false
	}
}

// Status is the lifecycle state of a match.
type Status string

const (
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Terminal() bool { return s == StatusFinished || s == StatusAbandoned }

// Slot is one of the two fixed participant positions.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// Round is immutable once appended.
type Round struct {
	Number     int         `json:"round_number"`
	MoveA      rps.Move    `json:"move_a"`
	MoveB      rps.Move    `json:"move_b"`
	Outcome    rps.Outcome `json:"outcome"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

// Score is a fold over rounds.
type Score struct {
	A    int `json:"a"`
	B    int `json:"b"`
	Ties int `json:"ties"`
}

func ScoreOf(rounds []Round) Score {
	var s Score
	for _, r := range rounds {
		switch r.Outcome {
		case rps.OutcomeA:
			s.A++
		case rps.OutcomeB:
			s.B++
		default:
			s.Ties++
		}
	}
	return s
}

// Match is the live state owned by the controller while active.
type Match struct {
	ID        string
	Mode      Mode
	Players   [2]string
	Rounds    []Round
	Status    Status
	Pending   map[string]rps.Move
	Computer  bool
	CreatedAt time.Time
	EndedAt   time.Time
	EndedBy   string
}

func (m *Match) slotOf(participant string) (Slot, bool) {
	switch participant {
	case m.Players[0]:
		return SlotA, true
	case m.Players[1]:
		return SlotB, true
	}
	return "", false
}

func (m *Match) opponentOf(participant string) string {
	if m.Players[0] == participant {
		return m.Players[1]
	}
	if m.Players[1] == participant {
		return m.Players[0]
	}
	return ""
}

// record copies the match into its external representation.
func (m *Match) record() *Record {
	rec := &Record{
		ID:        m.ID,
		Mode:      m.Mode,
		PlayerA:   m.Players[0],
		PlayerB:   m.Players[1],
		Rounds:    append([]Round(nil), m.Rounds...),
		Score:     ScoreOf(m.Rounds),
		Status:    m.Status,
		Computer:  m.Computer,
		CreatedAt: m.CreatedAt,
	}
	if rec.Rounds == nil {
		rec.Rounds = []Round{}
	}
	switch m.Status {
	case StatusFinished:
		t := m.EndedAt
		rec.FinishedAt = &t
	case StatusAbandoned:
		t := m.EndedAt
		rec.AbandonedAt = &t
		rec.AbandonedBy = m.EndedBy
	case StatusActive:
		for _, p := range m.Players {
			if _, ok := m.Pending[p]; ok && p != ComputerID {
				rec.Pending = append(rec.Pending, p)
			}
		}
	}
	return rec
}

// Record is the persisted (and snapshot) form of a match.
type Record struct {
	ID          string     `json:"match_id"`
	Mode        Mode       `json:"mode"`
	PlayerA     string     `json:"player_a"`
	PlayerB     string     `json:"player_b"`
	Rounds      []Round    `json:"rounds"`
	Score       Score      `json:"score"`
	Status      Status     `json:"status"`
	Computer    bool       `json:"computer,omitempty"`
	Pending     []string   `json:"pending,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
	AbandonedBy string     `json:"abandoned_by,omitempty"`
}

func (r *Record) Players() []string { return []string{r.PlayerA, r.PlayerB} }

func (r *Record) Has(participant string) bool {
	return participant != "" && (r.PlayerA == participant || r.PlayerB == participant)
}

// ScoreFor returns the participant's round wins and the opponent's.
func (r *Record) ScoreFor(participant string) (own, opponent int, ok bool) {
	switch participant {
	case r.PlayerA:
		return r.Score.A, r.Score.B, true
	case r.PlayerB:
		return r.Score.B, r.Score.A, true
	}
	return 0, 0, false
}

// EndedAt is finished_at or abandoned_at, whichever is set.
func (r *Record) EndedAt() time.Time {
	if r.FinishedAt != nil {
		return *r.FinishedAt
	}
	if r.AbandonedAt != nil {
		return *r.AbandonedAt
	}
	return time.Time{}
}

// FindStatus is the outcome of a pairing request.
type FindStatus string

const (
	FindPaired  FindStatus = "paired"
	FindWaiting FindStatus = "waiting"
)

type FindResult struct {
	Status     FindStatus `json:"status"`
	MatchID    string     `json:"match_id,omitempty"`
	OpponentID string     `json:"opponent_id,omitempty"`
	Slot       Slot       `json:"slot,omitempty"`
	Mode       Mode       `json:"mode"`
}

// RoundResult is reported after a round resolves.
type RoundResult struct {
	MatchID     string            `json:"match_id"`
	PlayerA     string            `json:"player_a"`
	PlayerB     string            `json:"player_b"`
	Number      int               `json:"round_number"`
	MovesBySlot map[Slot]rps.Move `json:"moves_by_slot"`
	Outcome     rps.Outcome       `json:"outcome"`
	Winner      string            `json:"winner,omitempty"`
	Score       Score             `json:"score"`
	Finished    bool              `json:"match_finished"`
}

// SlotOf returns the slot participant played in.
func (r *RoundResult) SlotOf(participant string) (Slot, bool) {
	switch participant {
	case r.PlayerA:
		return SlotA, true
	case r.PlayerB:
		return SlotB, true
	}
	return "", false
}

// MoveResult is either a bare acceptance or an acceptance plus a resolved round.
type MoveResult struct {
	Accepted bool         `json:"move_accepted"`
	Round    *RoundResult `json:"round,omitempty"`
}

// EventType names a push notification to a participant.
type EventType string

const (
	EventMatchFound           EventType = "game_found"
	EventRoundResult          EventType = "round_result"
	EventOpponentLeft         EventType = "opponent_left"
	EventOpponentDisconnected EventType = "opponent_disconnected"
	EventMatchEnded           EventType = "match_ended"
)

// Event is delivered through a Notifier. Slot is the receiver's slot.
type Event struct {
	Type     EventType
	MatchID  string
	Mode     Mode
	Opponent string
	Slot     Slot
	Round    *RoundResult
	Record   *Record
}
