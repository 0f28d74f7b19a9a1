package rpsdto

import "time"

type Round struct {
	RoundNumber int       `json:"round_number"`
	MoveA       string    `json:"move_a"`
	MoveB       string    `json:"move_b"`
	Outcome     string    `json:"outcome"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

type Score struct {
	A    int `json:"a"`
	B    int `json:"b"`
	Ties int `json:"ties"`
}

// Match is a persisted record or a snapshot of an active match.
type Match struct {
	MatchID     string     `json:"match_id"`
	Mode        string     `json:"mode"`
	PlayerA     string     `json:"player_a"`
	PlayerB     string     `json:"player_b"`
	Rounds      []Round    `json:"rounds"`
	Score       Score      `json:"score"`
	Status      string     `json:"status"`
	Computer    bool       `json:"computer,omitempty"`
	Pending     []string   `json:"pending,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
	AbandonedBy string     `json:"abandoned_by,omitempty"`
}

type HistoryResponse struct {
	ParticipantID string  `json:"participant_id"`
	Matches       []Match `json:"matches"`
	Page          int     `json:"page"`
	Limit         int     `json:"limit"`
	Total         int     `json:"total"`
}
