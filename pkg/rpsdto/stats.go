package rpsdto

import "time"

type ParticipantStats struct {
	ParticipantID string    `json:"participant_id"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Ties          int       `json:"ties"`
	TotalGames    int       `json:"total_games"`
	WinRate       float64   `json:"win_rate"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// StatsResponse carries lifetime counters and counters rebuilt from the
// finished matches inside Filter.
type StatsResponse struct {
	ParticipantID string           `json:"participant_id"`
	Filter        string           `json:"filter"`
	Overall       ParticipantStats `json:"overall"`
	Filtered      ParticipantStats `json:"filtered"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Storage       string `json:"storage"`
	ActiveMatches int    `json:"active_matches"`
}
