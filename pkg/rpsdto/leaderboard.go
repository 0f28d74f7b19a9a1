package rpsdto

import "time"

type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	ParticipantID string    `json:"participant_id"`
	TotalWins     int       `json:"total_wins"`
	TotalGames    int       `json:"total_games"`
	WinRate       float64   `json:"win_rate"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Filter      string             `json:"filter"`
	SortBy      string             `json:"sort_by"`
	Total       int                `json:"total"`
}
