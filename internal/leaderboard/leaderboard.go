package leaderboard

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxLimit caps a single leaderboard page.
const MaxLimit = 30

var (
	ErrInvalidWindow = errors.New("invalid leaderboard filter")
	ErrInvalidSort   = errors.New("invalid leaderboard sort")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
)

// Entry is one participant's public standing.
type Entry struct {
	ParticipantID string    `json:"participant_id"`
	TotalWins     int       `json:"total_wins"`
	TotalGames    int       `json:"total_games"`
	WinRate       float64   `json:"win_rate"`
	UpdatedAt     time.Time `json:"updated_at"`
	Rank          int       `json:"rank,omitempty"`
}

type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAllTime Window = "all_time"
)

// Cutoff returns the oldest updated_at included in the window, or zero for all_time.
func (w Window) Cutoff(now time.Time) time.Time {
	switch w {
	case WindowDaily:
		return now.Add(-24 * time.Hour)
	case WindowWeekly:
		return now.Add(-7 * 24 * time.Hour)
	case WindowMonthly:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// ParseWindow accepts daily, weekly, monthly, all_time or all; empty means all_time.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "", "all", WindowAllTime:
		return WindowAllTime, nil
	case WindowDaily, WindowWeekly, WindowMonthly:
		return w, nil
	default:
		return "", ErrInvalidWindow
	}
}

type SortKey string

const (
	SortWinRate    SortKey = "win_rate"
	SortTotalWins  SortKey = "total_wins"
	SortTotalGames SortKey = "total_games"
)

// Query selects a leaderboard page.
type Query struct {
	Window Window
	SortBy SortKey
	Limit  int
	// Now anchors the window; zero means time.Now().
	Now time.Time
}

// Board stores and ranks leaderboard entries.
type Board interface {
	// Upsert stores e unless the stored entry already counts more games.
	Upsert(ctx context.Context, e Entry) error
	Top(ctx context.Context, q Query) ([]Entry, error)
}

// ParseQuery validates raw query parameters. Empty values select the defaults
// (all_time, win_rate, MaxLimit); limits above MaxLimit are clamped.
func ParseQuery(filter, sortBy, limit string) (Query, error) {
	q := Query{Window: WindowAllTime, SortBy: SortWinRate, Limit: MaxLimit}
	w, err := ParseWindow(filter)
	if err != nil {
		return Query{}, err
	}
	q.Window = w
	switch s := SortKey(strings.ToLower(strings.TrimSpace(sortBy))); s {
	case "":
	case SortWinRate, SortTotalWins, SortTotalGames:
		q.SortBy = s
	default:
		return Query{}, ErrInvalidSort
	}
	if v := strings.TrimSpace(limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Query{}, ErrInvalidLimit
		}
		q.Limit = n
	}
	return q.normalize(), nil
}

func (q Query) normalize() Query {
	if q.Window == "" {
		q.Window = WindowAllTime
	}
	if q.SortBy == "" {
		q.SortBy = SortWinRate
	}
	if q.Limit <= 0 || q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	return q
}

// rank filters by window, orders by the sort key (descending, then the other
// counters, then participant id) and assigns 1-based ranks.
func rank(entries []Entry, q Query) []Entry {
	cutoff := q.Window.Cutoff(q.Now)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !cutoff.IsZero() && e.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], q.SortBy) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func less(a, b Entry, key SortKey) bool {
	primary := func(e Entry) float64 {
		switch key {
		case SortTotalWins:
			return float64(e.TotalWins)
		case SortTotalGames:
			return float64(e.TotalGames)
		default:
			return e.WinRate
		}
	}
	if pa, pb := primary(a), primary(b); pa != pb {
		return pa > pb
	}
	if a.WinRate != b.WinRate {
		return a.WinRate > b.WinRate
	}
	if a.TotalWins != b.TotalWins {
		return a.TotalWins > b.TotalWins
	}
	if a.TotalGames != b.TotalGames {
		return a.TotalGames > b.TotalGames
	}
	return a.ParticipantID < b.ParticipantID
}
