package rpsclient

import (
	"context"
	"fmt"

	"github.com/park285/rps-arena/internal/gateway"
	"github.com/park285/rps-arena/pkg/rpsdto"
)

// SmokeConfig drives a scripted match between two participants.
type SmokeConfig struct {
	WSURL   string
	APIBase string
	Mode    string
	A, B    string
	// MaxRounds bounds the match; endless matches are ended after it.
	MaxRounds int
}

type SmokeReport struct {
	MatchID     string
	Rounds      int
	Record      *rpsdto.Match
	StatsA      *rpsdto.StatsResponse
	Leaderboard *rpsdto.LeaderboardResponse
}

var scriptA = []string{"rock", "rock", "rock"}
var scriptB = []string{"scissors", "rock", "paper"}

// RunSmoke pairs A and B over the gateway, plays until the match ends, then
// reads the result back through the query API.
func RunSmoke(ctx context.Context, cfg SmokeConfig) (*SmokeReport, error) {
	if cfg.A == "" {
		cfg.A = "smoke-a"
	}
	if cfg.B == "" {
		cfg.B = "smoke-b"
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 20
	}
	a, err := Dial(ctx, cfg.WSURL, cfg.A)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.A, err)
	}
	defer a.Close()
	b, err := Dial(ctx, cfg.WSURL, cfg.B)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.B, err)
	}
	defer b.Close()

	if err := a.Send(ctx, gateway.TypeFindMatch, gateway.FindMatchRequest{Mode: cfg.Mode}); err != nil {
		return nil, err
	}
	if _, err := a.Await(ctx, gateway.TypeWaiting); err != nil {
		return nil, err
	}
	if err := b.Send(ctx, gateway.TypeFindMatch, gateway.FindMatchRequest{Mode: cfg.Mode}); err != nil {
		return nil, err
	}
	f, err := b.Await(ctx, gateway.TypeGameFound)
	if err != nil {
		return nil, err
	}
	var found gateway.GameFoundData
	if err := f.Decode(&found); err != nil {
		return nil, err
	}
	if _, err := a.Await(ctx, gateway.TypeGameFound); err != nil {
		return nil, err
	}

	rep := &SmokeReport{MatchID: found.MatchID}
	finished := false
	for i := 0; i < cfg.MaxRounds && !finished; i++ {
		if err := a.Send(ctx, gateway.TypePlayMove, gateway.PlayMoveRequest{MatchID: found.MatchID, Move: scriptA[i%len(scriptA)]}); err != nil {
			return nil, err
		}
		if _, err := a.Await(ctx, gateway.TypeMoveSubmitted); err != nil {
			return nil, err
		}
		if err := b.Send(ctx, gateway.TypePlayMove, gateway.PlayMoveRequest{MatchID: found.MatchID, Move: scriptB[i%len(scriptB)]}); err != nil {
			return nil, err
		}
		rf, err := b.Await(ctx, gateway.TypeRoundResult)
		if err != nil {
			return nil, err
		}
		var rr gateway.RoundResultData
		if err := rf.Decode(&rr); err != nil {
			return nil, err
		}
		if _, err := a.Await(ctx, gateway.TypeRoundResult); err != nil {
			return nil, err
		}
		rep.Rounds = rr.RoundNumber
		finished = rr.MatchFinished
	}
	if !finished {
		if err := a.Send(ctx, gateway.TypeEndMatch, gateway.MatchRequest{MatchID: found.MatchID}); err != nil {
			return nil, err
		}
		if _, err := a.Await(ctx, gateway.TypeMatchEnded); err != nil {
			return nil, err
		}
	}

	api := NewClient(cfg.APIBase)
	if rep.Record, err = api.Match(ctx, found.MatchID); err != nil {
		return nil, fmt.Errorf("fetch match: %w", err)
	}
	if rep.StatsA, err = api.Stats(ctx, cfg.A, "daily"); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	if rep.Leaderboard, err = api.Leaderboard(ctx, "all_time", "win_rate", 10); err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	return rep, nil
}
