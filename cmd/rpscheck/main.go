package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/rps-arena/internal/rpsclient"
)

func main() {
	apiBase := flag.String("api", envOr("RPS_API_URL", "http://127.0.0.1:8081"), "query API base URL")
	wsURL := flag.String("ws", envOr("RPS_WS_URL", "ws://127.0.0.1:8080/ws"), "gateway websocket URL")
	mode := flag.String("mode", "best_of_3", "match mode")
	a := flag.String("a", "rpscheck-a", "first participant id")
	b := flag.String("b", "rpscheck-b", "second participant id")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	h, err := rpsclient.NewClient(*apiBase, rpsclient.WithTimeout(8*time.Second)).Health(ctx)
	if err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Printf("/health ok: storage=%s active=%d", h.Storage, h.ActiveMatches)

	rep, err := rpsclient.RunSmoke(ctx, rpsclient.SmokeConfig{
		WSURL:   *wsURL,
		APIBase: *apiBase,
		Mode:    *mode,
		A:       *a,
		B:       *b,
	})
	if err != nil {
		log.Fatalf("smoke match failed: %v", err)
	}
	fmt.Printf("match %s: status=%s rounds=%d score=%d-%d ties=%d\n",
		rep.MatchID, rep.Record.Status, rep.Rounds, rep.Record.Score.A, rep.Record.Score.B, rep.Record.Score.Ties)
	all, day := rep.StatsA.Overall, rep.StatsA.Filtered
	fmt.Printf("%s: wins=%d losses=%d ties=%d win_rate=%.2f (today: %d/%d)\n",
		*a, all.Wins, all.Losses, all.Ties, all.WinRate, day.Wins, day.TotalGames)
	for _, e := range rep.Leaderboard.Leaderboard {
		fmt.Printf("#%d %s wins=%d games=%d win_rate=%.2f\n", e.Rank, e.ParticipantID, e.TotalWins, e.TotalGames, e.WinRate)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
