package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	keyEntries = "rps:lb:entries"
	keyUpdated = "rps:lb:updated"

	maxUpsertAttempts = 5
)

// RedisBoard keeps entries as JSON in a hash and indexes them by updated_at
// in a sorted set so windowed queries only read recent participants.
type RedisBoard struct{ rdb *redis.Client }

func NewRedisBoard(rdb *redis.Client) *RedisBoard { return &RedisBoard{rdb: rdb} }

// Upsert writes e unless the stored entry already counts more games.
func (b *RedisBoard) Upsert(ctx context.Context, e Entry) error {
	id := strings.TrimSpace(e.ParticipantID)
	if id == "" {
		return nil
	}
	e.ParticipantID = id
	e.Rank = 0
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal leaderboard entry: %w", err)
	}
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		err = b.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.HGet(ctx, keyEntries, id).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var stored Entry
				if json.Unmarshal([]byte(cur), &stored) == nil && stored.TotalGames > e.TotalGames {
					return nil
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, keyEntries, id, raw)
				pipe.ZAdd(ctx, keyUpdated, redis.Z{Score: float64(e.UpdatedAt.Unix()), Member: id})
				return nil
			})
			return err
		}, keyEntries)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("upsert leaderboard %s: %w", id, err)
	}
	return nil
}

func (b *RedisBoard) Top(ctx context.Context, q Query) ([]Entry, error) {
	q = q.normalize()
	lo := "-inf"
	if cutoff := q.Window.Cutoff(q.Now); !cutoff.IsZero() {
		lo = strconv.FormatInt(cutoff.Unix(), 10)
	}
	ids, err := b.rdb.ZRangeByScore(ctx, keyUpdated, &redis.ZRangeBy{Min: lo, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard window: %w", err)
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}
	vals, err := b.rdb.HMGet(ctx, keyEntries, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard entries: %w", err)
	}
	entries := make([]Entry, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return rank(entries, q), nil
}
