package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"example.com/timed_chess_server/internal/game"
)

const activeGamesKey = "games:active"

// Redis stores each record as a JSON string and keeps the ids of active
// games in a set.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func gameKey(gameID string) string {
	return fmt.Sprintf("game:%s", gameID)
}

func (s *Redis) LoadGame(ctx context.Context, gameID string) (game.Record, error) {
	data, err := s.client.Get(ctx, gameKey(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return game.Record{}, ErrNotFound
	}
	if err != nil {
		return game.Record{}, fmt.Errorf("load game %s: %w", gameID, err)
	}
	var rec game.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return game.Record{}, fmt.Errorf("failed to unmarshal game %s: %w", gameID, err)
	}
	return rec, nil
}

func (s *Redis) SaveGame(ctx context.Context, rec game.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal game %s: %w", rec.GameID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, gameKey(rec.GameID), data, 0)
		if rec.Status == game.StatusActive {
			p.SAdd(ctx, activeGamesKey, rec.GameID)
		} else {
			p.SRem(ctx, activeGamesKey, rec.GameID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	return nil
}

func (s *Redis) ActiveGameIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeGamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks the connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
