// Package session keeps the short-lived tariff selection of each user in
// redis. A session expires on its own after the configured TTL.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fitdew-bot/internal/tariff"
)

const (
	keyPrefix = "fitdew:session:"
	fieldTier = "tier"
	fieldMode = "mode"
)

// State is the tentative selection. The zero value is Idle.
type State struct {
	Tier tariff.Tier
	Mode tariff.Mode
}

func (s State) Idle() bool { return s.Tier == tariff.None }

// ModeComplete reports whether purchase can proceed without a mode prompt.
func (s State) ModeComplete() bool {
	return s.Tier.Valid() && (!s.Tier.RequiresMode() || s.Mode.Valid())
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

func (s *Store) Get(ctx context.Context, userID int64) (State, error) {
	values, err := s.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return State{}, fmt.Errorf("get session %d: %w", userID, err)
	}
	return State{
		Tier: tariff.ParseTier(values[fieldTier]),
		Mode: tariff.ParseMode(values[fieldMode]),
	}, nil
}

// SelectTier starts a fresh selection, dropping any previous mode.
func (s *Store) SelectTier(ctx context.Context, userID int64, tier tariff.Tier) error {
	k := key(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fieldTier, string(tier))
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("select tier for %d: %w", userID, err)
	}
	return nil
}

func (s *Store) SelectMode(ctx context.Context, userID int64, mode tariff.Mode) error {
	k := key(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldMode, string(mode))
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("select mode for %d: %w", userID, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear session %d: %w", userID, err)
	}
	return nil
}
