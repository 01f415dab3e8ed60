package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// versionTTL must exceed the leaderboard TTL.
const versionTTL = 7 * 24 * time.Hour

var errVersionChanged = errors.New("leaderboard version changed")

// LeaderboardCache keeps the computed leaderboard of each date in Redis as a
// JSON list under trivia:leaderboard:{date}. Writes are guarded by a counter
// under trivia:leaderboard:{date}:version that Invalidate increments.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, date time.Time) ([]domain.LeaderboardEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(date)).Bytes()
	if isMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read leaderboard: %w", err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Version(ctx context.Context, date time.Time) (int64, error) {
	return readVersion(ctx, c.client, c.versionKey(date))
}

// StoreLeaderboard writes entries in a WATCH/MULTI transaction on the version
// key, so an Invalidate racing the write aborts it.
func (c *LeaderboardCache) StoreLeaderboard(ctx context.Context, date time.Time, version int64, entries []domain.LeaderboardEntry) (bool, error) {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("encode leaderboard: %w", err)
	}

	versionKey := c.versionKey(date)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, versionKey)
		if err != nil {
			return err
		}
		if current != version {
			return errVersionChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(date), raw, c.ttl)
			return nil
		})
		return err
	}, versionKey)
	switch {
	case errors.Is(err, errVersionChanged), errors.Is(err, redis.TxFailedErr):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("write leaderboard: %w", err)
	}
	return true, nil
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, date time.Time) error {
	versionKey := c.versionKey(date)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, c.key(date))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate leaderboard: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) key(date time.Time) string {
	return "trivia:leaderboard:" + domain.FormatDate(date)
}

func (c *LeaderboardCache) versionKey(date time.Time) string {
	return c.key(date) + ":version"
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, client getter, key string) (int64, error) {
	v, err := client.Get(ctx, key).Int64()
	if isMiss(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read leaderboard version: %w", err)
	}
	return v, nil
}
