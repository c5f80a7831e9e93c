package service

import (
	"context"
	"strconv"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AttemptCache is the Redis-backed fast lane for in-progress attempts: start
// times, an answers mirror for cheap state reloads, and the deadline index
// polled by the expiry worker. It is an optimization only; PostgreSQL stays
// the source of truth and every read path has a database fallback.
type AttemptCache interface {
	RememberStart(ctx context.Context, attemptID uuid.UUID, start time.Time) error
	// Start returns the cached start time; ok is false on a cache miss.
	Start(ctx context.Context, attemptID uuid.UUID) (start time.Time, ok bool, err error)
	MirrorAnswers(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error
	Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)
	ScheduleExpiry(ctx context.Context, attemptID uuid.UUID, deadline time.Time) error
	// DueAttempts returns attempt IDs whose scheduled deadline is at or
	// before now, oldest first.
	DueAttempts(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error)
	RemoveDeadline(ctx context.Context, attemptID uuid.UUID) error
	// Clear drops all cached state for a finalized attempt.
	Clear(ctx context.Context, attemptID uuid.UUID) error
}

// RedisAttemptCache implements AttemptCache on go-redis.
type RedisAttemptCache struct {
	rdb *redis.Client
}

// NewRedisAttemptCache creates a new RedisAttemptCache.
func NewRedisAttemptCache(rdb *redis.Client) *RedisAttemptCache {
	return &RedisAttemptCache{rdb: rdb}
}

func (c *RedisAttemptCache) RememberStart(ctx context.Context, attemptID uuid.UUID, start time.Time) error {
	return c.rdb.Set(ctx, config.CacheKey.AttemptStartKey(attemptID.String()), start.Unix(), 0).Err()
}

func (c *RedisAttemptCache) Start(ctx context.Context, attemptID uuid.UUID) (time.Time, bool, error) {
	val, err := c.rdb.Get(ctx, config.CacheKey.AttemptStartKey(attemptID.String())).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt entry; treat as a miss so the caller self-heals from the DB.
		return time.Time{}, false, nil
	}
	return time.Unix(unix, 0), true, nil
}

func (c *RedisAttemptCache) MirrorAnswers(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error {
	if len(answers) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(answers))
	for questionID, raw := range answers {
		fields[questionID.String()] = raw
	}
	return c.rdb.HSet(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()), fields).Err()
}

func (c *RedisAttemptCache) Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
}

func (c *RedisAttemptCache) ScheduleExpiry(ctx context.Context, attemptID uuid.UUID, deadline time.Time) error {
	return c.rdb.ZAdd(ctx, config.WorkerKey.AttemptDeadlineIndex, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: attemptID.String(),
	}).Err()
}

func (c *RedisAttemptCache) DueAttempts(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	members, err := c.rdb.ZRangeByScore(ctx, config.WorkerKey.AttemptDeadlineIndex, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// Malformed member; drop it so it cannot wedge the worker.
			c.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlineIndex, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *RedisAttemptCache) RemoveDeadline(ctx context.Context, attemptID uuid.UUID) error {
	return c.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlineIndex, attemptID.String()).Err()
}

func (c *RedisAttemptCache) Clear(ctx context.Context, attemptID uuid.UUID) error {
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptStartKey(attemptID.String()))
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()))
	pipe.ZRem(ctx, config.WorkerKey.AttemptDeadlineIndex, attemptID.String())
	_, err := pipe.Exec(ctx)
	return err
}
