package tcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lecturehub/internal/shared"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

var ErrTxContention = errors.New("progress record contended, retries exhausted")

// MergeFunc computes the next record from the current one (nil when absent).
type MergeFunc func(existing *shared.Progress) shared.Progress

// SeedFunc loads the durable copy when the cache has none.
type SeedFunc func(ctx context.Context) (*shared.Progress, error)

// ProgressRedisRepo is the hot copy of each record: one hash per user and video.
type ProgressRedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func NewProgressRedisRepo(ctx context.Context, opts RedisOptions) (*ProgressRedisRepo, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &ProgressRedisRepo{client: rdb, ttl: ttl}, nil
}

func progressKey(userID, videoID string) string {
	return fmt.Sprintf("progress:user:%s:video:%s", userID, videoID)
}

// Mutate applies fn under WATCH so concurrent writers on other connections or
// processes never lose an update; a conflicting transaction is retried.
func (r *ProgressRedisRepo) Mutate(ctx context.Context, userID, videoID string, fn MergeFunc, seed SeedFunc) (shared.Progress, error) {
	key := progressKey(userID, videoID)
	var merged shared.Progress

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		existing, err := decodeProgress(fields)
		if err != nil {
			return err
		}
		if existing == nil && seed != nil {
			if existing, err = seed(ctx); err != nil {
				return fmt.Errorf("seed from durable store: %w", err)
			}
		}

		merged = fn(existing)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeProgress(merged))
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return shared.Progress{}, err
		}
	}
	return shared.Progress{}, ErrTxContention
}

// Get returns nil, nil on a cache miss.
func (r *ProgressRedisRepo) Get(ctx context.Context, userID, videoID string) (*shared.Progress, error) {
	fields, err := r.client.HGetAll(ctx, progressKey(userID, videoID)).Result()
	if err != nil {
		return nil, err
	}
	return decodeProgress(fields)
}

// Put warms the cache with a durable copy, unless a live copy already exists.
func (r *ProgressRedisRepo) Put(ctx context.Context, p shared.Progress) error {
	_, err := r.Mutate(ctx, p.UserID, p.VideoID, func(existing *shared.Progress) shared.Progress {
		if existing != nil {
			return *existing
		}
		return p
	}, nil)
	return err
}

// ListUser scans every cached record of a user.
func (r *ProgressRedisRepo) ListUser(ctx context.Context, userID string) ([]shared.Progress, error) {
	pattern := progressKey(userID, "*")
	var results []shared.Progress
	var cursor uint64

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			fields, err := r.client.HGetAll(ctx, key).Result()
			if err != nil {
				continue
			}
			p, err := decodeProgress(fields)
			if err != nil || p == nil {
				continue
			}
			results = append(results, *p)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return results, nil
}

// Invalidate drops the hot copy after a write that went straight to Postgres.
func (r *ProgressRedisRepo) Invalidate(ctx context.Context, userID, videoID string) error {
	return r.client.Del(ctx, progressKey(userID, videoID)).Err()
}

func (r *ProgressRedisRepo) Close() error {
	return r.client.Close()
}

func encodeProgress(p shared.Progress) map[string]any {
	return map[string]any{
		"user_id":         p.UserID,
		"video_id":        p.VideoID,
		"course_id":       p.CourseID,
		"progress":        strconv.FormatFloat(p.WatchedFraction, 'f', -1, 64),
		"watched_seconds": p.WatchedSeconds,
		"completed":       strconv.FormatBool(p.Completed),
		"last_position":   strconv.FormatFloat(p.LastPosition, 'f', -1, 64),
		"last_watched_at": p.LastWatchedAt.UTC().Format(time.RFC3339Nano),
	}
}

// decodeProgress returns nil for an empty hash.
func decodeProgress(fields map[string]string) (*shared.Progress, error) {
	if len(fields) == 0 || fields["video_id"] == "" {
		return nil, nil
	}

	p := &shared.Progress{
		UserID:   fields["user_id"],
		VideoID:  fields["video_id"],
		CourseID: fields["course_id"],
	}
	var errs []string
	var err error
	if p.WatchedFraction, err = strconv.ParseFloat(fields["progress"], 64); err != nil {
		errs = append(errs, "progress")
	}
	if p.WatchedSeconds, err = strconv.Atoi(fields["watched_seconds"]); err != nil {
		errs = append(errs, "watched_seconds")
	}
	if p.Completed, err = strconv.ParseBool(fields["completed"]); err != nil {
		errs = append(errs, "completed")
	}
	if p.LastPosition, err = strconv.ParseFloat(fields["last_position"], 64); err != nil {
		errs = append(errs, "last_position")
	}
	if p.LastWatchedAt, err = time.Parse(time.RFC3339Nano, fields["last_watched_at"]); err != nil {
		errs = append(errs, "last_watched_at")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("corrupt progress hash for %s/%s: %s", p.UserID, p.VideoID, strings.Join(errs, ", "))
	}
	return p, nil
}
