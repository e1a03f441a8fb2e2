package tcp

import (
	"context"
	"errors"
	"fmt"

	"lecturehub/internal/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// upsertSQL merges in the database so a flush never regresses a newer write:
// fraction keeps the max; completion, seconds and position follow the newest timestamp.
// It is the SQL form of progress.Reconcile.
const upsertSQL = `
	INSERT INTO video_progress (user_id, video_id, course_id, progress, watched_seconds, completed, last_position, last_watched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (user_id, video_id)
	DO UPDATE SET
		progress = GREATEST(video_progress.progress, EXCLUDED.progress),
		completed = CASE WHEN EXCLUDED.last_watched_at >= video_progress.last_watched_at
			THEN EXCLUDED.completed ELSE video_progress.completed END,
		watched_seconds = CASE WHEN EXCLUDED.last_watched_at >= video_progress.last_watched_at
			THEN EXCLUDED.watched_seconds ELSE video_progress.watched_seconds END,
		last_position = CASE WHEN EXCLUDED.last_watched_at >= video_progress.last_watched_at
			THEN EXCLUDED.last_position ELSE video_progress.last_position END,
		last_watched_at = GREATEST(video_progress.last_watched_at, EXCLUDED.last_watched_at)
`

const selectColumns = `user_id::text, video_id, course_id, progress, watched_seconds, completed, last_position, last_watched_at`

// ProgressPostgresRepo is the durable side of the sync path.
type ProgressPostgresRepo struct {
	pool *pgxpool.Pool
}

func NewProgressPostgresRepo(pool *pgxpool.Pool) *ProgressPostgresRepo {
	return &ProgressPostgresRepo{pool: pool}
}

func (r *ProgressPostgresRepo) Upsert(ctx context.Context, p shared.Progress) error {
	if _, err := r.pool.Exec(ctx, upsertSQL, upsertArgs(p)...); err != nil {
		return fmt.Errorf("failed to save progress to postgres: %w", err)
	}
	return nil
}

// BatchUpsert writes the batch in a single transaction.
func (r *ProgressPostgresRepo) BatchUpsert(ctx context.Context, batch []shared.Progress) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range batch {
		if _, err := tx.Exec(ctx, upsertSQL, upsertArgs(p)...); err != nil {
			return fmt.Errorf("failed to upsert progress %s/%s: %w", p.UserID, p.VideoID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get returns nil, nil when the record does not exist.
func (r *ProgressPostgresRepo) Get(ctx context.Context, userID, videoID string) (*shared.Progress, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM video_progress WHERE user_id = $1 AND video_id = $2`,
		userID, videoID)

	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &p, nil
}

func (r *ProgressPostgresRepo) ListUser(ctx context.Context, userID string) ([]shared.Progress, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM video_progress WHERE user_id = $1 ORDER BY last_watched_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []shared.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProgressPostgresRepo) Close() error {
	r.pool.Close()
	return nil
}

func upsertArgs(p shared.Progress) []any {
	return []any{
		p.UserID,
		p.VideoID,
		p.CourseID,
		p.WatchedFraction,
		p.WatchedSeconds,
		p.Completed,
		p.LastPosition,
		p.LastWatchedAt,
	}
}

func scanProgress(row pgx.Row) (shared.Progress, error) {
	var p shared.Progress
	err := row.Scan(
		&p.UserID,
		&p.VideoID,
		&p.CourseID,
		&p.WatchedFraction,
		&p.WatchedSeconds,
		&p.Completed,
		&p.LastPosition,
		&p.LastWatchedAt,
	)
	return p, err
}
