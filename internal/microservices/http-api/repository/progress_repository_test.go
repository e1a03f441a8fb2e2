package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlRecorder keeps every statement gorm builds.
type sqlRecorder struct {
	mu   sync.Mutex
	stmt []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface      { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	r.stmt = append(r.stmt, sql)
	r.mu.Unlock()
}

func (r *sqlRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stmt) == 0 {
		return ""
	}
	return r.stmt[len(r.stmt)-1]
}

// dryRunDB builds statements without a server.
func dryRunDB(t *testing.T) (*gorm.DB, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=lecturehub dbname=lecturehub sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return db, rec
}

func TestListRecent_SkipsRemovedVideosAndCourses(t *testing.T) {
	db, rec := dryRunDB(t)

	_, err := NewProgressRepository(db).ListRecent(context.Background(), "u1", 5)
	require.NoError(t, err)

	sql := rec.last()
	assert.Contains(t, sql, "JOIN videos v ON v.id = vp.video_id")
	assert.Contains(t, sql, "JOIN courses c ON c.id = vp.course_id")
	assert.Contains(t, sql, "vp.user_id = 'u1'")
	assert.Contains(t, sql, "ORDER BY vp.last_watched_at DESC")
	assert.Contains(t, sql, "LIMIT 5")
}
