// Package progress holds the merge, navigation and aggregation rules for
// video viewing progress. Every storage backend applies the same functions
// so concurrent writers converge regardless of where the write lands.
package progress

import (
	"math"
	"time"

	"lecturehub/internal/shared"
)

// CompletionThreshold is the watched fraction at which a video auto-completes.
const CompletionThreshold = 0.9

// finite maps NaN and +/-Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NormalizeUpdate coerces player samples into range: non-finite values become 0,
// the fraction is clamped to [0,1] and seconds/position are never negative.
func NormalizeUpdate(u shared.ProgressUpdate) shared.ProgressUpdate {
	u.WatchedFraction = math.Min(math.Max(finite(u.WatchedFraction), 0), 1)
	u.LastPosition = math.Max(finite(u.LastPosition), 0)
	if u.WatchedSeconds < 0 {
		u.WatchedSeconds = 0
	}
	return u
}

// ReachesCompletion reports whether a fraction crosses the auto-complete threshold.
func ReachesCompletion(fraction float64) bool {
	return fraction >= CompletionThreshold
}

// ApplyUpdate merges an automatic upsert into the existing record (nil when absent).
//
// fraction takes the max, completed is sticky, seconds and position are last write wins.
func ApplyUpdate(existing *shared.Progress, u shared.ProgressUpdate, now time.Time) shared.Progress {
	u = NormalizeUpdate(u)
	if existing == nil {
		return shared.Progress{
			UserID:          u.UserID,
			VideoID:         u.VideoID,
			CourseID:        u.CourseID,
			WatchedFraction: u.WatchedFraction,
			WatchedSeconds:  u.WatchedSeconds,
			Completed:       ReachesCompletion(u.WatchedFraction),
			LastPosition:    u.LastPosition,
			LastWatchedAt:   now,
		}
	}

	merged := *existing
	merged.WatchedFraction = math.Max(existing.WatchedFraction, u.WatchedFraction)
	merged.WatchedSeconds = u.WatchedSeconds
	merged.Completed = existing.Completed || ReachesCompletion(u.WatchedFraction)
	merged.LastPosition = u.LastPosition
	merged.LastWatchedAt = now
	if merged.CourseID == "" {
		merged.CourseID = u.CourseID
	}
	return merged
}

// ApplyToggle flips the completed flag of a single video.
// Flipping to true forces the fraction to 1; flipping to false only clears the flag.
// An absent record is created complete. The record is stamped with now so stores
// that resolve completion by timestamp treat the toggle as the newest write.
func ApplyToggle(existing *shared.Progress, userID, videoID, courseID string, now time.Time) shared.Progress {
	if existing == nil {
		return shared.Progress{
			UserID:          userID,
			VideoID:         videoID,
			CourseID:        courseID,
			WatchedFraction: 1,
			Completed:       true,
			LastWatchedAt:   now,
		}
	}
	return setCompleted(*existing, !existing.Completed, now)
}

// ApplyBulk sets the completed flag as part of a week or course toggle.
// The second return value is false when nothing has to be written: an absent
// record is only created when marking complete.
func ApplyBulk(existing *shared.Progress, userID, videoID, courseID string, complete bool, now time.Time) (shared.Progress, bool) {
	if existing == nil {
		if !complete {
			return shared.Progress{}, false
		}
		return ApplyToggle(nil, userID, videoID, courseID, now), true
	}
	return setCompleted(*existing, complete, now), true
}

// ApplyPosition records a resume point only, as sent by page-teardown beacons.
// An absent record is created with no watched fraction.
func ApplyPosition(existing *shared.Progress, userID, videoID, courseID string, position float64, now time.Time) shared.Progress {
	position = math.Max(finite(position), 0)
	if existing == nil {
		return shared.Progress{
			UserID:        userID,
			VideoID:       videoID,
			CourseID:      courseID,
			LastPosition:  position,
			LastWatchedAt: now,
		}
	}
	merged := *existing
	merged.LastPosition = position
	merged.LastWatchedAt = now
	return merged
}

func setCompleted(p shared.Progress, completed bool, now time.Time) shared.Progress {
	p.Completed = completed
	if completed {
		p.WatchedFraction = 1
	}
	p.LastWatchedAt = now
	return p
}

// Reconcile merges an incoming copy of a record into the stored one the way the
// durable upsert does: fraction keeps the max, while completion, seconds and
// position follow whichever copy carries the newer timestamp. A nil stored
// record yields incoming unchanged.
func Reconcile(stored *shared.Progress, incoming shared.Progress) shared.Progress {
	if stored == nil {
		return incoming
	}
	out := *stored
	out.WatchedFraction = math.Max(stored.WatchedFraction, incoming.WatchedFraction)
	if !incoming.LastWatchedAt.Before(stored.LastWatchedAt) {
		out.Completed = incoming.Completed
		out.WatchedSeconds = incoming.WatchedSeconds
		out.LastPosition = incoming.LastPosition
		out.LastWatchedAt = incoming.LastWatchedAt
	}
	return out
}

// Index keys records by video id.
func Index(records []shared.Progress) map[string]shared.Progress {
	out := make(map[string]shared.Progress, len(records))
	for _, r := range records {
		out[r.VideoID] = r
	}
	return out
}
