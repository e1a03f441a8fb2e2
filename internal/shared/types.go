package shared

import "time"

// Progress is the per (user, video) viewing record.
type Progress struct {
	UserID          string    `json:"user_id"`
	VideoID         string    `json:"video_id"`
	CourseID        string    `json:"course_id"`
	WatchedFraction float64   `json:"progress"`        // 0..1, never decreases on the automatic path
	WatchedSeconds  int       `json:"watched_seconds"` // display only, last write wins
	Completed       bool      `json:"completed"`
	LastPosition    float64   `json:"last_position"` // resume point in seconds
	LastWatchedAt   time.Time `json:"last_watched_at"`
}

// ProgressUpdate is one upsert request coming from a player.
type ProgressUpdate struct {
	UserID          string  `json:"user_id"`
	VideoID         string  `json:"video_id"`
	CourseID        string  `json:"course_id"`
	WatchedFraction float64 `json:"progress"`
	WatchedSeconds  int     `json:"watched_seconds"`
	LastPosition    float64 `json:"last_position"`
}

// OutlineVideo is a video entry inside a week.
type OutlineVideo struct {
	ID              string  `json:"id"`
	Title           string  `json:"title,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Week groups videos in display order.
type Week struct {
	ID     string         `json:"id"`
	Title  string         `json:"title,omitempty"`
	Videos []OutlineVideo `json:"videos"`
}

// Outline is the ordered week -> video structure of a course.
type Outline struct {
	CourseID string `json:"course_id"`
	Level    Level  `json:"level,omitempty"`
	Weeks    []Week `json:"weeks"`
}

// VideoIDs flattens the outline in playback order.
func (o Outline) VideoIDs() []string {
	ids := make([]string, 0)
	for _, w := range o.Weeks {
		for _, v := range w.Videos {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// Video looks up a video by id.
func (o Outline) Video(videoID string) (OutlineVideo, bool) {
	for _, w := range o.Weeks {
		for _, v := range w.Videos {
			if v.ID == videoID {
				return v, true
			}
		}
	}
	return OutlineVideo{}, false
}

// Week looks up a week by id.
func (o Outline) Week(weekID string) (Week, bool) {
	for _, w := range o.Weeks {
		if w.ID == weekID {
			return w, true
		}
	}
	return Week{}, false
}

// Level is a student's or course's academic tier.
type Level string

const (
	LevelFoundation Level = "foundation"
	LevelDiploma    Level = "diploma"
	LevelDegree     Level = "degree"
)

// Rank orders levels; unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case LevelFoundation:
		return 1
	case LevelDiploma:
		return 2
	case LevelDegree:
		return 3
	}
	return 0
}

// Above reports whether l is strictly higher than other. Unknown levels are never above anything.
func (l Level) Above(other Level) bool {
	if l.Rank() == 0 || other.Rank() == 0 {
		return false
	}
	return l.Rank() > other.Rank()
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l.Rank() > 0
}

// AutoplayState is the visible state of an autoplay countdown. It is never persisted.
type AutoplayState struct {
	PendingVideoID   string `json:"pending_video_id,omitempty"`
	SecondsRemaining int    `json:"seconds_remaining"`
	Active           bool   `json:"active"`
}
