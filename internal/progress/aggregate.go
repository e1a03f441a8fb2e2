package progress

import "lecturehub/internal/shared"

// CoursePercent returns 0..100 for one course.
//
// The completed count is taken from records tagged with the course id; a
// student whose level is strictly above the course level gets 100.
func CoursePercent(outline shared.Outline, records []shared.Progress, studentLevel shared.Level) float64 {
	if studentLevel.Above(outline.Level) {
		return 100
	}
	total := len(outline.VideoIDs())
	if total == 0 {
		return 0
	}
	completed := CompletedCount(outline.CourseID, records)
	pct := 100 * float64(completed) / float64(total)
	if pct > 100 {
		return 100
	}
	return pct
}

// CompletedCount counts completed records belonging to a course.
func CompletedCount(courseID string, records []shared.Progress) int {
	n := 0
	for _, r := range records {
		if r.CourseID == courseID && r.Completed {
			n++
		}
	}
	return n
}

// WeekComplete is the display rule: every video has a completed record.
// An empty week is vacuously complete.
func WeekComplete(week shared.Week, records map[string]shared.Progress) bool {
	for _, v := range week.Videos {
		if r, ok := records[v.ID]; !ok || !r.Completed {
			return false
		}
	}
	return true
}

// WeekStatus summarizes one week for display.
type WeekStatus struct {
	WeekID    string `json:"week_id"`
	Completed bool   `json:"completed"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
}

// WeekStatuses reports each week of an outline in order.
func WeekStatuses(outline shared.Outline, records map[string]shared.Progress) []WeekStatus {
	out := make([]WeekStatus, 0, len(outline.Weeks))
	for _, w := range outline.Weeks {
		st := WeekStatus{WeekID: w.ID, Total: len(w.Videos), Completed: WeekComplete(w, records)}
		for _, v := range w.Videos {
			if r, ok := records[v.ID]; ok && r.Completed {
				st.Done++
			}
		}
		out = append(out, st)
	}
	return out
}

// CourseSummary is the aggregated progress of one course.
type CourseSummary struct {
	CourseID   string  `json:"course_id"`
	Percent    float64 `json:"percent"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	PriorLevel bool    `json:"prior_level"`
}

// Summarize aggregates a course for a student.
func Summarize(outline shared.Outline, records []shared.Progress, studentLevel shared.Level) CourseSummary {
	return CourseSummary{
		CourseID:   outline.CourseID,
		Percent:    CoursePercent(outline, records, studentLevel),
		Completed:  CompletedCount(outline.CourseID, records),
		Total:      len(outline.VideoIDs()),
		PriorLevel: studentLevel.Above(outline.Level),
	}
}

// View wraps an aggregate with a loaded flag so callers can tell
// "still loading" apart from "loaded and empty".
type View[T any] struct {
	Loaded bool `json:"loaded"`
	Data   T    `json:"data"`
}

// Loaded wraps a computed value.
func Loaded[T any](v T) View[T] {
	return View[T]{Loaded: true, Data: v}
}

// Pending is the zero view used before inputs arrive.
func Pending[T any]() View[T] {
	return View[T]{}
}
