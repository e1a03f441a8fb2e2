package progress

import (
	"sync"
	"time"

	"lecturehub/internal/shared"
)

// ResolveActiveVideo picks the video to show for a course page.
// Order: sticky selection, requested id present in the outline, first video
// without a completed record, first video. Returns "" for an empty outline.
func ResolveActiveVideo(outline shared.Outline, records map[string]shared.Progress, selected, requested string) string {
	if selected != "" {
		return selected
	}
	if requested != "" {
		if _, ok := outline.Video(requested); ok {
			return requested
		}
	}

	ids := outline.VideoIDs()
	for _, id := range ids {
		if r, ok := records[id]; !ok || !r.Completed {
			return id
		}
	}
	if len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// FindNextVideo returns the video after current in outline order, crossing
// week boundaries. Returns "" when current is last or unknown.
func FindNextVideo(outline shared.Outline, current string) string {
	ids := outline.VideoIDs()
	for i, id := range ids {
		if id == current {
			if i+1 < len(ids) {
				return ids[i+1]
			}
			return ""
		}
	}
	return ""
}

// ResumePosition returns the saved seek target for a video, 0 when none.
func ResumePosition(records map[string]shared.Progress, videoID string) float64 {
	if r, ok := records[videoID]; ok && r.LastPosition > 0 {
		return r.LastPosition
	}
	return 0
}

// Sequencer owns the sticky video selection of one course session.
type Sequencer struct {
	mu       sync.RWMutex
	outline  shared.Outline
	records  map[string]shared.Progress
	selected string
}

// NewSequencer creates a Sequencer over a loaded outline and progress snapshot.
func NewSequencer(outline shared.Outline, records []shared.Progress) *Sequencer {
	return &Sequencer{
		outline: outline,
		records: Index(records),
	}
}

// Select overrides the active video. Ids outside the outline are rejected.
func (s *Sequencer) Select(videoID string) bool {
	if _, ok := s.outline.Video(videoID); !ok {
		return false
	}
	s.mu.Lock()
	s.selected = videoID
	s.mu.Unlock()
	return true
}

// Active resolves the current video given an optional requested id.
func (s *Sequencer) Active(requested string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResolveActiveVideo(s.outline, s.records, s.selected, requested)
}

// Next returns the video after the active one.
func (s *Sequencer) Next() string {
	return FindNextVideo(s.outline, s.Active(""))
}

// Resume returns the saved position for a video.
func (s *Sequencer) Resume(videoID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResumePosition(s.records, videoID)
}

// Record replaces the cached progress of one video.
func (s *Sequencer) Record(p shared.Progress) {
	s.mu.Lock()
	s.records[p.VideoID] = p
	s.mu.Unlock()
}

// Observe folds an issued update into the local snapshot so resume points
// stay current without refetching. The server copy remains authoritative.
func (s *Sequencer) Observe(u shared.ProgressUpdate, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing *shared.Progress
	if r, ok := s.records[u.VideoID]; ok {
		existing = &r
	}
	s.records[u.VideoID] = ApplyUpdate(existing, u, now)
}

// Outline returns the outline the sequencer was built with.
func (s *Sequencer) Outline() shared.Outline {
	return s.outline
}
