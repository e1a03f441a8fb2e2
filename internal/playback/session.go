package playback

import (
	"errors"
	"log/slog"
	"sync"

	"lecturehub/internal/progress"
	"lecturehub/internal/shared"
)

var ErrUnknownVideo = errors.New("video is not part of this course")

// Player is the host video element.
type Player interface {
	// CurrentTime reads the playhead in seconds.
	CurrentTime() float64
	// Load switches the player to a video and seeks to startAt.
	Load(videoID string, startAt float64)
}

// SessionConfig holds the viewer identity and preferences for one course page.
type SessionConfig struct {
	UserID   string
	CourseID string
	Autoplay bool
}

// Session owns the emitter, sequencer and autoplay countdown of one course page.
type Session struct {
	cfg      SessionConfig
	seq      *progress.Sequencer
	player   Player
	writer   ProgressWriter
	beacon   BeaconSender
	clock    Clock
	logger   *slog.Logger
	autoplay *Autoplay

	mu      sync.Mutex
	emitter *Emitter
	retired []*Emitter
}

// NewSession builds a session over a loaded outline and progress snapshot.
func NewSession(cfg SessionConfig, outline shared.Outline, records []shared.Progress, player Player, writer ProgressWriter, beacon BeaconSender, clock Clock, logger *slog.Logger) *Session {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:    cfg,
		seq:    progress.NewSequencer(outline, records),
		player: player,
		beacon: beacon,
		clock:  clock,
		logger: logger,
	}
	s.writer = writer
	s.autoplay = NewAutoplay(clock, func(videoID string, live func() bool) {
		if err := s.switchTo(videoID, live); err != nil {
			s.logger.Warn("autoplay_advance_failed", "video_id", videoID, "error", err)
		}
	})
	return s
}

// Open resolves the starting video, optionally from a requested id, and loads it.
// It returns "" when the course has no videos.
func (s *Session) Open(requested string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	videoID := s.seq.Active(requested)
	if videoID == "" {
		return ""
	}
	// pin the resolved video so completing it does not move the session
	s.seq.Select(videoID)
	s.activateLocked(videoID)
	return videoID
}

// SelectVideo switches videos. The outgoing video is flushed before the
// active pointer moves, and any countdown is cancelled.
func (s *Session) SelectVideo(videoID string) error {
	return s.switchTo(videoID, nil)
}

// switchTo moves to videoID. A non-nil live is checked under the session lock
// and a stale autoplay advance is dropped, so a manual selection or Close that
// got in first wins.
func (s *Session) switchTo(videoID string, live func() bool) error {
	if _, ok := s.seq.Outline().Video(videoID); !ok {
		return ErrUnknownVideo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if live != nil && !live() {
		return nil
	}
	if s.emitter != nil {
		s.emitter.Flush(s.player.CurrentTime())
		s.retired = append(s.retired, s.emitter)
	}
	s.autoplay.Cancel()
	s.seq.Select(videoID)
	s.activateLocked(videoID)
	return nil
}

func (s *Session) activateLocked(videoID string) {
	video, _ := s.seq.Outline().Video(videoID)
	s.emitter = NewEmitter(EmitterConfig{
		UserID:          s.cfg.UserID,
		VideoID:         videoID,
		CourseID:        s.cfg.CourseID,
		DurationSeconds: video.DurationSeconds,
	}, s.writer, s.beacon, s.clock, s.logger)
	s.emitter.SetObserver(func(u shared.ProgressUpdate) {
		s.seq.Observe(u, s.clock.Now())
	})
	s.player.Load(videoID, s.seq.Resume(videoID))
}

// ActiveVideo returns the current video id.
func (s *Session) ActiveVideo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitter == nil {
		return ""
	}
	return s.emitter.Config().VideoID
}

// NextVideo returns the video after the active one, "" at the end.
func (s *Session) NextVideo() string {
	return s.seq.Next()
}

func (s *Session) current() *Emitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitter
}

// OnSample forwards a periodic player report.
func (s *Session) OnSample(sample Sample) {
	if e := s.current(); e != nil {
		e.OnSample(sample)
	}
}

// OnPause forwards a pause event.
func (s *Session) OnPause(t float64) {
	if e := s.current(); e != nil {
		e.OnPause(t)
	}
}

// OnSeek forwards a seek event.
func (s *Session) OnSeek(t float64) {
	if e := s.current(); e != nil {
		e.OnSeek(t)
	}
}

// OnHidden forwards page hide or unload with the player's live playhead.
func (s *Session) OnHidden() {
	if e := s.current(); e != nil {
		e.OnHidden(s.player.CurrentTime())
	}
}

// OnEnded starts the autoplay countdown when enabled and a next video exists.
func (s *Session) OnEnded() bool {
	if !s.cfg.Autoplay {
		return false
	}
	return s.autoplay.Start(s.seq.Next())
}

// CancelAutoplay stops a running countdown.
func (s *Session) CancelAutoplay() { s.autoplay.Cancel() }

// PlayNextNow skips the countdown.
func (s *Session) PlayNextNow() bool { return s.autoplay.PlayNow() }

// AutoplayState returns the countdown snapshot.
func (s *Session) AutoplayState() shared.AutoplayState { return s.autoplay.State() }

// Close tears the session down: the countdown is cancelled and in-flight writes drained.
func (s *Session) Close() {
	s.autoplay.Close()

	s.mu.Lock()
	emitters := append([]*Emitter{}, s.retired...)
	if s.emitter != nil {
		emitters = append(emitters, s.emitter)
	}
	s.mu.Unlock()

	for _, e := range emitters {
		e.Wait()
	}
}
