// Package playback turns player events into progress writes and drives the
// autoplay countdown for one viewing session.
package playback

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"lecturehub/internal/shared"
)

// ThrottleInterval is the minimum spacing between throttled writes.
const ThrottleInterval = 5 * time.Second

const writeTimeout = 10 * time.Second

// ProgressWriter persists an upsert. Implementations talk to the API or the sync server.
type ProgressWriter interface {
	SaveProgress(ctx context.Context, update shared.ProgressUpdate) error
}

// BeaconSender dispatches a teardown beacon. It must not block and must not
// be cancelled by the caller going away.
type BeaconSender interface {
	SendBeacon(b Beacon)
}

// EmitterConfig identifies the video being watched. An empty UserID or
// VideoID puts the emitter in no-op mode.
type EmitterConfig struct {
	UserID          string
	VideoID         string
	CourseID        string
	DurationSeconds float64
}

// Sample is one periodic player report.
type Sample struct {
	PlayedFraction float64
	PlayedSeconds  float64
}

// Emitter converts one video's playback stream into a bounded number of writes.
// Writes are best effort: failures are logged, never returned, never retried.
type Emitter struct {
	cfg    EmitterConfig
	writer ProgressWriter
	beacon BeaconSender
	clock  Clock
	logger *slog.Logger

	observer func(shared.ProgressUpdate)

	mu         sync.Mutex
	current    float64
	lastIssued time.Time

	wg sync.WaitGroup
}

// NewEmitter creates an emitter for one video session.
func NewEmitter(cfg EmitterConfig, writer ProgressWriter, beacon BeaconSender, clock Clock, logger *slog.Logger) *Emitter {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		cfg:    cfg,
		writer: writer,
		beacon: beacon,
		clock:  clock,
		logger: logger,
	}
}

// SetObserver registers fn to see every issued update synchronously, before
// the write is dispatched. Call it before feeding events.
func (e *Emitter) SetObserver(fn func(shared.ProgressUpdate)) {
	e.observer = fn
}

// Config returns the video identity of this emitter.
func (e *Emitter) Config() EmitterConfig { return e.cfg }

func (e *Emitter) active() bool {
	return e.cfg.UserID != "" && e.cfg.VideoID != ""
}

// OnSample records the current time and issues a write at most once per ThrottleInterval.
// The first sample of a session always issues.
func (e *Emitter) OnSample(s Sample) {
	fraction := finite(s.PlayedFraction)
	seconds := finite(s.PlayedSeconds)

	e.mu.Lock()
	e.current = seconds
	if !e.active() {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	if !e.lastIssued.IsZero() && now.Sub(e.lastIssued) < ThrottleInterval {
		e.mu.Unlock()
		return
	}
	e.lastIssued = now
	e.mu.Unlock()

	e.issue(fraction, seconds)
}

// OnPause writes the paused position immediately.
func (e *Emitter) OnPause(t float64) { e.immediate(t) }

// OnSeek writes the sought position immediately.
func (e *Emitter) OnSeek(t float64) { e.immediate(t) }

// Flush issues the final write for this video before the session moves on.
// Nothing is written for a zero position.
func (e *Emitter) Flush(t float64) {
	t = finite(t)
	if t <= 0 {
		return
	}
	e.immediate(t)
}

// OnHidden sends a position-only beacon for page hide or unload, carrying
// the playhead t read from the player at that moment.
func (e *Emitter) OnHidden(t float64) {
	if !e.active() || e.beacon == nil {
		return
	}
	pos := finite(t)
	if pos <= 0 {
		return
	}
	e.mu.Lock()
	e.current = pos
	e.mu.Unlock()
	e.beacon.SendBeacon(Beacon{
		User:         e.cfg.UserID,
		Video:        e.cfg.VideoID,
		Course:       e.cfg.CourseID,
		LastPosition: pos,
	})
}

// CurrentTime is the last reported playback time in seconds.
func (e *Emitter) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Wait blocks until in-flight writes finish.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) immediate(t float64) {
	t = finite(t)
	e.mu.Lock()
	e.current = t
	e.mu.Unlock()
	if !e.active() {
		return
	}

	fraction := 0.0
	if e.cfg.DurationSeconds > 0 {
		fraction = t / e.cfg.DurationSeconds
	}
	e.issue(fraction, t)
}

func (e *Emitter) issue(fraction, seconds float64) {
	if e.writer == nil {
		return
	}
	update := shared.ProgressUpdate{
		UserID:          e.cfg.UserID,
		VideoID:         e.cfg.VideoID,
		CourseID:        e.cfg.CourseID,
		WatchedFraction: fraction,
		WatchedSeconds:  int(math.Floor(seconds)),
		LastPosition:    seconds,
	}
	if e.observer != nil {
		e.observer(update)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := e.writer.SaveProgress(ctx, update); err != nil {
			e.logger.Warn("progress_save_failed",
				"user_id", update.UserID,
				"video_id", update.VideoID,
				"error", err,
			)
		}
	}()
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
