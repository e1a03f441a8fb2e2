package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"lecturehub/internal/shared"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire delivers one tick; false means nobody was listening.
func (t *fakeTicker) fire() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

type recordingWriter struct {
	mu      sync.Mutex
	updates []shared.ProgressUpdate
	err     error
}

func (w *recordingWriter) SaveProgress(ctx context.Context, u shared.ProgressUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates = append(w.updates, u)
	return w.err
}

func (w *recordingWriter) all() []shared.ProgressUpdate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]shared.ProgressUpdate(nil), w.updates...)
}

func (w *recordingWriter) forVideo(videoID string) []shared.ProgressUpdate {
	var out []shared.ProgressUpdate
	for _, u := range w.all() {
		if u.VideoID == videoID {
			out = append(out, u)
		}
	}
	return out
}

type recordingBeacon struct {
	mu   sync.Mutex
	sent []Beacon
}

func (b *recordingBeacon) SendBeacon(p Beacon) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, p)
}

func (b *recordingBeacon) all() []Beacon {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Beacon(nil), b.sent...)
}

type load struct {
	videoID string
	startAt float64
}

type fakePlayer struct {
	mu    sync.Mutex
	now   float64
	loads []load
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *fakePlayer) Load(videoID string, startAt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = startAt
	p.loads = append(p.loads, load{videoID, startAt})
}

func (p *fakePlayer) seekTo(t float64) {
	p.mu.Lock()
	p.now = t
	p.mu.Unlock()
}

func (p *fakePlayer) history() []load {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]load(nil), p.loads...)
}

var errOffline = errors.New("offline")

func outline() shared.Outline {
	return shared.Outline{
		CourseID: "c1",
		Level:    shared.LevelFoundation,
		Weeks: []shared.Week{
			{ID: "w1", Videos: []shared.OutlineVideo{{ID: "v1", DurationSeconds: 100}, {ID: "v2", DurationSeconds: 200}}},
			{ID: "w2", Videos: []shared.OutlineVideo{{ID: "v3", DurationSeconds: 300}, {ID: "v4", DurationSeconds: 400}}},
		},
	}
}
