package playback

import (
	"sync"
	"time"

	"lecturehub/internal/shared"
)

// CountdownSeconds is the autoplay countdown length.
const CountdownSeconds = 10

// AdvanceFunc receives the video a countdown settled on. live reports whether
// the countdown is still current, i.e. no Cancel, Close or Start happened since
// it fired; receivers call it under their own lock before switching.
type AdvanceFunc func(videoID string, live func() bool)

// Autoplay is the Idle/Counting countdown that advances to the next video.
// Cancel is synchronous: once it returns no tick from the cancelled countdown
// can run and any advance already handed out reports itself stale.
type Autoplay struct {
	clock     Clock
	onAdvance AdvanceFunc

	mu        sync.Mutex
	pending   string
	remaining int
	active    bool
	closed    bool
	gen       uint64
	ticker    Ticker
	stop      chan struct{}
}

// NewAutoplay creates an idle countdown that calls onAdvance with the target video.
func NewAutoplay(clock Clock, onAdvance AdvanceFunc) *Autoplay {
	if clock == nil {
		clock = SystemClock()
	}
	return &Autoplay{
		clock:     clock,
		onAdvance: onAdvance,
		remaining: CountdownSeconds,
	}
}

// Start begins counting toward next. It is ignored while a countdown is
// already running, after Close, or when next is empty.
func (a *Autoplay) Start(next string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.active || next == "" {
		return false
	}

	a.gen++
	a.pending = next
	a.remaining = CountdownSeconds
	a.active = true
	a.ticker = a.clock.NewTicker(time.Second)
	a.stop = make(chan struct{})
	go a.run(a.gen, a.ticker, a.stop)
	return true
}

// Cancel returns to Idle and resets the counter.
func (a *Autoplay) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

// PlayNow skips the remaining ticks and advances synchronously.
// It reports whether a countdown was running.
func (a *Autoplay) PlayNow() bool {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return false
	}
	target := a.pending
	a.resetLocked()
	gen := a.gen
	a.mu.Unlock()

	a.advance(target, gen)
	return true
}

// State returns a snapshot for display.
func (a *Autoplay) State() shared.AutoplayState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return shared.AutoplayState{
		PendingVideoID:   a.pending,
		SecondsRemaining: a.remaining,
		Active:           a.active,
	}
}

// Close cancels any countdown and refuses further starts.
func (a *Autoplay) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.closed = true
}

// resetLocked always bumps gen so advances handed out earlier go stale.
func (a *Autoplay) resetLocked() {
	a.gen++
	if a.active {
		a.ticker.Stop()
		close(a.stop)
		a.ticker = nil
		a.stop = nil
	}
	a.pending = ""
	a.remaining = CountdownSeconds
	a.active = false
}

func (a *Autoplay) run(gen uint64, ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			target, fired, fire, done := a.tick(gen)
			if fire {
				a.advance(target, fired)
			}
			if done {
				return
			}
		}
	}
}

// tick decrements the counter if gen is still the live countdown. On the
// last tick it returns the target and the generation the advance belongs to.
func (a *Autoplay) tick(gen uint64) (target string, fired uint64, fire, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen || !a.active {
		return "", 0, false, true
	}
	a.remaining--
	if a.remaining > 0 {
		return "", 0, false, false
	}
	target = a.pending
	a.resetLocked()
	return target, a.gen, true, true
}

func (a *Autoplay) advance(target string, gen uint64) {
	if a.onAdvance == nil || target == "" {
		return
	}
	a.onAdvance(target, func() bool { return a.live(gen) })
}

func (a *Autoplay) live(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed && a.gen == gen
}
