package playback

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmitter(cfg EmitterConfig) (*Emitter, *recordingWriter, *recordingBeacon, *fakeClock) {
	w := &recordingWriter{}
	b := &recordingBeacon{}
	c := newFakeClock()
	return NewEmitter(cfg, w, b, c, nil), w, b, c
}

var cfg = EmitterConfig{UserID: "u1", VideoID: "v1", CourseID: "c1", DurationSeconds: 600}

func TestEmitter_ThrottlesSamples(t *testing.T) {
	e, w, _, clock := newTestEmitter(cfg)

	e.OnSample(Sample{PlayedFraction: 0.01, PlayedSeconds: 6})
	e.Wait()
	clock.Advance(time.Second)
	e.OnSample(Sample{PlayedFraction: 0.02, PlayedSeconds: 7})
	clock.Advance(3 * time.Second)
	e.OnSample(Sample{PlayedFraction: 0.03, PlayedSeconds: 10})
	clock.Advance(time.Second)
	e.OnSample(Sample{PlayedFraction: 0.04, PlayedSeconds: 11.7})
	e.Wait()

	got := w.all()
	require.Len(t, got, 2, "first sample issues, next only after 5s")
	assert.Equal(t, 6.0, got[0].LastPosition)
	assert.Equal(t, 0.04, got[1].WatchedFraction)
	assert.Equal(t, 11, got[1].WatchedSeconds)
	assert.Equal(t, 11.7, got[1].LastPosition)
	assert.Equal(t, 11.7, e.CurrentTime())
}

func TestEmitter_ThrottleIsFixedInterval(t *testing.T) {
	e, w, _, clock := newTestEmitter(cfg)

	e.OnSample(Sample{PlayedSeconds: 1})
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		e.OnSample(Sample{PlayedSeconds: float64(2 + i)})
	}
	clock.Advance(time.Second)
	e.OnSample(Sample{PlayedSeconds: 6})
	e.Wait()

	assert.Len(t, w.all(), 2, "suppressed samples do not push the window forward")
}

func TestEmitter_PauseAndSeekBypassThrottle(t *testing.T) {
	e, w, _, _ := newTestEmitter(cfg)

	e.OnSample(Sample{PlayedFraction: 0.1, PlayedSeconds: 60})
	e.Wait()
	e.OnPause(150.9)
	e.Wait()
	e.OnSeek(30)
	e.Wait()

	got := w.all()
	require.Len(t, got, 3)
	assert.Equal(t, 150.9/600, got[1].WatchedFraction)
	assert.Equal(t, 150, got[1].WatchedSeconds)
	assert.Equal(t, 150.9, got[1].LastPosition)
	assert.Equal(t, 30.0, got[2].LastPosition)
}

func TestEmitter_PauseWithUnknownDuration(t *testing.T) {
	e, w, _, _ := newTestEmitter(EmitterConfig{UserID: "u1", VideoID: "v1"})

	e.OnPause(42)
	e.Wait()

	require.Len(t, w.all(), 1)
	assert.Equal(t, 0.0, w.all()[0].WatchedFraction)
}

func TestEmitter_NoOpWithoutUserOrVideo(t *testing.T) {
	for _, c := range []EmitterConfig{{VideoID: "v1"}, {UserID: "u1"}} {
		e, w, b, _ := newTestEmitter(c)
		e.OnSample(Sample{PlayedFraction: 0.5, PlayedSeconds: 50})
		e.OnPause(50)
		e.Flush(50)
		e.OnHidden(50)
		e.Wait()

		assert.Empty(t, w.all())
		assert.Empty(t, b.all())
	}
}

func TestEmitter_CoercesNonFiniteSamples(t *testing.T) {
	e, w, _, _ := newTestEmitter(cfg)

	e.OnSample(Sample{PlayedFraction: math.NaN(), PlayedSeconds: math.Inf(1)})
	e.Wait()

	require.Len(t, w.all(), 1)
	assert.Equal(t, 0.0, w.all()[0].WatchedFraction)
	assert.Equal(t, 0.0, w.all()[0].LastPosition)
	assert.Equal(t, 0.0, e.CurrentTime())
}

func TestEmitter_FlushSkipsZeroPosition(t *testing.T) {
	e, w, _, _ := newTestEmitter(cfg)

	e.Flush(0)
	e.Flush(math.NaN())
	e.Flush(12)
	e.Wait()

	require.Len(t, w.all(), 1)
	assert.Equal(t, 12.0, w.all()[0].LastPosition)
}

func TestEmitter_HiddenSendsBeacon(t *testing.T) {
	e, w, b, _ := newTestEmitter(cfg)

	e.OnHidden(0)
	e.OnHidden(math.NaN())
	assert.Empty(t, b.all(), "nothing to save at position 0")

	e.OnSample(Sample{PlayedFraction: 0.2, PlayedSeconds: 120})
	e.OnHidden(123.5)
	e.Wait()

	assert.Equal(t, []Beacon{{User: "u1", Video: "v1", Course: "c1", LastPosition: 123.5}}, b.all())
	assert.Len(t, w.all(), 1, "beacon does not go through the writer")
}

func TestEmitter_WriteErrorsAreSwallowed(t *testing.T) {
	e, w, _, _ := newTestEmitter(cfg)
	w.err = errOffline

	assert.NotPanics(t, func() {
		e.OnPause(10)
		e.Wait()
	})
	assert.Len(t, w.all(), 1)
}
