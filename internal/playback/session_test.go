package playback

import (
	"testing"
	"time"

	"lecturehub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	session *Session
	player  *fakePlayer
	writer  *recordingWriter
	beacon  *recordingBeacon
	clock   *fakeClock
}

func newSession(t *testing.T, autoplay bool, records []shared.Progress) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		player: &fakePlayer{},
		writer: &recordingWriter{},
		beacon: &recordingBeacon{},
		clock:  newFakeClock(),
	}
	f.session = NewSession(
		SessionConfig{UserID: "u1", CourseID: "c1", Autoplay: autoplay},
		outline(), records, f.player, f.writer, f.beacon, f.clock, nil,
	)
	t.Cleanup(f.session.Close)
	return f
}

func TestSession_OpenResumesFirstIncomplete(t *testing.T) {
	f := newSession(t, false, []shared.Progress{
		{VideoID: "v1", CourseID: "c1", Completed: true},
		{VideoID: "v2", CourseID: "c1", WatchedFraction: 0.3, LastPosition: 61},
	})

	assert.Equal(t, "v2", f.session.Open(""))
	assert.Equal(t, []load{{"v2", 61}}, f.player.history())
}

func TestSession_OpenRequestedVideo(t *testing.T) {
	f := newSession(t, false, nil)

	assert.Equal(t, "v3", f.session.Open("v3"))
	assert.Equal(t, "v3", f.session.ActiveVideo())
	assert.Equal(t, "v4", f.session.NextVideo())
}

func TestSession_OpenEmptyCourse(t *testing.T) {
	player := &fakePlayer{}
	s := NewSession(SessionConfig{UserID: "u1", CourseID: "c1"}, shared.Outline{CourseID: "c1"}, nil, player, &recordingWriter{}, nil, newFakeClock(), nil)
	defer s.Close()

	assert.Equal(t, "", s.Open(""))
	assert.Empty(t, player.history())
	assert.Equal(t, "", s.ActiveVideo())
}

func TestSession_SelectFlushesOutgoingVideo(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("v1")
	f.player.seekTo(44.5)

	require.NoError(t, f.session.SelectVideo("v3"))
	f.session.Close()

	outgoing := f.writer.forVideo("v1")
	require.Len(t, outgoing, 1)
	assert.Equal(t, 44.5, outgoing[0].LastPosition)
	assert.Equal(t, 0.445, outgoing[0].WatchedFraction)
	assert.Equal(t, "v3", f.session.ActiveVideo())
}

func TestSession_SwitchingBackResumesFlushedPosition(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("v1")
	f.player.seekTo(30)

	require.NoError(t, f.session.SelectVideo("v2"))
	require.NoError(t, f.session.SelectVideo("v1"))

	hist := f.player.history()
	assert.Equal(t, load{"v1", 30}, hist[len(hist)-1])
}

func TestSession_SelectUnknownVideo(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("")

	assert.ErrorIs(t, f.session.SelectVideo("nope"), ErrUnknownVideo)
	assert.Equal(t, "v1", f.session.ActiveVideo())
}

func TestSession_CompletingVideoKeepsItActive(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("")

	f.session.OnPause(95)

	assert.Equal(t, "v1", f.session.ActiveVideo())
	assert.Equal(t, "v2", f.session.NextVideo())
}

func TestSession_EndedWithoutAutoplayPreference(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("v1")

	assert.False(t, f.session.OnEnded())
	assert.False(t, f.session.AutoplayState().Active)
}

func TestSession_EndedOnLastVideo(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v4")

	assert.False(t, f.session.OnEnded())
}

func TestSession_PlayNextNow(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v2")
	f.player.seekTo(200)

	require.True(t, f.session.OnEnded())
	assert.Equal(t, shared.AutoplayState{PendingVideoID: "v3", SecondsRemaining: CountdownSeconds, Active: true}, f.session.AutoplayState())

	require.True(t, f.session.PlayNextNow())
	assert.Equal(t, "v3", f.session.ActiveVideo())
	assert.False(t, f.session.AutoplayState().Active)
	f.session.Close()
	assert.Len(t, f.writer.forVideo("v2"), 1)
}

func TestSession_CountdownAdvancesAcrossWeeks(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v2")

	require.True(t, f.session.OnEnded())
	ticker := f.clock.lastTicker()
	for i := 0; i < CountdownSeconds; i++ {
		require.True(t, ticker.fire())
	}

	assert.Eventually(t, func() bool { return f.session.ActiveVideo() == "v3" }, time.Second, time.Millisecond)
}

func TestSession_ManualSelectCancelsCountdown(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v1")

	require.True(t, f.session.OnEnded())
	ticker := f.clock.lastTicker()
	require.NoError(t, f.session.SelectVideo("v4"))

	assert.False(t, f.session.AutoplayState().Active)
	assert.True(t, ticker.isStopped())
	assert.False(t, ticker.fire())
	assert.Equal(t, "v4", f.session.ActiveVideo())
}

func TestSession_StaleAdvanceLeavesManualSelection(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v1")
	require.NoError(t, f.session.SelectVideo("v4"))
	loads := len(f.player.history())

	// an autoplay advance that fired before the manual select but arrived after it
	require.NoError(t, f.session.switchTo("v2", func() bool { return false }))

	assert.Equal(t, "v4", f.session.ActiveVideo())
	assert.Len(t, f.player.history(), loads, "stale advance loads nothing")
}

func TestSession_HiddenSendsBeaconForActiveVideo(t *testing.T) {
	f := newSession(t, false, nil)
	f.session.Open("v3")
	f.session.OnSample(Sample{PlayedFraction: 0.1, PlayedSeconds: 30})
	f.player.seekTo(33.5)

	f.session.OnHidden()

	assert.Equal(t, []Beacon{{User: "u1", Video: "v3", Course: "c1", LastPosition: 33.5}}, f.beacon.all(),
		"beacon carries the live playhead, not the last sample")
}

func TestSession_CloseCancelsCountdown(t *testing.T) {
	f := newSession(t, true, nil)
	f.session.Open("v1")
	require.True(t, f.session.OnEnded())
	ticker := f.clock.lastTicker()

	f.session.Close()

	assert.True(t, ticker.isStopped())
	assert.False(t, f.session.OnEnded(), "closed session never restarts the countdown")
}
