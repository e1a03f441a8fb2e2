package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"lecturehub/cmd/cli/command/client"
	"lecturehub/internal/playback"
	"lecturehub/internal/shared"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// simPlayer stands in for the page's video element. The playhead advances
// on every tick by the playback speed.
type simPlayer struct {
	mu       sync.Mutex
	outline  shared.Outline
	videoID  string
	t        float64
	duration float64
	ended    bool
}

func (p *simPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t
}

func (p *simPlayer) Load(videoID string, startAt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, _ := p.outline.Video(videoID)
	p.videoID = videoID
	p.duration = v.DurationSeconds
	p.t = startAt
	if p.duration > 0 && p.t >= p.duration {
		p.t = 0
	}
	p.ended = false

	title := v.Title
	if title == "" {
		title = videoID
	}
	color.Cyan("▶ %s  (%s / %s)", title, client.FormatClock(p.t), client.FormatClock(p.duration))
}

// advance moves the playhead and reports whether the video just ended.
func (p *simPlayer) advance(step float64) (t, duration float64, justEnded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended || p.videoID == "" {
		return p.t, p.duration, false
	}
	p.t += step
	if p.duration > 0 && p.t >= p.duration {
		p.t = p.duration
		p.ended = true
		return p.t, p.duration, true
	}
	return p.t, p.duration, false
}

func (p *simPlayer) isEnded() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID, p.ended
}

var watchCmd = &cobra.Command{
	Use:   "watch <course-id>",
	Short: "Play a course with a simulated player",
	Long: `Opens a course where you left off and plays it in real time, reporting
progress exactly like the course page: throttled samples while playing, a write
on every video switch and a position beacon when interrupted with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID := args[0]
		requested, _ := cmd.Flags().GetString("video")
		speed, _ := cmd.Flags().GetFloat64("speed")
		transport, _ := cmd.Flags().GetString("transport")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api, creds, err := authenticatedClient(ctx)
		if err != nil {
			return err
		}

		outline, err := api.Outline(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to load course: %w", err)
		}
		if len(outline.VideoIDs()) == 0 {
			return fmt.Errorf("course %s has no videos", courseID)
		}

		prefs, err := api.Preferences(ctx)
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		autoplay := prefs.Autoplay
		if cmd.Flags().Changed("autoplay") {
			autoplay, _ = cmd.Flags().GetBool("autoplay")
		}
		if !cmd.Flags().Changed("speed") && prefs.PlaybackSpeed > 0 {
			speed = prefs.PlaybackSpeed
		}

		records, err := courseRecords(ctx, api, courseID)
		if err != nil {
			return err
		}

		var writer playback.ProgressWriter = api
		switch strings.ToLower(transport) {
		case "http":
		case "tcp":
			tcpClient := client.NewTCPClient(tcpServer)
			if err := tcpClient.Connect(ctx, creds.AccessToken); err != nil {
				return err
			}
			defer tcpClient.Disconnect()
			writer = tcpClient
		default:
			return fmt.Errorf("unknown transport %q (http or tcp)", transport)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		beacon := playback.NewHTTPBeacon(strings.TrimSuffix(apiURL, "/")+"/api/save-progress", creds.AccessToken, logger)
		player := &simPlayer{outline: outline}

		s := playback.NewSession(
			playback.SessionConfig{UserID: creds.UserID, CourseID: courseID, Autoplay: autoplay},
			outline, records, player, writer, beacon, playback.SystemClock(), logger,
		)
		defer func() {
			s.Close()
			beacon.Wait()
		}()

		if s.Open(requested) == "" {
			return fmt.Errorf("nothing to play in %s", courseID)
		}

		return play(ctx, s, player, speed)
	},
}

func play(ctx context.Context, s *playback.Session, player *simPlayer, speed float64) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	countdownShown := -1
	for {
		select {
		case <-ctx.Done():
			s.OnHidden()
			fmt.Println()
			color.Yellow("■ stopped at %s", client.FormatClock(player.CurrentTime()))
			return nil
		case <-ticker.C:
		}

		if _, ended := player.isEnded(); ended {
			st := s.AutoplayState()
			if !st.Active {
				if _, stillEnded := player.isEnded(); stillEnded {
					color.Green("✓ finished")
					return nil
				}
				countdownShown = -1
				continue
			}
			if st.SecondsRemaining != countdownShown {
				countdownShown = st.SecondsRemaining
				fmt.Printf("  next: %s in %ds\n", st.PendingVideoID, st.SecondsRemaining)
			}
			continue
		}

		t, duration, justEnded := player.advance(speed)
		fraction := 0.0
		if duration > 0 {
			fraction = t / duration
		}
		s.OnSample(playback.Sample{PlayedFraction: fraction, PlayedSeconds: t})
		fmt.Printf("\r  %s / %s  %s ", client.FormatClock(t), client.FormatClock(duration), percent(fraction))

		if justEnded {
			fmt.Println()
			s.OnPause(t)
			if !s.OnEnded() {
				color.Green("✓ finished")
				return nil
			}
		}
	}
}

// courseRecords collects the viewer's stored progress for one course.
func courseRecords(ctx context.Context, api *client.HTTPClient, courseID string) ([]shared.Progress, error) {
	recent, err := api.RecentProgress(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	out := make([]shared.Progress, 0, len(recent))
	for _, p := range recent {
		if p.CourseID == courseID {
			out = append(out, p.Record())
		}
	}
	return out, nil
}

func init() {
	watchCmd.Flags().String("video", "", "Start from this video instead of the resume point")
	watchCmd.Flags().Float64("speed", 1, "Playback speed, seconds of video per second")
	watchCmd.Flags().Bool("autoplay", false, "Override the autoplay preference")
	watchCmd.Flags().String("transport", "http", "Where progress writes go: http or tcp")
}
