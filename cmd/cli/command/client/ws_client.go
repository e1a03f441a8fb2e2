package client

// ws_client.go = subscribes to live progress changes over the websocket endpoint.

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lecturehub/internal/shared"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// LiveEvent mirrors the frames the server pushes to subscribers.
type LiveEvent struct {
	Type      string           `json:"type"`
	Progress  *shared.Progress `json:"progress,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// progressSocketURL rewrites the API base URL into the websocket endpoint.
func progressSocketURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/progress"
	return u.String(), nil
}

// WatchProgress streams progress events until ctx is cancelled or the server closes.
func WatchProgress(ctx context.Context, apiURL, token string, onEvent func(LiveEvent)) error {
	endpoint, err := progressSocketURL(apiURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var ev LiveEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		onEvent(ev)
	}
}

// PrintEvent renders one live event on the terminal.
func PrintEvent(ev LiveEvent) {
	ts := ev.Timestamp.Local().Format("15:04:05")
	switch ev.Type {
	case "system":
		color.Yellow("[%s] %s", ts, ev.Message)
	case "progress_changed":
		if ev.Progress == nil {
			return
		}
		p := ev.Progress
		if p.Completed {
			color.Green("[%s] %s/%s completed", ts, p.CourseID, p.VideoID)
			return
		}
		color.Cyan("[%s] %s/%s %5.1f%% at %s", ts, p.CourseID, p.VideoID, p.WatchedFraction*100, FormatClock(p.LastPosition))
	}
}

// FormatClock renders seconds as m:ss or h:mm:ss.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
