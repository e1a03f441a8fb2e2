package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Beacon is the position-only payload sent on page hide or unload.
// The field names are the wire contract of POST /api/save-progress.
type Beacon struct {
	User         string  `json:"user"`
	Video        string  `json:"video"`
	Course       string  `json:"course"`
	LastPosition float64 `json:"lastPosition"`
}

const beaconTimeout = 10 * time.Second

// HTTPBeacon posts beacons on a context detached from the session, so the
// request outlives whatever triggered it.
type HTTPBeacon struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewHTTPBeacon creates a sender for endpoint, authenticating with token.
func NewHTTPBeacon(endpoint, token string, logger *slog.Logger) *HTTPBeacon {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBeacon{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: beaconTimeout},
		logger:   logger,
	}
}

// SendBeacon dispatches b in the background. Non-positive positions are dropped.
func (h *HTTPBeacon) SendBeacon(b Beacon) {
	if b.LastPosition <= 0 {
		return
	}
	body, err := json.Marshal(b)
	if err != nil {
		h.logger.Warn("beacon_marshal_failed", "error", err)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()
		if err := h.post(ctx, body); err != nil {
			h.logger.Warn("beacon_send_failed",
				"video_id", b.Video,
				"error", err,
			)
		}
	}()
}

// Wait blocks until dispatched beacons finish. Only process exit paths need it.
func (h *HTTPBeacon) Wait() {
	h.wg.Wait()
}

func (h *HTTPBeacon) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: h.token})
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("beacon rejected with status: %s", resp.Status)
	}
	return nil
}
