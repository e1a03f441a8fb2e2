package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"lecturehub/internal/shared"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	MaxMessageSize      = 64 * 1024       // frames are small JSON objects
	MaxDeadlineDuration = 5 * time.Minute // idle read timeout
	writeTimeout        = 5 * time.Second
	requestTimeout      = 5 * time.Second
)

type ClientConnection struct {
	ID      string
	conn    net.Conn
	writer  *bufio.Writer
	writeMu sync.Mutex
	Manager *ConnectionManager
	Limiter *rate.Limiter

	authMu   sync.RWMutex
	userID   string
	username string
}

func NewClientConnection(conn net.Conn, manager *ConnectionManager) *ClientConnection {
	return &ClientConnection{
		ID:      uuid.NewString(),
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		Manager: manager,
		Limiter: rate.NewLimiter(rate.Limit(10), 20), // 10 msgs/sec with burst of 20
	}
}

// UserID is empty until the connection has authenticated.
func (c *ClientConnection) UserID() string {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.userID
}

// Listen reads frames until the peer disconnects, idles out or the server closes the socket.
func (c *ClientConnection) Listen() {
	defer c.conn.Close()
	reader := bufio.NewReaderSize(c.conn, 4096)
	logger := c.Manager.logger

	logger.Info("client_started_listening",
		"client_id", c.ID,
		"remote_addr", c.conn.RemoteAddr().String(),
	)
	_ = c.conn.SetReadDeadline(time.Now().Add(MaxDeadlineDuration))

	for {
		line, err := readLine(reader, MaxMessageSize)
		if errors.Is(err, errFrameTooLarge) {
			logger.Warn("message_too_large", "client_id", c.ID, "max_size", MaxMessageSize)
			c.reply(errorReply("message too large"))
			continue
		}
		if err != nil {
			c.logReadError(err)
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(MaxDeadlineDuration))

		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		if !c.Limiter.Allow() {
			logger.Warn("rate_limit_exceeded", "client_id", c.ID)
			c.reply(errorReply("rate limit exceeded"))
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			logger.Warn("invalid_json_received", "client_id", c.ID, "error", err.Error())
			c.reply(errorReply("invalid json"))
			continue
		}

		c.dispatch(msg)
	}
}

var errFrameTooLarge = errors.New("frame too large")

// readLine reads one newline-terminated frame, discarding the rest of an oversized one.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > limit {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = r.ReadSlice('\n')
			}
			if err != nil {
				return nil, err
			}
			return nil, errFrameTooLarge
		}
		buf = append(buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return buf, err
	}
}

func (c *ClientConnection) logReadError(err error) {
	logger := c.Manager.logger
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		logger.Info("client_disconnected", "client_id", c.ID)
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Warn("client_read_timeout", "client_id", c.ID)
	case errors.Is(err, net.ErrClosed),
		strings.Contains(err.Error(), "connection reset"),
		strings.Contains(err.Error(), "forcibly closed"):
		// expected during shutdown
	default:
		logger.Error("client_read_error", "client_id", c.ID, "error", err)
	}
}

func (c *ClientConnection) dispatch(msg Message) {
	if msg.Type == TypeAuth {
		c.handleAuth(msg.Data)
		return
	}

	userID := c.UserID()
	if userID == "" {
		c.reply(errorReply("authentication required"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch msg.Type {
	case TypeProgressUpdate:
		c.handleProgressUpdate(ctx, userID, msg.Data)
	case TypePositionUpdate:
		c.handlePositionUpdate(ctx, userID, msg.Data)
	case TypeProgressGet:
		c.handleProgressGet(ctx, userID, msg.Data)
	default:
		c.reply(errorReply(fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

func (c *ClientConnection) handleAuth(raw json.RawMessage) {
	var data AuthData
	if err := json.Unmarshal(raw, &data); err != nil || data.Token == "" {
		c.reply(errorReply("token required"))
		return
	}

	userID, username, err := c.Manager.auth.ValidateToken(data.Token)
	if err != nil {
		c.Manager.logger.Warn("tcp_auth_failed", "client_id", c.ID, "error", err)
		c.reply(errorReply("invalid token"))
		return
	}

	c.authMu.Lock()
	c.userID, c.username = userID, username
	c.authMu.Unlock()

	c.Manager.logger.Info("client_authenticated", "client_id", c.ID, "user_id", userID)
	c.reply(newReply(TypeAuthOK, map[string]string{"user_id": userID, "username": username}))
}

func (c *ClientConnection) handleProgressUpdate(ctx context.Context, userID string, raw json.RawMessage) {
	var data ProgressData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.reply(errorReply("invalid progress payload"))
		return
	}

	merged, err := c.Manager.progressRepo.SaveProgress(ctx, shared.ProgressUpdate{
		UserID:          userID,
		VideoID:         data.VideoID,
		CourseID:        data.CourseID,
		WatchedFraction: data.Progress,
		WatchedSeconds:  data.WatchedSeconds,
		LastPosition:    data.LastPosition,
	})
	c.afterSave(userID, data.VideoID, merged, err)
}

func (c *ClientConnection) handlePositionUpdate(ctx context.Context, userID string, raw json.RawMessage) {
	var data PositionData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.reply(errorReply("invalid position payload"))
		return
	}

	merged, err := c.Manager.progressRepo.SavePosition(ctx, userID, data.VideoID, data.CourseID, data.LastPosition)
	c.afterSave(userID, data.VideoID, merged, err)
}

// afterSave acks the sender and echoes the merged record to the user's other devices.
func (c *ClientConnection) afterSave(userID, videoID string, merged shared.Progress, err error) {
	if errors.Is(err, ErrInvalidUpdate) {
		c.reply(errorReply(err.Error()))
		return
	}
	if err != nil {
		c.Manager.logger.Error("progress_save_failed",
			"client_id", c.ID,
			"user_id", userID,
			"video_id", videoID,
			"error", err.Error(),
		)
		c.reply(errorReply("failed to save progress"))
		return
	}

	c.Manager.logger.Debug("progress_saved",
		"client_id", c.ID,
		"user_id", userID,
		"video_id", merged.VideoID,
		"progress", merged.WatchedFraction,
	)
	c.reply(newReply(TypeProgressAck, merged))

	payload, err := json.Marshal(newReply(TypeProgressBroadcast, merged))
	if err != nil {
		return
	}
	c.Manager.BroadcastToUser(userID, c.ID, payload)
}

func (c *ClientConnection) handleProgressGet(ctx context.Context, userID string, raw json.RawMessage) {
	var data GetData
	if err := json.Unmarshal(raw, &data); err != nil || data.VideoID == "" {
		c.reply(errorReply("video_id required"))
		return
	}

	p, err := c.Manager.progressRepo.GetProgress(ctx, userID, data.VideoID)
	if err != nil {
		c.Manager.logger.Error("progress_get_failed", "client_id", c.ID, "user_id", userID, "error", err)
		c.reply(errorReply("failed to load progress"))
		return
	}
	if p == nil {
		// explicit null: loaded, nothing stored
		c.reply(Reply{Type: TypeProgress, Data: json.RawMessage("null"), Timestamp: time.Now().Unix()})
		return
	}
	c.reply(newReply(TypeProgress, p))
}

func (c *ClientConnection) reply(r Reply) {
	payload, err := json.Marshal(r)
	if err != nil {
		c.Manager.logger.Error("failed_to_marshal_reply", "client_id", c.ID, "error", err)
		return
	}
	if err := c.Send(payload); err != nil {
		c.Manager.logger.Debug("reply_failed", "client_id", c.ID, "error", err)
	}
}

// Send writes data plus a newline; safe for concurrent use by broadcasts.
func (c *ClientConnection) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

func (c *ClientConnection) Close() {
	c.conn.Close()
}
