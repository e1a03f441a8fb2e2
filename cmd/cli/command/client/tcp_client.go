package client

// tcp_client.go = line-delimited JSON client for the progress sync server.

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"lecturehub/internal/shared"
)

var ErrNotConnected = errors.New("not connected to sync server")

// Frame is one message written by the sync server.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Progress decodes the frame payload as a progress record.
func (f Frame) Progress() (*shared.Progress, error) {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return nil, nil
	}
	var p shared.Progress
	if err := json.Unmarshal(f.Data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// TCPClient holds one authenticated sync connection.
type TCPClient struct {
	serverAddr string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	userID string
	frames chan Frame
	closed chan struct{}
	once   sync.Once
}

func NewTCPClient(serverAddr string) *TCPClient {
	return &TCPClient{
		serverAddr: serverAddr,
		frames:     make(chan Frame, 64),
		closed:     make(chan struct{}),
	}
}

// Connect dials the server and authenticates with an access token.
func (c *TCPClient) Connect(ctx context.Context, token string) error {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := d.DialContext(dialCtx, "tcp", c.serverAddr)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.mu.Unlock()

	if err := c.send(outbound{Type: "auth", Data: map[string]string{"token": token}}); err != nil {
		conn.Close()
		return fmt.Errorf("authentication failed: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	reply, err := c.readFrame()
	if err != nil {
		conn.Close()
		return fmt.Errorf("authentication response failed: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	if reply.Type != "auth_ok" {
		conn.Close()
		return fmt.Errorf("authentication rejected: %s", reply.Message)
	}
	var who struct {
		UserID string `json:"user_id"`
	}
	_ = json.Unmarshal(reply.Data, &who)
	c.userID = who.UserID

	go c.readLoop()
	return nil
}

// UserID is the identity the server bound to this connection.
func (c *TCPClient) UserID() string {
	return c.userID
}

// Frames delivers every message after authentication. It is closed when the connection drops.
func (c *TCPClient) Frames() <-chan Frame {
	return c.frames
}

// SendProgress pushes a full progress sample.
func (c *TCPClient) SendProgress(u shared.ProgressUpdate) error {
	return c.send(outbound{Type: "progress_update", Data: map[string]any{
		"video_id":        u.VideoID,
		"course_id":       u.CourseID,
		"progress":        u.WatchedFraction,
		"watched_seconds": u.WatchedSeconds,
		"last_position":   u.LastPosition,
	}})
}

// SendPosition pushes a resume point only.
func (c *TCPClient) SendPosition(videoID, courseID string, position float64) error {
	return c.send(outbound{Type: "position_update", Data: map[string]any{
		"video_id":      videoID,
		"course_id":     courseID,
		"last_position": position,
	}})
}

// RequestProgress asks for the stored record; the answer arrives on Frames as type "progress".
func (c *TCPClient) RequestProgress(videoID string) error {
	return c.send(outbound{Type: "progress_get", Data: map[string]string{"video_id": videoID}})
}

// SaveProgress lets the client act as the player's progress writer.
func (c *TCPClient) SaveProgress(_ context.Context, u shared.ProgressUpdate) error {
	return c.SendProgress(u)
}

func (c *TCPClient) Disconnect() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.mu.Unlock()
	})
	return err
}

func (c *TCPClient) send(msg outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = c.conn.Write(data)
	return err
}

func (c *TCPClient) readFrame() (*Frame, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *TCPClient) readLoop() {
	defer close(c.frames)
	for {
		f, err := c.readFrame()
		if err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				continue
			}
			return
		}
		select {
		case c.frames <- *f:
		case <-c.closed:
			return
		}
	}
}
