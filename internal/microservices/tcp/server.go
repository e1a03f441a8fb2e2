// Package tcp is the push sync path: players keep a socket open and stream
// progress samples, which are merged in Redis and persisted to Postgres in batches.
package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

type TCPServer struct {
	Addr     string
	Manager  *ConnectionManager
	listener net.Listener
	mu       sync.Mutex
	quitChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// ShutdownGrace is how long clients get to read the shutdown notice.
	ShutdownGrace time.Duration
}

func NewServer(addr string, manager *ConnectionManager) *TCPServer {
	return &TCPServer{
		Addr:          addr,
		Manager:       manager,
		quitChan:      make(chan struct{}),
		ShutdownGrace: 2 * time.Second,
	}
}

// Start listens on Addr and serves until Stop.
func (s *TCPServer) Start() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	return s.Serve(listener)
}

func (s *TCPServer) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	defer listener.Close()

	s.Manager.logger.Info("tcp_server_started", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quitChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Manager.logger.Warn("accept_failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.handleConnection(conn)
		}(conn)
	}
}

func (s *TCPServer) handleConnection(conn net.Conn) {
	client := NewClientConnection(conn, s.Manager)
	s.Manager.AddConnection(client)
	client.Listen()
	s.Manager.RemoveConnection(client)
}

// Stop notifies clients, closes every connection and waits for handlers to return.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *TCPServer) stop() {
	close(s.quitChan)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.Manager.BroadcastSystemMessage("server is shutting down")
	time.Sleep(s.ShutdownGrace)
	s.Manager.CloseAllConnections()
	s.wg.Wait()
}
