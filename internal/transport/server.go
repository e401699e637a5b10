package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gochat-core/wirechat-server/internal/chatroom"
	"github.com/gochat-core/wirechat-server/internal/log"
	"github.com/gochat-core/wirechat-server/internal/protocol"
)

// Server accepts TCP connections and hands each one to a new Conn. A
// shared semaphore bounds how many dispatches may run concurrently
// across every connection at once, replacing the original's fixed
// thread pool with a Go-idiomatic per-message admission control that
// sits on top of one goroutine per connection.
type Server struct {
	listener *net.TCPListener
	codec    protocol.Codec
	hub      *chatroom.Hub
	limiter  *semaphore.Weighted
	logger   log.Logger

	mu       sync.Mutex
	shutdown bool
}

// NewServer binds addr and returns a Server ready to Serve. workers
// sets the maximum number of concurrently in-flight dispatches, the
// direct analogue of the original's --workers thread pool size.
func NewServer(addr *net.TCPAddr, codec protocol.Codec, hub *chatroom.Hub, workers int, logger log.Logger) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		codec:    codec,
		hub:      hub,
		limiter:  semaphore.NewWeighted(int64(workers)),
		logger:   logger,
	}, nil
}

// Addr returns the listener's bound address, useful when the caller
// requested port 0 and needs to learn the assigned port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is canceled or Close is called.
// Each accepted connection runs its own Conn.Run in a new goroutine;
// Serve does not wait for in-flight connections to finish before
// returning — the caller's shutdown sequence does that separately if
// needed.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		_ = conn.SetNoDelay(true)
		c := NewConn(conn, s.codec, s.hub, s.limiter, s.logger)
		s.logger.Info("client connected", "addr", c.client.Name())
		go func() {
			_ = c.Run(ctx)
		}()
	}
}

// Close stops accepting new connections immediately.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	return s.listener.Close()
}
