package testutil

import (
	"context"
	"net/http"
	"sync"
)

// StubHTTPServer satisfies the server package's listener abstraction without
// binding a port. ListenAndServe blocks until Shutdown when ListenErr is nil.
// A non-nil Unblock channel makes Shutdown wait for it or the deadline.
type StubHTTPServer struct {
	AddrVal    string
	HandlerVal http.Handler
	ListenErr  error
	Unblock    chan struct{}

	mu            sync.Mutex
	listenCalls   int
	shutdownCalls int
	stopped       chan struct{}
	once          sync.Once
}

func (s *StubHTTPServer) init() {
	s.once.Do(func() { s.stopped = make(chan struct{}) })
}

func (s *StubHTTPServer) ListenAndServe() error {
	s.init()
	s.mu.Lock()
	s.listenCalls++
	s.mu.Unlock()
	if s.ListenErr != nil {
		return s.ListenErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *StubHTTPServer) Shutdown(ctx context.Context) error {
	s.init()
	s.mu.Lock()
	s.shutdownCalls++
	first := s.shutdownCalls == 1
	s.mu.Unlock()
	if first {
		close(s.stopped)
	}
	if s.Unblock == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Unblock:
		return nil
	}
}

func (s *StubHTTPServer) Addr() string {
	return s.AddrVal
}

func (s *StubHTTPServer) Handler() http.Handler {
	return s.HandlerVal
}

// ListenCalls reports how many times ListenAndServe ran.
func (s *StubHTTPServer) ListenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenCalls
}

// ShutdownCalls reports how many times Shutdown ran.
func (s *StubHTTPServer) ShutdownCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownCalls
}
