package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kbukum/prefetchkit/logger"
)

// Server runs the status router on its own listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	log        *logger.Logger
	errc       chan error
}

// Start listens on addr and serves handler in the background. Use ":0" to
// pick a free port; Addr reports the one chosen.
func Start(addr string, handler http.Handler, log *logger.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
		log:      log.WithComponent("status"),
		errc:     make(chan error, 1),
	}
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errc <- err
	}()

	s.log.Info("Status server listening", logger.Fields("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.errc
}
