package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/logging"
)

// Server runs the API on a listener until Shutdown.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	log  logging.Logger
	done chan struct{}
}

// Listen binds addr and starts serving h in the background.
func Listen(addr string, h http.Handler, log logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		log:  log.With("module", "httpapi"),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "http server stopped", "error", err)
		}
	}()
	s.log.Info(context.Background(), "http api listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
