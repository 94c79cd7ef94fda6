package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/w-h-a/upserter/server"
)

type httpServer struct {
	options server.Options
	router  *mux.Router
	mtx     sync.RWMutex
	srv     *http.Server
	exit    chan struct{}
}

func (s *httpServer) Options() server.Options {
	return s.options
}

func (s *httpServer) Handle(path string, h http.Handler, methods ...string) {
	route := s.router.Handle(path, h)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

func (s *httpServer) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.srv != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return err
	}

	// record the bound address so ":0" resolves to a real port
	s.options.Address = ln.Addr().String()

	var handler http.Handler = s.router
	if ms, ok := MiddlewareFrom(s.options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	s.srv = &http.Server{Handler: handler}
	s.exit = make(chan struct{})

	go func() {
		slog.InfoContext(s.options.Context, "http server listening", "name", s.options.Name, "address", s.options.Address)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(s.options.Context, "http server failed", "error", err)
		}
		close(s.exit)
	}()

	return nil
}

func (s *httpServer) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	<-s.exit

	s.srv = nil

	slog.InfoContext(s.options.Context, "http server stopped", "name", s.options.Name)

	return err
}

func NewServer(opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	s := &httpServer{
		options: options,
		router:  mux.NewRouter(),
	}

	return s
}
