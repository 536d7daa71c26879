package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Method handles one decoded call: metadata plus the request body bytes in,
// response body bytes out.
type Method func(ctx context.Context, md map[string]string, body []byte) ([]byte, error)

// Server serves length-delimited RPC frames over TCP. One goroutine per
// connection; calls on a connection are handled sequentially.
type Server struct {
	mu      sync.RWMutex
	methods map[string]Method
	log     *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{
		methods: make(map[string]Method),
		log:     log.Named("rpc"),
	}
}

// Handle registers a method by its full name, e.g. "bancho.Login".
func (s *Server) Handle(name string, fn Method) {
	s.mu.Lock()
	s.methods[name] = fn
	s.mu.Unlock()
}

func (s *Server) lookup(name string) Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.methods[name]
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		raw, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("connection closed", zap.Error(err))
			}
			return
		}

		var req request
		if err := codec.Unmarshal(raw, &req); err != nil {
			s.reply(conn, &response{Status: StatusInvalidArgument, Error: "malformed envelope"})
			return
		}

		resp := s.call(ctx, &req)
		if err := s.reply(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) call(ctx context.Context, req *request) (resp *response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("rpc method panic recovered",
				zap.String("method", req.Method),
				zap.Any("panic", rec),
			)
			resp = &response{Status: StatusInternal, Error: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	fn := s.lookup(req.Method)
	if fn == nil {
		return &response{Status: StatusNotFound, Error: "unknown method " + req.Method}
	}

	body, err := fn(ctx, req.Metadata, req.Body)
	if err != nil {
		return &response{Status: StatusOf(err), Error: err.Error()}
	}
	return &response{Status: StatusOK, Body: body}
}

func (s *Server) reply(conn net.Conn, resp *response) error {
	raw, err := codec.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(conn, raw)
}
