// Package grpc is a small JSON-over-TCP RPC layer: newline-delimited JSON
// requests dispatched by "Service.Method" name over persistent connections.
//
//	s := grpc.NewServer()
//	s.Register("CatalogSearch.Search", handler)
//	go s.ListenAndServe(":9000")
//
//	c, _ := grpc.Dial(ctx, "localhost:9000")
//	var resp proto.SearchResponse
//	c.Call(ctx, "CatalogSearch.Search", &proto.SearchRequest{Colors: []string{"red"}}, &resp)
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
)

// HandlerFunc decodes params, does the work and returns a JSON-encodable
// result.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id"`
	Params json.RawMessage `json:"params"`
}

// Response carries either Data or Error. Code is the HTTP-equivalent status
// of the error so clients can tell caller mistakes from server faults.
type Response struct {
	ID    string `json:"id"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

type Server struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	listener net.Listener
	conns    map[net.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:   slog.Default().With("component", "rpc-server"),
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[net.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
	s.logger.Debug("method registered", "method", method)
}

// Methods returns the number of registered methods.
func (s *Server) Methods() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called, then returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := enc.Encode(resp); err != nil {
			s.logger.Error("write failed", "method", req.Method, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	resp := Response{ID: req.ID}
	if !ok {
		resp.Error = fmt.Sprintf("unknown method: %s", req.Method)
		resp.Code = http.StatusNotFound
		return resp
	}
	data, err := handler(s.ctx, req.Params)
	if err != nil {
		resp.Error = apperrors.Message(err)
		resp.Code = apperrors.HTTPStatusCode(err)
		return resp
	}
	resp.Data = data
	return resp
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit.
func (s *Server) Stop() {
	s.cancel()
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("rpc server stopped")
}
