package server

import (
	"go.uber.org/zap"
	"time"
)

type Option func(server *Server)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}

func WithReadHeaderTimeout(timeout time.Duration) Option {
	return func(server *Server) {
		if timeout > 0 {
			server.httpServer.ReadHeaderTimeout = timeout
		}
	}
}
