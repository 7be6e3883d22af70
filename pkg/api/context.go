package api

import (
	"context"

	"github.com/charmbracelet/log"
)

type contextKey string

const contextKeyRequestID contextKey = "requestID"

// RequestID returns the request ID stored by the request ID middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func (s *Server) requestLogger(ctx context.Context) *log.Logger {
	if id := RequestID(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}
