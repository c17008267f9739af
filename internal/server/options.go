package server

import (
	"time"

	"github.com/agbru/matcalc/internal/logging"
	"github.com/agbru/matcalc/internal/service"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the default zerolog logger. Nil is ignored.
//
// Parameters:
//   - logger: The logger for request and lifecycle events.
//
// Returns:
//   - Option: A server option.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithService replaces the service behind /multiply. Nil is ignored.
func WithService(svc service.Service) Option {
	return func(s *Server) {
		if svc != nil {
			s.service = svc
		}
	}
}

// WithTimeouts replaces the server timeouts.
//
// Parameters:
//   - timeouts: The full set of deadlines.
//
// Returns:
//   - Option: A server option.
func WithTimeouts(timeouts Timeouts) Option {
	return func(s *Server) {
		s.timeouts = timeouts
	}
}

// Timeouts holds the HTTP server deadlines.
type Timeouts struct {
	// RequestTimeout bounds a single product. A product that has started
	// runs to completion, so this only stops queued work.
	RequestTimeout time.Duration
	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// DefaultServerTimeouts returns the timeouts NewServer starts from.
func DefaultServerTimeouts() Timeouts {
	return Timeouts{
		RequestTimeout:  2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    3 * time.Minute,
		IdleTimeout:     2 * time.Minute,
	}
}
