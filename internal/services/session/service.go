package session

import (
	"sync"

	"github.com/ternarybob/arbor"
)

// Service is an in-memory bearer credential store. The credential itself is
// issued by the backend's login flow, which is outside this engine; the
// engine only reads the token for requests and clears it when the backend
// reports an expired session.
type Service struct {
	mu     sync.RWMutex
	token  string
	logger arbor.ILogger
}

// NewService creates a session store seeded with an initial token.
// An empty token means no active session.
func NewService(token string, logger arbor.ILogger) *Service {
	return &Service{
		token:  token,
		logger: logger,
	}
}

// Token returns the current bearer token, or "" when no session is active
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the stored bearer token
func (s *Service) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.logger.Debug().Msg("Session token updated")
}

// Clear removes the stored bearer token
func (s *Service) Clear() {
	s.mu.Lock()
	hadToken := s.token != ""
	s.token = ""
	s.mu.Unlock()

	if hadToken {
		s.logger.Info().Msg("Session token cleared")
	}
}
