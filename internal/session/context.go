package session

import (
	"sync"
	"time"

	"github.com/yousuf/stepbyte/internal/debugger"
)

// SessionContext holds the state of one MCP session: the last traced run,
// which get_debug_state steps through.
type SessionContext struct {
	SessionID string

	mu           sync.RWMutex
	result       *debugger.Result
	createdAt    time.Time
	lastAccessed time.Time
}

// NewSessionContext creates a new session context
func NewSessionContext(sessionID string) *SessionContext {
	now := time.Now()
	return &SessionContext{
		SessionID:    sessionID,
		createdAt:    now,
		lastAccessed: now,
	}
}

// UpdateLastAccessed records activity on the session
func (s *SessionContext) UpdateLastAccessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = time.Now()
}

// LastAccessed returns when the session was last used
func (s *SessionContext) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessed
}

// SetResult replaces the session's last run
func (s *SessionContext) SetResult(res *debugger.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
}

// Result returns the session's last run, or nil
func (s *SessionContext) Result() *debugger.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}
