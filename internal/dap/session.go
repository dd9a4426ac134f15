package dap

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	godap "github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/ctagard/dap-view/internal/console"
	"github.com/ctagard/dap-view/internal/varlist"
	"github.com/ctagard/dap-view/pkg/types"
)

// eventQueueSize bounds the per-session inbound event queue. The consumer
// is fast (pure in-memory mutation), so the queue only absorbs bursts.
const eventQueueSize = 256

// Session represents an active debug session. It owns the adapter client
// and the two derived views, and serializes adapter events into them: the
// client's read loop enqueues, a single goroutine dequeues and dispatches,
// so the console and variable list never see concurrent mutation.
type Session struct {
	ID        string
	Language  types.Language
	Status    types.SessionStatus
	Client    *Client
	Process   *exec.Cmd
	PID       int
	Program   string
	CreatedAt time.Time

	Console   *console.Console
	Variables *varlist.VariableList
	Eval      *console.Coordinator

	events chan godap.Message
	done   chan struct{}

	mu sync.RWMutex
}

// AttachClient wires a connected DAP client into the session, builds the
// derived views, and starts the event consumer.
func (s *Session) AttachClient(client *Client, indentUnit int, mutedCategories []string, cacheSize int) error {
	vars, err := varlist.New(client, cacheSize)
	if err != nil {
		return fmt.Errorf("failed to create variable list: %w", err)
	}

	s.mu.Lock()
	s.Client = client
	s.Console = console.New(indentUnit, mutedCategories)
	s.Variables = vars
	s.Eval = console.NewCoordinator(client, s.Console, vars)
	s.events = make(chan godap.Message, eventQueueSize)
	s.done = make(chan struct{})
	s.mu.Unlock()

	client.SetEventHandler(s.enqueueEvent)
	go s.consumeEvents()

	return nil
}

// enqueueEvent runs on the client's read loop goroutine. Arrival order is
// preserved by the channel; a full queue evicts the oldest queued event
// rather than blocking protocol reads. Evicting the oldest keeps the most
// recent events, so a group end marker arriving during a burst is not the
// one lost. Overflow can still drop a queued marker and skew nesting; the
// warning makes that loss visible.
func (s *Session) enqueueEvent(msg godap.Message) {
	for {
		select {
		case s.events <- msg:
			return
		default:
		}
		select {
		case dropped := <-s.events:
			log.Printf("Warning: session %s event queue full, dropping oldest %T", s.ID, dropped)
		default:
			// The consumer drained the queue between the two selects.
		}
	}
}

// consumeEvents is the session's single delivery point: one event at a
// time, never interleaved.
func (s *Session) consumeEvents() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.events:
			s.dispatchEvent(msg)
		}
	}
}

func (s *Session) dispatchEvent(msg godap.Message) {
	switch ev := msg.(type) {
	case *godap.OutputEvent:
		if err := s.Console.HandleOutput(ev); err != nil {
			// Protocol violation from the adapter; drop the event,
			// keep the session alive.
			log.Printf("Warning: session %s: %v", s.ID, err)
		}
	case *godap.StoppedEvent:
		s.SetStatus(types.SessionStatusStopped)
		if err := s.Variables.OnStopped(ev.Body.ThreadId); err != nil {
			log.Printf("Warning: session %s: %v", s.ID, err)
		}
	case *godap.ContinuedEvent:
		s.SetStatus(types.SessionStatusRunning)
		s.Variables.OnContinued(ev.Body.ThreadId)
	case *godap.TerminatedEvent:
		s.SetStatus(types.SessionStatusTerminated)
		s.Variables.OnTerminated()
	}
}

// stopConsumer halts event delivery; further adapter messages are ignored.
func (s *Session) stopConsumer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	}
}

// SetStatus updates the session status
func (s *Session) SetStatus(status types.SessionStatus) {
	s.mu.Lock()
	s.Status = status
	s.mu.Unlock()
}

// GetInfo returns session info for a session
func (s *Session) GetInfo() types.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.SessionInfo{
		SessionID: s.ID,
		Language:  s.Language,
		Status:    s.Status,
		PID:       s.PID,
		Program:   s.Program,
	}
}

// SessionManager manages multiple debug sessions
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxSessions    int
	sessionTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSessionManager creates a new session manager
func NewSessionManager(maxSessions int, sessionTimeout time.Duration) *SessionManager {
	ctx, cancel := context.WithCancel(context.Background())
	sm := &SessionManager{
		sessions:       make(map[string]*Session),
		maxSessions:    maxSessions,
		sessionTimeout: sessionTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}

	go sm.cleanupLoop()

	return sm
}

// cleanupLoop periodically cleans up expired sessions
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			return
		case <-ticker.C:
			sm.cleanupExpiredSessions()
		}
	}
}

// cleanupExpiredSessions removes sessions that have exceeded the timeout
func (sm *SessionManager) cleanupExpiredSessions() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.CreatedAt) > sm.sessionTimeout {
			sm.terminateSessionLocked(id)
		}
	}
}

// CreateSession creates a new debug session
func (sm *SessionManager) CreateSession(language types.Language, program string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", sm.maxSessions)
	}

	session := &Session{
		ID:        uuid.New().String(),
		Language:  language,
		Status:    types.SessionStatusInitializing,
		Program:   program,
		CreatedAt: time.Now(),
	}

	sm.sessions[session.ID] = session
	return session, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	return session, nil
}

// ListSessions returns all active sessions
func (sm *SessionManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}

// TerminateSession terminates a session and cleans up resources
func (sm *SessionManager) TerminateSession(id string, terminateDebuggee bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.stopConsumer()

	if session.Client != nil {
		if err := session.Client.Disconnect(terminateDebuggee); err != nil {
			log.Printf("Warning: failed to disconnect session %s: %v (continuing cleanup)", id, err)
		}
		if err := session.Client.Close(); err != nil {
			log.Printf("Warning: failed to close client for session %s: %v (continuing cleanup)", id, err)
		}
	}

	// Kill the spawned process group if any
	// Uses platform-specific implementation (process_unix.go / process_windows.go)
	if err := killProcessGroup(session.PID, session.Process); err != nil {
		log.Printf("Warning: failed to kill process group for session %s (PID %d): %v", id, session.PID, err)
	}

	session.SetStatus(types.SessionStatusTerminated)
	delete(sm.sessions, id)

	return nil
}

// terminateSessionLocked terminates a session (must be called with lock held)
func (sm *SessionManager) terminateSessionLocked(id string) {
	session, ok := sm.sessions[id]
	if !ok {
		return
	}

	session.stopConsumer()

	if session.Client != nil {
		if err := session.Client.Disconnect(true); err != nil {
			log.Printf("Warning: failed to disconnect session %s during cleanup: %v", id, err)
		}
		if err := session.Client.Close(); err != nil {
			log.Printf("Warning: failed to close client for session %s during cleanup: %v", id, err)
		}
	}

	if err := killProcessGroup(session.PID, session.Process); err != nil {
		log.Printf("Warning: failed to kill process group for session %s (PID %d) during cleanup: %v", id, session.PID, err)
	}

	session.SetStatus(types.SessionStatusTerminated)
	delete(sm.sessions, id)
}

// SetSessionProcess sets the spawned process for a session
func (sm *SessionManager) SetSessionProcess(id string, cmd *exec.Cmd, pid int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.Process = cmd
	session.PID = pid
	return nil
}

// UpdateSessionStatus updates the status of a session
func (sm *SessionManager) UpdateSessionStatus(id string, status types.SessionStatus) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	session.SetStatus(status)
	return nil
}

// Close shuts down the session manager and all sessions
func (sm *SessionManager) Close() {
	sm.cancel()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id := range sm.sessions {
		sm.terminateSessionLocked(id)
	}
}
