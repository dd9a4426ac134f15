package dap

import (
	"fmt"
	"testing"
	"time"

	godap "github.com/google/go-dap"

	"github.com/ctagard/dap-view/internal/console"
	"github.com/ctagard/dap-view/internal/varlist"
	"github.com/ctagard/dap-view/pkg/types"
)

type stubRequester struct{}

func (stubRequester) StackTrace(threadID, startFrame, levels int) ([]godap.StackFrame, int, error) {
	return []godap.StackFrame{{Id: 1, Name: "main"}}, 1, nil
}

func (stubRequester) Scopes(frameID int) ([]godap.Scope, error) {
	return []godap.Scope{{Name: "Locals", VariablesReference: 2}}, nil
}

func (stubRequester) Variables(variablesRef int, filter string, start, count int) ([]godap.Variable, error) {
	return []godap.Variable{{Name: "x", Value: "1"}}, nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	vars, err := varlist.New(stubRequester{}, 16)
	if err != nil {
		t.Fatal(err)
	}
	return &Session{
		ID:        "test-session",
		Language:  types.LanguageGo,
		Status:    types.SessionStatusRunning,
		Console:   console.New(4, nil),
		Variables: vars,
		events:    make(chan godap.Message, eventQueueSize),
		done:      make(chan struct{}),
	}
}

func outputEvent(text, group string) *godap.OutputEvent {
	return &godap.OutputEvent{
		Body: godap.OutputEventBody{Output: text + "\n", Group: group},
	}
}

func TestDispatchOutputEvent(t *testing.T) {
	s := newTestSession(t)

	s.dispatchEvent(outputEvent("group", "start"))
	s.dispatchEvent(outputEvent("inside", ""))
	s.dispatchEvent(outputEvent("done", "end"))

	lines := s.Console.Transcript()
	if len(lines) != 3 {
		t.Fatalf("expected 3 transcript lines, got %d", len(lines))
	}
	if lines[1].Depth != 1 {
		t.Errorf("expected grouped line at depth 1, got %d", lines[1].Depth)
	}
}

func TestDispatchMalformedOutputKeepsSessionAlive(t *testing.T) {
	s := newTestSession(t)

	// Unmatched end is logged and dropped; later events still work.
	s.dispatchEvent(outputEvent("stray", "end"))
	s.dispatchEvent(outputEvent("after", ""))

	lines := s.Console.Transcript()
	if len(lines) != 1 || lines[0].Text != "after" {
		t.Fatalf("expected only the trailing line, got %v", lines)
	}
}

func TestDispatchStoppedEvent(t *testing.T) {
	s := newTestSession(t)

	s.dispatchEvent(&godap.StoppedEvent{
		Body: godap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1},
	})

	if s.GetInfo().Status != types.SessionStatusStopped {
		t.Errorf("expected stopped status, got %s", s.GetInfo().Status)
	}
	if len(s.Variables.Stack(1)) != 1 {
		t.Error("expected stack trace fetched on stop")
	}
}

func TestDispatchContinuedInvalidatesViews(t *testing.T) {
	s := newTestSession(t)

	s.dispatchEvent(&godap.StoppedEvent{Body: godap.StoppedEventBody{ThreadId: 1}})
	gen := s.Variables.Generation()

	s.dispatchEvent(&godap.ContinuedEvent{Body: godap.ContinuedEventBody{ThreadId: 1}})

	if s.GetInfo().Status != types.SessionStatusRunning {
		t.Errorf("expected running status, got %s", s.GetInfo().Status)
	}
	if s.Variables.Generation() != gen+1 {
		t.Error("expected continue to bump the generation")
	}
	if len(s.Variables.Stack(1)) != 0 {
		t.Error("expected stack discarded on continue")
	}
}

func TestDispatchTerminatedEvent(t *testing.T) {
	s := newTestSession(t)

	s.dispatchEvent(&godap.TerminatedEvent{})

	if s.GetInfo().Status != types.SessionStatusTerminated {
		t.Errorf("expected terminated status, got %s", s.GetInfo().Status)
	}
}

func TestConsumerPreservesEventOrder(t *testing.T) {
	s := newTestSession(t)
	go s.consumeEvents()
	defer s.stopConsumer()

	for i := 0; i < 5; i++ {
		s.enqueueEvent(outputEvent("line", ""))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.Console.Transcript()) == 5 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected 5 lines, got %d", len(s.Console.Transcript()))
}

func TestEnqueueEvictsOldestWhenFull(t *testing.T) {
	s := newTestSession(t)
	// No consumer running: overfill the queue by 10.
	total := eventQueueSize + 10
	for i := 0; i < total; i++ {
		s.enqueueEvent(outputEvent(fmt.Sprintf("burst %d", i), ""))
	}
	if len(s.events) != eventQueueSize {
		t.Fatalf("expected queue capped at %d, got %d", eventQueueSize, len(s.events))
	}

	// The 10 oldest were evicted; the head is event 10 and the newest
	// event survived at the tail.
	first := (<-s.events).(*godap.OutputEvent)
	if got, want := first.Body.Output, "burst 10\n"; got != want {
		t.Errorf("expected head %q, got %q", want, got)
	}
	var last *godap.OutputEvent
	for len(s.events) > 0 {
		last = (<-s.events).(*godap.OutputEvent)
	}
	if got, want := last.Body.Output, fmt.Sprintf("burst %d\n", total-1); got != want {
		t.Errorf("expected tail %q, got %q", want, got)
	}
}

func TestSessionManagerLifecycle(t *testing.T) {
	sm := NewSessionManager(2, time.Minute)
	defer sm.Close()

	s1, err := sm.CreateSession(types.LanguageGo, "./cmd/app")
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID == "" {
		t.Error("expected non-empty session id")
	}
	if s1.Status != types.SessionStatusInitializing {
		t.Errorf("expected initializing status, got %s", s1.Status)
	}

	got, err := sm.GetSession(s1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != s1 {
		t.Error("expected same session back")
	}

	if _, err := sm.GetSession("missing"); err == nil {
		t.Error("expected error for unknown session")
	}

	if _, err := sm.CreateSession(types.LanguagePython, "app.py"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.CreateSession(types.LanguageGo, "third"); err == nil {
		t.Error("expected session limit error")
	}

	if len(sm.ListSessions()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sm.ListSessions()))
	}

	if err := sm.TerminateSession(s1.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.GetSession(s1.ID); err == nil {
		t.Error("expected terminated session to be gone")
	}
	if err := sm.TerminateSession(s1.ID, false); err == nil {
		t.Error("expected error terminating twice")
	}
}

func TestUpdateSessionStatus(t *testing.T) {
	sm := NewSessionManager(1, time.Minute)
	defer sm.Close()

	s, err := sm.CreateSession(types.LanguageGo, "prog")
	if err != nil {
		t.Fatal(err)
	}

	if err := sm.UpdateSessionStatus(s.ID, types.SessionStatusStopped); err != nil {
		t.Fatal(err)
	}
	if s.GetInfo().Status != types.SessionStatusStopped {
		t.Errorf("expected stopped, got %s", s.GetInfo().Status)
	}

	if err := sm.UpdateSessionStatus("missing", types.SessionStatusRunning); err == nil {
		t.Error("expected error for unknown session")
	}
}
