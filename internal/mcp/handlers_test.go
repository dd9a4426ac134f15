package mcp

import (
	"fmt"
	"testing"

	"github.com/google/go-dap"

	"github.com/ctagard/dap-view/internal/errors"
)

type fakeThreadLister struct {
	threads []dap.Thread
	err     error
}

func (f *fakeThreadLister) Threads() ([]dap.Thread, error) {
	return f.threads, f.err
}

func TestFirstThreadIDPicksAdapterOrder(t *testing.T) {
	client := &fakeThreadLister{threads: []dap.Thread{
		{Id: 7, Name: "main"},
		{Id: 12, Name: "worker"},
	}}

	id, err := firstThreadID(client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected first thread 7, got %d", id)
	}
}

func TestFirstThreadIDNoThreads(t *testing.T) {
	client := &fakeThreadLister{}

	_, err := firstThreadID(client)
	if err == nil {
		t.Fatal("expected error for empty thread list")
	}
	debugErr, ok := err.(*errors.DebugError)
	if !ok {
		t.Fatalf("expected *DebugError, got %T", err)
	}
	if debugErr.Code != errors.CodeNoThreads {
		t.Errorf("expected code %s, got %s", errors.CodeNoThreads, debugErr.Code)
	}
}

func TestFirstThreadIDRequestFailure(t *testing.T) {
	client := &fakeThreadLister{err: fmt.Errorf("connection reset")}

	_, err := firstThreadID(client)
	if err == nil {
		t.Fatal("expected error when the threads request fails")
	}
	debugErr, ok := err.(*errors.DebugError)
	if !ok {
		t.Fatalf("expected *DebugError, got %T", err)
	}
	if debugErr.Code != errors.CodeAdapterRequestFailed {
		t.Errorf("expected code %s, got %s", errors.CodeAdapterRequestFailed, debugErr.Code)
	}
}
