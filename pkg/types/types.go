// Package types defines shared data types used across the dap-view server.
//
// This package provides type definitions for:
//   - Language: Supported programming languages (Go, Python)
//   - SessionStatus: Debug session states (initializing, running, stopped, terminated)
//   - TranscriptLine: One rendered line of the grouped console transcript
//   - VariableListEntry / ExpansionKey: The flattened variable tree and its
//     stable row identity
//   - Info types: SessionInfo, ThreadInfo, StackFrame, Scope, Variable
//
// These types are used throughout the codebase to maintain type safety
// and provide clear contracts between components.
package types

// Language represents a supported programming language
type Language string

const (
	LanguageGo     Language = "go"
	LanguagePython Language = "python"
)

// SessionStatus represents the status of a debug session
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "initializing"
	SessionStatusRunning      SessionStatus = "running"
	SessionStatusStopped      SessionStatus = "stopped"
	SessionStatusTerminated   SessionStatus = "terminated"
)

// GroupMarker classifies an output event's effect on console grouping.
// The values mirror the wire values of the DAP "group" field.
type GroupMarker string

const (
	GroupNone           GroupMarker = ""
	GroupStart          GroupMarker = "start"
	GroupStartCollapsed GroupMarker = "startCollapsed"
	GroupEnd            GroupMarker = "end"
)

// TranscriptLine is one rendered line of the console transcript.
// Lines are append-only; evaluate results append new lines rather than
// editing history.
type TranscriptLine struct {
	Text string `json:"text"`
	// Depth is the group nesting level; indentation is Depth times the
	// configured indent unit.
	Depth int `json:"depth"`
	// HiddenMarker is set on the closing line of a collapsed group to
	// indicate content was hidden above it.
	HiddenMarker bool   `json:"hiddenMarker,omitempty"`
	Category     string `json:"category,omitempty"`
}

// SessionInfo represents information about a debug session
type SessionInfo struct {
	SessionID string        `json:"sessionId"`
	Language  Language      `json:"language"`
	Status    SessionStatus `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Program   string        `json:"program,omitempty"`
}

// ThreadInfo represents information about a thread
type ThreadInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StackFrame represents a stack frame
type StackFrame struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Source *SourceInfo `json:"source,omitempty"`
	Line   int         `json:"line"`
	Column int         `json:"column,omitempty"`
}

// SourceInfo represents source file information
type SourceInfo struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

// Scope represents a variable scope owned by a stack frame. The
// VariablesReference is only valid while the owning thread is stopped.
type Scope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	Expensive          bool   `json:"expensive,omitempty"`
}

// Variable represents a variable. A VariablesReference of 0 marks a leaf.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}

// ExpansionKey identifies one expandable variable row independent of fetch
// timing: the owning scope's container reference, the dot-joined name path
// from the scope down to the row, and the row's depth. Rows with the same
// key across re-stops are the "same" row for the purpose of restoring
// user-chosen expansion, even though their cached children are invalidated.
type ExpansionKey struct {
	ScopeRef int    `json:"scopeRef"`
	Path     string `json:"path"`
	Depth    int    `json:"depth"`
}

// EntryKind discriminates VariableListEntry variants.
type EntryKind string

const (
	EntryScope    EntryKind = "scope"
	EntryVariable EntryKind = "variable"
)

// VariableListEntry is one row of the flattened variable tree, in display
// order. Scope rows carry Scope; variable rows carry Variable plus the
// container reference of the parent that produced them.
type VariableListEntry struct {
	Kind EntryKind `json:"kind"`

	Scope    *Scope    `json:"scope,omitempty"`
	Variable *Variable `json:"variable,omitempty"`

	// ContainerRef is the parent container's reference (variable rows only).
	ContainerRef int  `json:"containerRef,omitempty"`
	Depth        int  `json:"depth"`
	HasChildren  bool `json:"hasChildren,omitempty"`
	Expanded     bool `json:"expanded,omitempty"`

	// Error carries a per-row fetch failure; the rest of the tree is
	// unaffected.
	Error string `json:"error,omitempty"`
}

// EvaluateResult represents the result of evaluating an expression
type EvaluateResult struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
}
