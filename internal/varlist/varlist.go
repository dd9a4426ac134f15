// Package varlist maintains the flattened, expandable variable tree for a
// debug session.
//
// The adapter assigns opaque container references to scopes and structured
// variables; a reference is only valid while the owning thread stays in one
// stopped state. The list keys its cache by (generation, reference) and
// bumps the generation on every Stopped, Continued, and Terminated event,
// so late responses from a superseded stop can never be dereferenced.
// User-chosen expansion is keyed separately by ExpansionKey and survives
// re-stops; cached data does not.
package varlist

import (
	"log"
	"sync"

	"github.com/google/go-dap"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ctagard/dap-view/internal/errors"
	"github.com/ctagard/dap-view/pkg/types"
)

// Requester issues the adapter requests the list depends on. The session's
// DAP client satisfies it; tests supply counting fakes.
type Requester interface {
	StackTrace(threadID, startFrame, levels int) ([]dap.StackFrame, int, error)
	Scopes(frameID int) ([]dap.Scope, error)
	Variables(variablesRef int, filter string, start, count int) ([]dap.Variable, error)
}

// containerKey pairs a container reference with the stopped-state
// generation it was issued in. Purging on resume plus the generation in the
// key keeps stale references from ever resolving.
type containerKey struct {
	gen uint64
	ref int
}

// cacheEntry holds one fetched child list, or the error that prevented the
// fetch. An errored entry renders as an inline marker on the owning row.
type cacheEntry struct {
	variables []dap.Variable
	err       string
}

type frameState struct {
	scopes []dap.Scope
	err    string
}

// VariableList converts Scopes/Variables responses into an ordered,
// depth-annotated entry list, with lazy fetch-on-expand.
type VariableList struct {
	mu  sync.Mutex
	req Requester

	// gen counts stopped-state transitions. Responses carry the generation
	// they were requested under and are discarded on mismatch.
	gen uint64

	stacks   map[int][]dap.StackFrame // threadID -> frames
	frames   map[int]*frameState      // frameID -> scopes
	cache    *lru.Cache[containerKey, *cacheEntry]
	inflight map[containerKey]bool

	// expanded survives invalidation: it records user intent, not data.
	expanded map[types.ExpansionKey]bool

	closed bool
}

// New creates a variable list backed by a reference cache of at most
// cacheSize child lists.
func New(req Requester, cacheSize int) (*VariableList, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[containerKey, *cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &VariableList{
		req:      req,
		stacks:   make(map[int][]dap.StackFrame),
		frames:   make(map[int]*frameState),
		cache:    cache,
		inflight: make(map[containerKey]bool),
		expanded: make(map[types.ExpansionKey]bool),
	}, nil
}

// invalidateLocked discards every cached reference and in-flight marker and
// moves to the next generation. Expansion intent is retained.
func (l *VariableList) invalidateLocked() {
	l.gen++
	l.cache.Purge()
	l.stacks = make(map[int][]dap.StackFrame)
	l.frames = make(map[int]*frameState)
	l.inflight = make(map[containerKey]bool)
}

// OnStopped handles a Stopped event for threadID. All session-wide cached
// state is discarded, since adapters may reuse references across threads,
// then the thread's stack trace is fetched. Nothing deeper is fetched until
// a frame is selected.
func (l *VariableList) OnStopped(threadID int) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.invalidateLocked()
	gen := l.gen
	l.mu.Unlock()

	frames, _, err := l.req.StackTrace(threadID, 0, 0)
	if err != nil {
		return errors.AdapterRequestFailed("stackTrace", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		log.Printf("Warning: %v", errors.StaleContainerReference(0, gen, l.gen))
		return nil
	}
	l.stacks[threadID] = frames
	return nil
}

// OnContinued handles a Continued event: every cached reference is now
// invalid.
func (l *VariableList) OnContinued(threadID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.invalidateLocked()
}

// OnTerminated invalidates everything and stops accepting mutation.
func (l *VariableList) OnTerminated() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidateLocked()
	l.closed = true
}

// Stack returns the fetched stack frames for threadID, if any.
func (l *VariableList) Stack(threadID int) []dap.StackFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	frames := make([]dap.StackFrame, len(l.stacks[threadID]))
	copy(frames, l.stacks[threadID])
	return frames
}

// SelectFrame loads frameID for display: scopes are fetched if not already
// loaded, and every scope's immediate children are fetched eagerly, since
// scopes are always open by default. A scope fetch failure is recorded on
// the frame; a child fetch failure is recorded on that scope's cache entry.
func (l *VariableList) SelectFrame(frameID int) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.Wrap(errors.CodeSessionTerminated, "session has terminated", "", nil)
	}
	if _, loaded := l.frames[frameID]; loaded {
		l.mu.Unlock()
		return nil
	}
	gen := l.gen
	l.mu.Unlock()

	scopes, err := l.req.Scopes(frameID)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		l.frames[frameID] = &frameState{err: err.Error()}
		l.mu.Unlock()
		return errors.AdapterRequestFailed("scopes", err)
	}
	l.frames[frameID] = &frameState{scopes: scopes}
	l.mu.Unlock()

	for _, scope := range scopes {
		l.fetchChildren(gen, scope.VariablesReference)
		l.fetchExpanded(gen, scope.VariablesReference, scope.VariablesReference, "", 1)
	}
	return nil
}

// fetchExpanded walks the freshly cached children under parentRef and
// refetches rows the user had expanded before the last invalidation, so
// expansion intent is honored with fresh data after every stop.
func (l *VariableList) fetchExpanded(gen uint64, scopeRef, parentRef int, prefix string, depth int) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	entry, ok := l.cache.Get(containerKey{gen: gen, ref: parentRef})
	if !ok || entry.err != "" {
		l.mu.Unlock()
		return
	}
	variables := make([]dap.Variable, len(entry.variables))
	copy(variables, entry.variables)
	l.mu.Unlock()

	for _, v := range variables {
		if v.VariablesReference == 0 {
			continue
		}
		path := joinPath(prefix, v.Name)
		key := types.ExpansionKey{ScopeRef: scopeRef, Path: path, Depth: depth}

		l.mu.Lock()
		expanded := l.expanded[key]
		l.mu.Unlock()
		if !expanded {
			continue
		}

		l.fetchChildren(gen, v.VariablesReference)
		l.fetchExpanded(gen, scopeRef, v.VariablesReference, path, depth+1)
	}
}

// fetchChildren fetches the child list for ref under generation gen,
// de-duplicating against in-flight fetches and discarding the response if
// execution resumed in the meantime.
func (l *VariableList) fetchChildren(gen uint64, ref int) {
	key := containerKey{gen: gen, ref: ref}

	l.mu.Lock()
	if gen != l.gen || l.inflight[key] {
		l.mu.Unlock()
		return
	}
	if _, cached := l.cache.Get(key); cached {
		l.mu.Unlock()
		return
	}
	l.inflight[key] = true
	l.mu.Unlock()

	variables, err := l.req.Variables(ref, "", 0, 0)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, key)
	if gen != l.gen {
		log.Printf("Warning: %v", errors.StaleContainerReference(ref, gen, l.gen))
		return
	}
	entry := &cacheEntry{variables: variables}
	if err != nil {
		entry = &cacheEntry{err: errors.AdapterRequestFailed("variables", err).Message}
	}
	l.cache.Add(key, entry)
}

// ToggleEntry flips the expansion state of the row identified by key in
// frameID. Newly expanded rows with uncached children trigger a fetch;
// collapsing never does, and re-expanding an already-fetched row is free.
func (l *VariableList) ToggleEntry(frameID int, key types.ExpansionKey) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	nowExpanded := !l.expanded[key]
	if nowExpanded {
		l.expanded[key] = true
	} else {
		delete(l.expanded, key)
	}
	gen := l.gen

	var ref int
	if nowExpanded {
		ref = l.findContainerRefLocked(frameID, key)
	}
	l.mu.Unlock()

	if nowExpanded && ref != 0 {
		l.fetchChildren(gen, ref)
	}
}

// findContainerRefLocked resolves key to the container reference of its
// row by walking the frame's cached tree the same way Entries does.
func (l *VariableList) findContainerRefLocked(frameID int, key types.ExpansionKey) int {
	state, ok := l.frames[frameID]
	if !ok {
		return 0
	}
	for _, scope := range state.scopes {
		if scope.VariablesReference != key.ScopeRef {
			continue
		}
		if ref := l.findInChildrenLocked(key, scope.VariablesReference, "", 1); ref != 0 {
			return ref
		}
	}
	return 0
}

func (l *VariableList) findInChildrenLocked(key types.ExpansionKey, parentRef int, prefix string, depth int) int {
	entry, ok := l.cache.Get(containerKey{gen: l.gen, ref: parentRef})
	if !ok || entry.err != "" {
		return 0
	}
	for _, v := range entry.variables {
		path := joinPath(prefix, v.Name)
		if path == key.Path && depth == key.Depth {
			return v.VariablesReference
		}
		if v.VariablesReference != 0 {
			if ref := l.findInChildrenLocked(key, v.VariablesReference, path, depth+1); ref != 0 {
				return ref
			}
		}
	}
	return 0
}

// Entries returns the flattened display list for threadID/frameID. It is a
// pure function over the stored scopes, the expansion set, and the cache:
// partial data renders as expanded-but-childless rather than blocking, and
// the list is recomputed wholesale on every call.
func (l *VariableList) Entries(threadID, frameID int) []types.VariableListEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.frames[frameID]
	if !ok {
		return nil
	}

	var entries []types.VariableListEntry
	for i := range state.scopes {
		scope := &state.scopes[i]
		scopeEntry := types.VariableListEntry{
			Kind: types.EntryScope,
			Scope: &types.Scope{
				Name:               scope.Name,
				VariablesReference: scope.VariablesReference,
				Expensive:          scope.Expensive,
			},
		}
		cached, found := l.cache.Get(containerKey{gen: l.gen, ref: scope.VariablesReference})
		if found && cached.err != "" {
			scopeEntry.Error = cached.err
		}
		entries = append(entries, scopeEntry)

		// Scopes are implicitly expanded; their immediate children are
		// visible without user action.
		if found && cached.err == "" {
			entries = l.appendChildrenLocked(entries, scope.VariablesReference, scope.VariablesReference, cached.variables, "", 1)
		}
	}
	return entries
}

func (l *VariableList) appendChildrenLocked(entries []types.VariableListEntry, scopeRef, parentRef int, variables []dap.Variable, prefix string, depth int) []types.VariableListEntry {
	for i := range variables {
		v := &variables[i]
		path := joinPath(prefix, v.Name)
		key := types.ExpansionKey{ScopeRef: scopeRef, Path: path, Depth: depth}
		expanded := l.expanded[key]

		entry := types.VariableListEntry{
			Kind: types.EntryVariable,
			Variable: &types.Variable{
				Name:               v.Name,
				Value:              v.Value,
				Type:               v.Type,
				VariablesReference: v.VariablesReference,
			},
			ContainerRef: parentRef,
			Depth:        depth,
			HasChildren:  v.VariablesReference != 0,
			Expanded:     expanded,
		}

		var children *cacheEntry
		if expanded && v.VariablesReference != 0 {
			if cached, found := l.cache.Get(containerKey{gen: l.gen, ref: v.VariablesReference}); found {
				if cached.err != "" {
					entry.Error = cached.err
				} else {
					children = cached
				}
			}
		}
		entries = append(entries, entry)

		// An expanded row whose fetch is still in flight shows as
		// expanded with no children until the response lands.
		if children != nil {
			entries = l.appendChildrenLocked(entries, scopeRef, v.VariablesReference, children.variables, path, depth+1)
		}
	}
	return entries
}

// PatchVariable overwrites the cached value of the variable named name
// under containerRef, without issuing any request. The flattened view picks
// the new value up on its next recompute.
func (l *VariableList) PatchVariable(containerRef int, name, newValue string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache.Get(containerKey{gen: l.gen, ref: containerRef})
	if !ok || entry.err != "" {
		return errors.UnresolvedPatchTarget(containerRef, name)
	}
	for i := range entry.variables {
		if entry.variables[i].Name == name {
			entry.variables[i].Value = newValue
			return nil
		}
	}
	return errors.UnresolvedPatchTarget(containerRef, name)
}

// TopScopeRefForName returns the container reference of the topmost scope
// in frameID whose cached children include a variable named name. First
// match wins.
func (l *VariableList) TopScopeRefForName(frameID int, name string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.frames[frameID]
	if !ok {
		return 0, false
	}
	for _, scope := range state.scopes {
		entry, found := l.cache.Get(containerKey{gen: l.gen, ref: scope.VariablesReference})
		if !found || entry.err != "" {
			continue
		}
		for i := range entry.variables {
			if entry.variables[i].Name == name {
				return scope.VariablesReference, true
			}
		}
	}
	return 0, false
}

// FrameError returns the recorded scope-fetch failure for frameID, if any.
func (l *VariableList) FrameError(frameID int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if state, ok := l.frames[frameID]; ok {
		return state.err
	}
	return ""
}

// Generation returns the current stopped-state generation counter.
func (l *VariableList) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
