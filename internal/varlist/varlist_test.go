package varlist

import (
	"fmt"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/dap-view/pkg/types"
)

// fakeRequester serves a small fixed tree and counts requests:
//
//	frame 1
//	  Scope 1 (ref 2)
//	    variable1 = "value 1" (ref 3)
//	      nested1 = "nested value 1"
//	      nested2 = "nested value 2"
//	    variable2 = "value 2"
//	  Scope 2 (ref 4)
//	    variable3 = "value 3"
type fakeRequester struct {
	stackCalls     int
	scopesCalls    int
	variablesCalls map[int]int

	scopesErr    error
	variablesErr map[int]error
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{
		variablesCalls: make(map[int]int),
		variablesErr:   make(map[int]error),
	}
}

func (r *fakeRequester) StackTrace(threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	r.stackCalls++
	return []dap.StackFrame{
		{Id: 1, Name: "main", Line: 10},
		{Id: 5, Name: "caller", Line: 42},
	}, 2, nil
}

func (r *fakeRequester) Scopes(frameID int) ([]dap.Scope, error) {
	r.scopesCalls++
	if r.scopesErr != nil {
		return nil, r.scopesErr
	}
	return []dap.Scope{
		{Name: "Scope 1", VariablesReference: 2},
		{Name: "Scope 2", VariablesReference: 4},
	}, nil
}

func (r *fakeRequester) Variables(variablesRef int, filter string, start, count int) ([]dap.Variable, error) {
	r.variablesCalls[variablesRef]++
	if err := r.variablesErr[variablesRef]; err != nil {
		return nil, err
	}
	switch variablesRef {
	case 2:
		return []dap.Variable{
			{Name: "variable1", Value: "value 1", VariablesReference: 3},
			{Name: "variable2", Value: "value 2"},
		}, nil
	case 3:
		return []dap.Variable{
			{Name: "nested1", Value: "nested value 1"},
			{Name: "nested2", Value: "nested value 2"},
		}, nil
	case 4:
		return []dap.Variable{
			{Name: "variable3", Value: "value 3"},
		}, nil
	default:
		return nil, fmt.Errorf("unknown reference %d", variablesRef)
	}
}

func newStoppedList(t *testing.T, req *fakeRequester) *VariableList {
	t.Helper()
	l, err := New(req, 16)
	require.NoError(t, err)
	require.NoError(t, l.OnStopped(1))
	require.NoError(t, l.SelectFrame(1))
	return l
}

func names(entries []types.VariableListEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		if e.Kind == types.EntryScope {
			out[i] = e.Scope.Name
		} else {
			out[i] = e.Variable.Name
		}
	}
	return out
}

func TestOnStoppedFetchesStack(t *testing.T) {
	req := newFakeRequester()
	l, err := New(req, 16)
	require.NoError(t, err)

	require.NoError(t, l.OnStopped(1))

	stack := l.Stack(1)
	require.Len(t, stack, 2)
	assert.Equal(t, "main", stack[0].Name)
	assert.Equal(t, 1, req.stackCalls)
	assert.Zero(t, req.scopesCalls, "nothing deeper is fetched before frame selection")
}

func TestSelectFrameLoadsScopesWithChildren(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	entries := l.Entries(1, 1)
	assert.Equal(t, []string{
		"Scope 1", "variable1", "variable2",
		"Scope 2", "variable3",
	}, names(entries))

	// Scope rows at depth 0, implicitly expanded children at depth 1.
	assert.Equal(t, 0, entries[0].Depth)
	assert.Equal(t, 1, entries[1].Depth)
	assert.Equal(t, "value 1", entries[1].Variable.Value)
	assert.True(t, entries[1].HasChildren)
	assert.False(t, entries[1].Expanded)
	assert.False(t, entries[2].HasChildren)
	assert.Equal(t, 2, entries[1].ContainerRef)

	// Selecting the same frame again is a no-op.
	require.NoError(t, l.SelectFrame(1))
	assert.Equal(t, 1, req.scopesCalls)
}

func TestToggleExpandsAndCachesChildren(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	key := types.ExpansionKey{ScopeRef: 2, Path: "variable1", Depth: 1}
	l.ToggleEntry(1, key)

	entries := l.Entries(1, 1)
	assert.Equal(t, []string{
		"Scope 1", "variable1", "nested1", "nested2", "variable2",
		"Scope 2", "variable3",
	}, names(entries))
	assert.True(t, entries[1].Expanded)
	assert.Equal(t, 2, entries[2].Depth)
	assert.Equal(t, 3, entries[2].ContainerRef)
	assert.Equal(t, 1, req.variablesCalls[3])

	// Collapse then re-expand: children come back byte-identical from the
	// cache, with no second request.
	l.ToggleEntry(1, key)
	collapsed := l.Entries(1, 1)
	assert.NotContains(t, names(collapsed), "nested1")

	l.ToggleEntry(1, key)
	reexpanded := l.Entries(1, 1)
	assert.Equal(t, entries, reexpanded)
	assert.Equal(t, 1, req.variablesCalls[3], "re-expansion must hit the cache")
}

func TestExpansionSurvivesRestop(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	key := types.ExpansionKey{ScopeRef: 2, Path: "variable1", Depth: 1}
	l.ToggleEntry(1, key)

	require.NoError(t, l.OnStopped(1))
	require.NoError(t, l.SelectFrame(1))

	// Children were refetched under the new generation, but the row is
	// still expanded without another toggle.
	entries := l.Entries(1, 1)
	assert.Contains(t, names(entries), "nested1")
	assert.Equal(t, 2, req.variablesCalls[2], "scope children refetched per stop")
}

func TestDoubleStopDiscardsStaleResponses(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	firstGen := l.Generation()
	require.NoError(t, l.OnStopped(1))
	assert.Equal(t, firstGen+1, l.Generation())

	// A response issued under the first generation arrives late: it must
	// be discarded, not cached under the current generation.
	l.fetchChildren(firstGen, 2)
	_, found := l.cache.Get(containerKey{gen: l.Generation(), ref: 2})
	assert.False(t, found)
	_, found = l.cache.Get(containerKey{gen: firstGen, ref: 2})
	assert.False(t, found)
}

func TestContinueInvalidatesEverything(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)
	require.NotEmpty(t, l.Entries(1, 1))

	l.OnContinued(1)

	assert.Empty(t, l.Entries(1, 1))
	assert.Empty(t, l.Stack(1))
}

func TestScopeFetchErrorMarksScopeRow(t *testing.T) {
	req := newFakeRequester()
	req.variablesErr[4] = fmt.Errorf("connection reset")
	l := newStoppedList(t, req)

	entries := l.Entries(1, 1)
	// Scope 2's children failed: the scope row carries the error and has
	// no children, while Scope 1 is unaffected.
	assert.Equal(t, []string{"Scope 1", "variable1", "variable2", "Scope 2"}, names(entries))
	assert.Contains(t, entries[3].Error, "connection reset")
	assert.Empty(t, entries[0].Error)
}

func TestChildFetchErrorMarksVariableRow(t *testing.T) {
	req := newFakeRequester()
	req.variablesErr[3] = fmt.Errorf("timed out")
	l := newStoppedList(t, req)

	l.ToggleEntry(1, types.ExpansionKey{ScopeRef: 2, Path: "variable1", Depth: 1})

	entries := l.Entries(1, 1)
	assert.Equal(t, []string{
		"Scope 1", "variable1", "variable2",
		"Scope 2", "variable3",
	}, names(entries))
	assert.Contains(t, entries[1].Error, "timed out")
}

func TestPatchVariableRewritesCachedValue(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	fetches := req.variablesCalls[2]
	require.NoError(t, l.PatchVariable(2, "variable1", "NEW_VALUE"))
	assert.Equal(t, fetches, req.variablesCalls[2])

	entries := l.Entries(1, 1)
	assert.Equal(t, "NEW_VALUE", entries[1].Variable.Value)

	err := l.PatchVariable(2, "no_such_variable", "x")
	require.Error(t, err)
	err = l.PatchVariable(99, "variable1", "x")
	require.Error(t, err)
}

func TestTopScopeRefForNameFirstMatchWins(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	ref, found := l.TopScopeRefForName(1, "variable1")
	require.True(t, found)
	assert.Equal(t, 2, ref)

	ref, found = l.TopScopeRefForName(1, "variable3")
	require.True(t, found)
	assert.Equal(t, 4, ref)

	_, found = l.TopScopeRefForName(1, "missing")
	assert.False(t, found)
}

func TestTerminatedListRejectsMutation(t *testing.T) {
	req := newFakeRequester()
	l := newStoppedList(t, req)

	l.OnTerminated()

	assert.Error(t, l.SelectFrame(5))
	assert.Empty(t, l.Entries(1, 1))

	scopesBefore := req.scopesCalls
	l.ToggleEntry(1, types.ExpansionKey{ScopeRef: 2, Path: "variable1", Depth: 1})
	assert.Equal(t, scopesBefore, req.scopesCalls)

	require.NoError(t, l.OnStopped(1), "stop after terminate is ignored")
	assert.Empty(t, l.Stack(1))
}
