package console

import (
	"fmt"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/dap-view/internal/varlist"
)

type fakeEvaluator struct {
	result string
	err    error

	lastExpression string
	lastFrameID    int
	lastContext    string
	calls          int
}

func (f *fakeEvaluator) Evaluate(expression string, frameID int, context string) (*dap.EvaluateResponseBody, error) {
	f.calls++
	f.lastExpression = expression
	f.lastFrameID = frameID
	f.lastContext = context
	if f.err != nil {
		return nil, f.err
	}
	return &dap.EvaluateResponseBody{Result: f.result}, nil
}

type fakePatcher struct {
	scopeRef int
	found    bool

	patchedRef   int
	patchedName  string
	patchedValue string
	patchCalls   int
}

func (f *fakePatcher) TopScopeRefForName(frameID int, name string) (int, bool) {
	return f.scopeRef, f.found
}

func (f *fakePatcher) PatchVariable(containerRef int, name, newValue string) error {
	f.patchCalls++
	f.patchedRef = containerRef
	f.patchedName = name
	f.patchedValue = newValue
	return nil
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		expr     string
		wantName string
		wantOK   bool
	}{
		{"$variable1 = 5", "variable1", true},
		{"$x=1", "x", true},
		{"$_private = foo()", "_private", true},
		{"  $padded = 1", "padded", true},
		{"$x =5", "x", true},
		{"$x =", "x", true},
		{"variable1 = 5", "", false},
		{"$1bad = 5", "", false},
		{"$name", "", false},
		{"len(xs)", "", false},
		{"", "", false},
		{"$x == 5", "", false},
		{"$flag==true", "", false},
		{"$x === y", "", false},
	}

	for _, tt := range tests {
		name, ok := ParseAssignment(tt.expr)
		assert.Equal(t, tt.wantOK, ok, "expr %q", tt.expr)
		assert.Equal(t, tt.wantName, name, "expr %q", tt.expr)
	}
}

func TestEvaluateReplExpression(t *testing.T) {
	eval := &fakeEvaluator{result: "3"}
	patcher := &fakePatcher{}
	c := New(4, nil)
	coord := NewCoordinator(eval, c, patcher)

	require.NoError(t, coord.Evaluate("len(xs)", 7))

	assert.Equal(t, "repl", eval.lastContext)
	assert.Equal(t, 7, eval.lastFrameID)
	assert.Equal(t, "len(xs)", eval.lastExpression)
	assert.Zero(t, patcher.patchCalls, "non-assignments never patch")

	lines := c.Transcript()
	require.Len(t, lines, 1)
	assert.Equal(t, "3", lines[0].Text)
	assert.Equal(t, 0, lines[0].Depth)
}

func TestEvaluateAssignmentPatchesTopScope(t *testing.T) {
	eval := &fakeEvaluator{result: "5"}
	patcher := &fakePatcher{scopeRef: 2, found: true}
	c := New(4, nil)
	coord := NewCoordinator(eval, c, patcher)

	require.NoError(t, coord.Evaluate("$variable1 = 5", 1))

	// The adapter sees the full expression, in the variables context.
	assert.Equal(t, "variables", eval.lastContext)
	assert.Equal(t, "$variable1 = 5", eval.lastExpression)

	assert.Equal(t, 1, patcher.patchCalls)
	assert.Equal(t, 2, patcher.patchedRef)
	assert.Equal(t, "variable1", patcher.patchedName)
	assert.Equal(t, "5", patcher.patchedValue)

	lines := c.Transcript()
	require.Len(t, lines, 1)
	assert.Equal(t, "5", lines[0].Text)
}

func TestEvaluateFailureBecomesErrorLine(t *testing.T) {
	eval := &fakeEvaluator{err: fmt.Errorf("symbol not found")}
	c := New(4, nil)
	coord := NewCoordinator(eval, c, &fakePatcher{})

	err := coord.Evaluate("bogus()", 0)
	require.Error(t, err)

	lines := c.Transcript()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "error: ")
	assert.Contains(t, lines[0].Text, "bogus()")
}

func TestEvaluateUnresolvedTargetStillAppendsResult(t *testing.T) {
	eval := &fakeEvaluator{result: "5"}
	patcher := &fakePatcher{found: false}
	c := New(4, nil)
	coord := NewCoordinator(eval, c, patcher)

	require.NoError(t, coord.Evaluate("$missing = 5", 1))

	assert.Zero(t, patcher.patchCalls)
	lines := c.Transcript()
	require.Len(t, lines, 1)
	assert.Equal(t, "5", lines[0].Text)
}

// treeRequester backs a real variable list for the end-to-end assignment
// test below.
type treeRequester struct {
	variablesCalls int
}

func (r *treeRequester) StackTrace(threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	return []dap.StackFrame{{Id: 1, Name: "main"}}, 1, nil
}

func (r *treeRequester) Scopes(frameID int) ([]dap.Scope, error) {
	return []dap.Scope{
		{Name: "Scope 1", VariablesReference: 2},
		{Name: "Scope 2", VariablesReference: 4},
	}, nil
}

func (r *treeRequester) Variables(variablesRef int, filter string, start, count int) ([]dap.Variable, error) {
	r.variablesCalls++
	switch variablesRef {
	case 2:
		return []dap.Variable{
			{Name: "variable1", Value: "value 1", VariablesReference: 3},
			{Name: "variable2", Value: "value 2"},
		}, nil
	case 4:
		return []dap.Variable{
			{Name: "variable3", Value: "old value"},
		}, nil
	default:
		return nil, nil
	}
}

func TestAssignmentUpdatesCachedValueWithoutRefetch(t *testing.T) {
	req := &treeRequester{}
	vars, err := varlist.New(req, 16)
	require.NoError(t, err)
	require.NoError(t, vars.OnStopped(1))
	require.NoError(t, vars.SelectFrame(1))

	fetchesBefore := req.variablesCalls

	eval := &fakeEvaluator{result: "5"}
	c := New(4, nil)
	coord := NewCoordinator(eval, c, vars)

	require.NoError(t, coord.Evaluate("$variable1 = 5", 1))

	assert.Equal(t, fetchesBefore, req.variablesCalls, "patch must not re-fetch")

	entries := vars.Entries(1, 1)
	var patched string
	for _, e := range entries {
		if e.Variable != nil && e.Variable.Name == "variable1" {
			patched = e.Variable.Value
		}
	}
	assert.Equal(t, "5", patched)

	lines := c.Transcript()
	require.Len(t, lines, 1)
	assert.Equal(t, "5", lines[0].Text)
}
