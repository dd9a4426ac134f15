package console

import (
	"log"
	"regexp"
	"strings"

	"github.com/google/go-dap"

	"github.com/ctagard/dap-view/internal/errors"
)

// assignmentPattern recognizes the purely lexical assignment form
// "$name = rest". A double "==" is a comparison, not an assignment. It is
// not an adapter feature; the adapter sees the full expression unchanged.
var assignmentPattern = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*)\s*=(?:$|[^=])`)

// Evaluator issues evaluate requests against the adapter.
type Evaluator interface {
	Evaluate(expression string, frameID int, context string) (*dap.EvaluateResponseBody, error)
}

// VariablePatcher is the narrow slice of the variable list the coordinator
// is allowed to touch. It never holds a reference to internal storage.
type VariablePatcher interface {
	// TopScopeRefForName returns the container reference of the topmost
	// scope in frameID whose cached children include name.
	TopScopeRefForName(frameID int, name string) (int, bool)
	PatchVariable(containerRef int, name, newValue string) error
}

// Coordinator routes a user expression to the adapter and patches either
// the console transcript or the affected variable in place.
type Coordinator struct {
	client  Evaluator
	console *Console
	vars    VariablePatcher
}

// NewCoordinator wires an evaluation coordinator to its collaborators.
func NewCoordinator(client Evaluator, console *Console, vars VariablePatcher) *Coordinator {
	return &Coordinator{
		client:  client,
		console: console,
		vars:    vars,
	}
}

// ParseAssignment reports whether expr has the assignment form and, if so,
// the target variable name.
func ParseAssignment(expr string) (name string, ok bool) {
	m := assignmentPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Evaluate sends expr to the adapter for frameID. Assignment-form
// expressions run in the "variables" context and patch the matching cached
// variable; everything else runs in "repl" and lands in the transcript.
// Failures become an error transcript line, never a crash.
func (c *Coordinator) Evaluate(expr string, frameID int) error {
	name, isAssignment := ParseAssignment(expr)

	evalContext := "repl"
	if isAssignment {
		evalContext = "variables"
	}

	body, err := c.client.Evaluate(expr, frameID, evalContext)
	if err != nil {
		evalErr := errors.EvaluationFailed(expr, err)
		c.console.AppendError(evalErr.Message)
		return evalErr
	}

	c.console.AppendResult(body.Result)

	if isAssignment && c.vars != nil {
		// First matching scope wins; ties between scopes are not detected.
		if ref, found := c.vars.TopScopeRefForName(frameID, name); found {
			if err := c.vars.PatchVariable(ref, name, body.Result); err != nil {
				log.Printf("Warning: %v", err)
			}
		} else {
			log.Printf("Warning: %v", errors.UnresolvedPatchTarget(0, name))
		}
	}

	return nil
}
