// Package console turns the flat stream of DAP output events into an
// ordered, indented, collapsible transcript.
//
// Output events may open a group ("start"), open a pre-collapsed group
// ("startCollapsed"), or close the innermost group ("end"). Lines inside a
// collapsed group, or inside any descendant of one, are suppressed. The
// closing line of a collapsed group is kept and flagged so the rendering
// surface can show a hidden-content indicator.
//
// The engine is order-sensitive: events must arrive in the order the
// adapter emitted them. The owning session serializes delivery; the mutex
// here only guards transcript snapshots taken from other goroutines.
package console

import (
	"strings"
	"sync"

	"github.com/google/go-dap"

	"github.com/ctagard/dap-view/internal/errors"
	"github.com/ctagard/dap-view/pkg/types"
)

// groupFrame is one open output group. suppressed is true if this frame or
// any ancestor is collapsed. Stack depth equals the indentation level of
// subsequent non-marker lines.
type groupFrame struct {
	collapsed  bool
	suppressed bool
}

// Console accumulates the grouped transcript for one debug session.
type Console struct {
	mu    sync.Mutex
	lines []types.TranscriptLine
	stack []groupFrame

	indentUnit int
	muted      map[string]bool
}

// New creates an empty console. indentUnit is the number of spaces per
// nesting level in Render; mutedCategories suppresses matching lines while
// still balancing their group markers.
func New(indentUnit int, mutedCategories []string) *Console {
	if indentUnit <= 0 {
		indentUnit = 4
	}
	muted := make(map[string]bool, len(mutedCategories))
	for _, c := range mutedCategories {
		muted[c] = true
	}
	return &Console{
		indentUnit: indentUnit,
		muted:      muted,
	}
}

// HandleOutput processes one output event. It returns a
// MalformedGroupSequence error when an end marker arrives with no open
// group; the event is dropped and the transcript is left intact.
func (c *Console) HandleOutput(ev *dap.OutputEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := strings.TrimSuffix(ev.Body.Output, "\n")
	category := ev.Body.Category
	lineMuted := c.muted[category]

	switch types.GroupMarker(ev.Body.Group) {
	case types.GroupStart, types.GroupStartCollapsed:
		collapsed := types.GroupMarker(ev.Body.Group) == types.GroupStartCollapsed
		suppressed := c.topSuppressed()
		if !suppressed && !collapsed && !lineMuted {
			c.append(text, category, len(c.stack), false)
		}
		c.stack = append(c.stack, groupFrame{
			collapsed:  collapsed,
			suppressed: suppressed || collapsed,
		})

	case types.GroupEnd:
		if len(c.stack) == 0 {
			return errors.MalformedGroupSequence(text)
		}
		popped := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		if c.topSuppressed() || lineMuted {
			return nil
		}
		// The hidden indicator marks that content above was collapsed,
		// whether or not any line was actually suppressed.
		c.append(text, category, len(c.stack), popped.collapsed)

	default:
		if c.topSuppressed() || lineMuted {
			return nil
		}
		c.append(text, category, len(c.stack), false)
	}

	return nil
}

// AppendResult appends an evaluate result at depth zero.
func (c *Console) AppendResult(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.append(text, "", 0, false)
}

// AppendError appends an evaluate failure at depth zero, prefixed so the
// rendering surface can distinguish it from ordinary output.
func (c *Console) AppendError(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.append("error: "+text, "", 0, false)
}

func (c *Console) append(text, category string, depth int, hidden bool) {
	c.lines = append(c.lines, types.TranscriptLine{
		Text:         text,
		Depth:        depth,
		HiddenMarker: hidden,
		Category:     category,
	})
}

func (c *Console) topSuppressed() bool {
	if len(c.stack) == 0 {
		return false
	}
	return c.stack[len(c.stack)-1].suppressed
}

// Transcript returns an append-only snapshot of the transcript lines.
func (c *Console) Transcript() []types.TranscriptLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.TranscriptLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Depth returns the number of currently open groups.
func (c *Console) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// Render returns the transcript as indented text, one line per entry.
// Lines closing a collapsed group get a leading ellipsis in place of the
// first indent column.
func (c *Console) Render() string {
	lines := c.Transcript()
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(renderPrefix(line, c.indentUnit))
		sb.WriteString(line.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func renderPrefix(line types.TranscriptLine, unit int) string {
	width := line.Depth * unit
	if !line.HiddenMarker {
		return strings.Repeat(" ", width)
	}
	if width == 0 {
		return "⋯ "
	}
	return "⋯" + strings.Repeat(" ", width-1)
}
