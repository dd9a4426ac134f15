package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-dap"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ctagard/dap-view/internal/adapters"
	internaldap "github.com/ctagard/dap-view/internal/dap"
	"github.com/ctagard/dap-view/internal/errors"
	"github.com/ctagard/dap-view/pkg/types"
)

// Session Management Handlers

func (s *Server) handleDebugLaunch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	langStr, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("language",
			"Specify the programming language: 'go' or 'python'.").Error()), nil
	}

	program, err := request.RequireString("program")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("program",
			"Specify the path to the program to debug. For Go: path to main package directory. For Python: path to the script file.").Error()), nil
	}

	lang := types.Language(langStr)

	adapter, err := s.adapterReg.Get(lang)
	if err != nil {
		return mcp.NewToolResultError(errors.AdapterNotSupported(langStr, s.adapterReg.Languages()).Error()), nil
	}

	if !s.config.CanSpawn() {
		return mcp.NewToolResultError(errors.PermissionDenied("spawn", string(s.config.Mode)).Error()), nil
	}

	session, err := s.sessionManager.CreateSession(lang, program)
	if err != nil {
		return mcp.NewToolResultError(errors.SessionLimitReached(s.config.MaxSessions).Error()), nil
	}

	// Build launch arguments from request
	args := make(map[string]interface{})
	if cwd, err := request.RequireString("cwd"); err == nil {
		args["cwd"] = cwd
	}
	if stopOnEntry := request.GetBool("stopOnEntry", false); stopOnEntry {
		args["stopOnEntry"] = true
	}
	if pythonPath, err := request.RequireString("pythonPath"); err == nil {
		args["pythonPath"] = pythonPath
	}

	client, cmd, err := adapters.SpawnAndConnect(ctx, adapter, program, args)
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, false)
		return mcp.NewToolResultError(errors.AdapterSpawnFailed(langStr, err).Error()), nil
	}

	if cmd != nil && cmd.Process != nil {
		s.sessionManager.SetSessionProcess(session.ID, cmd, cmd.Process.Pid)
	}

	// Wire the client into the session views before any protocol traffic,
	// so no output or stop event is lost.
	if err := session.AttachClient(client, s.config.Console.IndentUnit, s.config.Console.MutedCategories, s.config.Tree.CacheSize); err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, err = client.Initialize("dap-view", "DAP View Server")
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(errors.DAPInitFailed(err).Error()), nil
	}

	// Launch asynchronously - debugpy won't respond until after configurationDone
	launchArgs := adapter.BuildLaunchArgs(program, args)
	launchRespCh, err := client.LaunchAsync(launchArgs)
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(errors.DAPLaunchFailed(program, err).Error()), nil
	}

	if err := client.WaitInitialized(10 * time.Second); err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(errors.DAPTimeout("waiting for initialized event", 10).Error()), nil
	}

	// debugpy holds the launch response until configurationDone; only send
	// it when the adapter advertised the capability.
	if client.Capabilities().SupportsConfigurationDoneRequest {
		if err := client.ConfigurationDone(); err != nil {
			s.sessionManager.TerminateSession(session.ID, true)
			return mcp.NewToolResultError(errors.Wrap(errors.CodeDAPLaunchFailed, "configuration done failed", "The debug adapter rejected the configuration. Try launching with simpler options.", err).Error()), nil
		}
	}

	_, err = client.WaitForLaunchResponse(launchRespCh, 10*time.Second)
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(errors.DAPLaunchFailed(program, err).Error()), nil
	}

	s.sessionManager.UpdateSessionStatus(session.ID, types.SessionStatusRunning)

	result := map[string]interface{}{
		"sessionId": session.ID,
		"status":    "launched",
		"language":  string(lang),
		"program":   program,
	}
	if cmd != nil && cmd.Process != nil {
		result["pid"] = cmd.Process.Pid
	}

	return jsonResult(result)
}

func (s *Server) handleDebugAttach(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	langStr, err := request.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("language",
			"Specify the programming language of the process to attach to: 'go' or 'python'.").Error()), nil
	}

	if !s.config.CanAttach() {
		return mcp.NewToolResultError(errors.PermissionDenied("attach", string(s.config.Mode)).Error()), nil
	}

	lang := types.Language(langStr)

	adapter, err := s.adapterReg.Get(lang)
	if err != nil {
		return mcp.NewToolResultError(errors.AdapterNotSupported(langStr, s.adapterReg.Languages()).Error()), nil
	}

	host := "127.0.0.1"
	if h, err := request.RequireString("host"); err == nil {
		host = h
	}

	port, err := request.RequireFloat("port")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("port",
			"Specify the TCP port the debug adapter is listening on.").Error()), nil
	}

	session, err := s.sessionManager.CreateSession(lang, "attached")
	if err != nil {
		return mcp.NewToolResultError(errors.SessionLimitReached(s.config.MaxSessions).Error()), nil
	}

	args := map[string]interface{}{
		"host": host,
		"port": port,
	}
	if pid, err := request.RequireFloat("pid"); err == nil {
		args["pid"] = pid
	}

	address := fmt.Sprintf("%s:%d", host, int(port))
	client, err := adapters.Connect(address, 10)
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, false)
		return mcp.NewToolResultError(errors.AdapterConnectFailed(address, err).Error()), nil
	}

	if err := session.AttachClient(client, s.config.Console.IndentUnit, s.config.Console.MutedCategories, s.config.Tree.CacheSize); err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, err = client.Initialize("dap-view", "DAP View Server")
	if err != nil {
		s.sessionManager.TerminateSession(session.ID, true)
		return mcp.NewToolResultError(errors.DAPInitFailed(err).Error()), nil
	}

	attachArgs := adapter.BuildAttachArgs(args)
	if _, err := client.Attach(attachArgs); err != nil {
		s.sessionManager.TerminateSession(session.ID, false)
		return mcp.NewToolResultError(errors.DAPAttachFailed(err).Error()), nil
	}

	if client.Capabilities().SupportsConfigurationDoneRequest {
		if err := client.ConfigurationDone(); err != nil {
			s.sessionManager.TerminateSession(session.ID, false)
			return mcp.NewToolResultError(fmt.Sprintf("configuration failed: %v", err)), nil
		}
	}

	s.sessionManager.UpdateSessionStatus(session.ID, types.SessionStatusRunning)

	return jsonResult(map[string]interface{}{
		"sessionId": session.ID,
		"status":    "attached",
		"language":  string(lang),
	})
}

func (s *Server) handleDebugDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	terminateDebuggee := request.GetBool("terminateDebuggee", false)

	if err := s.sessionManager.TerminateSession(sessionID, terminateDebuggee); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"sessionId": sessionID,
		"status":    "disconnected",
	})
}

func (s *Server) handleDebugListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.sessionManager.ListSessions()

	result := make([]map[string]interface{}, len(sessions))
	for i, session := range sessions {
		info := session.GetInfo()
		result[i] = map[string]interface{}{
			"sessionId": info.SessionID,
			"language":  string(info.Language),
			"status":    string(info.Status),
			"program":   info.Program,
		}
		if info.PID > 0 {
			result[i]["pid"] = info.PID
		}
	}

	return jsonResult(map[string]interface{}{
		"sessions": result,
	})
}

// Inspection Handlers

func (s *Server) handleDebugConsole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if request.GetBool("rendered", false) {
		return jsonResult(map[string]interface{}{
			"transcript": session.Console.Render(),
		})
	}

	lines := session.Console.Transcript()
	result := make([]map[string]interface{}, len(lines))
	for i, line := range lines {
		entry := map[string]interface{}{
			"text":  line.Text,
			"depth": line.Depth,
		}
		if line.HiddenMarker {
			entry["hiddenMarker"] = true
		}
		if line.Category != "" {
			entry["category"] = line.Category
		}
		result[i] = entry
	}

	return jsonResult(map[string]interface{}{
		"lines": result,
	})
}

func (s *Server) handleDebugVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var threadID int
	if tid, err := request.RequireFloat("threadId"); err == nil {
		threadID = int(tid)
	} else {
		threadID, err = firstThreadID(session.Client)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	stack := session.Variables.Stack(threadID)

	frameID := 0
	if f, err := request.RequireFloat("frameId"); err == nil {
		frameID = int(f)
	} else if len(stack) > 0 {
		frameID = stack[0].Id
	}

	if err := session.Variables.SelectFrame(frameID); err != nil {
		return mcp.NewToolResultError(errors.FrameNotLoaded(frameID).WithCause(err).Error()), nil
	}

	entries := session.Variables.Entries(threadID, frameID)

	return jsonResult(map[string]interface{}{
		"threadId":    threadID,
		"stackFrames": stackJSON(stack),
		"frameId":     frameID,
		"entries":     entriesJSON(entries),
	})
}

func (s *Server) handleDebugToggle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frameID, err := request.RequireFloat("frameId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scopeRef, err := request.RequireFloat("scopeRef")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth, err := request.RequireFloat("depth")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	key := types.ExpansionKey{
		ScopeRef: int(scopeRef),
		Path:     path,
		Depth:    int(depth),
	}
	session.Variables.ToggleEntry(int(frameID), key)

	entries := session.Variables.Entries(int(threadID), int(frameID))

	return jsonResult(map[string]interface{}{
		"entries": entriesJSON(entries),
	})
}

func (s *Server) handleDebugEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.config.CanEvaluate() {
		return mcp.NewToolResultError(errors.PermissionDenied("evaluate", string(s.config.Mode)).Error()), nil
	}

	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	expression, err := request.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(errors.MissingParameter("expression",
			"Specify the expression to evaluate, e.g. 'len(my_list)' or '$x = 5'.").Error()), nil
	}

	frameID := 0
	if f, err := request.RequireFloat("frameId"); err == nil {
		frameID = int(f)
	}

	evalErr := session.Eval.Evaluate(expression, frameID)

	// The outcome, success or failure, is always the transcript's last line.
	lines := session.Console.Transcript()
	last := ""
	if len(lines) > 0 {
		last = lines[len(lines)-1].Text
	}

	result := map[string]interface{}{
		"expression": expression,
		"output":     last,
		"ok":         evalErr == nil,
	}
	if evalErr != nil {
		result["error"] = evalErr.Error()
	}

	return jsonResult(result)
}

// Control Handlers

func (s *Server) handleDebugBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bpsJSON, err := request.RequireString("breakpoints")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var bpRequests []struct {
		Line         int    `json:"line"`
		Condition    string `json:"condition,omitempty"`
		HitCondition string `json:"hitCondition,omitempty"`
		LogMessage   string `json:"logMessage,omitempty"`
	}

	if err := json.Unmarshal([]byte(bpsJSON), &bpRequests); err != nil {
		return mcp.NewToolResultError(errors.InvalidParameter("breakpoints", bpsJSON,
			`JSON array like [{"line": 10}, {"line": 20, "condition": "x > 5"}]`).Error()), nil
	}

	source := dap.Source{
		Path: path,
	}

	breakpoints := make([]dap.SourceBreakpoint, len(bpRequests))
	for i, bp := range bpRequests {
		breakpoints[i] = dap.SourceBreakpoint{
			Line:         bp.Line,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
		}
	}

	bps, err := session.Client.SetBreakpoints(source, breakpoints)
	if err != nil {
		return mcp.NewToolResultError(errors.AdapterRequestFailed("setBreakpoints", err).Error()), nil
	}

	result := make([]map[string]interface{}, len(bps))
	for i, bp := range bps {
		result[i] = map[string]interface{}{
			"id":       bp.Id,
			"verified": bp.Verified,
			"line":     bp.Line,
		}
		if bp.Message != "" {
			result[i]["message"] = bp.Message
		}
	}

	return jsonResult(map[string]interface{}{
		"breakpoints": result,
	})
}

func (s *Server) handleDebugStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stepType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch stepType {
	case "over":
		err = session.Client.Next(int(threadID))
	case "into":
		err = session.Client.StepIn(int(threadID))
	case "out":
		err = session.Client.StepOut(int(threadID))
	default:
		return mcp.NewToolResultError(errors.InvalidParameter("type", stepType, "'over', 'into', or 'out'").Error()), nil
	}

	if err != nil {
		return mcp.NewToolResultError(errors.StepFailed(stepType, err).Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"status": "stepped",
		"type":   stepType,
	})
}

func (s *Server) handleDebugContinue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	allThreads, err := session.Client.Continue(int(threadID))
	if err != nil {
		return mcp.NewToolResultError(errors.AdapterRequestFailed("continue", err).Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"status":              "continued",
		"allThreadsContinued": allThreads,
	})
}

func (s *Server) handleDebugPause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.getSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	threadID, err := request.RequireFloat("threadId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := session.Client.Pause(int(threadID)); err != nil {
		return mcp.NewToolResultError(errors.AdapterRequestFailed("pause", err).Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"status": "pause requested",
	})
}

// Helpers

// threadLister is the slice of the client the thread fallback needs.
type threadLister interface {
	Threads() ([]dap.Thread, error)
}

// firstThreadID resolves the thread to inspect when the caller does not
// name one: the first thread in the adapter's reported order.
func firstThreadID(client threadLister) (int, error) {
	threads, err := client.Threads()
	if err != nil {
		return 0, errors.AdapterRequestFailed("threads", err)
	}
	if len(threads) == 0 {
		return 0, errors.NoThreads()
	}
	return threads[0].Id, nil
}

func (s *Server) getSession(request mcp.CallToolRequest) (*internaldap.Session, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return nil, errors.MissingParameter("sessionId",
			"Provide the sessionId returned from debug_launch or debug_attach. Use debug_list_sessions to see active sessions.")
	}

	session, err := s.sessionManager.GetSession(sessionID)
	if err != nil {
		return nil, errors.SessionNotFound(sessionID)
	}

	if session.Client == nil {
		return nil, errors.SessionNoClient(sessionID)
	}

	return session, nil
}

func stackJSON(frames []dap.StackFrame) []map[string]interface{} {
	result := make([]map[string]interface{}, len(frames))
	for i, f := range frames {
		frame := map[string]interface{}{
			"id":   f.Id,
			"name": f.Name,
			"line": f.Line,
		}
		if f.Column > 0 {
			frame["column"] = f.Column
		}
		if f.Source != nil {
			frame["source"] = map[string]interface{}{
				"name": f.Source.Name,
				"path": f.Source.Path,
			}
		}
		result[i] = frame
	}
	return result
}

func entriesJSON(entries []types.VariableListEntry) []map[string]interface{} {
	result := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		entry := map[string]interface{}{
			"kind":  string(e.Kind),
			"depth": e.Depth,
		}
		switch e.Kind {
		case types.EntryScope:
			entry["name"] = e.Scope.Name
			entry["variablesReference"] = e.Scope.VariablesReference
		case types.EntryVariable:
			entry["name"] = e.Variable.Name
			entry["value"] = e.Variable.Value
			if e.Variable.Type != "" {
				entry["type"] = e.Variable.Type
			}
			entry["containerRef"] = e.ContainerRef
		}
		if e.HasChildren {
			entry["hasChildren"] = true
		}
		if e.Expanded {
			entry["expanded"] = true
		}
		if e.Error != "" {
			entry["error"] = e.Error
		}
		result[i] = entry
	}
	return result
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
