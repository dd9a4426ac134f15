package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the debug tool API
func (s *Server) registerTools() {
	// Session Management (4 tools - both modes)
	s.registerDebugLaunch()
	s.registerDebugAttach()
	s.registerDebugDisconnect()
	s.registerDebugListSessions()

	// Inspection (4 tools - both modes)
	s.registerDebugConsole()
	s.registerDebugVariables()
	s.registerDebugToggle()
	s.registerDebugEvaluate()

	// Control (4 tools - full mode only)
	if s.config.CanUseControlTools() {
		s.registerDebugBreakpoints()
		s.registerDebugStep()
		s.registerDebugContinue()
		s.registerDebugPause()
	}
}

// Session Management Tools

func (s *Server) registerDebugLaunch() {
	tool := mcp.NewTool("debug_launch",
		mcp.WithDescription("Launch a new debug session. Returns sessionId needed for all other tools. Use stopOnEntry=true to pause at first line."),
		mcp.WithString("language",
			mcp.Required(),
			mcp.Description("Programming language: 'go' or 'python'"),
		),
		mcp.WithString("program",
			mcp.Required(),
			mcp.Description("Path to the program to debug. For Go: path to main package directory. For Python: path to the script file."),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory for the program"),
		),
		mcp.WithBoolean("stopOnEntry",
			mcp.Description("Stop on entry point (default: false)"),
		),
		mcp.WithString("pythonPath",
			mcp.Description("Path to Python interpreter (for venv support), e.g. '/path/to/venv/bin/python'"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugLaunch)
}

func (s *Server) registerDebugAttach() {
	tool := mcp.NewTool("debug_attach",
		mcp.WithDescription("Attach to a debug adapter that is already listening on a TCP port."),
		mcp.WithString("language",
			mcp.Required(),
			mcp.Description("Programming language: 'go' or 'python'"),
		),
		mcp.WithString("host",
			mcp.Description("Host address of the debug adapter (default: 127.0.0.1)"),
		),
		mcp.WithNumber("port",
			mcp.Required(),
			mcp.Description("Port of the debug adapter"),
		),
		mcp.WithNumber("pid",
			mcp.Description("Process ID to attach to"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugAttach)
}

func (s *Server) registerDebugDisconnect() {
	tool := mcp.NewTool("debug_disconnect",
		mcp.WithDescription("Disconnect from a debug session"),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID to disconnect from"),
		),
		mcp.WithBoolean("terminateDebuggee",
			mcp.Description("Terminate the debugged process (default: false)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugDisconnect)
}

func (s *Server) registerDebugListSessions() {
	tool := mcp.NewTool("debug_list_sessions",
		mcp.WithDescription("List all active debug sessions"),
	)
	s.mcpServer.AddTool(tool, s.handleDebugListSessions)
}

// Inspection Tools

func (s *Server) registerDebugConsole() {
	tool := mcp.NewTool("debug_console",
		mcp.WithDescription("Read the session's output transcript. Group start/end lines are indented; collapsed groups keep their children hidden and mark the end line. Set rendered=true for a plain-text view."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithBoolean("rendered",
			mcp.Description("Return a rendered plain-text transcript instead of structured lines (default: false)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugConsole)
}

func (s *Server) registerDebugVariables() {
	tool := mcp.NewTool("debug_variables",
		mcp.WithDescription("Get the stopped thread's stack trace and the flattened variable list for one frame. Scopes are always expanded; variable rows expand via debug_toggle. Returns: {stackFrames, entries}."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("threadId",
			mcp.Description("The stopped thread ID (default: first thread reported by the adapter)"),
		),
		mcp.WithNumber("frameId",
			mcp.Description("Stack frame ID to inspect (default: top frame)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugVariables)
}

func (s *Server) registerDebugToggle() {
	tool := mcp.NewTool("debug_toggle",
		mcp.WithDescription("Expand or collapse a variable row in the variable list. The expansion persists across stops. Returns the refreshed entry list."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The stopped thread ID"),
		),
		mcp.WithNumber("frameId",
			mcp.Required(),
			mcp.Description("The stack frame ID containing the row"),
		),
		mcp.WithNumber("scopeRef",
			mcp.Required(),
			mcp.Description("The variablesReference of the scope containing the row (from debug_variables)"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Dot-joined variable path within the scope, e.g. 'variable1' or 'variable1.child'"),
		),
		mcp.WithNumber("depth",
			mcp.Required(),
			mcp.Description("Row depth as reported by debug_variables"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugToggle)
}

func (s *Server) registerDebugEvaluate() {
	tool := mcp.NewTool("debug_evaluate",
		mcp.WithDescription("Evaluate an expression in the debug console. Assignments of the form '$name = value' update the matching variable in place; everything else is sent as a REPL expression. The result is appended to the console transcript."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Expression to evaluate, e.g. 'len(my_list)' or '$variable1 = 5'"),
		),
		mcp.WithNumber("frameId",
			mcp.Description("Stack frame ID for context (default: 0)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugEvaluate)
}

// Control Tools (Full mode only)

func (s *Server) registerDebugBreakpoints() {
	tool := mcp.NewTool("debug_breakpoints",
		mcp.WithDescription("Set breakpoints in a source file. This REPLACES all breakpoints in the file - include all desired breakpoints in each call."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("The source file path"),
		),
		mcp.WithString("breakpoints",
			mcp.Required(),
			mcp.Description("JSON array of breakpoints: [{line: number, condition?: string, hitCondition?: string, logMessage?: string}]"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugBreakpoints)
}

func (s *Server) registerDebugStep() {
	tool := mcp.NewTool("debug_step",
		mcp.WithDescription("Execute a step command. Use type='over' to step to next line, 'into' to enter function calls, 'out' to exit current function."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID to step"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Step type: 'over' (next line), 'into' (enter function), 'out' (exit function)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugStep)
}

func (s *Server) registerDebugContinue() {
	tool := mcp.NewTool("debug_continue",
		mcp.WithDescription("Continue program execution until next breakpoint or program end. Returns immediately."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID to continue"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugContinue)
}

func (s *Server) registerDebugPause() {
	tool := mcp.NewTool("debug_pause",
		mcp.WithDescription("Pause program execution. Use when program is running and you need to inspect state."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The session ID"),
		),
		mcp.WithNumber("threadId",
			mcp.Required(),
			mcp.Description("The thread ID to pause"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugPause)
}
