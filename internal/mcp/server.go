// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes debugging capabilities through MCP tools that can be
// used by AI assistants and other MCP clients:
//
// Session Management (always available):
//   - debug_launch: Launch a new debug session
//   - debug_attach: Attach to a running debug adapter
//   - debug_disconnect: Disconnect from a session
//   - debug_list_sessions: List active sessions
//
// Inspection (always available):
//   - debug_console: Read the session's output transcript
//   - debug_variables: Get the stack and the flattened variable list
//   - debug_toggle: Expand or collapse a variable row
//   - debug_evaluate: Evaluate an expression in the console
//
// Control (full mode only):
//   - debug_breakpoints: Set breakpoints
//   - debug_step: Step over/into/out
//   - debug_continue: Resume execution
//   - debug_pause: Pause execution
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ctagard/dap-view/internal/adapters"
	"github.com/ctagard/dap-view/internal/config"
	"github.com/ctagard/dap-view/internal/dap"
	"github.com/ctagard/dap-view/internal/version"
)

// Server wraps the MCP server with debugging capabilities
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *dap.SessionManager
	adapterReg     *adapters.Registry
	config         *config.Config
}

// NewServer creates a new dap-view server
func NewServer(cfg *config.Config) *Server {
	mcpServer := server.NewMCPServer(
		"dap-view",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	sessionManager := dap.NewSessionManager(cfg.MaxSessions, cfg.SessionTimeout)
	adapterReg := adapters.NewRegistry(cfg)

	s := &Server{
		mcpServer:      mcpServer,
		sessionManager: sessionManager,
		adapterReg:     adapterReg,
		config:         cfg,
	}

	s.registerTools()

	return s
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server
func (s *Server) Close() {
	s.sessionManager.Close()
}

// GetSessionManager returns the session manager
func (s *Server) GetSessionManager() *dap.SessionManager {
	return s.sessionManager
}

// GetAdapterRegistry returns the adapter registry
func (s *Server) GetAdapterRegistry() *adapters.Registry {
	return s.adapterReg
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}
