// Package adapters provides language-specific debug adapter implementations.
//
// This package defines the Adapter interface, concrete implementations for
// Go (via Delve) and Python (via debugpy), and a Registry for lookup by
// language. Adapters handle spawning debug adapter processes and building
// the appropriate launch/attach arguments for each debugger.
package adapters

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/ctagard/dap-view/internal/config"
	"github.com/ctagard/dap-view/internal/dap"
	"github.com/ctagard/dap-view/pkg/types"
)

// Adapter defines the interface for language-specific debug adapters
type Adapter interface {
	// Language returns the language this adapter supports
	Language() types.Language

	// Spawn starts a debug adapter process and returns the TCP address
	// to connect to
	Spawn(ctx context.Context, program string, args map[string]interface{}) (address string, cmd *exec.Cmd, err error)

	// BuildLaunchArgs builds the launch arguments for the debug adapter
	BuildLaunchArgs(program string, args map[string]interface{}) map[string]interface{}

	// BuildAttachArgs builds the attach arguments for the debug adapter
	BuildAttachArgs(args map[string]interface{}) map[string]interface{}
}

// Registry holds all registered adapters
type Registry struct {
	adapters map[types.Language]Adapter
}

// NewRegistry creates a new adapter registry with all supported adapters
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		adapters: make(map[types.Language]Adapter),
	}

	r.adapters[types.LanguageGo] = NewDelveAdapter(cfg.Adapters.Go)
	r.adapters[types.LanguagePython] = NewDebugpyAdapter(cfg.Adapters.Python)

	return r
}

// Get returns the adapter for a language
func (r *Registry) Get(lang types.Language) (Adapter, error) {
	adapter, ok := r.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for language: %s", lang)
	}
	return adapter, nil
}

// Register registers an adapter for a language, overriding any existing adapter
func (r *Registry) Register(lang types.Language, adapter Adapter) {
	r.adapters[lang] = adapter
}

// Languages returns the registered language names
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.adapters))
	for lang := range r.adapters {
		langs = append(langs, string(lang))
	}
	return langs
}

// Connect creates a DAP client connected to the given address via TCP
func Connect(address string, maxRetries int) (*dap.Client, error) {
	var transport *dap.Transport
	var err error

	for i := 0; i < maxRetries; i++ {
		transport, err = dap.NewTCPTransport(address)
		if err == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to debug adapter at %s: %w", address, err)
	}

	return dap.NewClient(transport), nil
}

// SpawnAndConnect spawns an adapter and returns a connected client.
func SpawnAndConnect(ctx context.Context, adapter Adapter, program string, args map[string]interface{}) (*dap.Client, *exec.Cmd, error) {
	address, cmd, err := adapter.Spawn(ctx, program, args)
	if err != nil {
		return nil, nil, err
	}

	// 20 retries * 200ms = 4 seconds max wait
	client, err := Connect(address, 20)
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill() // Error ignored: best-effort cleanup
		}
		return nil, nil, err
	}

	return client, cmd, nil
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port, nil
}
