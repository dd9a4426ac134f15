// dap-view is an MCP server exposing debugger console and variable views
// over the Debug Adapter Protocol.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctagard/dap-view/internal/config"
	"github.com/ctagard/dap-view/internal/mcp"
	"github.com/ctagard/dap-view/internal/version"
)

var (
	configPath string
	modeFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "dap-view",
	Short: "MCP debugger console and variable views over DAP",
	Long: `dap-view runs an MCP server over stdio that launches or attaches to
debug adapters (Delve for Go, debugpy for Python) and maintains two
derived views of the session: a grouped output transcript and a
flattened variable tree.`,
	Version: version.String(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to JSON config file")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "", "capability mode: readonly or full (overrides config)")
}

func run() error {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if modeFlag != "" {
		mode := config.CapabilityMode(modeFlag)
		if mode != config.ModeReadOnly && mode != config.ModeFull {
			return fmt.Errorf("invalid mode %q: must be 'readonly' or 'full'", modeFlag)
		}
		cfg.Mode = mode
	}

	// Log to stderr; stdout carries the MCP protocol.
	log.SetOutput(os.Stderr)
	log.Printf("Starting %s (mode: %s)", version.String(), cfg.Mode)

	srv := mcp.NewServer(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		srv.Close()
		os.Exit(0)
	}()

	defer srv.Close()

	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
